package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"showroom-gateway/internal/database"
	"showroom-gateway/internal/models"
	"showroom-gateway/internal/workflow"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

func newStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "conversation.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return NewStore(db), db
}

func TestGetOrCreateIsStable(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	first, created, err := s.GetOrCreate(ctx, "t1", "6281234567890", time.Now())
	if err != nil || !created {
		t.Fatalf("first GetOrCreate = %v, %v", created, err)
	}
	again, created, err := s.GetOrCreate(ctx, "t1", "6281234567890", time.Now())
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("second GetOrCreate = %+v, %v, %v", again, created, err)
	}
	other, _, _ := s.GetOrCreate(ctx, "t2", "6281234567890", time.Now())
	if other.ID == first.ID {
		t.Fatal("conversation shared across tenants")
	}
	if first.Status != StatusActive {
		t.Errorf("status = %q", first.Status)
	}
}

func TestSaveRoundTripsWorkflow(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	c, _, _ := s.GetOrCreate(ctx, "t1", "628111", time.Now())

	state, _, _ := workflow.NewMachine(0).Start(workflow.VehicleUpload, "7", time.Now())
	state.Upload.Brand = "Toyota"
	c.Workflow = state
	c.Context["note"] = "vip"
	if err := s.Save(ctx, c, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "t1", "628111")
	if err != nil {
		t.Fatal(err)
	}
	if got.Workflow == nil || got.Workflow.Upload.Brand != "Toyota" || got.ContextString("note") != "vip" {
		t.Fatalf("reloaded = %+v", got)
	}
	if got.Version() != 1 {
		t.Errorf("version = %d", got.Version())
	}

	var row models.Conversation
	db.First(&row, "id = ?", c.ID)
	if row.CurrentWorkflow != string(workflow.VehicleUpload) {
		t.Errorf("current_workflow = %q", row.CurrentWorkflow)
	}
}

func TestSaveDetectsStaleVersion(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	s.GetOrCreate(ctx, "t1", "628111", time.Now())

	a, _ := s.Get(ctx, "t1", "628111")
	b, _ := s.Get(ctx, "t1", "628111")

	a.Context["winner"] = "a"
	if err := s.Save(ctx, a, nil); err != nil {
		t.Fatal(err)
	}
	b.Context["winner"] = "b"
	if err := s.Save(ctx, b, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale save err = %v", err)
	}

	got, _ := s.Get(ctx, "t1", "628111")
	if got.ContextString("winner") != "a" {
		t.Fatalf("stale write applied: %v", got.Context)
	}
}

func TestSaveRollsBackWithinFailure(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	c, _, _ := s.GetOrCreate(ctx, "t1", "628111", time.Now())

	c.Status = StatusEscalated
	err := s.Save(ctx, c, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Vehicle{TenantID: "t1", Code: "V0001"}).Error; err != nil {
			return err
		}
		return errors.New("commit failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var vehicles int64
	db.Model(&models.Vehicle{}).Count(&vehicles)
	got, _ := s.Get(ctx, "t1", "628111")
	if vehicles != 0 || got.Status != StatusActive || got.Version() != 0 {
		t.Fatalf("partial write: vehicles=%d conv=%+v", vehicles, got)
	}
}

func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "t1", "628111", func(c *Conversation) error {
				n, _ := c.Context["count"].(float64)
				c.Context["count"] = n + 1
				return nil
			})
			if err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, "t1", "628111")
	if got.Context["count"] != float64(writers) {
		t.Fatalf("count = %v, want %d", got.Context["count"], writers)
	}
	if s.locks.size() != 0 {
		t.Errorf("lock table leaked %d entries", s.locks.size())
	}
}

func TestReactivateIsExplicit(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	c, _, _ := s.GetOrCreate(ctx, "t1", "628111", time.Now())
	c.Status = StatusClosed
	if err := s.Save(ctx, c, nil); err != nil {
		t.Fatal(err)
	}

	got, _, _ := s.GetOrCreate(ctx, "t1", "628111", time.Now())
	if got.Status != StatusClosed {
		t.Fatalf("read reactivated conversation: %q", got.Status)
	}
	got.Reactivate()
	if err := s.Save(ctx, got, nil); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "t1", "628111")
	if got.Status != StatusActive {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestSavePersistsMutationsMadeWithin(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	c, _, _ := s.GetOrCreate(ctx, "t1", "628111", time.Now())

	err := s.Save(ctx, c, func(tx *gorm.DB) error {
		c.Context["committed"] = "yes"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, "t1", "628111")
	if got.ContextString("committed") != "yes" {
		t.Fatalf("context = %v", got.Context)
	}
}

func TestSentinelsMatchThroughWrapping(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "t1", "6280000000000")
	if !errors.Is(eris.Wrap(err, "load conversation"), ErrNotFound) {
		t.Fatalf("wrapped Get error %v does not match ErrNotFound", err)
	}
	if errors.Is(eris.Wrap(ErrConflict, "save"), ErrNotFound) {
		t.Fatal("distinct sentinels compare equal")
	}
}
