package health

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"showroom-gateway/internal/database"
)

func newMonitor(t *testing.T, opts Options) *Monitor {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return NewMonitor(db, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMissingStateIsEnabled(t *testing.T) {
	m := newMonitor(t, Options{})
	if d := m.CanProcess(context.Background(), "t1"); !d.Allowed {
		t.Fatalf("decision = %+v", d)
	}
}

func TestToggle(t *testing.T) {
	m := newMonitor(t, Options{})
	ctx := context.Background()

	if err := m.SetEnabled(ctx, "t1", false, "model outage", "admin", nil); err != nil {
		t.Fatal(err)
	}
	d := m.CanProcess(ctx, "t1")
	if d.Allowed || d.Reason != "model outage" {
		t.Fatalf("disabled decision = %+v", d)
	}
	if d := m.CanProcess(ctx, "t2"); !d.Allowed {
		t.Fatal("toggle leaked to another tenant")
	}

	if err := m.SetEnabled(ctx, "t1", true, "", "admin", nil); err != nil {
		t.Fatal(err)
	}
	st, _ := m.Status(ctx, "t1")
	if !st.Enabled || st.DisabledAt != nil || st.UpdatedBy != "admin" {
		t.Fatalf("status = %+v", st)
	}
}

func TestAutoRecoverAtIsInertByDefault(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newMonitor(t, Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	past := now.Add(-time.Hour)
	m.SetEnabled(ctx, "t1", false, "maintenance", "admin", &past)

	st, err := m.Status(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Enabled || st.AutoRecoverAt == nil {
		t.Fatalf("status = %+v", st)
	}
}

func TestLazyRecoveryOnRead(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newMonitor(t, Options{LazyRecover: true, Now: func() time.Time { return now }})
	ctx := context.Background()

	later := now.Add(time.Hour)
	m.SetEnabled(ctx, "t1", false, "maintenance", "admin", &later)
	if d := m.CanProcess(ctx, "t1"); d.Allowed {
		t.Fatal("recovered before autoRecoverAt")
	}

	now = now.Add(2 * time.Hour)
	if d := m.CanProcess(ctx, "t1"); !d.Allowed {
		t.Fatal("not recovered after autoRecoverAt")
	}
	st, _ := m.Status(ctx, "t1")
	if st.UpdatedBy != "system" {
		t.Errorf("updated_by = %q", st.UpdatedBy)
	}
}
