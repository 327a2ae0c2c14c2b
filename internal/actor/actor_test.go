package actor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"showroom-gateway/internal/database"
	"showroom-gateway/internal/models"
	"showroom-gateway/internal/phone"
)

type stubRoster struct {
	users []models.User
	err   error
	calls int
}

func (s *stubRoster) ActiveUsers(ctx context.Context, tenantID string) ([]models.User, error) {
	s.calls++
	return s.users, s.err
}

func newTestClassifier(r Roster) *Classifier {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClassifier(r, phone.NewNormalizer(phone.DefaultRules()), logger)
}

func TestClassifyMatchesRosterWithSymmetricNormalization(t *testing.T) {
	roster := &stubRoster{users: []models.User{
		{ID: 7, Name: "Budi", Phone: "0812-3456-7890", Role: "admin"},
	}}
	c := newTestClassifier(roster)

	got := c.Classify(context.Background(), "t1", "6281234567890")
	if got.Kind != KindStaff {
		t.Fatalf("Kind = %s, want staff", got.Kind)
	}
	if got.Role != RoleAdmin || !got.Can(PermViewReports) || got.IdentityRef != "7" {
		t.Errorf("unexpected actor %+v", got)
	}
}

func TestClassifyNeverSubstringMatches(t *testing.T) {
	roster := &stubRoster{users: []models.User{
		{ID: 1, Phone: "6281234567890", Role: "OWNER"},
	}}
	c := newTestClassifier(roster)

	for _, canonical := range []string{"628123456789", "62812345678901", "81234567890"} {
		if got := c.Classify(context.Background(), "t1", canonical); got.IsStaff() {
			t.Errorf("Classify(%s) matched roster by substring", canonical)
		}
	}
}

func TestClassifyLookupErrorDegradesToCustomer(t *testing.T) {
	roster := &stubRoster{err: errors.New("db down")}
	c := newTestClassifier(roster)

	got := c.Classify(context.Background(), "t1", "6281234567890")
	if got.Kind != KindCustomer || len(got.Permissions) != 0 {
		t.Fatalf("lookup error must yield an unprivileged customer, got %+v", got)
	}
}

func TestClassifyUnresolvedSkipsRoster(t *testing.T) {
	roster := &stubRoster{users: []models.User{{ID: 1, Phone: "201234567890123", Role: "OWNER"}}}
	c := newTestClassifier(roster)

	got := c.Classify(context.Background(), "t1", "lid:201234567890123")
	if got.IsStaff() || roster.calls != 0 {
		t.Fatalf("unresolved identifiers must not be looked up, got %+v calls=%d", got, roster.calls)
	}
}

func TestClassifySeesRosterChangesImmediately(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "actor.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	c := newTestClassifier(GormRoster{DB: db})
	ctx := context.Background()

	if got := c.Classify(ctx, "t1", "6281234567890"); got.IsStaff() {
		t.Fatal("empty roster classified staff")
	}

	user := models.User{TenantID: "t1", Name: "Sari", Phone: "+62 812 3456 7890", Role: "SALES", Active: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	got := c.Classify(ctx, "t1", "6281234567890")
	if !got.IsStaff() || got.Role != RoleSales || got.Can(PermToggleAI) {
		t.Fatalf("new roster entry not applied: %+v", got)
	}

	if err := db.Model(&user).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got := c.Classify(ctx, "t1", "6281234567890"); got.IsStaff() {
		t.Fatal("deactivated user still classified staff")
	}

	if got := c.Classify(ctx, "other-tenant", "6281234567890"); got.IsStaff() {
		t.Fatal("roster leaked across tenants")
	}
}
