package actor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"showroom-gateway/internal/models"
	"showroom-gateway/internal/phone"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type Kind string

const (
	KindStaff    Kind = "staff"
	KindCustomer Kind = "customer"
)

type Role string

const (
	RoleOwner Role = "OWNER"
	RoleAdmin Role = "ADMIN"
	RoleSales Role = "SALES"
	RoleStaff Role = "STAFF"
)

type Permission string

const (
	PermUploadVehicle Permission = "upload_vehicle"
	PermEditVehicle   Permission = "edit_vehicle"
	PermMarkSold      Permission = "mark_sold"
	PermViewInventory Permission = "view_inventory"
	PermViewReports   Permission = "view_reports"
	PermToggleAI      Permission = "toggle_ai"
)

var rolePermissions = map[Role][]Permission{
	RoleOwner: {PermUploadVehicle, PermEditVehicle, PermMarkSold, PermViewInventory, PermViewReports, PermToggleAI},
	RoleAdmin: {PermUploadVehicle, PermEditVehicle, PermMarkSold, PermViewInventory, PermViewReports, PermToggleAI},
	RoleSales: {PermUploadVehicle, PermEditVehicle, PermMarkSold, PermViewInventory},
	RoleStaff: {PermUploadVehicle, PermViewInventory},
}

// Actor is the classified sender of one inbound event.
type Actor struct {
	Phone       string
	Kind        Kind
	IdentityRef string // roster user id for staff, canonical phone for customers
	Name        string
	Role        Role
	Permissions map[Permission]bool
}

func (a Actor) IsStaff() bool { return a.Kind == KindStaff }

func (a Actor) Can(p Permission) bool { return a.Permissions[p] }

// Customer builds the unprivileged actor for phone.
func Customer(canonical string) Actor {
	return Actor{
		Phone:       canonical,
		Kind:        KindCustomer,
		IdentityRef: canonical,
		Permissions: map[Permission]bool{},
	}
}

// Roster reads a tenant's user list.
type Roster interface {
	ActiveUsers(ctx context.Context, tenantID string) ([]models.User, error)
}

type GormRoster struct {
	DB *gorm.DB
}

func (r GormRoster) ActiveUsers(ctx context.Context, tenantID string) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, eris.Wrapf(err, "load roster for tenant %s", tenantID)
	}
	return users, nil
}

// Classifier resolves a canonical phone to Staff or Customer. Nothing is
// cached: roster edits apply to the very next message.
type Classifier struct {
	roster     Roster
	normalizer *phone.Normalizer
	logger     *slog.Logger
}

func NewClassifier(roster Roster, normalizer *phone.Normalizer, logger *slog.Logger) *Classifier {
	return &Classifier{roster: roster, normalizer: normalizer, logger: logger}
}

// Classify never fails. A roster lookup error degrades to Customer so that a
// storage outage cannot grant staff privileges.
func (c *Classifier) Classify(ctx context.Context, tenantID, canonical string) Actor {
	if strings.HasPrefix(canonical, phone.OpaquePrefix) || canonical == "" {
		return Customer(canonical)
	}

	users, err := c.roster.ActiveUsers(ctx, tenantID)
	if err != nil {
		c.logger.Warn("actor lookup failed, treating sender as customer",
			"tenant_id", tenantID, "phone", canonical, "error", err)
		return Customer(canonical)
	}

	for _, u := range users {
		r := c.normalizer.Normalize(u.Phone)
		if !r.Resolved || r.Key != canonical {
			continue
		}
		role := Role(strings.ToUpper(strings.TrimSpace(u.Role)))
		perms, ok := rolePermissions[role]
		if !ok {
			c.logger.Warn("roster entry has unknown role", "tenant_id", tenantID, "user_id", u.ID, "role", u.Role)
			continue
		}
		granted := make(map[Permission]bool, len(perms))
		for _, p := range perms {
			granted[p] = true
		}
		return Actor{
			Phone:       canonical,
			Kind:        KindStaff,
			IdentityRef: strconv.FormatUint(uint64(u.ID), 10),
			Name:        u.Name,
			Role:        role,
			Permissions: granted,
		}
	}
	return Customer(canonical)
}
