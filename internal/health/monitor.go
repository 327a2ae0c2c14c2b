// Package health is the per-tenant switch that gates automated replies to
// customers.
package health

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"showroom-gateway/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type Status struct {
	TenantID      string     `json:"tenant_id"`
	Enabled       bool       `json:"enabled"`
	Reason        string     `json:"reason,omitempty"`
	DisabledAt    *time.Time `json:"disabled_at,omitempty"`
	AutoRecoverAt *time.Time `json:"auto_recover_at,omitempty"`
	UpdatedBy     string     `json:"updated_by,omitempty"`
}

type Options struct {
	// LazyRecover re-enables a tenant on the first status read after
	// AutoRecoverAt has passed. Off by default: recovery is manual.
	LazyRecover bool
	Now         func() time.Time
}

type Monitor struct {
	db     *gorm.DB
	opts   Options
	logger *slog.Logger
}

func NewMonitor(db *gorm.DB, opts Options, logger *slog.Logger) *Monitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{db: db, opts: opts, logger: logger}
}

// CanProcess reports whether automated customer replies are allowed. A
// tenant without a stored state is enabled. Read failures deny with a reason
// so the caller falls back instead of guessing.
func (m *Monitor) CanProcess(ctx context.Context, tenantID string) Decision {
	st, err := m.Status(ctx, tenantID)
	if err != nil {
		m.logger.Error("health state lookup failed", "tenant_id", tenantID, "error", err)
		return Decision{Allowed: false, Reason: "health state unavailable"}
	}
	if st.Enabled {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Reason: st.Reason}
}

func (m *Monitor) Status(ctx context.Context, tenantID string) (Status, error) {
	var row models.AIHealthState
	err := m.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Status{TenantID: tenantID, Enabled: true}, nil
	}
	if err != nil {
		return Status{}, eris.Wrapf(err, "load health state of %s", tenantID)
	}

	if !row.Enabled && m.opts.LazyRecover && row.AutoRecoverAt != nil && !m.opts.Now().Before(*row.AutoRecoverAt) {
		m.logger.Info("auto recovering automation", "tenant_id", tenantID, "auto_recover_at", *row.AutoRecoverAt)
		if err := m.SetEnabled(ctx, tenantID, true, "auto recovered", "system", nil); err != nil {
			return Status{}, err
		}
		return m.Status(ctx, tenantID)
	}
	return toStatus(&row), nil
}

// SetEnabled upserts the tenant's state. recoverAt is only meaningful when
// disabling and is ignored otherwise.
func (m *Monitor) SetEnabled(ctx context.Context, tenantID string, enabled bool, reason, actor string, recoverAt *time.Time) error {
	now := m.opts.Now()
	row := models.AIHealthState{
		TenantID:  tenantID,
		Enabled:   enabled,
		Reason:    reason,
		UpdatedBy: actor,
	}
	if !enabled {
		row.DisabledAt = &now
		row.AutoRecoverAt = recoverAt
	}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "reason", "disabled_at", "auto_recover_at", "updated_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return eris.Wrapf(err, "store health state of %s", tenantID)
	}
	m.logger.Info("automation toggled", "tenant_id", tenantID, "enabled", enabled, "reason", reason, "actor", actor)
	return nil
}

func toStatus(row *models.AIHealthState) Status {
	return Status{
		TenantID:      row.TenantID,
		Enabled:       row.Enabled,
		Reason:        row.Reason,
		DisabledAt:    row.DisabledAt,
		AutoRecoverAt: row.AutoRecoverAt,
		UpdatedBy:     row.UpdatedBy,
	}
}
