// Package maintenance holds irreversible operator tooling.
package maintenance

import (
	"context"
	"log/slog"

	"showroom-gateway/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

var ErrConfirmationRequired = eris.New("reset requires explicit confirmation")

type Options struct {
	// Confirm must be set; there is no undo.
	Confirm bool
	// IncludeInventory also deletes the tenant's vehicles.
	IncludeInventory bool
}

type tabler interface {
	TableName() string
}

// Counts maps a table name to the rows deleted from it.
type Counts map[string]int64

// ResetTenant wipes the tenant's conversational data in one transaction.
// The tenant row and its roster are kept.
func ResetTenant(ctx context.Context, db *gorm.DB, tenantID string, opts Options, logger *slog.Logger) (Counts, error) {
	if !opts.Confirm {
		return nil, ErrConfirmationRequired
	}
	if tenantID == "" {
		return nil, eris.New("tenant id is required")
	}

	targets := []tabler{
		&models.Conversation{},
		&models.Message{},
		&models.ProcessedMessage{},
		&models.CommandAudit{},
		&models.Lead{},
		&models.AIHealthState{},
	}
	if opts.IncludeInventory {
		targets = append(targets, &models.Vehicle{})
	}

	counts := Counts{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range targets {
			res := tx.Where("tenant_id = ?", tenantID).Delete(m)
			if res.Error != nil {
				return eris.Wrapf(res.Error, "delete %s", m.TableName())
			}
			counts[m.TableName()] = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Warn("tenant data reset", "tenant_id", tenantID, "include_inventory", opts.IncludeInventory, "deleted", counts)
	return counts, nil
}
