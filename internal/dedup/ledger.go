// Package dedup records processed external message ids so redelivered
// webhook events take effect at most once.
package dedup

import (
	"context"
	"time"

	"showroom-gateway/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcomes written back by Complete.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Claim records (tenant, externalID). It returns false when the id was
// already claimed; the unique index decides, so concurrent claims of the same
// id yield exactly one true.
func (l *Ledger) Claim(ctx context.Context, tenantID, externalID, rawFrom string, at time.Time) (bool, error) {
	if externalID == "" {
		return false, eris.New("empty external message id")
	}
	row := models.ProcessedMessage{
		TenantID:          tenantID,
		ExternalMessageID: externalID,
		RawFrom:           rawFrom,
		ReceivedAt:        at,
	}
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, eris.Wrapf(res.Error, "claim message %s", externalID)
	}
	return res.RowsAffected == 1, nil
}

// Complete stamps the outcome on a claimed entry.
func (l *Ledger) Complete(ctx context.Context, tenantID, externalID, outcome string, at time.Time) error {
	err := l.db.WithContext(ctx).Model(&models.ProcessedMessage{}).
		Where("tenant_id = ? AND external_message_id = ?", tenantID, externalID).
		Updates(map[string]interface{}{"outcome": outcome, "processed_at": at}).Error
	return eris.Wrapf(err, "complete message %s", externalID)
}

// Seen reports whether the id was claimed before.
func (l *Ledger) Seen(ctx context.Context, tenantID, externalID string) (bool, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.ProcessedMessage{}).
		Where("tenant_id = ? AND external_message_id = ?", tenantID, externalID).
		Count(&n).Error
	if err != nil {
		return false, eris.Wrap(err, "lookup processed message")
	}
	return n > 0, nil
}
