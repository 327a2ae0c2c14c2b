// Package audit writes the append-only command ledger and the conversation
// message log.
package audit

import (
	"context"

	"showroom-gateway/internal/models"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

const defaultLimit = 50

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	SenderCustomer = "customer"
	SenderStaff    = "staff"
	SenderAI       = "ai"
	SenderSystem   = "system"
)

type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) WithTx(tx *gorm.DB) *Recorder {
	return &Recorder{db: tx}
}

// RecordCommand appends one invocation. Rows are never updated afterwards.
func (r *Recorder) RecordCommand(ctx context.Context, entry *models.CommandAudit) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	return eris.Wrap(r.db.WithContext(ctx).Create(entry).Error, "record command")
}

func (r *Recorder) LogMessage(ctx context.Context, msg *models.Message) error {
	return eris.Wrap(r.db.WithContext(ctx).Create(msg).Error, "log message")
}

// Commands lists the tenant's ledger, newest first.
func (r *Recorder) Commands(ctx context.Context, tenantID string, limit int) ([]models.CommandAudit, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var rows []models.CommandAudit
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, eris.Wrap(err, "list command audits")
}

// Messages lists the tenant's message log, newest first, optionally for a
// single phone.
func (r *Recorder) Messages(ctx context.Context, tenantID, phone string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var rows []models.Message
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if phone != "" {
		q = q.Where("phone = ?", phone)
	}
	err := q.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, eris.Wrap(err, "list messages")
}

// History returns the last n messages of a conversation in chronological
// order.
func (r *Recorder) History(ctx context.Context, conversationID string, n int) ([]models.Message, error) {
	var rows []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, eris.Wrap(err, "load history")
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
