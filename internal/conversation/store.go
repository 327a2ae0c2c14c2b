// Package conversation keeps the single state record per (tenant, phone).
//
// Every event mutates its conversation inside Lock, and Save refuses to write
// over a newer version, so two processes racing on the same row lose with
// ErrConflict instead of interleaving partial workflow steps.
package conversation

import (
	"context"
	"errors"
	"time"

	"showroom-gateway/internal/models"
	"showroom-gateway/internal/workflow"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConflict = eris.New("conversation was modified concurrently")
	ErrNotFound = eris.New("conversation not found")
)

const (
	StatusActive    = "active"
	StatusEscalated = "escalated"
	StatusClosed    = "closed"
)

// Well-known context keys.
const (
	KeyVerifiedPhone = "verified_phone"
	KeyResolvedPhone = "resolved_phone"
	KeyEscalatedAt   = "escalated_at"
)

type Conversation struct {
	ID            string
	TenantID      string
	Phone         string
	Status        string
	Workflow      *workflow.State
	Context       map[string]interface{}
	LastMessageAt time.Time
	CreatedAt     time.Time

	version int
}

func (c *Conversation) Version() int { return c.version }

// ContextString returns a string value from the context bag.
func (c *Conversation) ContextString(key string) string {
	v, _ := c.Context[key].(string)
	return v
}

// Clone returns a deep enough copy for a retryable mutation.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Workflow = c.Workflow.Clone()
	cp.Context = make(map[string]interface{}, len(c.Context))
	for k, v := range c.Context {
		cp.Context[k] = v
	}
	return &cp
}

// Reactivate reopens a closed or escalated conversation. It is never called
// implicitly by reads.
func (c *Conversation) Reactivate() {
	c.Status = StatusActive
	delete(c.Context, KeyEscalatedAt)
}

type Store struct {
	db    *gorm.DB
	locks *keyedMutex
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, locks: newKeyedMutex()}
}

// Lock serializes work on one conversation within this process. The returned
// func releases it and is safe to call twice.
func (s *Store) Lock(tenantID, phone string) func() {
	return s.locks.lock(tenantID + "\x00" + phone)
}

func (s *Store) Get(ctx context.Context, tenantID, phone string) (*Conversation, error) {
	var row models.Conversation
	err := s.db.WithContext(ctx).Where("tenant_id = ? AND phone = ?", tenantID, phone).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "load conversation")
	}
	return fromRow(&row)
}

// GetOrCreate loads the conversation or creates an active one on first
// contact.
func (s *Store) GetOrCreate(ctx context.Context, tenantID, phone string, now time.Time) (*Conversation, bool, error) {
	c, err := s.Get(ctx, tenantID, phone)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	row := models.Conversation{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Phone:         phone,
		Status:        StatusActive,
		ContextData:   datatypes.JSONMap{},
		LastMessageAt: now,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return nil, false, eris.Wrap(res.Error, "create conversation")
	}
	if res.RowsAffected == 0 {
		// Another process created it first.
		c, err := s.Get(ctx, tenantID, phone)
		return c, false, err
	}
	c, err = fromRow(&row)
	return c, true, err
}

// Save writes c if nobody saved a newer version since it was loaded. within
// runs first in the same transaction and may still mutate c; domain writes and
// the conversation update commit or roll back together. Inside within, use
// only tx: the sqlite pool has a single connection.
func (s *Store) Save(ctx context.Context, c *Conversation, within func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if within != nil {
			if err := within(tx); err != nil {
				return err
			}
		}

		encoded, err := workflow.Encode(c.Workflow)
		if err != nil {
			return err
		}
		current := ""
		if c.Workflow != nil {
			current = string(c.Workflow.Type)
		}
		if c.Context == nil {
			c.Context = map[string]interface{}{}
		}

		res := tx.Model(&models.Conversation{}).
			Where("id = ? AND version = ?", c.ID, c.version).
			Updates(map[string]interface{}{
				"status":           c.Status,
				"current_workflow": current,
				"workflow":         encoded,
				"context_data":     datatypes.JSONMap(c.Context),
				"last_message_at":  c.LastMessageAt,
				"version":          c.version + 1,
			})
		if res.Error != nil {
			return eris.Wrap(res.Error, "update conversation")
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.version++
	return nil
}

// Update runs fn on the freshly loaded conversation and saves it, retrying
// once on a version conflict.
func (s *Store) Update(ctx context.Context, tenantID, phone string, fn func(c *Conversation) error) (*Conversation, error) {
	unlock := s.Lock(tenantID, phone)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		c, _, err := s.GetOrCreate(ctx, tenantID, phone, time.Now())
		if err != nil {
			return nil, err
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		lastErr = s.Save(ctx, c, nil)
		if lastErr == nil {
			return c, nil
		}
		if !errors.Is(lastErr, ErrConflict) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// List returns the tenant's conversations, most recent first.
func (s *Store) List(ctx context.Context, tenantID string, limit int) ([]*Conversation, error) {
	var rows []models.Conversation
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("last_message_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, eris.Wrap(err, "list conversations")
	}
	out := make([]*Conversation, 0, len(rows))
	for i := range rows {
		c, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func fromRow(row *models.Conversation) (*Conversation, error) {
	state, err := workflow.Decode(row.Workflow)
	if err != nil {
		return nil, eris.Wrapf(err, "conversation %s", row.ID)
	}
	ctxData := map[string]interface{}{}
	for k, v := range row.ContextData {
		ctxData[k] = v
	}
	return &Conversation{
		ID:            row.ID,
		TenantID:      row.TenantID,
		Phone:         row.Phone,
		Status:        row.Status,
		Workflow:      state,
		Context:       ctxData,
		LastMessageAt: row.LastMessageAt,
		CreatedAt:     row.CreatedAt,
		version:       row.Version,
	}, nil
}
