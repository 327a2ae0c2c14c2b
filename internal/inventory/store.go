// Package inventory persists showroom vehicles and customer leads.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"showroom-gateway/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrVehicleNotFound = eris.New("vehicle not found")
	ErrAlreadySold     = eris.New("vehicle already sold")
)

const (
	StatusAvailable = "available"
	StatusSold      = "sold"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store whose writes join tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) FindVehicle(ctx context.Context, tenantID, code string) (*models.Vehicle, error) {
	var v models.Vehicle
	err := s.db.WithContext(ctx).Where("tenant_id = ? AND code = ?", tenantID, code).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "find vehicle %s", code)
	}
	return &v, nil
}

// CreateVehicle assigns the next free tenant-scoped code (V0001, V0002, ...)
// and inserts v.
func (s *Store) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Vehicle{}).Where("tenant_id = ?", v.TenantID).Count(&count).Error; err != nil {
		return eris.Wrap(err, "count vehicles")
	}
	for n := count + 1; ; n++ {
		code := fmt.Sprintf("V%04d", n)
		var taken int64
		if err := db.Model(&models.Vehicle{}).Where("tenant_id = ? AND code = ?", v.TenantID, code).Count(&taken).Error; err != nil {
			return eris.Wrap(err, "check vehicle code")
		}
		if taken == 0 {
			v.Code = code
			break
		}
	}
	if v.Status == "" {
		v.Status = StatusAvailable
	}
	if err := db.Create(v).Error; err != nil {
		return eris.Wrapf(err, "create vehicle %s", v.Code)
	}
	return nil
}

func (s *Store) UpdatePrice(ctx context.Context, tenantID, code string, price int64) error {
	res := s.db.WithContext(ctx).Model(&models.Vehicle{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Update("price", price)
	if res.Error != nil {
		return eris.Wrapf(res.Error, "update price of %s", code)
	}
	if res.RowsAffected == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// MarkSold records a sale. A zero price keeps the listed price as sold price.
func (s *Store) MarkSold(ctx context.Context, tenantID, code string, price int64, at time.Time) (*models.Vehicle, error) {
	v, err := s.FindVehicle(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVehicleNotFound
	}
	if v.Status == StatusSold {
		return v, ErrAlreadySold
	}
	if price == 0 {
		price = v.Price
	}
	err = s.db.WithContext(ctx).Model(v).Updates(map[string]interface{}{
		"status":     StatusSold,
		"sold_price": price,
		"sold_at":    at,
	}).Error
	if err != nil {
		return nil, eris.Wrapf(err, "mark %s sold", code)
	}
	v.Status, v.SoldPrice, v.SoldAt = StatusSold, price, &at
	return v, nil
}

// Available lists unsold vehicles, newest first.
func (s *Store) Available(ctx context.Context, tenantID string, limit int) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	q := s.db.WithContext(ctx).Where("tenant_id = ? AND status = ?", tenantID, StatusAvailable).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&vehicles).Error; err != nil {
		return nil, eris.Wrap(err, "list available vehicles")
	}
	return vehicles, nil
}

// TouchLead upserts the lead for a customer phone and records the latest
// message. Escalated leads keep their status.
func (s *Store) TouchLead(ctx context.Context, tenantID, phone, lastMessage string, at time.Time) error {
	lead := models.Lead{
		TenantID:      tenantID,
		Phone:         phone,
		Status:        "new",
		Source:        "whatsapp",
		LastMessage:   lastMessage,
		LastContactAt: at,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_message", "last_contact_at", "updated_at"}),
	}).Create(&lead).Error
	return eris.Wrap(err, "upsert lead")
}

func (s *Store) SetLeadStatus(ctx context.Context, tenantID, phone, status string) error {
	err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("tenant_id = ? AND phone = ?", tenantID, phone).
		Update("status", status).Error
	return eris.Wrap(err, "update lead status")
}
