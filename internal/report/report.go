// Package report builds the staff reports requested over chat and renders
// them into a sendable document.
package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"showroom-gateway/internal/intent"
	"showroom-gateway/internal/models"
	"showroom-gateway/internal/workflow"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type SummaryLine struct {
	Label string
	Value string
}

// Data is the structured content of one report, independent of its format.
type Data struct {
	Kind        string
	Title       string
	Period      string
	GeneratedAt time.Time
	Columns     []string
	Rows        [][]string
	Summary     []SummaryLine
}

// Caption is the short chat text sent alongside the document.
func (d *Data) Caption() string {
	var b strings.Builder
	b.WriteString("📊 ")
	b.WriteString(d.Title)
	if d.Period != "" {
		b.WriteString(" (" + d.Period + ")")
	}
	for _, s := range d.Summary {
		b.WriteString("\n" + s.Label + ": " + s.Value)
	}
	return b.String()
}

type Builder struct {
	db *gorm.DB
}

func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{db: db}
}

// Build assembles the report of the given intent subtype.
func (b *Builder) Build(ctx context.Context, tenantID, kind string, now time.Time) (*Data, error) {
	switch kind {
	case intent.SalesReport, "":
		return b.sales(ctx, tenantID, now)
	case intent.InventoryReport:
		return b.inventory(ctx, tenantID, now)
	case intent.LeadReport:
		return b.leads(ctx, tenantID, now)
	default:
		return nil, eris.Errorf("unknown report kind %q", kind)
	}
}

func (b *Builder) sales(ctx context.Context, tenantID string, now time.Time) (*Data, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var sold []models.Vehicle
	err := b.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND sold_at >= ?", tenantID, "sold", monthStart).
		Order("sold_at").
		Find(&sold).Error
	if err != nil {
		return nil, eris.Wrap(err, "query sales")
	}

	d := &Data{
		Kind:        intent.SalesReport,
		Title:       "Laporan Penjualan",
		Period:      monthStart.Format("January 2006"),
		GeneratedAt: now,
		Columns:     []string{"Kode", "Kendaraan", "Harga Jual", "Tanggal"},
	}
	var total int64
	for _, v := range sold {
		total += v.SoldPrice
		soldAt := ""
		if v.SoldAt != nil {
			soldAt = v.SoldAt.Format("2006-01-02")
		}
		d.Rows = append(d.Rows, []string{v.Code, vehicleLabel(v), strconv.FormatInt(v.SoldPrice, 10), soldAt})
	}
	d.Summary = []SummaryLine{
		{"Unit terjual", strconv.Itoa(len(sold))},
		{"Total penjualan", workflow.FormatRupiah(total)},
	}
	return d, nil
}

func (b *Builder) inventory(ctx context.Context, tenantID string, now time.Time) (*Data, error) {
	var vehicles []models.Vehicle
	err := b.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, "available").
		Order("code").
		Find(&vehicles).Error
	if err != nil {
		return nil, eris.Wrap(err, "query inventory")
	}

	d := &Data{
		Kind:        intent.InventoryReport,
		Title:       "Laporan Stok",
		GeneratedAt: now,
		Columns:     []string{"Kode", "Kendaraan", "Warna", "Transmisi", "Harga", "Kilometer"},
	}
	var value int64
	for _, v := range vehicles {
		value += v.Price
		d.Rows = append(d.Rows, []string{
			v.Code, vehicleLabel(v), v.Color, v.Transmission,
			strconv.FormatInt(v.Price, 10), strconv.Itoa(v.MileageKm),
		})
	}
	d.Summary = []SummaryLine{
		{"Unit tersedia", strconv.Itoa(len(vehicles))},
		{"Nilai stok", workflow.FormatRupiah(value)},
	}
	return d, nil
}

func (b *Builder) leads(ctx context.Context, tenantID string, now time.Time) (*Data, error) {
	var leads []models.Lead
	err := b.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("last_contact_at DESC").
		Find(&leads).Error
	if err != nil {
		return nil, eris.Wrap(err, "query leads")
	}

	d := &Data{
		Kind:        intent.LeadReport,
		Title:       "Laporan Leads",
		GeneratedAt: now,
		Columns:     []string{"Nomor", "Status", "Kontak Terakhir", "Pesan Terakhir"},
	}
	byStatus := map[string]int{}
	for _, l := range leads {
		byStatus[l.Status]++
		d.Rows = append(d.Rows, []string{l.Phone, l.Status, l.LastContactAt.Format("2006-01-02 15:04"), l.LastMessage})
	}
	d.Summary = []SummaryLine{{"Total leads", strconv.Itoa(len(leads))}}
	for _, st := range []string{"new", "contacted", "escalated"} {
		if n := byStatus[st]; n > 0 {
			d.Summary = append(d.Summary, SummaryLine{"Status " + st, strconv.Itoa(n)})
		}
	}
	return d, nil
}

func vehicleLabel(v models.Vehicle) string {
	return fmt.Sprintf("%s %s %d", v.Brand, v.Model, v.Year)
}
