package report

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"showroom-gateway/internal/database"
	"showroom-gateway/internal/intent"
	"showroom-gateway/internal/models"
)

func TestSalesReportCoversCurrentMonth(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "report.db"))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	thisMonth := now.AddDate(0, 0, -3)
	lastMonth := now.AddDate(0, -1, 0)

	db.Create(&[]models.Vehicle{
		{TenantID: "t1", Code: "V0001", Brand: "Toyota", Model: "Avanza", Year: 2019, Status: "sold", SoldPrice: 130_000_000, SoldAt: &thisMonth},
		{TenantID: "t1", Code: "V0002", Brand: "Honda", Model: "Jazz", Year: 2016, Status: "sold", SoldPrice: 150_000_000, SoldAt: &lastMonth},
		{TenantID: "t1", Code: "V0003", Brand: "Suzuki", Model: "Ertiga", Year: 2020, Status: "available", Price: 170_000_000},
		{TenantID: "t2", Code: "V0001", Brand: "Daihatsu", Model: "Xenia", Year: 2018, Status: "sold", SoldPrice: 99_000_000, SoldAt: &thisMonth},
	})

	d, err := NewBuilder(db).Build(context.Background(), "t1", intent.SalesReport, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Rows) != 1 || d.Rows[0][0] != "V0001" {
		t.Fatalf("rows = %v", d.Rows)
	}
	if !strings.Contains(d.Caption(), "Rp130.000.000") || !strings.Contains(d.Caption(), "March 2026") {
		t.Errorf("caption = %q", d.Caption())
	}

	inv, err := NewBuilder(db).Build(context.Background(), "t1", intent.InventoryReport, now)
	if err != nil || len(inv.Rows) != 1 || inv.Rows[0][0] != "V0003" {
		t.Fatalf("inventory = %+v, %v", inv, err)
	}

	if _, err := NewBuilder(db).Build(context.Background(), "t1", "weather", now); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestCSVRenderer(t *testing.T) {
	d := &Data{
		Kind:        intent.LeadReport,
		GeneratedAt: time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		Columns:     []string{"Nomor", "Pesan Terakhir"},
		Rows:        [][]string{{"628111", "ada, warna hitam?"}},
		Summary:     []SummaryLine{{Label: "Total leads", Value: "1"}},
	}
	doc, err := CSVRenderer{}.Render(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Filename != "lead_report-20260315-0930.csv" || doc.MIMEType != "text/csv" {
		t.Errorf("doc = %s %s", doc.Filename, doc.MIMEType)
	}
	want := "Nomor,Pesan Terakhir\n628111,\"ada, warna hitam?\"\n\nTotal leads,1\n"
	if string(doc.Content) != want {
		t.Errorf("content = %q, want %q", doc.Content, want)
	}
}
