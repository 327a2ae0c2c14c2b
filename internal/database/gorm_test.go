package database

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"showroom-gateway/internal/config"
	"showroom-gateway/internal/models"
)

func TestSyncConfig(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "cfg.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&models.SystemSetting{Key: "VERIFY_TOKEN", Value: "from-db"}).Error; err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{VerifyToken: "from-env", WhatsAppToken: "wa-token"}
	SyncConfig(db, cfg)

	if cfg.VerifyToken != "from-db" {
		t.Errorf("stored setting should win, got %q", cfg.VerifyToken)
	}
	var seeded models.SystemSetting
	if err := db.Where("key = ?", "WHATSAPP_TOKEN").First(&seeded).Error; err != nil || seeded.Value != "wa-token" {
		t.Errorf("env value not seeded: %+v %v", seeded, err)
	}
	var n int64
	db.Model(&models.SystemSetting{}).Where("key = ?", "PHONE_NUMBER_ID").Count(&n)
	if n != 0 {
		t.Error("empty env value was seeded")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(&config.Config{DBDriver: "mssql"}); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestSyncSequencesNeedsPostgres(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "seq.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := SyncSequences(db, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("sqlite accepted")
	}
}
