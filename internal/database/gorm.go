package database

import (
	"fmt"
	"log/slog"

	"showroom-gateway/internal/config"
	"showroom-gateway/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and runs the auto migration.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(SQLiteDSN(cfg.DBPath))
	default:
		return nil, eris.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "connect %s", cfg.DBDriver)
	}

	if cfg.DBDriver != "postgres" {
		if err := singleWriter(db); err != nil {
			return nil, err
		}
	}

	slog.Info("database connected", "driver", cfg.DBDriver)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens and migrates a sqlite database at path with a silent
// logger. Used by the operator CLI and by package tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(SQLiteDSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "open sqlite %s", path)
	}
	if err := singleWriter(db); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, eris.Wrap(err, "auto migration")
	}
	return db, nil
}

// sqlite allows a single writer; serialize through one connection.
func singleWriter(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return eris.Wrap(err, "sqlite handle")
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// SQLiteDSN appends the pragmas the gateway relies on to a sqlite path.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return eris.Wrap(err, "auto migration")
	}
	slog.Info("database migration completed")
	return nil
}

// SyncConfig loads gateway credentials stored in system_settings, seeding the
// table from the environment the first time.
func SyncConfig(db *gorm.DB, cfg *config.Config) {
	settings := []struct {
		Key   string
		Value *string
	}{
		{"VERIFY_TOKEN", &cfg.VerifyToken},
		{"WHATSAPP_TOKEN", &cfg.WhatsAppToken},
		{"PHONE_NUMBER_ID", &cfg.PhoneNumberID},
		{"WABA_ID", &cfg.WhatsAppBusinessAccountID},
	}

	for _, s := range settings {
		var setting models.SystemSetting
		if err := db.Where("key = ?", s.Key).First(&setting).Error; err == nil {
			if setting.Value != "" {
				*s.Value = setting.Value
			}
		} else if *s.Value != "" {
			if err := db.Create(&models.SystemSetting{Key: s.Key, Value: *s.Value}).Error; err != nil {
				slog.Warn("failed to persist system setting", "key", s.Key, "error", err)
			}
		}
	}
	slog.Info("system settings synchronized from database")
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
