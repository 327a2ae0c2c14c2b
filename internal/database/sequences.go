package database

import (
	"log/slog"

	"showroom-gateway/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// serialTables have auto-increment ids that drift after bulk imports.
var serialTables = []interface{ TableName() string }{
	models.User{},
	models.Vehicle{},
	models.Lead{},
	models.ProcessedMessage{},
	models.Message{},
}

// SyncSequences moves every postgres id sequence past the current max id.
// It returns the tables it could not sync.
func SyncSequences(db *gorm.DB, logger *slog.Logger) ([]string, error) {
	if name := db.Dialector.Name(); name != "postgres" {
		return nil, eris.Errorf("sequence sync needs postgres, got %s", name)
	}

	var failed []string
	for _, m := range serialTables {
		table := m.TableName()
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := db.Exec(query).Error; err != nil {
			logger.Error("sequence sync failed", "table", table, "error", err)
			failed = append(failed, table)
			continue
		}
		logger.Info("sequence synced", "table", table)
	}
	return failed, nil
}
