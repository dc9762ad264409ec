package db

import (
	"fmt"

	"github.com/router-for-me/DiaryHub/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if errAutoMigrate := conn.AutoMigrate(&models.Document{}); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if DialectName(conn) == DialectPostgres {
		if errIndex := ensureDocumentDataIndex(conn); errIndex != nil {
			return errIndex
		}
	}
	return nil
}

// ensureDocumentDataIndex adds a GIN index over document bodies on PostgreSQL.
func ensureDocumentDataIndex(conn *gorm.DB) error {
	if errExec := conn.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_data_gin ON documents USING GIN (data jsonb_path_ops)`).Error; errExec != nil {
		return fmt.Errorf("db: create documents data index: %w", errExec)
	}
	return nil
}
