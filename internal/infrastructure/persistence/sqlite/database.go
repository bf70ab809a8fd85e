// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"

	gormModels "github.com/nutriplan/mealplan/internal/infrastructure/persistence/gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupDatabase opens the SQLite database and migrates the meal plan tables
func SetupDatabase(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY and
	// keeps :memory: databases shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
