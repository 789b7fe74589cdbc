package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ruleforge/ruleforge/internal/models"
)

// Open bootstraps a SQLite database using the provided filesystem path.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	return db, nil
}

// Migrate applies the canonical store schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.RuleSource{},
		&models.DetectionRule{},
		&models.MitreTactic{},
		&models.MitreTechnique{},
		&models.CveEntry{},
		&models.RuleMitreMapping{},
		&models.RuleCveMapping{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	return nil
}

// Connect opens the database and ensures the schema is current.
func Connect(dbPath string) (*gorm.DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}
