package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleforge/ruleforge/internal/models"
)

func TestConnect(t *testing.T) {
	// Test with memory DB
	db, err := Connect("file::memory:?cache=shared")
	assert.NoError(t, err)
	assert.NotNil(t, db)

	// Test with file DB
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")
	db, err = Connect(dbPath)
	assert.NoError(t, err)
	assert.NotNil(t, db)
}

func TestMigrateCreatesSchema(t *testing.T) {
	db, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	for _, model := range []interface{}{
		&models.RuleSource{},
		&models.DetectionRule{},
		&models.MitreTactic{},
		&models.MitreTechnique{},
		&models.CveEntry{},
		&models.RuleMitreMapping{},
		&models.RuleCveMapping{},
	} {
		assert.True(t, db.Migrator().HasTable(model))
	}
}
