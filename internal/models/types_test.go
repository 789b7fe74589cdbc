package models

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestJSONColumnsRoundTrip(t *testing.T) {
	dsnName := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnName)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&RuleSource{}, &DetectionRule{}))

	rule := DetectionRule{
		SourceID: 1,
		RuleID:   "r1",
		Tags:     StringList{"Windows", "T1059"},
		Metadata: JSONMap{
			MetadataPlatformsKey: []string{"AWS", "Windows"},
			"risk_score":         47.0,
		},
	}
	require.NoError(t, db.Create(&rule).Error)

	var loaded DetectionRule
	require.NoError(t, db.First(&loaded, rule.ID).Error)

	assert.Equal(t, StringList{"Windows", "T1059"}, loaded.Tags)
	assert.Equal(t, 47.0, loaded.Metadata["risk_score"])
	// Lists come back as []interface{} after the JSON round trip.
	assert.Equal(t, []string{"AWS", "Windows"}, loaded.Metadata.StringSlice(MetadataPlatformsKey))
}

func TestJSONColumnsScanNil(t *testing.T) {
	var tags StringList
	require.NoError(t, tags.Scan(nil))
	assert.NotNil(t, tags)

	var metadata JSONMap
	require.NoError(t, metadata.Scan(nil))
	assert.NotNil(t, metadata)
}

func TestStringSliceUnknownKey(t *testing.T) {
	m := JSONMap{"severity": "high"}
	assert.Nil(t, m.StringSlice("missing"))
	assert.Nil(t, m.StringSlice("severity"))
}
