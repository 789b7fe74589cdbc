package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleforge/ruleforge/internal/models"
)

func TestTechniqueCandidatesFromThreatTree(t *testing.T) {
	rec := Record{
		Fields: map[string]interface{}{
			"threat_mapping": []interface{}{
				map[string]interface{}{
					"technique": []interface{}{
						map[string]interface{}{
							"id": "T1059",
							"subtechnique": []interface{}{
								map[string]interface{}{"id": "T1059.001"},
								map[string]interface{}{"id": "T1059.002"},
							},
						},
					},
				},
			},
		},
	}

	assert.Equal(t, []string{"T1059", "T1059.001", "T1059.002"}, TechniqueCandidates(rec))
}

func TestTechniqueCandidatesFromTags(t *testing.T) {
	rec := Record{Tags: []string{
		"Threat:Exploitation (T1068)",
		"Threat:Initial Access (TA0001)",
		"attack.T1190",
		"plain-tag",
	}}

	// Tactic ids are recognized but never mapped as techniques.
	assert.Equal(t, []string{"T1068", "T1190"}, TechniqueCandidates(rec))
}

func TestTechniqueCandidatesDeduplicates(t *testing.T) {
	rec := Record{
		Tags: []string{"(T1059)"},
		Fields: map[string]interface{}{
			"threat_mapping": []interface{}{
				map[string]interface{}{
					"technique": []interface{}{
						map[string]interface{}{"id": "T1059"},
					},
				},
			},
		},
	}

	assert.Equal(t, []string{"T1059"}, TechniqueCandidates(rec))
}

func TestTechniqueCandidatesIgnoresEmbeddedDigits(t *testing.T) {
	// Word boundaries keep ids inside longer identifiers from matching.
	rec := Record{Tags: []string{"XT1059X", "rule-T10590-variant"}}
	assert.Empty(t, TechniqueCandidates(rec))
}

func TestHasEmbeddedVulnList(t *testing.T) {
	assert.True(t, HasEmbeddedVulnList(models.JSONMap{"createTime": "2024-01-15T10:00:00Z"}))
	assert.False(t, HasEmbeddedVulnList(models.JSONMap{"interval": "5m"}))
	assert.False(t, HasEmbeddedVulnList(nil))
}

func TestCveMentionsFromTags(t *testing.T) {
	rule := models.DetectionRule{
		Tags: models.StringList{"cve-2024-1234", "Vuln:CVE-2021-44228", "CVE-2024-1234"},
	}

	assert.Equal(t, []string{"CVE-2021-44228", "CVE-2024-1234"}, CveMentions(rule))
}

func TestCveMentionsEmbeddedList(t *testing.T) {
	rule := models.DetectionRule{
		RuleContent: `{"formulaId": 1, "cves": [{"id": "cve-2023-9999"}, {"id": "CVE-2023-0001"}]}`,
		Metadata:    models.JSONMap{"createTime": "2024-01-15T10:00:00Z"},
	}
	assert.Equal(t, []string{"CVE-2023-0001", "CVE-2023-9999"}, CveMentions(rule))

	// Without the vendor marker the raw content is never scanned.
	rule.Metadata = models.JSONMap{}
	assert.Empty(t, CveMentions(rule))
}

func TestCveMentionsMalformedRawContent(t *testing.T) {
	rule := models.DetectionRule{
		RuleContent: "not json",
		Metadata:    models.JSONMap{"createTime": "2024-01-15T10:00:00Z"},
		Tags:        models.StringList{"CVE-2020-0601"},
	}

	// Unparseable raw content yields no embedded ids but tag mentions survive.
	assert.Equal(t, []string{"CVE-2020-0601"}, CveMentions(rule))
}

func TestMapTechniques(t *testing.T) {
	db := setupIngestTestDB(t)

	technique := models.MitreTechnique{TechniqueID: "T1059", Name: "Command and Scripting Interpreter"}
	require.NoError(t, db.Create(&technique).Error)

	rule := models.DetectionRule{SourceID: 1, RuleID: "r1", Name: "Test Rule"}
	require.NoError(t, db.Create(&rule).Error)

	// Unknown techniques are skipped, not errors.
	created, err := MapTechniques(db, &rule, []string{"T1059", "T9999"}, "Elastic")
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Re-running never duplicates the pair.
	created, err = MapTechniques(db, &rule, []string{"T1059"}, "Elastic")
	require.NoError(t, err)
	assert.Zero(t, created)

	var mappings []models.RuleMitreMapping
	require.NoError(t, db.Find(&mappings).Error)
	require.Len(t, mappings, 1)
	assert.Equal(t, rule.ID, mappings[0].RuleID)
	assert.Equal(t, technique.ID, mappings[0].TechniqueID)
	assert.Equal(t, "Elastic", mappings[0].MappingSource)
}
