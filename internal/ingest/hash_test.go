package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ruleforge/ruleforge/internal/models"
)

func TestFingerprint(t *testing.T) {
	raw := `{"rule_id":"abc","name":"Test"}`
	assert.Equal(t, Fingerprint(raw), Fingerprint(raw))

	// Any byte difference, including whitespace or key order, changes the hash.
	assert.NotEqual(t, Fingerprint(raw), Fingerprint(`{"name":"Test","rule_id":"abc"}`))
	assert.NotEqual(t, Fingerprint(raw), Fingerprint(raw+" "))

	// 64 hex characters.
	assert.Len(t, Fingerprint(""), 64)
}

func TestDecide(t *testing.T) {
	hash := Fingerprint("content")

	assert.Equal(t, ChangeCreate, Decide(nil, hash))
	assert.Equal(t, ChangeNone, Decide(&models.DetectionRule{Hash: hash}, hash))
	assert.Equal(t, ChangeUpdate, Decide(&models.DetectionRule{Hash: "stale"}, hash))
}

func TestApplyCanonicalReplacesEverything(t *testing.T) {
	rule := models.DetectionRule{
		Name:        "Old Name",
		Description: "old description",
		Severity:    "low",
		IsActive:    true,
		Tags:        models.StringList{"old-tag"},
		Metadata:    models.JSONMap{"license": "Elastic License v2"},
		Hash:        "stale",
	}

	// A field cleared upstream must be cleared here too.
	fields := CanonicalFields{
		Name:     "New Name",
		RuleType: "elastic",
		Tags:     models.StringList{},
		Metadata: models.JSONMap{},
	}
	ApplyCanonical(&rule, fields, "fresh")

	assert.Equal(t, "New Name", rule.Name)
	assert.Empty(t, rule.Description)
	assert.False(t, rule.IsActive)
	assert.Empty(t, rule.Tags)
	assert.NotContains(t, rule.Metadata, "license")
	assert.Equal(t, "fresh", rule.Hash)
}
