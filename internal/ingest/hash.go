package ingest

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ruleforge/ruleforge/internal/models"
)

// Fingerprint returns the content fingerprint for a rule's verbatim raw
// content: sha256 over the exact byte sequence. No semantic JSON equivalence
// is attempted; payloads differing only in key order or whitespace hash
// differently and show up as updates.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Change is the change detector's verdict for one re-ingested record.
type Change int

const (
	// ChangeNone means the stored hash matches; nothing is written.
	ChangeNone Change = iota
	// ChangeCreate means no rule exists for this (source, native id) yet.
	ChangeCreate
	// ChangeUpdate means the rule exists but its content changed.
	ChangeUpdate
)

// Decide compares an existing rule (nil when none is stored) against the new
// content fingerprint.
func Decide(existing *models.DetectionRule, hash string) Change {
	switch {
	case existing == nil:
		return ChangeCreate
	case existing.Hash != hash:
		return ChangeUpdate
	default:
		return ChangeNone
	}
}

// ApplyCanonical replaces every canonical field on the rule and rewrites the
// hash. Updates are a full replace, never a partial merge, so a field cleared
// upstream is cleared here too. The caller persists the rule in the same
// transaction.
func ApplyCanonical(rule *models.DetectionRule, fields CanonicalFields, hash string) {
	rule.Name = fields.Name
	rule.Description = fields.Description
	rule.RuleContent = fields.RuleContent
	rule.RuleType = fields.RuleType
	rule.Severity = fields.Severity
	rule.IsActive = fields.IsActive
	rule.Tags = fields.Tags
	rule.Metadata = fields.Metadata
	rule.Hash = hash
}
