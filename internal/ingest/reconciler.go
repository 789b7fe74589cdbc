package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/ruleforge/ruleforge/internal/logger"
	"github.com/ruleforge/ruleforge/internal/models"
)

// techniqueIDRe recognizes ATT&CK ids in free-text tag values, parenthesized
// or not: T1190, T1059.001, TA0001. Tactic ids (TA####) are matched so they
// can be explicitly excluded from technique mapping.
var techniqueIDRe = regexp.MustCompile(`\b(TA\d{4}|T\d{4}(?:\.\d{3})?)\b`)

// cveIDRe recognizes vulnerability identifiers in any casing.
var cveIDRe = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,}`)

// TechniqueCandidates collects the de-duplicated, sorted set of technique ids
// a record references: the vendor-declared threat tree (techniques plus nested
// sub-techniques) and id patterns inside tag values. Tactic-shaped ids are
// excluded.
func TechniqueCandidates(rec Record) []string {
	seen := make(map[string]struct{})

	for _, id := range techniquesFromThreatTree(rec.Fields["threat_mapping"]) {
		seen[strings.ToUpper(id)] = struct{}{}
	}

	for _, tag := range rec.Tags {
		for _, match := range techniqueIDRe.FindAllString(tag, -1) {
			id := strings.ToUpper(match)
			if strings.HasPrefix(id, "TA") {
				continue // tactics are not mapped as techniques
			}
			seen[id] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(seen))
	for id := range seen {
		candidates = append(candidates, id)
	}
	sort.Strings(candidates)

	return candidates
}

// techniquesFromThreatTree walks a vendor threat-mapping tree as it appears
// after a JSON round trip: a list of threats, each holding techniques, each
// optionally holding sub-techniques.
func techniquesFromThreatTree(tree interface{}) []string {
	threats, ok := tree.([]interface{})
	if !ok {
		return nil
	}

	var ids []string
	for _, item := range threats {
		threat, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		techniques, _ := threat["technique"].([]interface{})
		for _, entry := range techniques {
			technique, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if id, ok := technique["id"].(string); ok && id != "" {
				ids = append(ids, id)
			}
			subs, _ := technique["subtechnique"].([]interface{})
			for _, subEntry := range subs {
				sub, ok := subEntry.(map[string]interface{})
				if !ok {
					continue
				}
				if id, ok := sub["id"].(string); ok && id != "" {
					ids = append(ids, id)
				}
			}
		}
	}

	return ids
}

// HasEmbeddedVulnList reports whether a rule's raw content is expected to
// carry an embedded vulnerability list. The presence of the createTime
// metadata key is the vendor marker used today.
//
// TODO: replace the single-key sniff with an explicit per-source flag on
// RuleSource once more than two vendors are onboarded; a second vendor
// emitting createTime would silently trigger the raw-content scan.
func HasEmbeddedVulnList(metadata models.JSONMap) bool {
	_, ok := metadata["createTime"]
	return ok
}

// CveMentions extracts every vulnerability id a stored rule mentions,
// uppercase, de-duplicated and sorted. Tags are always scanned; raw content is
// scanned for an embedded cves list only when the vendor marker is present.
// No mapping rows are created here: mention resolution is deferred until the
// vulnerability entry exists.
func CveMentions(rule models.DetectionRule) []string {
	seen := make(map[string]struct{})

	for _, tag := range rule.Tags {
		for _, match := range cveIDRe.FindAllString(tag, -1) {
			seen[strings.ToUpper(match)] = struct{}{}
		}
	}

	if HasEmbeddedVulnList(rule.Metadata) {
		var payload struct {
			Cves []struct {
				ID string `json:"id"`
			} `json:"cves"`
		}
		// Raw content that is not valid JSON simply yields no embedded ids.
		if err := json.Unmarshal([]byte(rule.RuleContent), &payload); err == nil {
			for _, cve := range payload.Cves {
				if cve.ID != "" {
					seen[strings.ToUpper(cve.ID)] = struct{}{}
				}
			}
		}
	}

	mentions := make([]string, 0, len(seen))
	for id := range seen {
		mentions = append(mentions, id)
	}
	sort.Strings(mentions)

	return mentions
}

// MapTechniques creates missing rule-to-technique rows for the candidate ids,
// tagged with the originating vendor name. Unknown techniques are logged and
// skipped: the taxonomy may lag vendor data and the mapping will appear on a
// later run. Safe to call repeatedly; existing pairs are never duplicated.
func MapTechniques(tx *gorm.DB, rule *models.DetectionRule, candidates []string, sourceName string) (int, error) {
	created := 0

	for _, techniqueID := range candidates {
		var technique models.MitreTechnique
		err := tx.Where("technique_id = ?", techniqueID).First(&technique).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"technique_id": techniqueID,
				"rule":         rule.Name,
			}).Warn("technique not found in taxonomy, skipping mapping")
			continue
		}
		if err != nil {
			return created, WrapError(KindLookup, fmt.Errorf("look up technique %s: %w", techniqueID, err))
		}

		var count int64
		if err := tx.Model(&models.RuleMitreMapping{}).
			Where("rule_id = ? AND technique_id = ?", rule.ID, technique.ID).
			Count(&count).Error; err != nil {
			return created, WrapError(KindStorage, fmt.Errorf("check existing technique mapping: %w", err))
		}
		if count > 0 {
			continue
		}

		mapping := models.RuleMitreMapping{
			RuleID:        rule.ID,
			TechniqueID:   technique.ID,
			MappingSource: sourceName,
		}
		if err := tx.Create(&mapping).Error; err != nil {
			return created, WrapError(KindStorage, fmt.Errorf("create technique mapping: %w", err))
		}
		created++
	}

	return created, nil
}
