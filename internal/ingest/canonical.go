package ingest

import (
	"sort"
	"strings"

	"github.com/ruleforge/ruleforge/internal/models"
)

// platformKeywords maps tag substrings (matched case-insensitively) to
// canonical platform names. This table is the only mechanism by which
// downstream platform filters work, so matches must stay deterministic.
var platformKeywords = map[string]string{
	"aws":        "AWS",
	"azure":      "Azure",
	"gcp":        "GCP",
	"oci":        "OCI",
	"windows":    "Windows",
	"linux":      "Linux",
	"macos":      "macOS",
	"kubernetes": "Containers",
	"k8s":        "Containers",
	"o365":       "Office 365",
	"office":     "Office 365",
}

// PlatformsFromTags derives the de-duplicated, sorted canonical platform list
// from free-form vendor tags.
func PlatformsFromTags(tags []string) []string {
	seen := make(map[string]struct{})
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for keyword, platform := range platformKeywords {
			if strings.Contains(lower, keyword) {
				seen[platform] = struct{}{}
			}
		}
	}

	platforms := make([]string, 0, len(seen))
	for platform := range seen {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)

	return platforms
}

// CanonicalFields is the full set of fields the change detector writes: on
// create they populate the new rule, on update every one of them replaces the
// stored value (no partial merge).
type CanonicalFields struct {
	Name        string
	Description string
	RuleContent string
	RuleType    string
	Severity    string
	IsActive    bool
	Tags        models.StringList
	Metadata    models.JSONMap
}

// Canonicalize maps an intermediate record into canonical fields. Vendor
// extension fields become metadata; the platform list is either the adapter's
// fixed assignment or derived from tags.
func Canonicalize(rec Record) CanonicalFields {
	metadata := make(map[string]interface{}, len(rec.Fields)+1)
	for key, value := range rec.Fields {
		metadata[key] = value
	}

	platforms := rec.Platforms
	if platforms == nil {
		platforms = PlatformsFromTags(rec.Tags)
	}
	metadata[models.MetadataPlatformsKey] = platforms

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	return CanonicalFields{
		Name:        rec.Name,
		Description: rec.Description,
		RuleContent: rec.RawContent,
		RuleType:    rec.RuleType,
		Severity:    rec.Severity,
		IsActive:    rec.Enabled,
		Tags:        models.StringList(tags),
		Metadata:    NormalizeMetadata(metadata),
	}
}

// NormalizeMetadata drops keys whose value is nil, an empty string, or an
// empty list/map, so stored metadata never carries empty keys. Keeping this
// consistent matters twice over: hash-relevant content stays stable and
// `key exists` query filters stay meaningful.
func NormalizeMetadata(metadata map[string]interface{}) models.JSONMap {
	normalized := make(models.JSONMap, len(metadata))
	for key, value := range metadata {
		if isEmptyValue(value) {
			continue
		}
		normalized[key] = value
	}

	return normalized
}

func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	case models.JSONMap:
		return len(v) == 0
	case models.StringList:
		return len(v) == 0
	default:
		return false
	}
}
