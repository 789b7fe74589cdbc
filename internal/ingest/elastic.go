package ingest

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/ruleforge/ruleforge/internal/logger"
)

// elasticMarker is the cheap pre-check applied to each export line. Export
// files carry non-rule lines (exception lists, summary trailer) that never
// contain this key.
const elasticMarker = `"rule_id":`

// maxLineSize bounds a single ndjson line; detection rules with large
// exception lists have been seen near 1MB.
const maxLineSize = 4 * 1024 * 1024

type elasticRule struct {
	RuleID         string        `json:"rule_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Severity       string        `json:"severity"`
	Enabled        bool          `json:"enabled"`
	Tags           []string      `json:"tags"`
	RiskScore      *float64      `json:"risk_score"`
	References     []string      `json:"references"`
	FalsePositives []string      `json:"false_positives"`
	Author         []string      `json:"author"`
	License        string        `json:"license"`
	Interval       string        `json:"interval"`
	From           string        `json:"from"`
	To             string        `json:"to"`
	Language       string        `json:"language"`
	Threat         []interface{} `json:"threat"`
}

// ElasticAdapter parses line-delimited JSON exports from an Elastic SIEM.
type ElasticAdapter struct {
	KibanaURL string
}

// NewElasticAdapter returns an adapter for ndjson rule exports. baseURL is the
// Kibana instance the export came from and is recorded on the rule source.
func NewElasticAdapter(baseURL string) *ElasticAdapter {
	return &ElasticAdapter{KibanaURL: baseURL}
}

// Source implements Adapter.
func (a *ElasticAdapter) Source() SourceInfo {
	return SourceInfo{
		Name:        "Elastic",
		Description: "Detection rules imported from an Elastic SIEM export.",
		SourceType:  "SIEM",
		BaseURL:     a.KibanaURL,
	}
}

// Parse reads one rule per line. Lines without the rule_id marker, lines that
// fail to unmarshal and records without a native id are counted as skipped;
// none of these are errors.
func (a *ElasticAdapter) Parse(r io.Reader) (ParseResult, error) {
	var res ParseResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.Contains(line, elasticMarker) {
			res.Skipped++
			continue
		}

		var rule elasticRule
		if err := json.Unmarshal([]byte(line), &rule); err != nil {
			logger.Log().WithError(err).Debug("skipping unparseable export line")
			res.Skipped++
			continue
		}

		if rule.RuleID == "" {
			logger.Log().Debug("skipping rule without rule_id")
			res.Skipped++
			continue
		}

		fields := map[string]interface{}{
			"references":      rule.References,
			"false_positives": rule.FalsePositives,
			"author":          rule.Author,
			"license":         rule.License,
			"interval":        rule.Interval,
			"from":            rule.From,
			"to":              rule.To,
			"language":        rule.Language,
			"threat_mapping":  rule.Threat,
		}
		if rule.RiskScore != nil {
			fields["risk_score"] = *rule.RiskScore
		}

		res.Records = append(res.Records, Record{
			NativeID:    rule.RuleID,
			Name:        rule.Name,
			Description: rule.Description,
			RawContent:  line,
			RuleType:    "elastic",
			Severity:    rule.Severity,
			Enabled:     rule.Enabled,
			Tags:        rule.Tags,
			Fields:      fields,
		})
	}

	if err := scanner.Err(); err != nil {
		return res, err
	}

	return res, nil
}
