package ingest

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ruleforge/ruleforge/internal/logger"
)

type tcTag struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

type tcFormula struct {
	FormulaID    json.Number `json:"formulaId"`
	Title        string      `json:"title"`
	Descriptions []struct {
		Description string `json:"description"`
	} `json:"descriptions"`
	Tags             []tcTag `json:"tags"`
	Severity         string  `json:"severity"`
	Enabled          *bool   `json:"enabled"`
	CreateTime       string  `json:"createTime"`
	UpdateTime       string  `json:"updateTime"`
	ValidationStatus string  `json:"validation_status"`
}

// TrinityCyberAdapter parses JSON-array formula exports from the Trinity Cyber
// portal. Formulas run on a single platform (Inline Active Prevention), so the
// platform list is fixed rather than derived from tags.
type TrinityCyberAdapter struct{}

// NewTrinityCyberAdapter returns an adapter for formula exports.
func NewTrinityCyberAdapter() *TrinityCyberAdapter {
	return &TrinityCyberAdapter{}
}

// Source implements Adapter.
func (a *TrinityCyberAdapter) Source() SourceInfo {
	return SourceInfo{
		Name:        "Trinity Cyber",
		Description: "Detection rules from Trinity Cyber.",
		SourceType:  "Vendor",
		BaseURL:     "https://portal.trinitycyber.com",
	}
}

// Parse reads one JSON array of formula objects. A payload that is not a JSON
// array is a fatal parse failure for the file; individual malformed elements
// and formulas without a formulaId are skipped.
func (a *TrinityCyberAdapter) Parse(r io.Reader) (ParseResult, error) {
	var res ParseResult

	data, err := io.ReadAll(r)
	if err != nil {
		return res, fmt.Errorf("read export payload: %w", err)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return res, fmt.Errorf("decode formula array: %w", err)
	}

	for _, raw := range elements {
		var f tcFormula
		if err := json.Unmarshal(raw, &f); err != nil {
			logger.Log().WithError(err).Debug("skipping unparseable formula")
			res.Skipped++
			continue
		}

		id := f.FormulaID.String()
		if id == "" {
			logger.Log().Debug("skipping formula without formulaId")
			res.Skipped++
			continue
		}

		tags := make([]string, 0, len(f.Tags))
		for _, tag := range f.Tags {
			category := tag.Category
			if category == "" {
				category = "tag"
			}
			tags = append(tags, fmt.Sprintf("%s:%s", category, tag.Value))
		}

		description := ""
		if len(f.Descriptions) > 0 {
			description = f.Descriptions[0].Description
		}

		enabled := true
		if f.Enabled != nil {
			enabled = *f.Enabled
		}

		validation := f.ValidationStatus
		if validation == "" {
			validation = "unknown"
		}

		res.Records = append(res.Records, Record{
			NativeID:    id,
			Name:        f.Title,
			Description: description,
			RawContent:  string(raw),
			RuleType:    "tcl",
			Severity:    f.Severity,
			Enabled:     enabled,
			Tags:        tags,
			Platforms:   []string{"IAP"},
			Fields: map[string]interface{}{
				"createTime":        f.CreateTime,
				"updateTime":        f.UpdateTime,
				"validation_status": validation,
			},
		})
	}

	return res, nil
}
