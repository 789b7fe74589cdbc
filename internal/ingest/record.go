// Package ingest turns heterogeneous vendor rule exports into canonical
// detection rules and reconciles their technique and vulnerability references.
package ingest

import (
	"io"
)

// SourceInfo identifies the vendor behind an adapter. It seeds the lazily
// created RuleSource row the first time a record from that vendor is seen.
type SourceInfo struct {
	Name        string
	Description string
	SourceType  string
	BaseURL     string
}

// Record is the vendor-neutral intermediate form produced by an adapter.
// RawContent carries the verbatim serialized vendor payload; the content
// fingerprint is computed over exactly those bytes.
type Record struct {
	NativeID    string
	Name        string
	Description string
	RawContent  string
	RuleType    string
	Severity    string
	Enabled     bool
	Tags        []string

	// Platforms, when non-nil, is a vendor-assigned platform list that wins
	// over tag-derived normalization (single-platform vendors).
	Platforms []string

	// Fields holds vendor extension fields destined for rule metadata.
	Fields map[string]interface{}
}

// ParseResult is the outcome of parsing one export payload. Skipped counts
// entries that are not ingestible (unrecognized lines, malformed entries,
// records without a native id); these are expected and are not errors.
type ParseResult struct {
	Records []Record
	Skipped int
}

// Adapter parses one vendor's export format into intermediate records.
type Adapter interface {
	Source() SourceInfo
	Parse(r io.Reader) (ParseResult, error)
}
