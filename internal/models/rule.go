package models

import (
	"time"
)

// RuleSource identifies one vendor feeding detection rules into the store.
// Sources are created lazily on the first record seen from a vendor and are
// never deleted by the pipeline.
type RuleSource struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	SourceType  string    `json:"source_type"` // SIEM, Vendor, ...
	BaseURL     string    `json:"base_url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DetectionRule is the canonical, vendor-agnostic representation of a rule.
// Identity is (source_id, rule_id) where rule_id is the vendor-native id.
// RuleContent holds the verbatim vendor payload; Hash is the content
// fingerprint over exactly those bytes.
type DetectionRule struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SourceID    uint       `gorm:"uniqueIndex:idx_rules_source_rule;not null" json:"source_id"`
	RuleID      string     `gorm:"uniqueIndex:idx_rules_source_rule;not null" json:"rule_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	RuleContent string     `json:"rule_content"`
	RuleType    string     `json:"rule_type"`
	Severity    string     `json:"severity"`
	IsActive    bool       `json:"is_active"`
	Tags        StringList `gorm:"type:text" json:"tags"`
	Metadata    JSONMap    `gorm:"type:text" json:"metadata"`
	Hash        string     `gorm:"index" json:"hash"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Source RuleSource `gorm:"foreignKey:SourceID" json:"-"`
}

// MetadataPlatformsKey is the fixed metadata key carrying the normalized
// platform list. Downstream platform filters depend on this exact key.
const MetadataPlatformsKey = "rule_platforms"
