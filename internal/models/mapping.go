package models

import "time"

// RuleMitreMapping links a rule to an ATT&CK technique. At most one row per
// (rule, technique) pair; rows are insert-only.
type RuleMitreMapping struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RuleID        uint      `gorm:"uniqueIndex:idx_rule_technique;not null" json:"rule_id"`
	TechniqueID   uint      `gorm:"uniqueIndex:idx_rule_technique;not null" json:"technique_id"`
	MappingSource string    `json:"mapping_source"` // vendor that declared the mapping
	CreatedAt     time.Time `json:"created_at"`

	Rule      DetectionRule  `gorm:"foreignKey:RuleID" json:"-"`
	Technique MitreTechnique `gorm:"foreignKey:TechniqueID" json:"-"`
}

// RuleCveMapping links a rule to a vulnerability entry. At most one row per
// (rule, cve) pair; rows are insert-only.
type RuleCveMapping struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RuleID           uint      `gorm:"uniqueIndex:idx_rule_cve;not null" json:"rule_id"`
	CveID            uint      `gorm:"uniqueIndex:idx_rule_cve;not null" json:"cve_id"`
	RelationshipType string    `json:"relationship_type"`
	CreatedAt        time.Time `json:"created_at"`

	Rule DetectionRule `gorm:"foreignKey:RuleID" json:"-"`
	Cve  CveEntry      `gorm:"foreignKey:CveID" json:"-"`
}

// RelationshipDetects is the relationship kind recorded on rule-to-CVE rows
// created by the enrichment pass.
const RelationshipDetects = "detects"
