package models

import "time"

// MitreTactic is one ATT&CK tactic (TA####). Seeded externally; the ingestion
// pipeline never writes taxonomy rows.
type MitreTactic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TacticID    string    `gorm:"uniqueIndex;not null" json:"tactic_id"` // e.g. TA0001
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// MitreTechnique is one ATT&CK technique or sub-technique (T#### / T####.###).
// Sub-techniques carry a ParentID pointing at the parent technique row.
type MitreTechnique struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TechniqueID string     `gorm:"uniqueIndex;not null" json:"technique_id"` // e.g. T1059, T1059.001
	Name        string     `json:"name"`
	Description string     `json:"description"`
	TacticID    *uint      `gorm:"index" json:"tactic_id,omitempty"`
	ParentID    *uint      `gorm:"index" json:"parent_id,omitempty"`
	Platforms   StringList `gorm:"type:text" json:"platforms"`
	CreatedAt   time.Time  `json:"created_at"`

	Tactic *MitreTactic    `gorm:"foreignKey:TacticID" json:"-"`
	Parent *MitreTechnique `gorm:"foreignKey:ParentID" json:"-"`
}
