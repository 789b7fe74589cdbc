package models

import "time"

// CveEntry is one vulnerability record. CveID is always stored uppercase
// (CVE-YYYY-NNNN+); rows are created either by an external bulk load or lazily
// by the enrichment fetcher when a rule mentions an id not yet stored.
type CveEntry struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CveID         string     `gorm:"uniqueIndex;not null" json:"cve_id"`
	Description   string     `json:"description"`
	CvssV3Score   float64    `json:"cvss_v3_score"`
	Severity      string     `json:"severity"`
	CvssVector    string     `json:"cvss_vector"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	ModifiedDate  *time.Time `json:"modified_date,omitempty"`
	References    StringList `gorm:"type:text" json:"references"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
