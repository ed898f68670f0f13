package domain

import "time"

// Concept is one entry of the controlled tagging vocabulary.
// The embedding is derived from the label and synonyms by the concept refresh
// job and is always stored L2-normalized.
type Concept struct {
	ID             string      `gorm:"type:text;primaryKey" json:"id"`
	Label          string      `gorm:"type:text;not null" json:"label"`
	Synonyms       StringArray `gorm:"type:text" json:"synonyms"`
	Related        StringArray `gorm:"type:text" json:"related"`
	Opposites      StringArray `gorm:"type:text" json:"opposites"`
	Embedding      Vector      `gorm:"type:text" json:"-"`
	EmbeddingModel string      `gorm:"type:text" json:"embedding_model,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Concept.
func (Concept) TableName() string {
	return "concepts"
}
