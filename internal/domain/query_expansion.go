package domain

import "time"

// ExpansionSource tells where an expansion string came from.
type ExpansionSource string

const (
	ExpansionSourceCurated   ExpansionSource = "curated"
	ExpansionSourceGenerated ExpansionSource = "generated"
)

// QueryExpansion is one cached alternate phrasing of an abstract query term.
// The unique index makes cache fills idempotent under concurrent inserts.
type QueryExpansion struct {
	ID         string          `gorm:"type:text;primaryKey" json:"id"`
	Term       string          `gorm:"type:text;not null;uniqueIndex:idx_query_expansions_key" json:"term"`
	Category   string          `gorm:"type:text;not null;default:'';uniqueIndex:idx_query_expansions_key" json:"category"`
	Expansion  string          `gorm:"type:text;not null;uniqueIndex:idx_query_expansions_key" json:"expansion"`
	Source     ExpansionSource `gorm:"type:text;not null;uniqueIndex:idx_query_expansions_key" json:"source"`
	Model      string          `gorm:"type:text" json:"model,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	LastUsedAt time.Time       `json:"last_used_at"`
}

// TableName returns the database table name for QueryExpansion.
func (QueryExpansion) TableName() string {
	return "query_expansions"
}
