package domain

import "time"

// ImageTag is one (image, concept) pair selected by the tagger. The full set
// for an image is replaced on every re-tag and never edited by hand.
type ImageTag struct {
	ImageID   string    `gorm:"type:text;primaryKey" json:"image_id"`
	ConceptID string    `gorm:"type:text;primaryKey" json:"concept_id"`
	Score     float64   `gorm:"not null" json:"score"`
	Ordinal   int       `gorm:"not null;default:0" json:"ordinal"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ImageTag.
func (ImageTag) TableName() string {
	return "image_tags"
}
