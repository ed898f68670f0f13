package domain

import "time"

// HubStats records how often an image dominated unrelated probe queries.
// Rows exist only for images flagged as statistically significant hubs in
// the latest detection run; a missing row means "not a hub".
type HubStats struct {
	ImageID                   string    `gorm:"type:text;primaryKey" json:"image_id"`
	HubCount                  int       `gorm:"not null" json:"hub_count"`
	HubScore                  float64   `gorm:"not null" json:"hub_score"`
	AvgCosineSimilarity       float64   `json:"avg_cosine_similarity"`
	AvgCosineSimilarityMargin float64   `json:"avg_cosine_similarity_margin"`
	RunID                     string    `gorm:"type:text;index" json:"run_id"`
	ComputedAt                time.Time `json:"computed_at"`
}

// TableName returns the database table name for HubStats.
func (HubStats) TableName() string {
	return "image_hub_stats"
}
