package domain

import "time"

// ImageStatus represents the processing status of a screenshot.
type ImageStatus string

const (
	ImageStatusPending ImageStatus = "pending"
	ImageStatusActive  ImageStatus = "active"
	ImageStatusFailed  ImageStatus = "failed"
)

// Image is a website screenshot known to the ranking engine.
type Image struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	SiteURL     string      `gorm:"type:text;index:idx_images_site" json:"site_url"`
	SourceType  string      `gorm:"type:text;not null;index:idx_images_source,unique" json:"source_type"`
	SourceID    string      `gorm:"type:text;not null;index:idx_images_source,unique" json:"source_id"`
	StorageKey  string      `gorm:"type:text" json:"storage_key,omitempty"`
	Format      string      `json:"format"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	ContentHash string      `gorm:"type:text;index:idx_images_content_hash" json:"content_hash"`
	Status      ImageStatus `gorm:"type:text;index:idx_images_status;default:pending" json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Image.
func (Image) TableName() string {
	return "images"
}

// ImageEmbedding is the embedding of one image under one model. Two images
// with the same ContentHash may carry the same vector.
type ImageEmbedding struct {
	ImageID     string    `gorm:"type:text;primaryKey" json:"image_id"`
	Model       string    `gorm:"type:text;primaryKey;index:idx_image_embeddings_hash" json:"model"`
	ContentHash string    `gorm:"type:text;not null;index:idx_image_embeddings_hash" json:"content_hash"`
	Vector      Vector    `gorm:"type:text;not null" json:"-"`
	Dimensions  int       `json:"dimensions"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for ImageEmbedding.
func (ImageEmbedding) TableName() string {
	return "image_embeddings"
}
