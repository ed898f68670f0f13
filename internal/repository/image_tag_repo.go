package repository

import (
	"context"
	"fmt"

	"github.com/timmy/shotrank/internal/domain"
	"gorm.io/gorm"
)

// ImageTagRepository handles derived concept tags.
type ImageTagRepository struct {
	db *gorm.DB
}

// NewImageTagRepository creates a new ImageTagRepository.
func NewImageTagRepository(db *gorm.DB) *ImageTagRepository {
	return &ImageTagRepository{db: db}
}

// ReplaceForImage atomically replaces every tag of one image. Tags missing
// from the new set are deleted.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageID: image whose tags are replaced.
//   - tags: the complete new tag set, may be empty.
// Returns:
//   - error: non-nil if the transaction fails.
func (r *ImageTagRepository) ReplaceForImage(ctx context.Context, imageID string, tags []domain.ImageTag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", imageID).Delete(&domain.ImageTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete old tags: %w", err)
		}
		if len(tags) == 0 {
			return nil
		}
		for i := range tags {
			tags[i].ImageID = imageID
		}
		if err := tx.Create(&tags).Error; err != nil {
			return fmt.Errorf("failed to insert tags: %w", err)
		}
		return nil
	})
}

// GetByImageIDs bulk-loads tags for many images, ordered by ordinal.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: image ids to load.
// Returns:
//   - map[string][]domain.ImageTag: tags keyed by image id; untagged images are absent.
//   - error: non-nil if the query fails.
func (r *ImageTagRepository) GetByImageIDs(ctx context.Context, ids []string) (map[string][]domain.ImageTag, error) {
	out := make(map[string][]domain.ImageTag)
	for _, chunk := range chunkIDs(ids) {
		var rows []domain.ImageTag
		if err := r.db.WithContext(ctx).
			Where("image_id IN ?", chunk).
			Order("image_id ASC, ordinal ASC").
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load image tags: %w", err)
		}
		for _, row := range rows {
			out[row.ImageID] = append(out[row.ImageID], row)
		}
	}
	return out, nil
}

// GetByImageID returns the tags of one image ordered by ordinal.
func (r *ImageTagRepository) GetByImageID(ctx context.Context, imageID string) ([]domain.ImageTag, error) {
	var rows []domain.ImageTag
	if err := r.db.WithContext(ctx).
		Where("image_id = ?", imageID).
		Order("ordinal ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load image tags: %w", err)
	}
	return rows, nil
}
