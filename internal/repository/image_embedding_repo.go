package repository

import (
	"context"
	"fmt"

	"github.com/timmy/shotrank/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImageEmbeddingRepository handles per-model image embeddings.
type ImageEmbeddingRepository struct {
	db *gorm.DB
}

// NewImageEmbeddingRepository creates a new ImageEmbeddingRepository.
func NewImageEmbeddingRepository(db *gorm.DB) *ImageEmbeddingRepository {
	return &ImageEmbeddingRepository{db: db}
}

// Upsert writes an embedding, replacing any previous vector for the same
// (image, model).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - e: embedding record to persist.
// Returns:
//   - error: non-nil if the write fails.
func (r *ImageEmbeddingRepository) Upsert(ctx context.Context, e *domain.ImageEmbedding) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_id"}, {Name: "model"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_hash", "vector", "dimensions", "created_at"}),
	}).Create(e).Error
}

// GetByImageIDs bulk-loads embeddings of one model for the given images.
// Images without an embedding are simply absent from the result.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - model: embedding model name.
//   - ids: image ids to load.
// Returns:
//   - map[string]domain.ImageEmbedding: embeddings keyed by image id.
//   - error: non-nil if the query fails.
func (r *ImageEmbeddingRepository) GetByImageIDs(ctx context.Context, model string, ids []string) (map[string]domain.ImageEmbedding, error) {
	out := make(map[string]domain.ImageEmbedding, len(ids))
	for _, chunk := range chunkIDs(ids) {
		var rows []domain.ImageEmbedding
		if err := r.db.WithContext(ctx).
			Where("model = ? AND image_id IN ?", model, chunk).
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load image embeddings: %w", err)
		}
		for _, row := range rows {
			out[row.ImageID] = row
		}
	}
	return out, nil
}

// ListByModel returns every embedding of one model ordered by image id.
func (r *ImageEmbeddingRepository) ListByModel(ctx context.Context, model string) ([]domain.ImageEmbedding, error) {
	var rows []domain.ImageEmbedding
	if err := r.db.WithContext(ctx).
		Where("model = ?", model).
		Order("image_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list image embeddings: %w", err)
	}
	return rows, nil
}

// GetByContentHash finds any embedding of model computed for identical pixels.
// Returns ErrNotFound when none exists.
func (r *ImageEmbeddingRepository) GetByContentHash(ctx context.Context, model, hash string) (*domain.ImageEmbedding, error) {
	var row domain.ImageEmbedding
	if err := r.db.WithContext(ctx).
		Where("model = ? AND content_hash = ?", model, hash).
		First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}
