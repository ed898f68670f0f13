package repository

import (
	"context"
	"fmt"

	"github.com/timmy/shotrank/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImageRepository handles screenshot metadata operations.
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ImageRepository: repository instance bound to db.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Upsert creates or updates an image keyed by its source fields. The id of an
// existing row is preserved and written back into image.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - image: image record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *ImageRepository) Upsert(ctx context.Context, image *domain.Image) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_type"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"site_url", "storage_key", "format", "width", "height", "content_hash", "status", "updated_at",
		}),
	}).Create(image).Error
	if err != nil {
		return fmt.Errorf("failed to upsert image: %w", err)
	}

	var stored domain.Image
	if err := r.db.WithContext(ctx).
		First(&stored, "source_type = ? AND source_id = ?", image.SourceType, image.SourceID).Error; err != nil {
		return notFound(err)
	}
	image.ID = stored.ID
	return nil
}

// GetByID retrieves an image by its ID.
// Returns ErrNotFound when the image does not exist.
func (r *ImageRepository) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	var image domain.Image
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

// GetBySourceID retrieves an image by source type and source ID.
func (r *ImageRepository) GetBySourceID(ctx context.Context, sourceType, sourceID string) (*domain.Image, error) {
	var image domain.Image
	if err := r.db.WithContext(ctx).
		First(&image, "source_type = ? AND source_id = ?", sourceType, sourceID).Error; err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

// List retrieves active images ordered by id with pagination. A non-positive
// limit returns every row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Image: matching records.
//   - error: non-nil if the query fails.
func (r *ImageRepository) List(ctx context.Context, limit, offset int) ([]domain.Image, error) {
	var images []domain.Image
	query := r.db.WithContext(ctx).
		Where("status = ?", domain.ImageStatusActive).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// ListIDs returns the ids of every active image.
func (r *ImageRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&domain.Image{}).
		Where("status = ?", domain.ImageStatusActive).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list image ids: %w", err)
	}
	return ids, nil
}

// CountByStatus counts images by status.
func (r *ImageRepository) CountByStatus(ctx context.Context, status domain.ImageStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Image{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
