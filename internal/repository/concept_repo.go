package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/shotrank/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConceptRepository handles concept vocabulary operations.
type ConceptRepository struct {
	db *gorm.DB
}

// NewConceptRepository creates a new ConceptRepository.
func NewConceptRepository(db *gorm.DB) *ConceptRepository {
	return &ConceptRepository{db: db}
}

// List returns every concept ordered by id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.Concept: all concepts.
//   - error: non-nil if the query fails.
func (r *ConceptRepository) List(ctx context.Context) ([]domain.Concept, error) {
	var concepts []domain.Concept
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&concepts).Error; err != nil {
		return nil, fmt.Errorf("failed to list concepts: %w", err)
	}
	return concepts, nil
}

// GetByID retrieves a concept by its id.
// Returns ErrNotFound when no concept has that id.
func (r *ConceptRepository) GetByID(ctx context.Context, id string) (*domain.Concept, error) {
	var c domain.Concept
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Upsert creates or replaces concepts keyed by id. The stored embedding is
// kept when the incoming concept carries none.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - concepts: concepts to write.
// Returns:
//   - error: non-nil if the write fails.
func (r *ConceptRepository) Upsert(ctx context.Context, concepts []domain.Concept) error {
	if len(concepts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "synonyms", "related", "opposites", "updated_at"}),
	}).Create(&concepts).Error
}

// UpdateEmbedding stores a freshly computed concept embedding.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: concept id.
//   - model: embedding model that produced the vector.
//   - vector: unit-length embedding.
// Returns:
//   - error: ErrNotFound if the concept does not exist, or the write error.
func (r *ConceptRepository) UpdateEmbedding(ctx context.Context, id, model string, vector []float32) error {
	res := r.db.WithContext(ctx).Model(&domain.Concept{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":       domain.Vector(vector),
			"embedding_model": model,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update concept embedding: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
