package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/shotrank/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryExpansionRepository is the shared cache of expansion strings.
type QueryExpansionRepository struct {
	db *gorm.DB
}

// NewQueryExpansionRepository creates a new QueryExpansionRepository.
func NewQueryExpansionRepository(db *gorm.DB) *QueryExpansionRepository {
	return &QueryExpansionRepository{db: db}
}

// Find returns cached expansions for the exact (term, category, source) key in
// insertion order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - term: normalized query term.
//   - category: category context, empty for generic.
//   - source: curated or generated.
// Returns:
//   - []domain.QueryExpansion: cached rows, empty when the key is uncached.
//   - error: non-nil if the query fails.
func (r *QueryExpansionRepository) Find(ctx context.Context, term, category string, source domain.ExpansionSource) ([]domain.QueryExpansion, error) {
	var rows []domain.QueryExpansion
	if err := r.db.WithContext(ctx).
		Where("term = ? AND category = ? AND source = ?", term, category, source).
		Order("created_at ASC, expansion ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find query expansions: %w", err)
	}
	return rows, nil
}

// InsertIgnore inserts expansions, silently skipping rows whose
// (term, category, expansion, source) key already exists. Concurrent fills
// of the same key therefore never produce duplicates or errors.
func (r *QueryExpansionRepository) InsertIgnore(ctx context.Context, entries []domain.QueryExpansion) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries).Error; err != nil {
		return fmt.Errorf("failed to insert query expansions: %w", err)
	}
	return nil
}

// Touch updates last_used_at for every cached row of (term, category).
func (r *QueryExpansionRepository) Touch(ctx context.Context, term, category string) error {
	return r.db.WithContext(ctx).Model(&domain.QueryExpansion{}).
		Where("term = ? AND category = ?", term, category).
		Update("last_used_at", time.Now()).Error
}
