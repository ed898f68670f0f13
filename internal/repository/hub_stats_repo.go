package repository

import (
	"context"
	"fmt"

	"github.com/timmy/shotrank/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HubStatsRepository stores the output of hub detection.
type HubStatsRepository struct {
	db *gorm.DB
}

// NewHubStatsRepository creates a new HubStatsRepository.
func NewHubStatsRepository(db *gorm.DB) *HubStatsRepository {
	return &HubStatsRepository{db: db}
}

// ClearAll removes every stored hub statistic, leaving all images with
// unknown hub status.
func (r *HubStatsRepository) ClearAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.HubStats{}).Error; err != nil {
		return fmt.Errorf("failed to clear hub stats: %w", err)
	}
	return nil
}

// SaveAll writes hub statistics, replacing existing rows for the same images.
// When clear is true all previous rows are removed in the same transaction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - stats: statistics for the retained hubs.
//   - clear: remove rows for images not in stats.
// Returns:
//   - error: non-nil if the transaction fails.
func (r *HubStatsRepository) SaveAll(ctx context.Context, stats []domain.HubStats, clear bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
				Delete(&domain.HubStats{}).Error; err != nil {
				return fmt.Errorf("failed to clear hub stats: %w", err)
			}
		}
		if len(stats) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "image_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"hub_count", "hub_score", "avg_cosine_similarity", "avg_cosine_similarity_margin", "run_id", "computed_at",
			}),
		}).CreateInBatches(&stats, 200).Error
	})
}

// GetByImageIDs bulk-loads hub statistics for the given images.
// Images without stats are absent from the result.
func (r *HubStatsRepository) GetByImageIDs(ctx context.Context, ids []string) (map[string]domain.HubStats, error) {
	out := make(map[string]domain.HubStats)
	for _, chunk := range chunkIDs(ids) {
		var rows []domain.HubStats
		if err := r.db.WithContext(ctx).Where("image_id IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load hub stats: %w", err)
		}
		for _, row := range rows {
			out[row.ImageID] = row
		}
	}
	return out, nil
}
