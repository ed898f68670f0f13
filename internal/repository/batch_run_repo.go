package repository

import (
	"context"
	"time"

	"github.com/timmy/shotrank/internal/domain"
	"gorm.io/gorm"
)

// BatchRunRepository records offline job runs.
type BatchRunRepository struct {
	db *gorm.DB
}

// NewBatchRunRepository creates a new BatchRunRepository.
func NewBatchRunRepository(db *gorm.DB) *BatchRunRepository {
	return &BatchRunRepository{db: db}
}

// Create inserts a new run record.
func (r *BatchRunRepository) Create(ctx context.Context, run *domain.BatchRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish marks a run as completed or failed and stores its counters.
func (r *BatchRunRepository) Finish(ctx context.Context, run *domain.BatchRun, runErr error) error {
	now := time.Now()
	run.CompletedAt = &now
	run.Status = domain.RunStatusCompleted
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorLog = runErr.Error()
	}
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID.
func (r *BatchRunRepository) GetByID(ctx context.Context, id string) (*domain.BatchRun, error) {
	var run domain.BatchRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// Latest returns the most recent run of a kind.
func (r *BatchRunRepository) Latest(ctx context.Context, kind domain.RunKind) (*domain.BatchRun, error) {
	var run domain.BatchRun
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("started_at DESC").
		First(&run).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}
