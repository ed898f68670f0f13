package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/timmy/shotrank/internal/concept"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/repository"
	"github.com/timmy/shotrank/internal/tagging"
	"golang.org/x/sync/errgroup"
)

// TaggingService assigns concept tags to images and persists them.
type TaggingService struct {
	images   *repository.ImageRepository
	tags     *repository.ImageTagRepository
	vectors  repository.VectorStore
	concepts *ConceptEmbeddingService
	tagger   *tagging.Tagger
	model    string
	workers  int
	pageSize int
}

// TaggingConfig holds configuration for the tagging service.
type TaggingConfig struct {
	Model     string
	Workers   int
	BatchSize int
}

// TagStats summarizes a full tagging run.
type TagStats struct {
	TotalImages  int64
	TaggedImages int64
	SkippedItems int64
	FailedItems  int64
	TotalTags    int64
}

// NewTaggingService creates a new TaggingService.
func NewTaggingService(
	images *repository.ImageRepository,
	tags *repository.ImageTagRepository,
	vectors repository.VectorStore,
	concepts *ConceptEmbeddingService,
	tagger *tagging.Tagger,
	cfg *TaggingConfig,
) *TaggingService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	pageSize := cfg.BatchSize
	if pageSize <= 0 {
		pageSize = 256
	}
	return &TaggingService{
		images:   images,
		tags:     tags,
		vectors:  vectors,
		concepts: concepts,
		tagger:   tagger,
		model:    cfg.Model,
		workers:  workers,
		pageSize: pageSize,
	}
}

// TagImage tags one image and replaces its stored tags.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageID: image to tag.
// Returns:
//   - []domain.ImageTag: stored tags in rank order.
//   - error: ErrImageNotFound, ErrNoConcepts, or a storage error.
func (s *TaggingService) TagImage(ctx context.Context, imageID string) ([]domain.ImageTag, error) {
	if _, err := s.images.GetByID(ctx, imageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}

	graph, err := s.concepts.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	if graph.Len() == 0 {
		return nil, ErrNoConcepts
	}

	vectors, err := s.vectors.Load(ctx, s.model, []string{imageID})
	if err != nil {
		return nil, err
	}
	embedding, ok := vectors[imageID]
	if !ok {
		return nil, fmt.Errorf("image %s has no %s embedding", imageID, s.model)
	}

	return s.tagOne(ctx, imageID, embedding, graph)
}

// GetTags returns the stored tags of an image.
func (s *TaggingService) GetTags(ctx context.Context, imageID string) ([]domain.ImageTag, error) {
	if _, err := s.images.GetByID(ctx, imageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return s.tags.GetByImageID(ctx, imageID)
}

// TagAll tags every active image against one concept snapshot. Images are
// independent: a failure is counted and logged without stopping the run.
func (s *TaggingService) TagAll(ctx context.Context) (*TagStats, error) {
	start := time.Now()

	graph, err := s.concepts.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	if graph.Len() == 0 {
		return nil, ErrNoConcepts
	}

	ids, err := s.images.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	stats := &TagStats{TotalImages: int64(len(ids))}
	for offset := 0; offset < len(ids); offset += s.pageSize {
		end := offset + s.pageSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.tagPage(ctx, ids[offset:end], graph, stats); err != nil {
			return stats, err
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount: stats.TaggedImages,
		"skipped":         stats.SkippedItems,
		"failed":          stats.FailedItems,
		"tags":            stats.TotalTags,
	}).WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Tagging completed")
	return stats, nil
}

func (s *TaggingService) tagPage(ctx context.Context, ids []string, graph *concept.Graph, stats *TagStats) error {
	vectors, err := s.vectors.Load(ctx, s.model, ids)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, id := range ids {
		embedding, ok := vectors[id]
		if !ok {
			atomic.AddInt64(&stats.SkippedItems, 1)
			logger.CtxWarn(ctx, "Skipping image without embedding: image_id=%s, model=%s", id, s.model)
			continue
		}

		g.Go(func() error {
			tags, err := s.tagOne(gctx, id, embedding, graph)
			if err != nil {
				atomic.AddInt64(&stats.FailedItems, 1)
				logger.CtxError(gctx, "Failed to tag image: image_id=%s, error=%v", id, err)
				return nil
			}
			atomic.AddInt64(&stats.TaggedImages, 1)
			atomic.AddInt64(&stats.TotalTags, int64(len(tags)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *TaggingService) tagOne(ctx context.Context, imageID string, embedding []float32, graph *concept.Graph) ([]domain.ImageTag, error) {
	selected := s.tagger.Tag(embedding, graph)

	now := time.Now()
	rows := make([]domain.ImageTag, 0, len(selected))
	for i, tag := range selected {
		rows = append(rows, domain.ImageTag{
			ImageID:   imageID,
			ConceptID: tag.ConceptID,
			Score:     tag.Score,
			Ordinal:   i,
			CreatedAt: now,
		})
	}

	if err := s.tags.ReplaceForImage(ctx, imageID, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
