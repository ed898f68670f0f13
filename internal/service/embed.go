package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/imagehash"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/repository"
	"github.com/timmy/shotrank/internal/source"
	"github.com/timmy/shotrank/internal/storage"
)

var imageNamespace = uuid.MustParse("5b0c8c5e-52e4-4a8e-9a55-3f0b51d6c9a1")

// ImageID returns the deterministic image id for a source item.
func ImageID(sourceType, sourceID string) string {
	return uuid.NewSHA1(imageNamespace, []byte(sourceType+":"+sourceID)).String()
}

// EmbedService runs the image embedding pipeline: read, hash, embed, store.
type EmbedService struct {
	images        *repository.ImageRepository
	embeddings    *repository.ImageEmbeddingRepository
	mirror        repository.VectorStore
	storage       storage.ObjectStorage
	storagePrefix string
	model         EmbeddingModel
	workers       int
	batchSize     int
}

// EmbedConfig holds configuration for the embed service.
type EmbedConfig struct {
	Workers       int
	BatchSize     int
	StoragePrefix string
}

// EmbedStats holds statistics for an embedding run.
type EmbedStats struct {
	TotalItems     int64
	ProcessedItems int64
	SkippedItems   int64
	ReusedItems    int64
	FailedItems    int64
	StartTime      time.Time
	EndTime        time.Time
}

// EmbedOptions holds options for one run.
type EmbedOptions struct {
	Force bool // Re-embed items whose content has not changed
}

// NewEmbedService creates a new embed service. mirror and objectStorage are
// optional: mirror receives a copy of every stored vector (e.g. qdrant), and
// objectStorage receives local screenshots so they can be served later.
func NewEmbedService(
	images *repository.ImageRepository,
	embeddings *repository.ImageEmbeddingRepository,
	mirror repository.VectorStore,
	objectStorage storage.ObjectStorage,
	model EmbeddingModel,
	cfg *EmbedConfig,
) *EmbedService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &EmbedService{
		images:        images,
		embeddings:    embeddings,
		mirror:        mirror,
		storage:       objectStorage,
		storagePrefix: cfg.StoragePrefix,
		model:         model,
		workers:       workers,
		batchSize:     batchSize,
	}
}

// EmbedFromSource embeds up to limit screenshots from src with a worker pool.
// A non-positive limit processes the whole source. Item failures are counted
// and logged; the run itself only fails when the source cannot be read.
func (s *EmbedService) EmbedFromSource(ctx context.Context, src source.Source, limit int, opts *EmbedOptions) (*EmbedStats, error) {
	if opts == nil {
		opts = &EmbedOptions{}
	}

	stats := &EmbedStats{
		StartTime: time.Now(),
	}
	ctx = logger.WithField(ctx, logger.FieldSource, src.Type())

	logger.CtxInfo(ctx, "Starting embedding: limit=%d, force=%v, model=%s", limit, opts.Force, s.model.Model())

	itemsChan := make(chan source.Screenshot, s.workers*2)
	resultsChan := make(chan *processResult, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, src, itemsChan, resultsChan, opts)
		}()
	}

	done := make(chan struct{})
	go func() {
		for result := range resultsChan {
			atomic.AddInt64(&stats.ProcessedItems, 1)
			switch {
			case result.err != nil:
				atomic.AddInt64(&stats.FailedItems, 1)
				logger.FromContext(ctx).WithFields(logger.Fields{
					"source_id": result.sourceID,
				}).WithError(result.err).Error("Failed to embed item")
			case result.skipped:
				atomic.AddInt64(&stats.SkippedItems, 1)
			case result.reused:
				atomic.AddInt64(&stats.ReusedItems, 1)
			}
		}
		close(done)
	}()

	fetchErr := s.feed(ctx, src, limit, itemsChan, stats)

	close(itemsChan)
	wg.Wait()
	close(resultsChan)
	<-done

	stats.EndTime = time.Now()

	logger.With(logger.Fields{
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"skipped":   stats.SkippedItems,
		"reused":    stats.ReusedItems,
		"failed":    stats.FailedItems,
	}).WithDuration(stats.EndTime.Sub(stats.StartTime).Milliseconds()).Info(ctx, "Embedding completed")

	if fetchErr != nil {
		return stats, fmt.Errorf("failed to fetch batch: %w", fetchErr)
	}
	return stats, ctx.Err()
}

func (s *EmbedService) feed(ctx context.Context, src source.Source, limit int, items chan<- source.Screenshot, stats *EmbedStats) error {
	cursor := ""
	fetched := 0
	for ctx.Err() == nil {
		batchLimit := s.batchSize
		if limit > 0 {
			remaining := limit - fetched
			if remaining <= 0 {
				return nil
			}
			if batchLimit > remaining {
				batchLimit = remaining
			}
		}

		batch, next, err := src.FetchBatch(ctx, cursor, batchLimit)
		if err != nil {
			return err
		}

		atomic.AddInt64(&stats.TotalItems, int64(len(batch)))
		fetched += len(batch)

		for _, item := range batch {
			select {
			case items <- item:
			case <-ctx.Done():
				return nil
			}
		}

		if next == "" {
			return nil
		}
		cursor = next
	}
	return nil
}

type processResult struct {
	sourceID string
	skipped  bool
	reused   bool
	err      error
}

// errUnchanged marks an item whose stored embedding is already current.
var errUnchanged = errors.New("unchanged")

func (s *EmbedService) worker(ctx context.Context, src source.Source, items <-chan source.Screenshot, results chan<- *processResult, opts *EmbedOptions) {
	for item := range items {
		if ctx.Err() != nil {
			return
		}

		result := &processResult{sourceID: item.SourceID}
		reused, err := s.processItem(ctx, src, item, opts)
		switch {
		case errors.Is(err, errUnchanged):
			result.skipped = true
		case err != nil:
			result.err = err
		default:
			result.reused = reused
		}
		results <- result
	}
}

// processItem embeds one screenshot. It reports whether an existing vector
// with the same content hash was reused instead of calling the model.
func (s *EmbedService) processItem(ctx context.Context, src source.Source, item source.Screenshot, opts *EmbedOptions) (bool, error) {
	data, err := src.Read(ctx, item)
	if err != nil {
		return false, err
	}

	info, err := imagehash.Canonicalize(data)
	if err != nil {
		return false, err
	}

	imageID := ImageID(src.Type(), item.SourceID)
	existing, err := s.images.GetBySourceID(ctx, src.Type(), item.SourceID)
	switch {
	case err == nil:
		imageID = existing.ID
		if !opts.Force && existing.ContentHash == info.Hash && existing.Status == domain.ImageStatusActive {
			current, err := s.embeddings.GetByImageIDs(ctx, s.model.Model(), []string{imageID})
			if err == nil && len(current) == 1 {
				return false, errUnchanged
			}
		}
	case !errors.Is(err, repository.ErrNotFound):
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	vector, reused, err := s.vectorFor(ctx, data, item.Format, info.Hash, opts.Force)
	if err != nil {
		return false, err
	}

	storageKey := item.StorageKey
	if storageKey == "" && s.storage != nil {
		if storageKey, err = s.upload(ctx, data, info.Hash, item.Format); err != nil {
			return false, err
		}
	}

	image := &domain.Image{
		ID:          imageID,
		SiteURL:     item.SiteURL,
		SourceType:  src.Type(),
		SourceID:    item.SourceID,
		StorageKey:  storageKey,
		Format:      info.Format,
		Width:       info.Width,
		Height:      info.Height,
		ContentHash: info.Hash,
		Status:      domain.ImageStatusActive,
	}
	if err := s.images.Upsert(ctx, image); err != nil {
		return false, err
	}

	embedding := &domain.ImageEmbedding{
		ImageID:     image.ID,
		Model:       s.model.Model(),
		ContentHash: info.Hash,
		Vector:      vector,
		Dimensions:  len(vector),
		CreatedAt:   time.Now(),
	}
	if err := s.embeddings.Upsert(ctx, embedding); err != nil {
		return false, err
	}

	if s.mirror != nil {
		if err := s.mirror.Upsert(ctx, embedding); err != nil {
			return false, fmt.Errorf("failed to mirror vector: %w", err)
		}
	}
	return reused, nil
}

// vectorFor returns the embedding for an image, reusing a stored vector with
// the same (model, content hash) unless force is set.
func (s *EmbedService) vectorFor(ctx context.Context, data []byte, format, hash string, force bool) ([]float32, bool, error) {
	if !force {
		stored, err := s.embeddings.GetByContentHash(ctx, s.model.Model(), hash)
		if err == nil && len(stored.Vector) == s.model.Dimensions() {
			return stored.Vector, true, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, false, err
		}
	}

	vector, err := s.model.EmbedImageData(ctx, data, format)
	if err != nil {
		return nil, false, fmt.Errorf("failed to embed image: %w", err)
	}
	return vector, false, nil
}

func (s *EmbedService) upload(ctx context.Context, data []byte, hash, format string) (string, error) {
	key := storage.ScreenshotKey(s.storagePrefix, hash, format)

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check storage existence: %w", err)
	}
	if exists {
		return key, nil
	}

	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), storage.ContentType(format)); err != nil {
		return "", fmt.Errorf("failed to upload to storage: %w", err)
	}
	return key, nil
}
