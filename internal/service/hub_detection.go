package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/hubs"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/prompts"
	"github.com/timmy/shotrank/internal/repository"
)

// HubDetectionService finds images that rank highly for too many unrelated
// probe queries and stores their hub statistics.
type HubDetectionService struct {
	concepts *repository.ConceptRepository
	vectors  repository.VectorStore
	hubStats *repository.HubStatsRepository
	model    EmbeddingModel
	defaults config.HubsConfig
	workers  int
}

// RunOptions controls one detection run. Zero values fall back to the
// configured defaults.
type RunOptions struct {
	RunID               string
	Clear               bool
	TopN                int
	ThresholdMultiplier float64
}

// NewHubDetectionService creates a HubDetectionService.
func NewHubDetectionService(
	concepts *repository.ConceptRepository,
	vectors repository.VectorStore,
	hubStats *repository.HubStatsRepository,
	model EmbeddingModel,
	defaults config.HubsConfig,
	workers int,
) *HubDetectionService {
	return &HubDetectionService{
		concepts: concepts,
		vectors:  vectors,
		hubStats: hubStats,
		model:    model,
		defaults: defaults,
		workers:  workers,
	}
}

// ProbeTexts returns the probe queries: every concept label followed by the
// generic style phrases. Blank and repeated texts are dropped.
func (s *HubDetectionService) ProbeTexts(ctx context.Context) ([]string, error) {
	rows, err := s.concepts.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows)+len(prompts.ProbeStylePhrases))
	texts := make([]string, 0, len(rows)+len(prompts.ProbeStylePhrases))
	add := func(text string) {
		key := normalizeQuery(text)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		texts = append(texts, text)
	}
	for _, row := range rows {
		add(row.Label)
	}
	for _, phrase := range prompts.ProbeStylePhrases {
		add(phrase)
	}
	return texts, nil
}

// Run probes the whole corpus and persists the significant hubs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - opts: run options; Clear removes stats of images that are no longer hubs.
// Returns:
//   - *hubs.Report: detection summary including the stored hubs.
//   - error: non-nil if probing, detection or persistence fails.
func (s *HubDetectionService) Run(ctx context.Context, opts RunOptions) (*hubs.Report, error) {
	start := time.Now()
	if opts.TopN <= 0 {
		opts.TopN = s.defaults.TopN
	}
	if opts.ThresholdMultiplier <= 0 {
		opts.ThresholdMultiplier = s.defaults.ThresholdMultiplier
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	texts, err := s.ProbeTexts(ctx)
	if err != nil {
		return nil, err
	}
	probes, err := s.model.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed probes: %w", err)
	}

	vectors, err := s.vectors.Load(ctx, s.model.Model(), nil)
	if err != nil {
		return nil, err
	}
	images := make([]hubs.Image, 0, len(vectors))
	for id, v := range vectors {
		images = append(images, hubs.Image{ID: id, Embedding: v})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].ID < images[j].ID })

	report, err := hubs.Detect(ctx, images, probes, hubs.Options{
		TopN:                opts.TopN,
		ThresholdMultiplier: opts.ThresholdMultiplier,
		Workers:             s.workers,
	})
	if err != nil {
		return nil, err
	}
	if report.Skipped > 0 {
		logger.CtxWarn(ctx, "Hub detection skipped images with mismatched dimensions: count=%d, expected=%d",
			report.Skipped, s.model.Dimensions())
	}

	now := time.Now()
	rows := make([]domain.HubStats, 0, len(report.Hubs))
	for _, h := range report.Hubs {
		rows = append(rows, domain.HubStats{
			ImageID:                   h.ImageID,
			HubCount:                  h.HubCount,
			HubScore:                  h.HubScore,
			AvgCosineSimilarity:       h.AvgCosineSimilarity,
			AvgCosineSimilarityMargin: h.AvgCosineSimilarityMargin,
			RunID:                     opts.RunID,
			ComputedAt:                now,
		})
	}
	if err := s.hubStats.SaveAll(ctx, rows, opts.Clear); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		"probes":          report.NumQueries,
		"images":          report.NumImages,
		"threshold":       report.Threshold,
		logger.FieldCount: len(report.Hubs),
		logger.FieldRunID: opts.RunID,
	}).WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Hub detection completed")
	return report, nil
}
