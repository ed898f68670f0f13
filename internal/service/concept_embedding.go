package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/shotrank/internal/concept"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/repository"
	"github.com/timmy/shotrank/internal/tagging"
)

// ConceptEmbeddingService maintains concept embeddings and builds concept
// graph snapshots.
type ConceptEmbeddingService struct {
	concepts *repository.ConceptRepository
	model    EmbeddingModel
	template string
}

// RefreshStats summarizes a concept refresh.
type RefreshStats struct {
	Total   int
	Updated int
	Failed  int
}

// NewConceptEmbeddingService creates a ConceptEmbeddingService.
// Parameters:
//   - concepts: concept repository.
//   - model: embedding model for the templated phrases.
//   - template: phrase template with one %s, e.g. "a website design that looks %s".
// Returns:
//   - *ConceptEmbeddingService: service instance.
func NewConceptEmbeddingService(concepts *repository.ConceptRepository, model EmbeddingModel, template string) *ConceptEmbeddingService {
	return &ConceptEmbeddingService{
		concepts: concepts,
		model:    model,
		template: template,
	}
}

// LoadGraph loads every concept and returns an immutable graph snapshot.
func (s *ConceptEmbeddingService) LoadGraph(ctx context.Context) (*concept.Graph, error) {
	rows, err := s.concepts.List(ctx)
	if err != nil {
		return nil, err
	}
	return concept.FromDomain(rows), nil
}

// RefreshConceptEmbeddings re-embeds every concept: the label and each
// synonym are rendered through the phrase template, embedded in one batch,
// averaged and re-normalized. A failing concept is logged and skipped.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *RefreshStats: counts of updated and failed concepts.
//   - error: non-nil if concepts cannot be listed or the context ends.
func (s *ConceptEmbeddingService) RefreshConceptEmbeddings(ctx context.Context) (*RefreshStats, error) {
	start := time.Now()
	rows, err := s.concepts.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &RefreshStats{Total: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		phrases := tagging.Phrases(row.Label, row.Synonyms, s.template)
		if len(phrases) == 0 {
			stats.Failed++
			logger.CtxWarn(ctx, "Concept has no label or synonyms: concept_id=%s", row.ID)
			continue
		}

		if err := s.refreshOne(ctx, row.ID, phrases); err != nil {
			stats.Failed++
			logger.CtxError(ctx, "Failed to refresh concept embedding: concept_id=%s, error=%v", row.ID, err)
			continue
		}
		stats.Updated++
	}

	logger.With(logger.Fields{
		logger.FieldCount: stats.Updated,
		"failed":          stats.Failed,
	}).WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Concept embeddings refreshed")
	return stats, nil
}

func (s *ConceptEmbeddingService) refreshOne(ctx context.Context, id string, phrases []string) error {
	vectors, err := s.model.EmbedTexts(ctx, phrases)
	if err != nil {
		return fmt.Errorf("failed to embed phrases: %w", err)
	}

	embedding, err := tagging.ExpandedEmbedding(vectors)
	if err != nil {
		return err
	}

	return s.concepts.UpdateEmbedding(ctx, id, s.model.Model(), embedding)
}

// ListConcepts returns every stored concept ordered by id.
func (s *ConceptEmbeddingService) ListConcepts(ctx context.Context) ([]domain.Concept, error) {
	return s.concepts.List(ctx)
}
