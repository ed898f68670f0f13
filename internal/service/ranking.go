package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/ranking"
	"github.com/timmy/shotrank/internal/repository"
)

// RankingService answers ranking queries over the stored corpus.
type RankingService struct {
	images   *repository.ImageRepository
	tags     *repository.ImageTagRepository
	hubStats *repository.HubStatsRepository
	vectors  repository.VectorStore
	concepts *ConceptEmbeddingService
	expander *QueryExpander
	model    EmbeddingModel
	scoring  config.ScoringConfig
}

// RankRequest is one ranking query.
type RankRequest struct {
	Query    string   `json:"query"`
	Category string   `json:"category,omitempty"`
	ImageIDs []string `json:"image_ids,omitempty"`
	TopK     int      `json:"top_k,omitempty"`
}

// RankResponse holds ranked images and the signals behind the order.
type RankResponse struct {
	Query           string           `json:"query"`
	Route           QueryRoute       `json:"route"`
	Expansions      []string         `json:"expansions"`
	MatchedConcepts []string         `json:"matched_concepts"`
	ScoringVersion  string           `json:"scoring_version"`
	Results         []ranking.Result `json:"results"`
	Total           int              `json:"total"`
	Excluded        int              `json:"excluded"`
}

// NewRankingService creates a RankingService.
func NewRankingService(
	images *repository.ImageRepository,
	tags *repository.ImageTagRepository,
	hubStats *repository.HubStatsRepository,
	vectors repository.VectorStore,
	concepts *ConceptEmbeddingService,
	expander *QueryExpander,
	model EmbeddingModel,
	scoring config.ScoringConfig,
) *RankingService {
	return &RankingService{
		images:   images,
		tags:     tags,
		hubStats: hubStats,
		vectors:  vectors,
		concepts: concepts,
		expander: expander,
		model:    model,
		scoring:  scoring,
	}
}

// RankImages expands and embeds the query, then ranks the requested images
// (or the whole active corpus when none are given). Embeddings, tags and hub
// statistics are loaded once per call.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: ranking request.
// Returns:
//   - *RankResponse: ranked results, truncated to TopK when positive.
//   - error: ErrEmptyQuery for blank queries, or a collaborator error.
func (s *RankingService) RankImages(ctx context.Context, req RankRequest) (*RankResponse, error) {
	start := time.Now()
	ctx = logger.WithField(ctx, logger.FieldQuery, req.Query)

	expansion, err := s.expander.Expand(ctx, req.Query, req.Category)
	if err != nil {
		return nil, err
	}

	resp := &RankResponse{
		Query:          expansion.Term,
		Route:          expansion.Route,
		Expansions:     expansion.Expansions,
		ScoringVersion: s.scoring.Version,
		Results:        []ranking.Result{},
	}

	graph, err := s.concepts.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	resp.MatchedConcepts = graph.MatchQuery(expansion.Term)
	if resp.MatchedConcepts == nil {
		resp.MatchedConcepts = []string{}
	}

	ids := req.ImageIDs
	if len(ids) == 0 {
		if ids, err = s.images.ListIDs(ctx); err != nil {
			return nil, err
		}
	}
	if len(ids) == 0 {
		return resp, nil
	}

	queryVectors, err := s.model.EmbedTexts(ctx, expansion.Expansions)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := s.loadCandidates(ctx, ids)
	if err != nil {
		return nil, err
	}

	composer := ranking.NewComposer(graph, s.scoring)
	results, excluded := composer.Rank(ranking.Query{
		Vectors:         queryVectors,
		MatchedConcepts: resp.MatchedConcepts,
	}, candidates)

	for _, ex := range excluded {
		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldImageID: ex.ImageID,
			"reason":            ex.Reason,
			"dimensions":        ex.Dimensions,
			"expected":          ex.Expected,
		}).Warn("Image excluded from ranking")
	}

	resp.Total = len(results)
	resp.Excluded = len(excluded)
	if req.TopK > 0 && len(results) > req.TopK {
		results = results[:req.TopK]
	}
	resp.Results = results

	logger.With(logger.Fields{
		logger.FieldCount: resp.Total,
		"excluded":        resp.Excluded,
		"expansions":      len(resp.Expansions),
	}).WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Ranking completed")
	return resp, nil
}

func (s *RankingService) loadCandidates(ctx context.Context, ids []string) ([]ranking.Candidate, error) {
	vectors, err := s.vectors.Load(ctx, s.model.Model(), ids)
	if err != nil {
		return nil, err
	}
	tagRows, err := s.tags.GetByImageIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	hubRows, err := s.hubStats.GetByImageIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ids))
	candidates := make([]ranking.Candidate, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		cand := ranking.Candidate{ImageID: id, Embedding: vectors[id]}
		for _, t := range tagRows[id] {
			cand.Tags = append(cand.Tags, ranking.Tag{ConceptID: t.ConceptID, Score: t.Score})
		}
		if h, ok := hubRows[id]; ok {
			cand.Hub = &ranking.HubStats{
				HubCount:                  h.HubCount,
				HubScore:                  h.HubScore,
				AvgCosineSimilarity:       h.AvgCosineSimilarity,
				AvgCosineSimilarityMargin: h.AvgCosineSimilarityMargin,
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
