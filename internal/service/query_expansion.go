package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/prompts"
	"github.com/timmy/shotrank/internal/repository"
	"golang.org/x/sync/singleflight"
)

// expansionFillTimeout bounds a shared cache fill, which outlives the request
// that started it.
const expansionFillTimeout = time.Minute

// Expansion is the result of expanding one query.
type Expansion struct {
	Term           string     `json:"term"`
	Category       string     `json:"category,omitempty"`
	Route          QueryRoute `json:"route"`
	Expansions     []string   `json:"expansions"`
	CuratedCount   int        `json:"curated_count"`
	GeneratedCount int        `json:"generated_count"`
	Fallback       bool       `json:"fallback"`
}

// QueryExpander turns abstract queries into concrete visual phrases using
// curated lists and a shared cache of generated expansions.
type QueryExpander struct {
	cache     *repository.QueryExpansionRepository
	generator Generator
	group     singleflight.Group
}

// NewQueryExpander creates a query expander. generator may be nil, in which
// case only curated and already cached expansions are used.
func NewQueryExpander(cache *repository.QueryExpansionRepository, generator Generator) *QueryExpander {
	return &QueryExpander{
		cache:     cache,
		generator: generator,
	}
}

// Expand normalizes query and returns its expansion list. Concrete queries
// and queries with nothing usable expand to themselves. Generation and cache
// failures are logged and never returned.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: raw user query.
//   - category: optional domain context, e.g. "packaging".
// Returns:
//   - *Expansion: ordered expansions, curated first.
//   - error: ErrEmptyQuery for blank queries.
func (e *QueryExpander) Expand(ctx context.Context, query, category string) (*Expansion, error) {
	term := normalizeQuery(query)
	if term == "" {
		return nil, ErrEmptyQuery
	}
	category = normalizeQuery(category)

	result := &Expansion{
		Term:     term,
		Category: category,
		Route:    classifyQuery(term),
	}
	if result.Route == QueryRouteConcrete {
		result.Expansions = []string{term}
		return result, nil
	}

	curated := prompts.CuratedFor(term, category)
	generated := e.generated(ctx, term, category)

	result.CuratedCount = len(curated)
	result.GeneratedCount = len(generated)
	result.Expansions = make([]string, 0, len(curated)+len(generated))
	result.Expansions = append(result.Expansions, curated...)
	result.Expansions = append(result.Expansions, generated...)

	if len(result.Expansions) == 0 {
		result.Expansions = []string{term}
		result.Fallback = true
	}

	logger.CtxInfo(ctx, "Query expanded: term=%s, category=%s, curated=%d, generated=%d",
		term, category, result.CuratedCount, result.GeneratedCount)
	return result, nil
}

// generated returns cached generated expansions for (term, category),
// filling the cache once when it is empty.
func (e *QueryExpander) generated(ctx context.Context, term, category string) []string {
	if e.cache == nil {
		return nil
	}

	rows, err := e.cache.Find(ctx, term, category, domain.ExpansionSourceGenerated)
	if err != nil {
		logger.CtxWarn(ctx, "Expansion cache read failed: term=%s, error=%v", term, err)
		return nil
	}
	if len(rows) > 0 {
		if err := e.cache.Touch(ctx, term, category); err != nil {
			logger.CtxWarn(ctx, "Expansion cache touch failed: term=%s, error=%v", term, err)
		}
		return texts(rows)
	}

	if e.generator == nil {
		return nil
	}

	v, err, _ := e.group.Do(term+"\x00"+category, func() (interface{}, error) {
		// Waiters share this fill, so it must not die with the first caller.
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), expansionFillTimeout)
		defer cancel()
		return e.fill(fillCtx, term, category)
	})
	if err != nil {
		if !errors.Is(err, ErrGenerationDisabled) {
			logger.CtxWarn(ctx, "Expansion generation failed: term=%s, category=%s, error=%v", term, category, err)
		}
		return nil
	}
	return v.([]string)
}

// fill generates expansions and stores them with duplicate suppression. The
// cache is re-read afterwards so concurrent fills converge on the same rows.
func (e *QueryExpander) fill(ctx context.Context, term, category string) ([]string, error) {
	rows, err := e.cache.Find(ctx, term, category, domain.ExpansionSourceGenerated)
	if err == nil && len(rows) > 0 {
		return texts(rows), nil
	}

	phrases, err := e.generator.Generate(ctx, term, category)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]domain.QueryExpansion, 0, len(phrases))
	for i, phrase := range phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		entries = append(entries, domain.QueryExpansion{
			ID:         uuid.New().String(),
			Term:       term,
			Category:   category,
			Expansion:  phrase,
			Source:     domain.ExpansionSourceGenerated,
			Model:      e.generator.Model(),
			CreatedAt:  now.Add(time.Duration(i) * time.Millisecond), // keeps generation order
			LastUsedAt: now,
		})
	}

	if err := e.cache.InsertIgnore(ctx, entries); err != nil {
		logger.CtxWarn(ctx, "Expansion cache write failed: term=%s, error=%v", term, err)
		return texts(entries), nil
	}

	rows, err = e.cache.Find(ctx, term, category, domain.ExpansionSourceGenerated)
	if err != nil || len(rows) == 0 {
		return texts(entries), nil
	}
	return texts(rows), nil
}

func texts(rows []domain.QueryExpansion) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Expansion)
	}
	return out
}
