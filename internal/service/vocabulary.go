package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/logger"
)

// vocabularyEntry is one concept in an imported vocabulary file.
type vocabularyEntry struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Synonyms  []string `json:"synonyms"`
	Related   []string `json:"related"`
	Opposites []string `json:"opposites"`
}

// ImportVocabulary reads a JSON array of concepts and upserts them. Existing
// embeddings are kept; run RefreshConceptEmbeddings afterwards to recompute
// them from the new labels and synonyms.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - r: JSON array of {id, label, synonyms, related, opposites}.
// Returns:
//   - int: number of concepts written.
//   - error: non-nil for malformed input, empty or duplicate ids, or a write failure.
func (s *ConceptEmbeddingService) ImportVocabulary(ctx context.Context, r io.Reader) (int, error) {
	var entries []vocabularyEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return 0, fmt.Errorf("failed to decode vocabulary: %w", err)
	}

	ids := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return 0, fmt.Errorf("vocabulary entry %d has no id", i)
		}
		if _, dup := ids[id]; dup {
			return 0, fmt.Errorf("vocabulary entry %d repeats id %q", i, id)
		}
		ids[id] = struct{}{}
	}

	rows := make([]domain.Concept, 0, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		label := strings.TrimSpace(e.Label)
		if label == "" {
			label = id
		}
		rows = append(rows, domain.Concept{
			ID:        id,
			Label:     label,
			Synonyms:  cleanTerms(e.Synonyms, ""),
			Related:   knownRefs(ctx, id, "related", e.Related, ids),
			Opposites: knownRefs(ctx, id, "opposites", e.Opposites, ids),
		})
	}

	if err := s.concepts.Upsert(ctx, rows); err != nil {
		return 0, err
	}
	logger.CtxInfo(ctx, "Vocabulary imported: count=%d", len(rows))
	return len(rows), nil
}

// cleanTerms trims terms and drops blanks, repeats and self.
func cleanTerms(terms []string, self string) domain.StringArray {
	out := make(domain.StringArray, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || t == self {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func knownRefs(ctx context.Context, id, field string, refs []string, ids map[string]struct{}) domain.StringArray {
	cleaned := cleanTerms(refs, id)
	out := cleaned[:0]
	for _, ref := range cleaned {
		if _, ok := ids[ref]; !ok {
			logger.CtxWarn(ctx, "Dropping unknown concept reference: concept_id=%s, field=%s, ref=%s", id, field, ref)
			continue
		}
		out = append(out, ref)
	}
	return out
}
