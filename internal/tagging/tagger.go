// Package tagging selects a bounded, ordered set of concept tags for an image
// embedding.
package tagging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/timmy/shotrank/internal/concept"
	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/vectormath"
)

// minTagScore keeps stored tag scores inside (0, 1] when a fallback tag has a
// non-positive cosine.
const minTagScore = 1e-6

// Tag is one selected concept with its similarity to the image.
type Tag struct {
	ConceptID string
	Score     float64
}

// Tagger applies the threshold, drop-off and floor rules.
type Tagger struct {
	cfg config.TaggerConfig
}

// NewTagger creates a Tagger.
func NewTagger(cfg config.TaggerConfig) *Tagger {
	return &Tagger{cfg: cfg}
}

// Tag scores every concept against embedding and returns the selected tags in
// descending score order. The output depends only on the embedding and the
// graph snapshot. Concepts without an embedding of matching dimension are
// ignored.
func (t *Tagger) Tag(embedding []float32, graph *concept.Graph) []Tag {
	ranked := Rank(embedding, graph)
	if len(ranked) == 0 {
		return nil
	}

	accepted := make([]Tag, 0, t.cfg.MaxTags)
	for _, cand := range ranked {
		if cand.Score < t.cfg.MinScore || len(accepted) >= t.cfg.MaxTags {
			break
		}
		if n := len(accepted); n > 0 && n >= t.cfg.MinTagsFloor {
			prev := accepted[n-1].Score
			if prev > 0 && (prev-cand.Score)/prev > t.cfg.MinScoreDropPct {
				break
			}
		}
		accepted = append(accepted, cand)
	}

	if len(accepted) == 0 {
		k := min(t.cfg.FallbackK, t.cfg.MaxTags)
		if k > len(ranked) {
			k = len(ranked)
		}
		accepted = append(accepted, ranked[:k]...)
	}

	// Top up to the floor from the ranked list regardless of threshold.
	floor := t.cfg.MinTagsFloor
	if floor > len(ranked) {
		floor = len(ranked)
	}
	for i := len(accepted); i < floor; i++ {
		accepted = append(accepted, ranked[i])
	}

	for i := range accepted {
		accepted[i].Score = clampScore(accepted[i].Score)
	}
	return accepted
}

// Rank returns every concept's cosine similarity to embedding, sorted by
// descending score with ties broken by concept id.
func Rank(embedding []float32, graph *concept.Graph) []Tag {
	if len(embedding) == 0 || graph == nil {
		return nil
	}

	ranked := make([]Tag, 0, graph.Len())
	for _, c := range graph.Concepts() {
		if len(c.Embedding) != len(embedding) {
			continue
		}
		ranked = append(ranked, Tag{ConceptID: c.ID, Score: vectormath.Cosine(embedding, c.Embedding)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ConceptID < ranked[j].ConceptID
	})
	return ranked
}

func clampScore(s float64) float64 {
	if s < minTagScore {
		return minTagScore
	}
	if s > 1 {
		return 1
	}
	return s
}

// Phrases renders the label and each synonym of a concept through template,
// which must contain a single %s. Blank and repeated terms are skipped.
func Phrases(label string, synonyms []string, template string) []string {
	if template == "" {
		template = "%s"
	}

	seen := make(map[string]struct{}, 1+len(synonyms))
	phrases := make([]string, 0, 1+len(synonyms))
	for _, term := range append([]string{label}, synonyms...) {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		phrases = append(phrases, fmt.Sprintf(template, strings.TrimSpace(term)))
	}
	return phrases
}

// ExpandedEmbedding averages the phrase embeddings of one concept and
// re-normalizes the result.
func ExpandedEmbedding(phraseVectors [][]float32) ([]float32, error) {
	return vectormath.MeanNormalized(phraseVectors)
}
