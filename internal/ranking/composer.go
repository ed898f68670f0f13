package ranking

import (
	"sort"
	"strings"

	"github.com/timmy/shotrank/internal/concept"
	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/vectormath"
)

// Tag is one persisted (concept, score) pair on an image.
type Tag struct {
	ConceptID string  `json:"concept_id"`
	Score     float64 `json:"score"`
}

// Candidate is one image considered for a query, with everything the composer
// needs already loaded.
type Candidate struct {
	ImageID   string
	Embedding []float32
	Tags      []Tag
	Hub       *HubStats
}

// Query is the expanded, embedded form of a user query.
type Query struct {
	// Vectors holds one unit vector per expansion string.
	Vectors [][]float32
	// MatchedConcepts are concept ids the query text names directly.
	MatchedConcepts []string
}

// OppositeMatch records an image tag that contradicts a matched query concept.
type OppositeMatch struct {
	TagConceptID   string `json:"tag_concept_id"`
	QueryConceptID string `json:"query_concept_id"`
}

// Result is one ranked image with the intermediate values that explain its
// position.
type Result struct {
	ImageID           string          `json:"image_id"`
	Score             float64         `json:"score"`
	BaseScore         float64         `json:"base_score"`
	AdjustedBaseScore float64         `json:"adjusted_base_score"`
	HubMultiplier     float64         `json:"hub_multiplier"`
	Tagged            bool            `json:"tagged"`
	DirectMatches     []Tag           `json:"direct_matches,omitempty"`
	RelatedMatches    []Tag           `json:"related_matches,omitempty"`
	Opposites         []OppositeMatch `json:"opposites,omitempty"`
	HubScore          *float64        `json:"hub_score,omitempty"`
}

// HasDirect reports whether any tag matched a query concept directly.
func (r Result) HasDirect() bool {
	return len(r.DirectMatches) > 0
}

// HasOpposite reports whether any tag contradicts a query concept.
func (r Result) HasOpposite() bool {
	return len(r.Opposites) > 0
}

// ExclusionReason explains why a candidate was left out of the ranking.
type ExclusionReason string

const (
	ExclusionMissingEmbedding  ExclusionReason = "missing_embedding"
	ExclusionDimensionMismatch ExclusionReason = "dimension_mismatch"
)

// Exclusion describes a candidate dropped before scoring.
type Exclusion struct {
	ImageID    string
	Reason     ExclusionReason
	Dimensions int
	Expected   int
}

// Composer scores and orders candidates for one query.
type Composer struct {
	graph  *concept.Graph
	pooler Pooler
	cfg    config.RankingConfig
}

// NewComposer creates a Composer bound to a concept graph snapshot and the
// scoring configuration.
func NewComposer(graph *concept.Graph, scoring config.ScoringConfig) *Composer {
	if graph == nil {
		graph = concept.NewGraph(nil)
	}
	return &Composer{
		graph:  graph,
		pooler: NewPooler(scoring.Pooling),
		cfg:    scoring.Ranking,
	}
}

// BaseScore pools the cosine similarity of embedding against every query
// vector. ok is false when the embedding is missing or its dimension differs
// from the query's.
func (c *Composer) BaseScore(queryVectors [][]float32, embedding []float32) (score float64, ok bool) {
	if len(queryVectors) == 0 || len(embedding) == 0 || len(embedding) != len(queryVectors[0]) {
		return 0, false
	}
	scores := make([]float64, len(queryVectors))
	for i, qv := range queryVectors {
		scores[i] = vectormath.Cosine(qv, embedding)
	}
	return c.pooler.Pool(scores), true
}

// Rank scores every candidate and returns them in final order, along with the
// candidates excluded for data-hygiene problems. An empty query or candidate
// list yields an empty result.
func (c *Composer) Rank(q Query, candidates []Candidate) ([]Result, []Exclusion) {
	if len(q.Vectors) == 0 || len(candidates) == 0 {
		return []Result{}, nil
	}
	dim := len(q.Vectors[0])

	matched := make(map[string]struct{}, len(q.MatchedConcepts))
	for _, id := range q.MatchedConcepts {
		matched[id] = struct{}{}
	}
	relatedTerms := c.relatedTerms(q.MatchedConcepts)

	results := make([]Result, 0, len(candidates))
	var excluded []Exclusion
	for _, cand := range candidates {
		base, ok := c.BaseScore(q.Vectors, cand.Embedding)
		if !ok {
			reason := ExclusionDimensionMismatch
			if len(cand.Embedding) == 0 {
				reason = ExclusionMissingEmbedding
			}
			excluded = append(excluded, Exclusion{
				ImageID:    cand.ImageID,
				Reason:     reason,
				Dimensions: len(cand.Embedding),
				Expected:   dim,
			})
			continue
		}
		results = append(results, c.compose(base, cand, q.MatchedConcepts, matched, relatedTerms))
	}

	SortResults(results)
	return results, excluded
}

// compose applies the tag and hub rules to one candidate.
func (c *Composer) compose(base float64, cand Candidate, matchedOrder []string, matched, relatedTerms map[string]struct{}) Result {
	res := Result{
		ImageID:   cand.ImageID,
		BaseScore: base,
		Tagged:    len(cand.Tags) > 0,
	}

	res.HubMultiplier = HubMultiplier(base, cand.Hub, c.cfg.HubPenalty)
	if cand.Hub != nil {
		hs := cand.Hub.HubScore
		res.HubScore = &hs
	}
	adjusted := base * res.HubMultiplier
	res.AdjustedBaseScore = adjusted

	for _, tag := range cand.Tags {
		if _, ok := matched[tag.ConceptID]; ok {
			res.DirectMatches = append(res.DirectMatches, tag)
		} else if c.isRelated(tag.ConceptID, relatedTerms) {
			res.RelatedMatches = append(res.RelatedMatches, tag)
		}
		for _, qid := range matchedOrder {
			if c.graph.AreOpposites(tag.ConceptID, qid) {
				res.Opposites = append(res.Opposites, OppositeMatch{TagConceptID: tag.ConceptID, QueryConceptID: qid})
			}
		}
	}

	switch {
	case len(res.DirectMatches) > 0:
		var directSum float64
		present := make(map[string]struct{}, len(res.DirectMatches))
		for _, tag := range res.DirectMatches {
			directSum += tag.Score
			present[tag.ConceptID] = struct{}{}
		}
		if len(matched) > 1 {
			completeness := float64(len(present)) / float64(len(matched))
			if completeness < c.cfg.CompletenessFloor {
				completeness = c.cfg.CompletenessFloor
			}
			directSum *= completeness
		}
		res.Score = c.cfg.DirectMultiplier*directSum + adjusted*c.cfg.ZeroWithDirectFactor

	case len(res.RelatedMatches) > 0:
		var relatedMax float64
		for i, tag := range res.RelatedMatches {
			if i == 0 || tag.Score > relatedMax {
				relatedMax = tag.Score
			}
		}
		if relatedMax >= c.cfg.RelatedMin {
			res.Score = relatedMax + adjusted*c.cfg.ZeroWithRelatedFactor
		} else {
			res.Score = adjusted * c.cfg.ZeroWithRelatedFactor
		}

	default:
		// Untagged, or tagged with nothing the query names.
		res.Score = adjusted * c.cfg.ZeroNoDirectFactor
	}

	if len(res.Opposites) > 0 && c.cfg.OppositePenalty > 0 {
		res.Score -= c.cfg.OppositePenalty
	}
	return res
}

// relatedTerms collects the lowercased label, synonyms and related terms of
// every matched concept.
func (c *Composer) relatedTerms(matched []string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, id := range matched {
		for term := range c.graph.ExpandedTerms(id) {
			terms[term] = struct{}{}
		}
	}
	return terms
}

func (c *Composer) isRelated(conceptID string, terms map[string]struct{}) bool {
	if len(terms) == 0 {
		return false
	}
	if _, ok := terms[strings.ToLower(conceptID)]; ok {
		return true
	}
	if cpt, ok := c.graph.Get(conceptID); ok {
		if _, ok := terms[strings.ToLower(strings.TrimSpace(cpt.Label))]; ok {
			return true
		}
	}
	return false
}

// SortResults orders results by (has direct match, direct match count, score,
// base score) descending, then by image id so the order is total.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.HasDirect() != b.HasDirect() {
			return a.HasDirect()
		}
		if len(a.DirectMatches) != len(b.DirectMatches) {
			return len(a.DirectMatches) > len(b.DirectMatches)
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.BaseScore != b.BaseScore {
			return a.BaseScore > b.BaseScore
		}
		return a.ImageID < b.ImageID
	})
}
