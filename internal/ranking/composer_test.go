package ranking

import (
	"math"
	"testing"

	"github.com/timmy/shotrank/internal/concept"
	"github.com/timmy/shotrank/internal/config"
)

// unitWithCosine returns a 2-d unit vector whose dot product with [1, 0] is c.
func unitWithCosine(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

var queryAxis = [][]float32{{1, 0}}

func testComposer(t *testing.T) *Composer {
	t.Helper()
	g := concept.NewGraph([]concept.Concept{
		{ID: "3d", Label: "3D"},
		{ID: "playful", Label: "Playful", Synonyms: []string{"fun"}, Related: []string{"colorful"}, Opposites: []string{"serious"}},
		{ID: "colorful", Label: "Colorful"},
		{ID: "serious", Label: "Serious"},
		{ID: "minimal", Label: "Minimal"},
		{ID: "dark", Label: "Dark"},
	})
	return NewComposer(g, config.DefaultScoring())
}

func findResult(t *testing.T, results []Result, id string) Result {
	t.Helper()
	for _, r := range results {
		if r.ImageID == id {
			return r
		}
	}
	t.Fatalf("result %q not found", id)
	return Result{}
}

func TestRankDirectMatchScenario(t *testing.T) {
	c := testComposer(t)

	results, excluded := c.Rank(Query{Vectors: queryAxis, MatchedConcepts: []string{"3d"}}, []Candidate{
		{ImageID: "untagged", Embedding: unitWithCosine(0.9)},
		{ImageID: "tagged", Embedding: unitWithCosine(0.22), Tags: []Tag{{ConceptID: "3d", Score: 0.31}}},
	})
	if len(excluded) != 0 {
		t.Fatalf("unexpected exclusions: %v", excluded)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].ImageID != "tagged" {
		t.Fatalf("expected tagged image first, got %s", results[0].ImageID)
	}
	if math.Abs(results[0].Score-3.122) > 1e-6 {
		t.Errorf("tagged score = %v, want 3.122", results[0].Score)
	}
	if math.Abs(results[1].Score-0.045) > 1e-6 {
		t.Errorf("untagged score = %v, want 0.045", results[1].Score)
	}
	if results[0].HubMultiplier != 1 {
		t.Errorf("hub multiplier without stats = %v, want 1", results[0].HubMultiplier)
	}
}

func TestDirectMatchDominance(t *testing.T) {
	c := testComposer(t)

	for _, base := range []float64{0.05, 0.3, 0.95} {
		results, _ := c.Rank(Query{Vectors: queryAxis, MatchedConcepts: []string{"minimal"}}, []Candidate{
			{ImageID: "a", Embedding: unitWithCosine(base), Tags: []Tag{{ConceptID: "dark", Score: 0.5}}},
			{ImageID: "b", Embedding: unitWithCosine(base), Tags: []Tag{{ConceptID: "minimal", Score: 0.01}}},
		})
		a := findResult(t, results, "a")
		b := findResult(t, results, "b")
		if b.Score <= a.Score {
			t.Errorf("base %v: direct match score %v not above %v", base, b.Score, a.Score)
		}
		if results[0].ImageID != "b" {
			t.Errorf("base %v: expected direct match first", base)
		}
	}
}

func TestCompletenessPenalty(t *testing.T) {
	c := testComposer(t)
	q := Query{Vectors: queryAxis, MatchedConcepts: []string{"3d", "dark"}}

	results, _ := c.Rank(q, []Candidate{
		{ImageID: "both", Embedding: unitWithCosine(0.2), Tags: []Tag{{ConceptID: "3d", Score: 0.3}, {ConceptID: "dark", Score: 0.3}}},
		{ImageID: "one", Embedding: unitWithCosine(0.2), Tags: []Tag{{ConceptID: "3d", Score: 0.3}}},
	})

	both := findResult(t, results, "both")
	one := findResult(t, results, "one")

	wantBoth := 10*0.6 + 0.2*0.10
	wantOne := 10*(0.3*0.5) + 0.2*0.10
	if math.Abs(both.Score-wantBoth) > 1e-6 {
		t.Errorf("both score = %v, want %v", both.Score, wantBoth)
	}
	if math.Abs(one.Score-wantOne) > 1e-6 {
		t.Errorf("one score = %v, want %v", one.Score, wantOne)
	}
	if results[0].ImageID != "both" {
		t.Errorf("expected image with both concepts first")
	}
}

func TestCompletenessFloor(t *testing.T) {
	c := testComposer(t)
	q := Query{Vectors: queryAxis, MatchedConcepts: []string{"3d", "dark", "minimal", "serious", "colorful"}}

	results, _ := c.Rank(q, []Candidate{
		{ImageID: "one", Embedding: unitWithCosine(0), Tags: []Tag{{ConceptID: "3d", Score: 0.5}}},
	})
	want := 10 * 0.5 * 0.4
	if math.Abs(results[0].Score-want) > 1e-6 {
		t.Errorf("score = %v, want %v", results[0].Score, want)
	}
}

func TestRelatedMatch(t *testing.T) {
	c := testComposer(t)
	q := Query{Vectors: queryAxis, MatchedConcepts: []string{"playful"}}

	results, _ := c.Rank(q, []Candidate{
		{ImageID: "strong", Embedding: unitWithCosine(0.3), Tags: []Tag{{ConceptID: "colorful", Score: 0.35}}},
		{ImageID: "weak", Embedding: unitWithCosine(0.3), Tags: []Tag{{ConceptID: "colorful", Score: 0.1}}},
		{ImageID: "unrelated", Embedding: unitWithCosine(0.3), Tags: []Tag{{ConceptID: "dark", Score: 0.6}}},
	})

	strong := findResult(t, results, "strong")
	if len(strong.RelatedMatches) != 1 || strong.HasDirect() {
		t.Fatalf("expected one related match, got %+v", strong)
	}
	if math.Abs(strong.Score-(0.35+0.3*0.10)) > 1e-6 {
		t.Errorf("strong related score = %v", strong.Score)
	}

	weak := findResult(t, results, "weak")
	if math.Abs(weak.Score-0.3*0.10) > 1e-6 {
		t.Errorf("weak related score = %v", weak.Score)
	}

	unrelated := findResult(t, results, "unrelated")
	if len(unrelated.RelatedMatches) != 0 {
		t.Errorf("dark should not be related to playful")
	}
	if math.Abs(unrelated.Score-0.3*0.05) > 1e-6 {
		t.Errorf("unrelated score = %v", unrelated.Score)
	}
}

func TestOppositeFlaggedBothDirections(t *testing.T) {
	c := testComposer(t)

	tests := []struct {
		name    string
		matched string
		tag     string
	}{
		{name: "stored on query concept", matched: "playful", tag: "serious"},
		{name: "stored on tag concept", matched: "serious", tag: "playful"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, _ := c.Rank(Query{Vectors: queryAxis, MatchedConcepts: []string{tt.matched}}, []Candidate{
				{ImageID: "img", Embedding: unitWithCosine(0.4), Tags: []Tag{{ConceptID: tt.tag, Score: 0.3}}},
			})
			r := results[0]
			if !r.HasOpposite() {
				t.Fatalf("expected opposite flag, got %+v", r)
			}
			if r.Opposites[0].TagConceptID != tt.tag || r.Opposites[0].QueryConceptID != tt.matched {
				t.Errorf("unexpected opposite match %+v", r.Opposites[0])
			}
		})
	}
}

func TestOppositePenaltyIsOptional(t *testing.T) {
	scoring := config.DefaultScoring()
	scoring.Ranking.OppositePenalty = 0.01
	g := concept.NewGraph([]concept.Concept{
		{ID: "playful", Label: "Playful", Opposites: []string{"serious"}},
		{ID: "serious", Label: "Serious"},
	})
	c := NewComposer(g, scoring)

	results, _ := c.Rank(Query{Vectors: queryAxis, MatchedConcepts: []string{"playful"}}, []Candidate{
		{ImageID: "img", Embedding: unitWithCosine(0.4), Tags: []Tag{{ConceptID: "serious", Score: 0.3}}},
	})
	want := 0.4*0.05 - 0.01
	if math.Abs(results[0].Score-want) > 1e-6 {
		t.Errorf("score = %v, want %v", results[0].Score, want)
	}
}

func TestHubPenaltyDiscountsBaseOnly(t *testing.T) {
	c := testComposer(t)
	hub := &HubStats{HubCount: 30, HubScore: 0.6, AvgCosineSimilarityMargin: 0.02}

	results, _ := c.Rank(Query{Vectors: queryAxis, MatchedConcepts: []string{"3d"}}, []Candidate{
		{ImageID: "hub", Embedding: unitWithCosine(0.3), Tags: []Tag{{ConceptID: "3d", Score: 0.4}}, Hub: hub},
	})
	r := results[0]

	// margin 0.02 + frequency 0.06 = 0.08; 0.08/0.3 exceeds the 0.2 cap.
	if math.Abs(r.HubMultiplier-0.8) > 1e-6 {
		t.Fatalf("hub multiplier = %v, want 0.8", r.HubMultiplier)
	}
	want := 10*0.4 + 0.3*0.8*0.10
	if math.Abs(r.Score-want) > 1e-6 {
		t.Errorf("score = %v, want %v", r.Score, want)
	}
	if r.HubScore == nil || *r.HubScore != 0.6 {
		t.Errorf("expected hub score to be reported")
	}
}

func TestHubMultiplier(t *testing.T) {
	cfg := config.DefaultScoring().Ranking.HubPenalty

	tests := []struct {
		name string
		base float64
		hub  *HubStats
		want float64
	}{
		{name: "no stats", base: 0.3, hub: nil, want: 1},
		{name: "below reporting floor", base: 0.3, hub: &HubStats{HubScore: 0.05, AvgCosineSimilarityMargin: 0.5}, want: 1},
		{name: "small penalty", base: 0.5, hub: &HubStats{HubScore: 0.2, AvgCosineSimilarityMargin: 0.01}, want: 1 - (0.01+0.02)/0.5},
		{name: "underperforming hub halves frequency", base: 0.5, hub: &HubStats{HubScore: 0.2, AvgCosineSimilarityMargin: -0.01}, want: 1 - 0.01/0.5},
		{name: "capped", base: 0.1, hub: &HubStats{HubScore: 1, AvgCosineSimilarityMargin: 0.5}, want: 0.8},
		{name: "non-positive base uses cap", base: 0, hub: &HubStats{HubScore: 0.3}, want: 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HubMultiplier(tt.base, tt.hub, cfg)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("HubMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHubMultiplierNeverBelowFloor(t *testing.T) {
	cfg := config.DefaultScoring().Ranking.HubPenalty
	cfg.CapPct = 1

	extremes := []HubStats{
		{HubScore: 1, AvgCosineSimilarityMargin: 10},
		{HubScore: 1, AvgCosineSimilarityMargin: -10},
		{HubScore: 0.9, AvgCosineSimilarityMargin: 1e9},
	}
	for _, base := range []float64{-1, 0, 1e-9, 0.5, 1} {
		for i := range extremes {
			if got := HubMultiplier(base, &extremes[i], cfg); got < cfg.MinMultiplier {
				t.Errorf("HubMultiplier(%v, %+v) = %v below floor", base, extremes[i], got)
			}
		}
	}
}

func TestRankExclusions(t *testing.T) {
	c := testComposer(t)

	results, excluded := c.Rank(Query{Vectors: queryAxis}, []Candidate{
		{ImageID: "ok", Embedding: unitWithCosine(0.5)},
		{ImageID: "missing"},
		{ImageID: "stale", Embedding: []float32{0.5, 0.5, 0.5, 0.5}},
	})
	if len(results) != 1 || results[0].ImageID != "ok" {
		t.Fatalf("expected only ok image, got %+v", results)
	}
	if len(excluded) != 2 {
		t.Fatalf("expected 2 exclusions, got %+v", excluded)
	}
	if excluded[0].Reason != ExclusionMissingEmbedding || excluded[1].Reason != ExclusionDimensionMismatch {
		t.Errorf("unexpected exclusion reasons: %+v", excluded)
	}
	if excluded[1].Dimensions != 4 || excluded[1].Expected != 2 {
		t.Errorf("unexpected dimensions in exclusion: %+v", excluded[1])
	}
}

func TestRankEmpty(t *testing.T) {
	c := testComposer(t)

	if results, _ := c.Rank(Query{Vectors: queryAxis}, nil); len(results) != 0 {
		t.Errorf("expected no results for empty corpus")
	}
	if results, _ := c.Rank(Query{}, []Candidate{{ImageID: "a", Embedding: unitWithCosine(0.1)}}); len(results) != 0 {
		t.Errorf("expected no results without query vectors")
	}

	empty := NewComposer(nil, config.DefaultScoring())
	results, _ := empty.Rank(Query{Vectors: queryAxis, MatchedConcepts: nil}, []Candidate{{ImageID: "a", Embedding: unitWithCosine(0.1)}})
	if len(results) != 1 {
		t.Errorf("empty concept graph should still rank by base score")
	}
}

func TestSortResultsTieBreaks(t *testing.T) {
	results := []Result{
		{ImageID: "e", Score: 1, BaseScore: 0.2},
		{ImageID: "d", Score: 1, BaseScore: 0.3},
		{ImageID: "c", Score: 0.5, DirectMatches: []Tag{{ConceptID: "x"}}},
		{ImageID: "b", Score: 0.4, DirectMatches: []Tag{{ConceptID: "x"}, {ConceptID: "y"}}},
		{ImageID: "a", Score: 1, BaseScore: 0.3},
	}
	SortResults(results)

	want := []string{"b", "c", "a", "d", "e"}
	for i, id := range want {
		if results[i].ImageID != id {
			t.Fatalf("order = %v, want %v", ids(results), want)
		}
	}
}

func ids(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ImageID
	}
	return out
}
