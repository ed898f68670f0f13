package concept

import (
	"reflect"
	"testing"
)

func testGraph() *Graph {
	return NewGraph([]Concept{
		{ID: "playful", Label: "Playful", Synonyms: []string{"fun", "whimsical"}, Related: []string{"colorful"}, Opposites: []string{"serious"}},
		{ID: "serious", Label: "Serious", Synonyms: []string{"formal"}},
		{ID: "3d", Label: "3D", Synonyms: []string{"three dimensional"}},
		{ID: "colorful", Label: "Colorful", Synonyms: []string{"vibrant"}},
		{ID: "dark", Label: "Dark", Opposites: []string{"Light"}},
		{ID: "light", Label: "Light"},
	})
}

func TestGraphLookup(t *testing.T) {
	g := testGraph()

	if g.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", g.Len())
	}

	ids := make([]string, 0, g.Len())
	for _, c := range g.Concepts() {
		ids = append(ids, c.ID)
	}
	want := []string{"3d", "colorful", "dark", "light", "playful", "serious"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Concepts() order = %v, want %v", ids, want)
	}

	if c, ok := g.Get("playful"); !ok || c.Label != "Playful" {
		t.Errorf("Get(playful) = %v, %v", c, ok)
	}

	tests := []struct {
		term string
		want string
	}{
		{term: "WHIMSICAL", want: "playful"},
		{term: " formal ", want: "serious"},
		{term: "three dimensional", want: "3d"},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := g.LookupTerm(tt.term)
			if len(got) != 1 || got[0].ID != tt.want {
				t.Errorf("LookupTerm(%q) = %v, want %s", tt.term, got, tt.want)
			}
		})
	}

	if got := g.LookupTerm("whimsy"); len(got) != 0 {
		t.Errorf("expected no fuzzy match, got %v", got)
	}
}

func TestExpandedTerms(t *testing.T) {
	g := testGraph()

	terms := g.ExpandedTerms("playful")
	for _, want := range []string{"playful", "fun", "whimsical", "colorful"} {
		if _, ok := terms[want]; !ok {
			t.Errorf("ExpandedTerms missing %q: %v", want, terms)
		}
	}
	if g.ExpandedTerms("missing") != nil {
		t.Error("expected nil for unknown concept")
	}
}

func TestAreOppositesIsBidirectional(t *testing.T) {
	g := testGraph()

	tests := []struct {
		a, b string
		want bool
	}{
		{a: "playful", b: "serious", want: true},
		{a: "serious", b: "playful", want: true},
		{a: "light", b: "dark", want: true},
		{a: "playful", b: "colorful", want: false},
		{a: "playful", b: "playful", want: false},
		{a: "unknown", b: "serious", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := g.AreOpposites(tt.a, tt.b); got != tt.want {
				t.Errorf("AreOpposites(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMatchQuery(t *testing.T) {
	g := testGraph()

	tests := []struct {
		query string
		want  []string
	}{
		{query: "3d", want: []string{"3d"}},
		{query: "Three Dimensional", want: []string{"3d"}},
		{query: "fun, dark", want: []string{"playful", "dark"}},
		{query: "vibrant+serious", want: []string{"colorful", "serious"}},
		{query: "minimal", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := g.MatchQuery(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MatchQuery(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Dark,  Playful+3D\tsite")
	want := []string{"dark", "playful", "3d", "site"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}
