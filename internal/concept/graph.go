// Package concept provides the in-memory view of the controlled tagging
// vocabulary used by the tagger and the ranking composer.
package concept

import (
	"sort"
	"strings"

	"github.com/timmy/shotrank/internal/domain"
)

// Concept is a read-only snapshot of one vocabulary entry.
type Concept struct {
	ID        string
	Label     string
	Synonyms  []string
	Related   []string
	Opposites []string
	Embedding []float32
}

// Graph indexes concepts by id and by lowercased label or synonym.
// A Graph is immutable after construction and safe for concurrent reads.
type Graph struct {
	concepts []*Concept
	byID     map[string]*Concept
	byTerm   map[string][]*Concept
}

// NewGraph builds a graph from concept snapshots. Concepts are ordered by id
// so iteration over the graph is deterministic. Later duplicates of an id
// replace earlier ones.
func NewGraph(concepts []Concept) *Graph {
	g := &Graph{
		byID:   make(map[string]*Concept, len(concepts)),
		byTerm: make(map[string][]*Concept),
	}

	for i := range concepts {
		c := concepts[i]
		g.byID[c.ID] = &c
	}

	g.concepts = make([]*Concept, 0, len(g.byID))
	for _, c := range g.byID {
		g.concepts = append(g.concepts, c)
	}
	sort.Slice(g.concepts, func(i, j int) bool {
		return g.concepts[i].ID < g.concepts[j].ID
	})

	for _, c := range g.concepts {
		g.addTerm(c.Label, c)
		for _, s := range c.Synonyms {
			g.addTerm(s, c)
		}
	}
	return g
}

// FromDomain converts stored concepts into a graph.
func FromDomain(rows []domain.Concept) *Graph {
	concepts := make([]Concept, 0, len(rows))
	for _, row := range rows {
		concepts = append(concepts, Concept{
			ID:        row.ID,
			Label:     row.Label,
			Synonyms:  []string(row.Synonyms),
			Related:   []string(row.Related),
			Opposites: []string(row.Opposites),
			Embedding: []float32(row.Embedding),
		})
	}
	return NewGraph(concepts)
}

func (g *Graph) addTerm(term string, c *Concept) {
	key := normalize(term)
	if key == "" {
		return
	}
	for _, existing := range g.byTerm[key] {
		if existing.ID == c.ID {
			return
		}
	}
	g.byTerm[key] = append(g.byTerm[key], c)
}

// Len returns the number of concepts.
func (g *Graph) Len() int {
	return len(g.concepts)
}

// Concepts returns all concepts ordered by id.
func (g *Graph) Concepts() []*Concept {
	return g.concepts
}

// Get looks up a concept by id.
func (g *Graph) Get(id string) (*Concept, bool) {
	c, ok := g.byID[id]
	return c, ok
}

// LookupTerm returns the concepts whose label or one of whose synonyms equals
// term, ignoring case. No fuzzy matching is performed.
func (g *Graph) LookupTerm(term string) []*Concept {
	return g.byTerm[normalize(term)]
}

// ExpandedTerms returns {label} ∪ synonyms ∪ related for the concept,
// lowercased and deduplicated.
func (g *Graph) ExpandedTerms(id string) map[string]struct{} {
	c, ok := g.byID[id]
	if !ok {
		return nil
	}

	terms := make(map[string]struct{}, 1+len(c.Synonyms)+len(c.Related))
	add := func(s string) {
		if key := normalize(s); key != "" {
			terms[key] = struct{}{}
		}
	}
	add(c.Label)
	for _, s := range c.Synonyms {
		add(s)
	}
	for _, s := range c.Related {
		add(s)
	}
	return terms
}

// AreOpposites reports whether either concept lists the other as an opposite.
// Stored opposite lists are often one-directional, so both sides are checked.
func (g *Graph) AreOpposites(a, b string) bool {
	if a == b {
		return false
	}
	return g.listsOpposite(a, b) || g.listsOpposite(b, a)
}

func (g *Graph) listsOpposite(from, to string) bool {
	c, ok := g.byID[from]
	if !ok {
		return false
	}

	target := normalize(to)
	var targetLabel string
	if other, ok := g.byID[to]; ok {
		targetLabel = normalize(other.Label)
	}
	for _, o := range c.Opposites {
		key := normalize(o)
		if key == target || (targetLabel != "" && key == targetLabel) {
			return true
		}
	}
	return false
}

// MatchQuery returns the ids of concepts the query names textually. The whole
// normalized query is tried first, then each token split on whitespace, comma
// and plus. Ids, labels and synonyms are compared case-insensitively.
// The result preserves first-match order and contains no duplicates.
func (g *Graph) MatchQuery(query string) []string {
	var matched []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		matched = append(matched, id)
	}

	try := func(term string) {
		key := normalize(term)
		if key == "" {
			return
		}
		if c, ok := g.byID[key]; ok {
			add(c.ID)
		}
		for _, c := range g.byTerm[key] {
			add(c.ID)
		}
	}

	try(query)
	for _, token := range Tokenize(query) {
		try(token)
	}
	return matched
}

// Tokenize splits a query on whitespace, commas and plus signs.
func Tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		switch r {
		case ',', '+', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
