package service

import (
	"regexp"
	"strings"

	"github.com/timmy/shotrank/internal/prompts"
)

// QueryRoute tells the expander whether a query needs expansion.
type QueryRoute string

const (
	// QueryRouteAbstract queries describe a feeling or quality and are expanded.
	QueryRouteAbstract QueryRoute = "abstract"
	// QueryRouteConcrete queries are embedded as-is.
	QueryRouteConcrete QueryRoute = "concrete"
)

var (
	abstractLexicon  = buildLexicon(prompts.AbstractTerms)
	abstractPatterns = []*regexp.Regexp{
		regexp.MustCompile(prompts.EmotionPattern),
		regexp.MustCompile(prompts.TemperaturePattern),
		regexp.MustCompile(prompts.IntimacyPattern),
	}
)

func buildLexicon(terms []string) map[string]struct{} {
	lexicon := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		lexicon[normalizeQuery(term)] = struct{}{}
	}
	return lexicon
}

// normalizeQuery trims, lowercases and collapses inner whitespace.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// classifyQuery routes a normalized query. A query is abstract when it is in
// the lexicon, matches one of the adjective families or has curated
// expansions.
func classifyQuery(term string) QueryRoute {
	if term == "" {
		return QueryRouteConcrete
	}

	if _, ok := abstractLexicon[term]; ok {
		return QueryRouteAbstract
	}

	for _, pattern := range abstractPatterns {
		if pattern.MatchString(term) {
			return QueryRouteAbstract
		}
	}

	if prompts.HasCurated(term) {
		return QueryRouteAbstract
	}

	return QueryRouteConcrete
}
