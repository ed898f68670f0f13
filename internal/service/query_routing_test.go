package service

import "testing"

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		query string
		want  QueryRoute
	}{
		{"cozy", QueryRouteAbstract},
		{"trustworthy", QueryRouteAbstract},
		{"playfully", QueryRouteAbstract},
		{"warmish", QueryRouteAbstract},
		{"welcoming", QueryRouteAbstract},
		{"pricing table", QueryRouteConcrete},
		{"red button", QueryRouteConcrete},
		{"", QueryRouteConcrete},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := classifyQuery(normalizeQuery(tt.query)); got != tt.want {
				t.Errorf("classifyQuery(%q) = %s, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := normalizeQuery("  Cozy \t  Cafe "); got != "cozy cafe" {
		t.Errorf("normalizeQuery() = %q", got)
	}
}
