package pipeline

import (
	"strings"
	"testing"
)

func TestBuildQueries(t *testing.T) {
	tests := []struct {
		name        string
		company     string
		industry    string
		product     string
		expectedLen int
	}{
		{"company only", "Acme", "", "", 6},
		{"industry only", "", "semiconductors", "", 5},
		{"product only", "", "", "widgets", 4},
		{"all entities", "Acme", "semiconductors", "widgets", 15},
		{"no entities falls back", "", "", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries := BuildQueries(tt.company, tt.industry, tt.product)
			if len(queries) != tt.expectedLen {
				t.Errorf("got %d queries, want %d", len(queries), tt.expectedLen)
			}
		})
	}
}

func TestBuildQueriesOrderAndContent(t *testing.T) {
	queries := BuildQueries("Acme", "semiconductors", "widgets")

	// Company phrases first, then industry, then product
	for i := 0; i < 6; i++ {
		if !strings.Contains(queries[i], "Acme") {
			t.Errorf("query %d = %q, expected a company phrase", i, queries[i])
		}
	}
	for i := 6; i < 11; i++ {
		if !strings.Contains(queries[i], "semiconductors") {
			t.Errorf("query %d = %q, expected an industry phrase", i, queries[i])
		}
	}
	for i := 11; i < 15; i++ {
		if !strings.Contains(queries[i], "widgets") {
			t.Errorf("query %d = %q, expected a product phrase", i, queries[i])
		}
	}

	if queries[0] != "Acme Q4 2024 earnings financial results" {
		t.Errorf("first query = %q", queries[0])
	}
}

func TestBuildQueriesFallback(t *testing.T) {
	queries := BuildQueries("", "", "")
	if len(queries) != 1 || queries[0] != "financial markets news" {
		t.Errorf("fallback queries = %v", queries)
	}
}

func TestBuildQueriesDeterministic(t *testing.T) {
	a := BuildQueries("Acme", "retail", "")
	b := BuildQueries("Acme", "retail", "")

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("query %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}
