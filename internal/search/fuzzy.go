package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// SearchResult represents a search result
type SearchResult struct {
	Name  string
	Score int // Higher is better
}

// FuzzySearch ranks names against query
func FuzzySearch(names []string, query string) []SearchResult {
	query = strings.ToLower(query)
	lowered := make([]string, len(names))
	for i, name := range names {
		lowered[i] = strings.ToLower(name)
	}

	var results []SearchResult
	for _, match := range fuzzy.Find(query, lowered) {
		results = append(results, SearchResult{
			Name:  names[match.Index],
			Score: match.Score,
		})
	}

	// Substring hits that the fuzzy matcher missed still count
	for _, name := range SimpleSearch(names, query) {
		if !containsName(results, name) {
			results = append(results, SearchResult{Name: name})
		}
	}

	// Sort by score (descending), then name
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})

	return results
}

// SimpleSearch performs a simple substring search
func SimpleSearch(names []string, query string) []string {
	query = strings.ToLower(query)
	var out []string
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), query) {
			out = append(out, name)
		}
	}
	return out
}

// Suggest returns up to n names closest to query
func Suggest(names []string, query string, n int) []string {
	results := FuzzySearch(names, query)
	if len(results) > n {
		results = results[:n]
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Name)
	}
	return out
}

func containsName(results []SearchResult, name string) bool {
	for _, r := range results {
		if r.Name == name {
			return true
		}
	}
	return false
}
