package pipeline

import (
	"strings"

	"github.com/zombar/newsintel/internal/models"
)

// duplicateThreshold is the Jaccard similarity above which two titles are
// considered the same story.
const duplicateThreshold = 0.8

// Deduplicate removes near-duplicate items by title similarity, keeping the
// first occurrence. Titles are normalized to lowercase and compared as
// whitespace-split word sets; an item is dropped when its similarity against
// any previously accepted title exceeds duplicateThreshold. O(n²), acceptable
// because candidate sets stay small (queries × results-per-query).
func Deduplicate(items []models.ContentItem) []models.ContentItem {
	unique := make([]models.ContentItem, 0, len(items))
	var seen []map[string]bool

	for _, item := range items {
		title := strings.ToLower(strings.TrimSpace(item.Title))
		words := wordSet(title)

		duplicate := false
		for _, accepted := range seen {
			if titleSimilarity(words, accepted) > duplicateThreshold {
				duplicate = true
				break
			}
		}

		if !duplicate {
			seen = append(seen, words)
			unique = append(unique, item)
		}
	}

	return unique
}

// wordSet splits a normalized title into its set of words.
func wordSet(title string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(title) {
		set[w] = true
	}
	return set
}

// titleSimilarity computes word-set Jaccard similarity. Either set being empty
// short-circuits to 0.0 so empty titles are never auto-merged.
func titleSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}
