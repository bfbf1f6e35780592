package pipeline

import (
	"sort"
	"strings"

	"github.com/zombar/newsintel/internal/models"
)

// insufficientData marks aggregate structures produced from an empty item set.
const insufficientData = "insufficient_data"

// highImpactThreshold separates headline items from background noise.
const highImpactThreshold = 70

// analyzeTrends computes category, sentiment, and source distributions plus
// average impact over the ranked set. An empty set yields a well-formed
// placeholder and never divides by zero.
func analyzeTrends(items []models.ContentItem) models.NewsTrends {
	if len(items) == 0 {
		return models.NewsTrends{
			CategoryDistribution:  map[string]int{},
			SentimentDistribution: map[string]int{"positive": 0, "neutral": 0, "negative": 0},
			TopSources:            []models.SourceCount{},
			AverageImpact:         0,
			PatternAnalysis:       insufficientData,
		}
	}

	categories := make(map[string]int)
	for _, item := range items {
		for _, category := range item.Categories {
			categories[category]++
		}
	}

	sentiments := map[string]int{"positive": 0, "neutral": 0, "negative": 0}
	for _, item := range items {
		switch {
		case strings.Contains(item.Sentiment.Label, "positive"):
			sentiments["positive"]++
		case strings.Contains(item.Sentiment.Label, "negative"):
			sentiments["negative"]++
		default:
			sentiments["neutral"]++
		}
	}

	totalImpact := 0
	for _, item := range items {
		totalImpact += item.ImpactScore
	}

	return models.NewsTrends{
		CategoryDistribution:  categories,
		SentimentDistribution: sentiments,
		TopSources:            topSources(items, 5),
		AverageImpact:         float64(totalImpact) / float64(len(items)),
	}
}

// summarize produces the summary statistics block for the ranked set.
func summarize(items []models.ContentItem) models.SummaryStatistics {
	if len(items) == 0 {
		return models.SummaryStatistics{TopCategories: []models.CategoryCount{}}
	}

	totalCredibility := 0
	totalSentiment := 0.0
	highImpact := 0
	for _, item := range items {
		totalCredibility += item.CredibilityScore
		totalSentiment += item.Sentiment.Score
		if item.ImpactScore > highImpactThreshold {
			highImpact++
		}
	}

	n := float64(len(items))
	return models.SummaryStatistics{
		TotalArticles:      len(items),
		AverageCredibility: float64(totalCredibility) / n,
		AverageSentiment:   totalSentiment / n,
		HighImpactArticles: highImpact,
		TopCategories:      topCategories(items, 3),
	}
}

// topSources returns the most frequent source tokens, count descending.
func topSources(items []models.ContentItem, limit int) []models.SourceCount {
	counts := make(map[string]int)
	order := make(map[string]int)
	for i, item := range items {
		if _, ok := counts[item.Source]; !ok {
			order[item.Source] = i
		}
		counts[item.Source]++
	}

	sources := make([]models.SourceCount, 0, len(counts))
	for source, count := range counts {
		sources = append(sources, models.SourceCount{Source: source, Count: count})
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Count != sources[j].Count {
			return sources[i].Count > sources[j].Count
		}
		return order[sources[i].Source] < order[sources[j].Source]
	})

	if len(sources) > limit {
		sources = sources[:limit]
	}
	return sources
}

// topCategories returns the most frequent category labels, count descending.
func topCategories(items []models.ContentItem, limit int) []models.CategoryCount {
	counts := make(map[string]int)
	order := make(map[string]int)
	pos := 0
	for _, item := range items {
		for _, category := range item.Categories {
			if _, ok := counts[category]; !ok {
				order[category] = pos
			}
			counts[category]++
			pos++
		}
	}

	categories := make([]models.CategoryCount, 0, len(counts))
	for category, count := range counts {
		categories = append(categories, models.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return order[categories[i].Category] < order[categories[j].Category]
	})

	if len(categories) > limit {
		categories = categories[:limit]
	}
	return categories
}
