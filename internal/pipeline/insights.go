package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zombar/newsintel/internal/models"
)

const (
	maxInsights       = 8
	maxRisks          = 5
	maxOpportunities  = 5
	maxDrivers        = 5
	maxPatternSources = 3
)

// extractInsights emits one finding per high-impact item with decisive
// sentiment: positive developments and potential concerns, capped at
// maxInsights in ranked order.
func extractInsights(items []models.ContentItem) []models.Insight {
	insights := []models.Insight{}

	for _, item := range items {
		if item.ImpactScore <= highImpactThreshold {
			continue
		}

		confidence := item.ImpactScore
		if confidence > 95 {
			confidence = 95
		}

		category := "general"
		if len(item.Categories) > 0 {
			category = item.Categories[0]
		}

		switch {
		case item.Sentiment.Score > 0.2:
			insights = append(insights, models.Insight{
				Insight:    fmt.Sprintf("Positive development: %s", item.Title),
				Confidence: confidence,
				Source:     item.Source,
				Category:   category,
			})
		case item.Sentiment.Score < -0.2:
			insights = append(insights, models.Insight{
				Insight:    fmt.Sprintf("Potential concern: %s", item.Title),
				Confidence: confidence,
				Source:     item.Source,
				Category:   category,
			})
		}

		if len(insights) == maxInsights {
			break
		}
	}

	return insights
}

// generateMarketOutlook derives the impact-weighted sentiment outlook. Empty
// input yields a neutral placeholder.
func generateMarketOutlook(items []models.ContentItem) models.MarketOutlook {
	if len(items) == 0 {
		return models.MarketOutlook{
			Sentiment:      "neutral",
			Confidence:     50,
			KeyDrivers:     []string{},
			TimeHorizon:    "6-12 months",
			TrendDirection: "stable",
		}
	}

	totalImpact := 0
	weighted := 0.0
	totalCredibility := 0
	for _, item := range items {
		totalImpact += item.ImpactScore
		weighted += item.Sentiment.Score * float64(item.ImpactScore)
		totalCredibility += item.CredibilityScore
	}

	weightedSentiment := 0.0
	if totalImpact > 0 {
		weightedSentiment = weighted / float64(totalImpact)
	}

	outlook := "cautious"
	if weightedSentiment > 0.15 {
		outlook = "positive"
	} else if weightedSentiment > -0.15 {
		outlook = "neutral"
	}

	trend := "stable"
	if weightedSentiment > 0 {
		trend = "upward"
	} else if weightedSentiment < 0 {
		trend = "downward"
	}

	n := float64(len(items))
	avgCredibility := float64(totalCredibility) / n
	avgImpact := float64(totalImpact) / n
	confidence := (avgCredibility + avgImpact) / 2
	if confidence > 95 {
		confidence = 95
	}

	return models.MarketOutlook{
		Sentiment:         outlook,
		Confidence:        confidence,
		KeyDrivers:        extractMarketDrivers(items),
		TimeHorizon:       "6-12 months",
		TrendDirection:    trend,
		WeightedSentiment: weightedSentiment,
	}
}

// extractMarketDrivers names the themes behind high-impact items. The first
// matching theme wins per item; drivers are deduplicated in discovery order.
func extractMarketDrivers(items []models.ContentItem) []string {
	drivers := []string{}
	seen := make(map[string]bool)

	add := func(driver string) {
		if !seen[driver] {
			seen[driver] = true
			drivers = append(drivers, driver)
		}
	}

	for _, item := range items {
		if item.ImpactScore <= highImpactThreshold {
			continue
		}
		text := strings.ToLower(item.Title + " " + item.Summary)
		switch {
		case strings.Contains(text, "earnings") || strings.Contains(text, "revenue"):
			add("Financial Performance")
		case strings.Contains(text, "innovation") || strings.Contains(text, "technology"):
			add("Technological Developments")
		case strings.Contains(text, "regulation") || strings.Contains(text, "policy"):
			add("Regulatory Changes")
		}
	}

	if len(drivers) > maxDrivers {
		drivers = drivers[:maxDrivers]
	}
	return drivers
}

// assessRisks collects items matching each fixed risk category and scores the
// category's probability from their impact and sentiment. Top maxRisks by
// descending probability.
func assessRisks(items []models.ContentItem) []models.Risk {
	risks := []models.Risk{}

	for _, pattern := range riskPatterns() {
		matched := matchItems(items, pattern.keywords, false)
		if len(matched) == 0 {
			continue
		}

		avgImpact, avgSentiment := averages(matched)
		probability := avgImpact * (1 - avgSentiment)
		if probability > 90 {
			probability = 90
		}

		severity := "low"
		if probability > 70 {
			severity = "high"
		} else if probability > 40 {
			severity = "medium"
		}

		risks = append(risks, models.Risk{
			RiskType:    titleCase(pattern.name),
			Probability: probability,
			Severity:    severity,
			Sources:     patternSources(matched),
		})
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].Probability > risks[j].Probability
	})
	if len(risks) > maxRisks {
		risks = risks[:maxRisks]
	}
	return risks
}

// identifyOpportunities is symmetric to assessRisks but restricted to
// positive-sentiment items, scoring potential instead of probability.
func identifyOpportunities(items []models.ContentItem) []models.Opportunity {
	opportunities := []models.Opportunity{}

	for _, pattern := range opportunityPatterns() {
		matched := matchItems(items, pattern.keywords, true)
		if len(matched) == 0 {
			continue
		}

		avgImpact, avgSentiment := averages(matched)
		potential := avgImpact * avgSentiment
		if potential > 90 {
			potential = 90
		}

		timeframe := "long_term"
		if potential > 70 {
			timeframe = "short_term"
		} else if potential > 40 {
			timeframe = "medium_term"
		}

		opportunities = append(opportunities, models.Opportunity{
			OpportunityType: titleCase(pattern.name),
			Potential:       potential,
			Timeframe:       timeframe,
			Sources:         patternSources(matched),
		})
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].Potential > opportunities[j].Potential
	})
	if len(opportunities) > maxOpportunities {
		opportunities = opportunities[:maxOpportunities]
	}
	return opportunities
}

// generateRecommendations maps aggregate sentiment and entity context to a
// prioritized action list. The standing monitoring recommendation is always
// present, as are entity-specific research actions for any supplied context.
func generateRecommendations(req models.AnalysisRequest, items []models.ContentItem) []models.Recommendation {
	recommendations := []models.Recommendation{}

	if len(items) > 0 {
		total := 0.0
		for _, item := range items {
			total += item.Sentiment.Score
		}
		avgSentiment := total / float64(len(items))

		if avgSentiment > 0.2 {
			confidence := avgSentiment * 100
			if confidence > 85 {
				confidence = 85
			}
			recommendations = append(recommendations, models.Recommendation{
				Type:       "Investment Opportunity",
				Action:     "Consider strategic investment positions",
				Rationale:  "Positive market sentiment indicates growth opportunities",
				Priority:   "High",
				Timeframe:  "short_term",
				Confidence: confidence,
			})
		} else if avgSentiment < -0.2 {
			confidence := -avgSentiment * 100
			if confidence > 85 {
				confidence = 85
			}
			recommendations = append(recommendations, models.Recommendation{
				Type:       "Risk Management",
				Action:     "Implement defensive strategies",
				Rationale:  "Negative sentiment suggests increased market risks",
				Priority:   "High",
				Timeframe:  "immediate",
				Confidence: confidence,
			})
		}
	}

	if req.CompanyName != "" {
		recommendations = append(recommendations, models.Recommendation{
			Type:      "Company Analysis",
			Action:    fmt.Sprintf("Conduct in-depth analysis of %s", req.CompanyName),
			Rationale: "Company-specific developments require comprehensive assessment",
			Priority:  "High",
			Timeframe: "2-4 weeks",
		})
	}
	if req.Industry != "" {
		recommendations = append(recommendations, models.Recommendation{
			Type:      "Industry Research",
			Action:    fmt.Sprintf("Investigate %s sector trends", req.Industry),
			Rationale: "Industry dynamics provide critical context for investment decisions",
			Priority:  "Medium",
			Timeframe: "1-2 months",
		})
	}
	if req.Product != "" {
		recommendations = append(recommendations, models.Recommendation{
			Type:      "Product Analysis",
			Action:    fmt.Sprintf("Evaluate %s market positioning", req.Product),
			Rationale: "Product-level analysis reveals competitive advantages",
			Priority:  "Medium",
			Timeframe: "3-6 months",
		})
	}

	recommendations = append(recommendations, models.Recommendation{
		Type:       "Market Monitoring",
		Action:     "Establish regular market intelligence review",
		Rationale:  "Continuous monitoring ensures timely response to market changes",
		Priority:   "Medium",
		Timeframe:  "ongoing",
		Confidence: 75,
	})

	return recommendations
}

// matchItems returns the items whose title+summary contains any of the
// keywords, optionally restricted to positive sentiment.
func matchItems(items []models.ContentItem, keywords []string, positiveOnly bool) []models.ContentItem {
	var matched []models.ContentItem
	for _, item := range items {
		if positiveOnly && item.Sentiment.Score <= 0 {
			continue
		}
		text := strings.ToLower(item.Title + " " + item.Summary)
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}

// averages returns mean impact and mean sentiment for a non-empty item set.
func averages(items []models.ContentItem) (avgImpact, avgSentiment float64) {
	totalImpact := 0
	totalSentiment := 0.0
	for _, item := range items {
		totalImpact += item.ImpactScore
		totalSentiment += item.Sentiment.Score
	}
	n := float64(len(items))
	return float64(totalImpact) / n, totalSentiment / n
}

// patternSources lists the sources of the first few matching items.
func patternSources(items []models.ContentItem) []string {
	sources := []string{}
	for _, item := range items {
		sources = append(sources, item.Source)
		if len(sources) == maxPatternSources {
			break
		}
	}
	return sources
}

// titleCase turns an underscore label like "market_volatility" into
// "Market Volatility".
func titleCase(label string) string {
	parts := strings.Split(label, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
