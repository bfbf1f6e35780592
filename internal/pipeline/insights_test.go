package pipeline

import (
	"math"
	"testing"

	"github.com/zombar/newsintel/internal/models"
)

func TestExtractInsights(t *testing.T) {
	items := []models.ContentItem{
		{
			Title:       "Acme posts record results",
			Source:      "reuters",
			Categories:  []string{"financial"},
			ImpactScore: 85,
			Sentiment:   models.Sentiment{Score: 0.6},
		},
		{
			Title:       "Sector faces bankruptcy wave",
			Source:      "bloomberg",
			Categories:  []string{"economic"},
			ImpactScore: 99,
			Sentiment:   models.Sentiment{Score: -0.7},
		},
		{
			Title:       "High impact but indecisive tone",
			Source:      "wsj",
			ImpactScore: 90,
			Sentiment:   models.Sentiment{Score: 0.1},
		},
		{
			Title:       "Strong tone but low impact",
			Source:      "cnbc",
			ImpactScore: 40,
			Sentiment:   models.Sentiment{Score: 0.9},
		},
	}

	insights := extractInsights(items)

	if len(insights) != 2 {
		t.Fatalf("got %d insights, want 2", len(insights))
	}
	if insights[0].Insight != "Positive development: Acme posts record results" {
		t.Errorf("first insight = %q", insights[0].Insight)
	}
	if insights[0].Confidence != 85 {
		t.Errorf("first confidence = %d, want 85", insights[0].Confidence)
	}
	if insights[1].Insight != "Potential concern: Sector faces bankruptcy wave" {
		t.Errorf("second insight = %q", insights[1].Insight)
	}
	if insights[1].Confidence != 95 {
		t.Errorf("confidence should cap at 95, got %d", insights[1].Confidence)
	}
	if insights[1].Category != "economic" {
		t.Errorf("category = %q, want economic", insights[1].Category)
	}
	if insights[0].Category != "financial" {
		t.Errorf("category = %q, want financial", insights[0].Category)
	}
}

func TestExtractInsightsCap(t *testing.T) {
	items := make([]models.ContentItem, 0, 12)
	for i := 0; i < 12; i++ {
		items = append(items, models.ContentItem{
			Title:       "Another strong result",
			ImpactScore: 80,
			Sentiment:   models.Sentiment{Score: 0.5},
		})
	}

	insights := extractInsights(items)
	if len(insights) != maxInsights {
		t.Errorf("got %d insights, want %d", len(insights), maxInsights)
	}
}

func TestGenerateMarketOutlook(t *testing.T) {
	items := []models.ContentItem{
		{ImpactScore: 80, CredibilityScore: 95, Sentiment: models.Sentiment{Score: 0.5}},
		{ImpactScore: 90, CredibilityScore: 90, Sentiment: models.Sentiment{Score: -0.4}},
	}

	outlook := generateMarketOutlook(items)

	// weighted = (0.5*80 - 0.4*90) / 170 = 4/170 ≈ 0.0235
	expected := (0.5*80 - 0.4*90) / 170
	if math.Abs(outlook.WeightedSentiment-expected) > 1e-9 {
		t.Errorf("weighted sentiment = %f, want %f", outlook.WeightedSentiment, expected)
	}
	if outlook.Sentiment != "neutral" {
		t.Errorf("outlook = %q, want neutral", outlook.Sentiment)
	}
	if outlook.TrendDirection != "upward" {
		t.Errorf("trend = %q, want upward", outlook.TrendDirection)
	}

	// confidence = (avgCred + avgImpact) / 2 = (92.5 + 85) / 2 = 88.75
	if math.Abs(outlook.Confidence-88.75) > 1e-9 {
		t.Errorf("confidence = %f, want 88.75", outlook.Confidence)
	}
	if outlook.TimeHorizon != "6-12 months" {
		t.Errorf("time horizon = %q", outlook.TimeHorizon)
	}
}

func TestGenerateMarketOutlookLabels(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		sentiment string
		trend     string
	}{
		{"positive", 0.5, "positive", "upward"},
		{"neutral", 0.0, "neutral", "stable"},
		{"mildly negative", -0.1, "neutral", "downward"},
		{"cautious", -0.5, "cautious", "downward"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []models.ContentItem{
				{ImpactScore: 50, CredibilityScore: 50, Sentiment: models.Sentiment{Score: tt.score}},
			}
			outlook := generateMarketOutlook(items)
			if outlook.Sentiment != tt.sentiment {
				t.Errorf("sentiment = %q, want %q", outlook.Sentiment, tt.sentiment)
			}
			if outlook.TrendDirection != tt.trend {
				t.Errorf("trend = %q, want %q", outlook.TrendDirection, tt.trend)
			}
		})
	}
}

func TestExtractMarketDrivers(t *testing.T) {
	items := []models.ContentItem{
		{Title: "Record earnings for Acme", Summary: "revenue up", ImpactScore: 80},
		{Title: "New technology platform", Summary: "innovation push", ImpactScore: 75},
		{Title: "Earnings again", Summary: "revenue once more", ImpactScore: 90},
		{Title: "Regulation tightens", Summary: "policy shift", ImpactScore: 50},
	}

	drivers := extractMarketDrivers(items)

	// Deduplicated in discovery order; the low-impact regulatory item is skipped
	expected := []string{"Financial Performance", "Technological Developments"}
	if len(drivers) != len(expected) {
		t.Fatalf("drivers = %v, want %v", drivers, expected)
	}
	for i := range drivers {
		if drivers[i] != expected[i] {
			t.Errorf("drivers = %v, want %v", drivers, expected)
			break
		}
	}
}

func TestAssessRisks(t *testing.T) {
	items := []models.ContentItem{
		{
			Title:       "Markets volatile amid uncertain outlook",
			Summary:     "Sharp fluctuation in prices",
			Source:      "reuters",
			ImpactScore: 80,
			Sentiment:   models.Sentiment{Score: -0.5},
		},
		{
			Title:       "New regulation proposed for the sector",
			Summary:     "Compliance costs expected to rise",
			Source:      "bloomberg",
			ImpactScore: 60,
			Sentiment:   models.Sentiment{Score: -0.2},
		},
	}

	risks := assessRisks(items)

	if len(risks) != 2 {
		t.Fatalf("got %d risks, want 2", len(risks))
	}

	// market_volatility: 80 * (1 - (-0.5)) = 120 -> capped at 90
	if risks[0].RiskType != "Market Volatility" {
		t.Errorf("top risk = %q", risks[0].RiskType)
	}
	if risks[0].Probability != 90 {
		t.Errorf("probability should cap at 90, got %f", risks[0].Probability)
	}
	if risks[0].Severity != "high" {
		t.Errorf("severity = %q, want high", risks[0].Severity)
	}
	if len(risks[0].Sources) == 0 || risks[0].Sources[0] != "reuters" {
		t.Errorf("sources = %v", risks[0].Sources)
	}

	// regulatory_risk: 60 * (1 - (-0.2)) = 72 -> high
	if risks[1].RiskType != "Regulatory Risk" {
		t.Errorf("second risk = %q", risks[1].RiskType)
	}
	if math.Abs(risks[1].Probability-72) > 1e-9 {
		t.Errorf("probability = %f, want 72", risks[1].Probability)
	}
}

func TestAssessRisksEmpty(t *testing.T) {
	risks := assessRisks(nil)
	if len(risks) != 0 {
		t.Errorf("expected no risks, got %v", risks)
	}
}

func TestIdentifyOpportunities(t *testing.T) {
	items := []models.ContentItem{
		{
			Title:       "Growth accelerates with market expansion",
			Summary:     "New market entries planned",
			Source:      "reuters",
			ImpactScore: 80,
			Sentiment:   models.Sentiment{Score: 0.6},
		},
		{
			Title:       "Growth stalls",
			Summary:     "Expansion on hold",
			Source:      "bloomberg",
			ImpactScore: 90,
			Sentiment:   models.Sentiment{Score: -0.5},
		},
	}

	opportunities := identifyOpportunities(items)

	if len(opportunities) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opportunities))
	}

	// Only the positive item matches: 80 * 0.6 = 48 -> medium_term
	opp := opportunities[0]
	if opp.OpportunityType != "Market Expansion" {
		t.Errorf("type = %q", opp.OpportunityType)
	}
	if math.Abs(opp.Potential-48) > 1e-9 {
		t.Errorf("potential = %f, want 48", opp.Potential)
	}
	if opp.Timeframe != "medium_term" {
		t.Errorf("timeframe = %q, want medium_term", opp.Timeframe)
	}
}

func TestGenerateRecommendations(t *testing.T) {
	positive := []models.ContentItem{
		{Sentiment: models.Sentiment{Score: 0.5}},
		{Sentiment: models.Sentiment{Score: 0.3}},
	}

	recs := generateRecommendations(models.AnalysisRequest{
		CompanyName: "Acme",
		Industry:    "retail",
		Product:     "widgets",
	}, positive)

	if len(recs) != 5 {
		t.Fatalf("got %d recommendations, want 5", len(recs))
	}
	if recs[0].Type != "Investment Opportunity" {
		t.Errorf("first recommendation = %q", recs[0].Type)
	}
	// avg sentiment 0.4 -> confidence 40
	if math.Abs(recs[0].Confidence-40) > 1e-9 {
		t.Errorf("confidence = %f, want 40", recs[0].Confidence)
	}
	if recs[1].Type != "Company Analysis" || recs[2].Type != "Industry Research" || recs[3].Type != "Product Analysis" {
		t.Errorf("entity recommendations out of order: %v", []string{recs[1].Type, recs[2].Type, recs[3].Type})
	}
	if recs[4].Type != "Market Monitoring" {
		t.Errorf("last recommendation = %q, want Market Monitoring", recs[4].Type)
	}
}

func TestGenerateRecommendationsNegative(t *testing.T) {
	negative := []models.ContentItem{
		{Sentiment: models.Sentiment{Score: -0.9}},
	}

	recs := generateRecommendations(models.AnalysisRequest{}, negative)

	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}
	if recs[0].Type != "Risk Management" {
		t.Errorf("first recommendation = %q, want Risk Management", recs[0].Type)
	}
	// confidence 90 capped at 85
	if recs[0].Confidence != 85 {
		t.Errorf("confidence = %f, want 85", recs[0].Confidence)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"market_volatility", "Market Volatility"},
		{"regulatory_risk", "Regulatory Risk"},
		{"single", "Single"},
	}
	for _, tt := range tests {
		if got := titleCase(tt.in); got != tt.out {
			t.Errorf("titleCase(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}
