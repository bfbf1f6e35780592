package models

import "time"

// RawDocument is one retrieved search result before enrichment. All fields are
// optional on the wire; defaulting happens once at ingestion, not at call sites.
type RawDocument struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Summary       string `json:"summary"`
	Text          string `json:"text"`
	PublishedDate string `json:"published_date,omitempty"`
	Date          string `json:"date,omitempty"`
}

// Sentiment holds the lexicon-derived sentiment of a single document.
type Sentiment struct {
	Score     float64 `json:"score"`     // -1.0 to 1.0
	Magnitude float64 `json:"magnitude"` // 0.0 to 1.0
	Label     string  `json:"label"`     // strongly_positive .. strongly_negative
}

// ContentItem is one enriched, scored representation of a retrieved document.
// It is produced once by the enricher and immutable thereafter.
type ContentItem struct {
	Title            string    `json:"title"`
	URL              string    `json:"url"`
	Summary          string    `json:"summary"`
	TextExcerpt      string    `json:"text_excerpt"`
	Source           string    `json:"source"`
	CredibilityScore int       `json:"credibility_score"` // 0-100
	Categories       []string  `json:"categories"`        // never empty
	Sentiment        Sentiment `json:"sentiment"`
	ImpactScore      int       `json:"impact_score"`    // 0-100
	RelevanceScore   int       `json:"relevance_score"` // 0-100
	KeyTopics        []string  `json:"key_topics"`      // up to 5, frequency-ranked
	PublishedDate    string    `json:"published_date"`  // ISO date
	DateEstimated    bool      `json:"date_estimated,omitempty"`
}

// AnalysisRequest is the pipeline entry-point input.
type AnalysisRequest struct {
	CompanyName  string        `json:"company_name,omitempty"`
	Industry     string        `json:"industry,omitempty"`
	Product      string        `json:"product,omitempty"`
	MaxResults   int           `json:"max_results,omitempty"`
	RawDocuments []RawDocument `json:"raw_documents,omitempty"`
}

// SummaryStatistics aggregates scores across the ranked item set.
type SummaryStatistics struct {
	TotalArticles      int             `json:"total_articles"`
	AverageCredibility float64         `json:"average_credibility"`
	AverageSentiment   float64         `json:"average_sentiment"`
	HighImpactArticles int             `json:"high_impact_articles"`
	TopCategories      []CategoryCount `json:"top_categories"`
}

// CategoryCount pairs a category label with its article count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// SourceCount pairs a source token with its article count.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// NewsAnalysis is the article section of a report. Articles is display-capped;
// TotalArticles reflects the full ranked set.
type NewsAnalysis struct {
	TotalArticles     int               `json:"total_articles"`
	DuplicatesRemoved int               `json:"duplicates_removed"`
	Articles          []ContentItem     `json:"articles"`
	SummaryStatistics SummaryStatistics `json:"summary_statistics"`
}

// Insight is one qualitative finding derived from a high-impact article.
type Insight struct {
	Insight    string `json:"insight"`
	Confidence int    `json:"confidence"`
	Source     string `json:"source"`
	Category   string `json:"category"`
}

// Risk is one pattern-matched risk category with a probability score.
type Risk struct {
	RiskType    string   `json:"risk_type"`
	Probability float64  `json:"probability"`
	Severity    string   `json:"severity"` // high, medium, low
	Sources     []string `json:"sources"`
}

// Opportunity is one pattern-matched opportunity with a potential score.
type Opportunity struct {
	OpportunityType string   `json:"opportunity_type"`
	Potential       float64  `json:"potential"`
	Timeframe       string   `json:"timeframe"` // short_term, medium_term, long_term
	Sources         []string `json:"sources"`
}

// MarketOutlook summarizes impact-weighted sentiment across the ranked set.
type MarketOutlook struct {
	Sentiment         string   `json:"sentiment"` // positive, neutral, cautious
	Confidence        float64  `json:"confidence"`
	KeyDrivers        []string `json:"key_drivers"`
	TimeHorizon       string   `json:"time_horizon"`
	TrendDirection    string   `json:"trend_direction"` // upward, downward, stable
	WeightedSentiment float64  `json:"weighted_sentiment"`
}

// NewsTrends holds distribution statistics over the ranked set. PatternAnalysis
// is set to "insufficient_data" when there were no articles to aggregate.
type NewsTrends struct {
	CategoryDistribution  map[string]int `json:"category_distribution"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	TopSources            []SourceCount  `json:"top_sources"`
	AverageImpact         float64        `json:"average_impact"`
	PatternAnalysis       string         `json:"pattern_analysis,omitempty"`
}

// Recommendation is one prioritized action derived from aggregate signals.
type Recommendation struct {
	Type       string  `json:"type"`
	Action     string  `json:"action"`
	Rationale  string  `json:"rationale"`
	Priority   string  `json:"priority"` // High, Medium, Low
	Timeframe  string  `json:"timeframe,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Report is the assembled analysis for one request. It has no persisted
// identity beyond what the storage layer assigns.
type Report struct {
	CompanyName     string           `json:"company_name"`
	Industry        string           `json:"industry"`
	ProductFocus    string           `json:"product_focus"`
	AnalysisDate    string           `json:"analysis_date"`
	NewsAnalysis    NewsAnalysis     `json:"news_analysis"`
	KeyInsights     []Insight        `json:"key_insights"`
	MarketOutlook   MarketOutlook    `json:"market_outlook"`
	RiskAssessment  []Risk           `json:"risk_assessment"`
	Opportunities   []Opportunity    `json:"opportunities"`
	NewsTrends      NewsTrends       `json:"news_trends"`
	Recommendations []Recommendation `json:"recommendations"`
}

// StoredReport wraps a report with its persistence metadata.
type StoredReport struct {
	ID        string          `json:"id"`
	Request   AnalysisRequest `json:"request"`
	Report    Report          `json:"report"`
	CreatedAt time.Time       `json:"created_at"`
}
