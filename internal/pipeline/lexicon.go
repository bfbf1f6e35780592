package pipeline

// categoryDef maps one taxonomy category to its subcategory keywords. A
// document matches the category when the label itself or any keyword appears
// as a substring of the lowercased title+summary.
type categoryDef struct {
	name     string
	keywords []string
}

// categoryTaxonomy returns the fixed news taxonomy in evaluation order.
func categoryTaxonomy() []categoryDef {
	return []categoryDef{
		{"financial", []string{"earnings", "stocks", "markets", "investing", "banking"}},
		{"business", []string{"corporate", "mergers", "leadership", "strategy"}},
		{"technology", []string{"innovation", "ai", "software", "hardware"}},
		{"economic", []string{"inflation", "gdp", "employment", "trade"}},
		{"regulatory", []string{"compliance", "legislation", "policy"}},
		{"industry_specific", []string{"sector_trends", "competition", "supply_chain"}},
	}
}

// sourceCredibility is the static reputation table for known source tokens.
// Unknown sources score defaultCredibility.
func sourceCredibility() map[string]int {
	return map[string]int{
		"reuters":        95,
		"bloomberg":      95,
		"wsj":            95,
		"financialtimes": 95,
		"cnbc":           90,
		"yahoo_finance":  85,
		"marketwatch":    85,
		"seekingalpha":   80,
		"investing":      80,
		"benzinga":       75,
	}
}

const defaultCredibility = 50

// sentimentTier is one weighted keyword set for a single polarity.
type sentimentTier struct {
	weight   int
	keywords []string
}

// positiveTiers returns the positive sentiment indicators, strongest first.
func positiveTiers() []sentimentTier {
	return []sentimentTier{
		{3, []string{"surge", "record", "breakthrough", "dominant", "outperform"}},
		{2, []string{"growth", "profit", "expansion", "opportunity", "strength"}},
		{1, []string{"stable", "steady", "maintain", "consistent"}},
	}
}

// negativeTiers returns the negative sentiment indicators, strongest first.
func negativeTiers() []sentimentTier {
	return []sentimentTier{
		{3, []string{"collapse", "plummet", "crisis", "bankruptcy", "failure"}},
		{2, []string{"decline", "loss", "challenge", "risk", "pressure"}},
		{1, []string{"volatile", "uncertain", "cautious", "modest"}},
	}
}

// impactIndicators are title words that each add 10 to the impact score.
func impactIndicators() []string {
	return []string{"breaking", "exclusive", "major", "significant", "critical"}
}

// relevanceKeywords drive the 0-100 relevance score: each keyword found in the
// lowercased title+summary adds 20 points.
func relevanceKeywords() []string {
	return []string{
		"earnings", "revenue", "profit", "stock", "market",
		"investment", "financial", "business", "corporate",
	}
}

// topicStopWords are excluded from key-topic extraction.
func topicStopWords() map[string]bool {
	return map[string]bool{
		"company":   true,
		"market":    true,
		"news":      true,
		"report":    true,
		"analysis":  true,
		"financial": true,
	}
}

// patternDef keys one risk or opportunity category by its trigger keywords.
type patternDef struct {
	name     string
	keywords []string
}

// riskPatterns returns the fixed risk categories in evaluation order.
func riskPatterns() []patternDef {
	return []patternDef{
		{"market_volatility", []string{"volatile", "uncertain", "fluctuation"}},
		{"regulatory_risk", []string{"regulation", "compliance", "legislation"}},
		{"competitive_threat", []string{"competition", "rival", "market share"}},
		{"economic_risk", []string{"recession", "inflation", "economic"}},
		{"supply_chain_risk", []string{"supply chain", "logistics", "production"}},
	}
}

// opportunityPatterns returns the fixed opportunity categories in evaluation order.
func opportunityPatterns() []patternDef {
	return []patternDef{
		{"market_expansion", []string{"growth", "expansion", "new market"}},
		{"innovation_opportunity", []string{"innovation", "breakthrough", "new technology"}},
		{"strategic_partnership", []string{"partnership", "collaboration", "joint venture"}},
		{"investment_opportunity", []string{"investment", "funding", "capital"}},
		{"competitive_advantage", []string{"advantage", "leadership", "dominant"}},
	}
}

// lowQualityIndicators mark fetched titles that are dropped before enrichment.
func lowQualityIndicators() []string {
	return []string{"sponsored", "advertisement", "press release", "blog", "opinion"}
}
