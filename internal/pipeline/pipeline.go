package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zombar/newsintel/internal/models"
)

const (
	// DefaultMaxResults bounds the ranked item set when the caller does not
	// supply a limit.
	DefaultMaxResults = 20

	// articleDisplayCap bounds the articles list in the report; TotalArticles
	// still reflects the full ranked set.
	articleDisplayCap = 15

	// resultsPerQuery is how many documents are requested per search phrase.
	resultsPerQuery = 8

	// maxExcerptLen bounds the text excerpt carried on each item.
	maxExcerptLen = 1000

	// minSummaryLen is the quality floor for fetched documents.
	minSummaryLen = 50
)

// Fetcher retrieves raw documents for one search phrase. Implementations live
// at the service boundary; the pipeline itself performs no I/O when documents
// are handed in directly.
type Fetcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.RawDocument, error)
}

// Pipeline turns raw search-result documents into an intelligence report. It
// is stateless between invocations and safe for concurrent use.
type Pipeline struct {
	taxonomy    []categoryDef
	credibility map[string]int
	positive    []sentimentTier
	negative    []sentimentTier
	stopWords   map[string]bool
	fetcher     Fetcher
	logger      *slog.Logger
}

// New creates a Pipeline that analyzes caller-supplied documents only.
func New() *Pipeline {
	return &Pipeline{
		taxonomy:    categoryTaxonomy(),
		credibility: sourceCredibility(),
		positive:    positiveTiers(),
		negative:    negativeTiers(),
		stopWords:   topicStopWords(),
		logger:      slog.Default(),
	}
}

// NewWithFetcher creates a Pipeline that fetches documents through the given
// collaborator when a request carries no raw documents.
func NewWithFetcher(fetcher Fetcher) *Pipeline {
	p := New()
	p.fetcher = fetcher
	return p
}

// Analyze runs the full pipeline for one request: gather (or accept) raw
// documents, enrich, deduplicate, rank, truncate, and assemble the report. It
// never fails for content reasons; the worst case is a degraded report with
// zero articles and placeholder aggregates.
func (p *Pipeline) Analyze(ctx context.Context, req models.AnalysisRequest) models.Report {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	raw := req.RawDocuments
	if len(raw) == 0 && p.fetcher != nil {
		raw = p.fetchAll(ctx, req)
	}

	items := make([]models.ContentItem, 0, len(raw))
	for _, doc := range raw {
		items = append(items, p.Enrich(doc))
	}

	before := len(items)
	items = Deduplicate(items)
	duplicates := before - len(items)

	rankItems(items)
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	return p.assemble(req, items, duplicates)
}

// fetchAll runs every derived search phrase through the fetcher. A failed
// query contributes zero documents and is logged, never fatal.
func (p *Pipeline) fetchAll(ctx context.Context, req models.AnalysisRequest) []models.RawDocument {
	var raw []models.RawDocument
	for _, query := range BuildQueries(req.CompanyName, req.Industry, req.Product) {
		docs, err := p.fetcher.Search(ctx, query, resultsPerQuery)
		if err != nil {
			p.logger.Warn("search query failed, skipping",
				"query", query,
				"error", err,
			)
			continue
		}
		for _, doc := range docs {
			if isHighQuality(doc) {
				raw = append(raw, doc)
			}
		}
	}
	return raw
}

// isHighQuality filters out promotional and thin fetched documents. Applied to
// fetched results only; caller-supplied documents are analyzed as given.
func isHighQuality(doc models.RawDocument) bool {
	title := strings.ToLower(doc.Title)
	for _, indicator := range lowQualityIndicators() {
		if strings.Contains(title, indicator) {
			return false
		}
	}
	return len(doc.Summary) >= minSummaryLen
}

// Enrich normalizes one raw document into a scored ContentItem.
func (p *Pipeline) Enrich(doc models.RawDocument) models.ContentItem {
	excerpt := doc.Text
	if len(excerpt) > maxExcerptLen {
		// Back up to a rune boundary so the cut never leaves invalid UTF-8.
		cut := maxExcerptLen
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}

	source := extractSource(doc.URL)
	credibility := p.credibilityFor(source)
	content := doc.Title + " " + doc.Summary
	date, estimated := extractDate(doc)

	return models.ContentItem{
		Title:            doc.Title,
		URL:              doc.URL,
		Summary:          doc.Summary,
		TextExcerpt:      excerpt,
		Source:           source,
		CredibilityScore: credibility,
		Categories:       p.categorize(content),
		Sentiment:        p.analyzeSentiment(content),
		ImpactScore:      p.calculateImpact(doc.Title, doc.Summary, credibility),
		RelevanceScore:   calculateRelevance(content),
		KeyTopics:        p.extractKeyTopics(content),
		PublishedDate:    date,
		DateEstimated:    estimated,
	}
}

// extractSource pulls the source token out of a URL: authority minus a leading
// "www.", truncated at the first dot. Missing or unparseable URLs yield
// "unknown".
func extractSource(rawURL string) string {
	if rawURL == "" {
		return "unknown"
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}

	host := strings.TrimPrefix(u.Host, "www.")
	if idx := strings.Index(host, "."); idx != -1 {
		host = host[:idx]
	}
	if host == "" {
		return "unknown"
	}
	return host
}

// credibilityFor looks up the static reputation score for a source token.
func (p *Pipeline) credibilityFor(source string) int {
	if score, ok := p.credibility[strings.ToLower(source)]; ok {
		return score
	}
	return defaultCredibility
}

// categorize assigns taxonomy categories by substring match of the category
// name or any subcategory keyword. Falls back to ["general"].
func (p *Pipeline) categorize(content string) []string {
	text := strings.ToLower(content)

	var categories []string
	for _, def := range p.taxonomy {
		if strings.Contains(text, def.name) {
			categories = append(categories, def.name)
			continue
		}
		for _, keyword := range def.keywords {
			if strings.Contains(text, keyword) {
				categories = append(categories, def.name)
				break
			}
		}
	}

	if len(categories) == 0 {
		return []string{"general"}
	}
	return categories
}

// analyzeSentiment sums weighted keyword hits per polarity over the lowercased
// content. Each keyword counts at most once.
func (p *Pipeline) analyzeSentiment(content string) models.Sentiment {
	text := strings.ToLower(content)

	positive := 0
	for _, tier := range p.positive {
		for _, keyword := range tier.keywords {
			if strings.Contains(text, keyword) {
				positive += tier.weight
			}
		}
	}

	negative := 0
	for _, tier := range p.negative {
		for _, keyword := range tier.keywords {
			if strings.Contains(text, keyword) {
				negative += tier.weight
			}
		}
	}

	total := positive + negative
	score := 0.0
	if total > 0 {
		score = float64(positive-negative) / float64(total)
	}

	magnitude := float64(total) / 10
	if magnitude > 1.0 {
		magnitude = 1.0
	}

	return models.Sentiment{
		Score:     score,
		Magnitude: magnitude,
		Label:     sentimentLabel(score),
	}
}

// sentimentLabel maps a score to its label via fixed thresholds.
func sentimentLabel(score float64) string {
	switch {
	case score > 0.3:
		return "strongly_positive"
	case score > 0.1:
		return "positive"
	case score > -0.1:
		return "neutral"
	case score > -0.3:
		return "negative"
	default:
		return "strongly_negative"
	}
}

// calculateImpact scores newsworthiness 0-100: base 50, +10 per high-impact
// title indicator, a credibility adjustment, +5 for substantial content.
func (p *Pipeline) calculateImpact(title, summary string, credibility int) int {
	impact := 50

	titleLower := strings.ToLower(title)
	for _, indicator := range impactIndicators() {
		if strings.Contains(titleLower, indicator) {
			impact += 10
		}
	}

	impact += (credibility - 50) / 5

	if len(title)+len(summary) > 500 {
		impact += 5
	}

	return clamp(impact, 0, 100)
}

// calculateRelevance scores topical fit 0-100 from domain keyword presence.
func calculateRelevance(content string) int {
	text := strings.ToLower(content)

	count := 0
	for _, keyword := range relevanceKeywords() {
		if strings.Contains(text, keyword) {
			count++
		}
	}

	return clamp(count*20, 0, 100)
}

var topicWordPattern = regexp.MustCompile(`\b\w{4,}\b`)

// extractKeyTopics returns the 5 most frequent non-stopword tokens of length
// >= 4, ranked by count with earlier first occurrence breaking ties.
func (p *Pipeline) extractKeyTopics(content string) []string {
	words := topicWordPattern.FindAllString(strings.ToLower(content), -1)

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, word := range words {
		if p.stopWords[word] {
			continue
		}
		if _, ok := counts[word]; !ok {
			firstSeen[word] = i
		}
		counts[word]++
	}

	topics := make([]string, 0, len(counts))
	for word := range counts {
		topics = append(topics, word)
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return firstSeen[topics[i]] < firstSeen[topics[j]]
	})

	if len(topics) > 5 {
		topics = topics[:5]
	}
	return topics
}

// extractDate prefers an explicit publication date on the document and falls
// back to today, flagged as estimated.
func extractDate(doc models.RawDocument) (string, bool) {
	if doc.PublishedDate != "" {
		return doc.PublishedDate, false
	}
	if doc.Date != "" {
		return doc.Date, false
	}
	return time.Now().Format("2006-01-02"), true
}

// rankItems sorts by descending (impact, relevance).
func rankItems(items []models.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ImpactScore != items[j].ImpactScore {
			return items[i].ImpactScore > items[j].ImpactScore
		}
		return items[i].RelevanceScore > items[j].RelevanceScore
	})
}

// assemble composes the final report from the ranked item set. Pure
// composition, no side effects beyond the timestamp.
func (p *Pipeline) assemble(req models.AnalysisRequest, items []models.ContentItem, duplicates int) models.Report {
	articles := items
	if len(articles) > articleDisplayCap {
		articles = articles[:articleDisplayCap]
	}

	return models.Report{
		CompanyName:  req.CompanyName,
		Industry:     req.Industry,
		ProductFocus: req.Product,
		AnalysisDate: time.Now().Format(time.RFC3339),
		NewsAnalysis: models.NewsAnalysis{
			TotalArticles:     len(items),
			DuplicatesRemoved: duplicates,
			Articles:          articles,
			SummaryStatistics: summarize(items),
		},
		KeyInsights:     extractInsights(items),
		MarketOutlook:   generateMarketOutlook(items),
		RiskAssessment:  assessRisks(items),
		Opportunities:   identifyOpportunities(items),
		NewsTrends:      analyzeTrends(items),
		Recommendations: generateRecommendations(req, items),
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
