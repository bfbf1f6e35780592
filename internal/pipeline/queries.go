package pipeline

import "fmt"

// BuildQueries derives topical search phrases from the supplied entity context.
// The output is deterministic and ordered: company phrases, then industry, then
// product. Phrases are not deduplicated across entities; overlapping documents
// are handled downstream by the deduplicator. With no entity at all a single
// generic fallback phrase is returned.
func BuildQueries(companyName, industry, product string) []string {
	var queries []string

	if companyName != "" {
		queries = append(queries,
			fmt.Sprintf("%s Q4 2024 earnings financial results", companyName),
			fmt.Sprintf("%s stock performance market analysis", companyName),
			fmt.Sprintf("%s business strategy news updates", companyName),
			fmt.Sprintf("%s recent developments innovations", companyName),
			fmt.Sprintf("%s industry position competitive analysis", companyName),
			fmt.Sprintf("%s regulatory compliance news", companyName),
		)
	}

	if industry != "" {
		queries = append(queries,
			fmt.Sprintf("%s market trends 2024 outlook", industry),
			fmt.Sprintf("%s financial performance analysis", industry),
			fmt.Sprintf("%s investment opportunities risks", industry),
			fmt.Sprintf("%s technological innovations developments", industry),
			fmt.Sprintf("%s regulatory changes impact", industry),
		)
	}

	if product != "" {
		queries = append(queries,
			fmt.Sprintf("%s market adoption growth trends", product),
			fmt.Sprintf("%s competitive landscape analysis", product),
			fmt.Sprintf("%s innovation developments news", product),
			fmt.Sprintf("%s investment potential analysis", product),
		)
	}

	if len(queries) == 0 {
		return []string{"financial markets news"}
	}
	return queries
}
