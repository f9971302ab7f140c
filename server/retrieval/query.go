// Package retrieval implements the two-stage promo matching pipeline for one
// interest item: vector search over the promo index, then cross-encoder
// reranking of the candidate set.
package retrieval

import (
	"fmt"

	"github.com/scandelicious/promopilot/internal/profile"
	"github.com/scandelicious/promopilot/server/enrich"
)

// SearchQuery is one vector search to run for an interest item. Brand-loyal
// items produce one query per brand; everything else produces exactly one.
type SearchQuery struct {
	Brand      string // empty for non-brand queries
	SearchText string // fed to the vector index
	RerankText string // fed to the cross-encoder
}

// ComposeQueries renders the search and rerank query texts for an interest
// item. The category suffix, parentheses included, is omitted when the
// granular category is missing or the "Other" sentinel. strategy selects the
// rerank text convention: profile.RerankSameAsSearch reuses the search text,
// profile.RerankNoCategory drops the category so promos indexed under an
// adjacent category are not penalized.
func ComposeQueries(item *enrich.InterestItem, strategy string) []SearchQuery {
	if item.InterestCategory == enrich.BucketBrandLoyal && len(item.Brands) > 0 {
		queries := make([]SearchQuery, 0, len(item.Brands))
		for _, brand := range item.Brands {
			queries = append(queries, SearchQuery{
				Brand:      brand,
				SearchText: withCategory(brand+" "+item.NormalizedName, item.GranularCategory),
				RerankText: rerankText(brand+" "+item.NormalizedName, item, strategy),
			})
		}
		return queries
	}

	return []SearchQuery{{
		SearchText: withCategory(item.NormalizedName, item.GranularCategory),
		RerankText: rerankText(item.NormalizedName, item, strategy),
	}}
}

func withCategory(text, category string) string {
	if category == "" || category == enrich.CategoryOther {
		return text
	}
	return fmt.Sprintf("%s (%s)", text, category)
}

func rerankText(base string, item *enrich.InterestItem, strategy string) string {
	if strategy == profile.RerankNoCategory {
		return base
	}
	return withCategory(base, item.GranularCategory)
}

// CategoryFilter returns the exact-match metadata filter for the item, or nil
// when the category cannot narrow the search.
func CategoryFilter(item *enrich.InterestItem) *string {
	if item.GranularCategory == "" || item.GranularCategory == enrich.CategoryOther {
		return nil
	}
	category := item.GranularCategory
	return &category
}
