package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"github.com/scandelicious/promopilot/server/enrich"
	"github.com/scandelicious/promopilot/store"
)

// Searcher is the subset of the promo index the retriever depends on.
type Searcher interface {
	Search(ctx context.Context, queryText string, topK int, categoryFilter *string) ([]*store.PromoWithScore, error)
}

// Retriever runs vector searches for one interest item and merges the
// per-brand candidate sets.
type Retriever struct {
	index Searcher
	topK  int
}

// NewRetriever creates a Retriever over the given index.
func NewRetriever(index Searcher, topK int) *Retriever {
	return &Retriever{index: index, topK: topK}
}

// Retrieve runs every query for the item and returns the merged, deduplicated
// candidate set ordered by descending similarity. Each query is tried with
// the category filter first; only a zero-hit result triggers the one
// unfiltered retry, since filtered results are strictly preferred when any
// exist. An index error aborts retrieval for this item.
func (r *Retriever) Retrieve(ctx context.Context, item *enrich.InterestItem, queries []SearchQuery) ([]*store.PromoWithScore, error) {
	filter := CategoryFilter(item)

	best := map[string]*store.PromoWithScore{}
	order := []string{}
	for _, query := range queries {
		hits, err := r.search(ctx, query.SearchText, filter)
		if err != nil {
			return nil, errors.Wrapf(err, "retrieval failed for %q", item.NormalizedName)
		}
		for _, hit := range hits {
			existing, ok := best[hit.Promo.ID]
			if !ok {
				best[hit.Promo.ID] = hit
				order = append(order, hit.Promo.ID)
				continue
			}
			if hit.Score > existing.Score {
				best[hit.Promo.ID] = hit
			}
		}
	}

	merged := make([]*store.PromoWithScore, 0, len(order))
	for _, id := range order {
		hit := best[id]
		if !priceSane(hit.Promo) {
			slog.Debug("dropping promo with implausible pricing", "promo", hit.Promo.NormalizedName)
			continue
		}
		merged = append(merged, hit)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	return merged, nil
}

func (r *Retriever) search(ctx context.Context, queryText string, filter *string) ([]*store.PromoWithScore, error) {
	hits, err := r.index.Search(ctx, queryText, r.topK, filter)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 || filter == nil {
		return hits, nil
	}
	// Zero filtered hits: one unfiltered retry, never more.
	slog.Debug("no hits under category filter, retrying unfiltered", "query", queryText, "category", *filter)
	return r.index.Search(ctx, queryText, r.topK, nil)
}

// priceSane rejects promos whose pricing is corrupt: a non-positive promo
// price, or a "discount" that costs more than the original.
func priceSane(promo *store.Promo) bool {
	if promo.PromoPrice != nil && *promo.PromoPrice <= 0 {
		return false
	}
	if promo.OriginalPrice != nil && *promo.OriginalPrice <= 0 {
		return false
	}
	if promo.PromoPrice != nil && promo.OriginalPrice != nil && *promo.PromoPrice > *promo.OriginalPrice {
		return false
	}
	return true
}
