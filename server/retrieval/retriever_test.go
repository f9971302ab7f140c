package retrieval

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scandelicious/promopilot/server/enrich"
	"github.com/scandelicious/promopilot/store"
)

// mockSearcher is a mock implementation of Searcher for testing.
type mockSearcher struct {
	// hits per query text; filtered and unfiltered results are kept apart so
	// tests can verify the fallback policy.
	filtered   map[string][]*store.PromoWithScore
	unfiltered map[string][]*store.PromoWithScore
	searchErr  error

	calls []searchCall
}

type searchCall struct {
	query    string
	filtered bool
}

func (m *mockSearcher) Search(_ context.Context, queryText string, _ int, categoryFilter *string) ([]*store.PromoWithScore, error) {
	m.calls = append(m.calls, searchCall{query: queryText, filtered: categoryFilter != nil})
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if categoryFilter != nil {
		return m.filtered[queryText], nil
	}
	return m.unfiltered[queryText], nil
}

func hit(id string, score float64) *store.PromoWithScore {
	return &store.PromoWithScore{Promo: &store.Promo{ID: id, NormalizedName: id}, Score: score}
}

func milkItem() *enrich.InterestItem {
	return &enrich.InterestItem{
		NormalizedName:   "volle melk",
		GranularCategory: "Milk Fresh",
		InterestCategory: enrich.BucketStaple,
	}
}

func TestRetrieveFilteredHitsSkipFallback(t *testing.T) {
	searcher := &mockSearcher{
		filtered: map[string][]*store.PromoWithScore{
			"volle melk (Milk Fresh)": {hit("p1", 0.3)},
		},
		unfiltered: map[string][]*store.PromoWithScore{
			"volle melk (Milk Fresh)": {hit("p2", 0.9)},
		},
	}
	r := NewRetriever(searcher, 20)
	item := milkItem()

	candidates, err := r.Retrieve(context.Background(), item, ComposeQueries(item, "same_as_search"))

	require.NoError(t, err)
	// One low-scored filtered hit is still a hit: no unfiltered retry.
	require.Len(t, candidates, 1)
	require.Equal(t, "p1", candidates[0].Promo.ID)
	require.Len(t, searcher.calls, 1)
	require.True(t, searcher.calls[0].filtered)
}

func TestRetrieveFallsBackOnZeroHits(t *testing.T) {
	searcher := &mockSearcher{
		unfiltered: map[string][]*store.PromoWithScore{
			"volle melk (Milk Fresh)": {hit("p2", 0.7)},
		},
	}
	r := NewRetriever(searcher, 20)
	item := milkItem()

	candidates, err := r.Retrieve(context.Background(), item, ComposeQueries(item, "same_as_search"))

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "p2", candidates[0].Promo.ID)
	require.Len(t, searcher.calls, 2)
	require.True(t, searcher.calls[0].filtered)
	require.False(t, searcher.calls[1].filtered)
}

func TestRetrieveMultiBrandMergeKeepsBestScore(t *testing.T) {
	searcher := &mockSearcher{
		filtered: map[string][]*store.PromoWithScore{
			"campina volle melk (Milk Fresh)":     {hit("p1", 0.9), hit("p2", 0.6)},
			"store-brand volle melk (Milk Fresh)": {hit("p2", 0.8), hit("p3", 0.5)},
		},
	}
	r := NewRetriever(searcher, 20)
	item := &enrich.InterestItem{
		NormalizedName:   "volle melk",
		GranularCategory: "Milk Fresh",
		InterestCategory: enrich.BucketBrandLoyal,
		Brands:           []string{"campina", "store-brand"},
	}

	candidates, err := r.Retrieve(context.Background(), item, ComposeQueries(item, "same_as_search"))

	require.NoError(t, err)
	require.Len(t, candidates, 3)
	require.Equal(t, "p1", candidates[0].Promo.ID)
	require.Equal(t, "p2", candidates[1].Promo.ID)
	require.InDelta(t, 0.8, candidates[1].Score, 1e-9)
	require.Equal(t, "p3", candidates[2].Promo.ID)
}

func TestRetrieveIndexErrorAbortsItem(t *testing.T) {
	searcher := &mockSearcher{searchErr: errors.New("index unavailable")}
	r := NewRetriever(searcher, 20)
	item := milkItem()

	candidates, err := r.Retrieve(context.Background(), item, ComposeQueries(item, "same_as_search"))

	require.Error(t, err)
	require.Nil(t, candidates)
}

func TestRetrieveDropsImplausiblePrices(t *testing.T) {
	negative := -0.5
	original, promo := 2.0, 3.5
	bad1 := &store.PromoWithScore{Promo: &store.Promo{ID: "neg", PromoPrice: &negative}, Score: 0.9}
	bad2 := &store.PromoWithScore{Promo: &store.Promo{ID: "inflated", OriginalPrice: &original, PromoPrice: &promo}, Score: 0.8}
	searcher := &mockSearcher{
		filtered: map[string][]*store.PromoWithScore{
			"volle melk (Milk Fresh)": {bad1, bad2, hit("ok", 0.7)},
		},
	}
	r := NewRetriever(searcher, 20)
	item := milkItem()

	candidates, err := r.Retrieve(context.Background(), item, ComposeQueries(item, "same_as_search"))

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "ok", candidates[0].Promo.ID)
}
