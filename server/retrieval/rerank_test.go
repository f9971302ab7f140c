package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/scandelicious/promopilot/plugin/ai"
	"github.com/scandelicious/promopilot/store"
)

// mockRerankerService is a mock implementation of ai.RerankerService.
type mockRerankerService struct {
	scores    []float64 // by document index; missing entries stay unscored
	rerankErr error
	lastQuery string
	lastDocs  []string
}

func (m *mockRerankerService) Rerank(_ context.Context, query string, documents []string) ([]ai.RerankResult, error) {
	m.lastQuery = query
	m.lastDocs = documents
	if m.rerankErr != nil {
		return nil, m.rerankErr
	}
	results := []ai.RerankResult{}
	for i := range documents {
		if i < len(m.scores) {
			results = append(results, ai.RerankResult{Index: i, Score: m.scores[i]})
		}
	}
	return results, nil
}

func candidate(id, name, description string, score float64) *store.PromoWithScore {
	return &store.PromoWithScore{
		Promo: &store.Promo{ID: id, NormalizedName: name, OriginalDescription: description},
		Score: score,
	}
}

func TestRankThresholdAndTruncation(t *testing.T) {
	service := &mockRerankerService{scores: []float64{0.9, 0.3, 0.8, 0.7, 0.6, 0.56, 0.95}}
	r := NewReranker(service, nil, 0.55, 5)

	candidates := []*store.PromoWithScore{
		candidate("p0", "melk", "1+1 gratis", 0.90),
		candidate("p1", "yoghurt", "", 0.85),
		candidate("p2", "melk halfvol", "2e halve prijs", 0.80),
		candidate("p3", "melk vol", "", 0.75),
		candidate("p4", "karnemelk", "", 0.70),
		candidate("p5", "chocolademelk", "", 0.65),
		candidate("p6", "volle melk", "-30%", 0.60),
	}

	ranked, err := r.Rank(context.Background(), "volle melk (Milk Fresh)", candidates)

	require.NoError(t, err)
	require.Len(t, ranked, 5)
	require.Equal(t, "p6", ranked[0].Promo.ID)
	require.Equal(t, "p0", ranked[1].Promo.ID)
	for _, rp := range ranked {
		require.GreaterOrEqual(t, rp.RerankScore, 0.55)
		require.NotEqual(t, "p1", rp.Promo.ID)
	}

	// Document side is the canonical promo text.
	require.Equal(t, "melk. 1+1 gratis", service.lastDocs[0])
	require.Equal(t, "yoghurt", service.lastDocs[1])
}

func TestRankTiesKeepVectorOrder(t *testing.T) {
	service := &mockRerankerService{scores: []float64{0.7, 0.7, 0.7}}
	r := NewReranker(service, nil, 0.55, 5)

	candidates := []*store.PromoWithScore{
		candidate("first", "a", "", 0.9),
		candidate("second", "b", "", 0.8),
		candidate("third", "c", "", 0.7),
	}

	ranked, err := r.Rank(context.Background(), "query", candidates)

	require.NoError(t, err)
	require.Equal(t, []string{"first", "second", "third"},
		[]string{ranked[0].Promo.ID, ranked[1].Promo.ID, ranked[2].Promo.ID})
}

func TestRankUnscoredCandidatesExcluded(t *testing.T) {
	// The scorer only returned a result for the first document.
	service := &mockRerankerService{scores: []float64{0.9}}
	r := NewReranker(service, nil, 0.55, 5)

	candidates := []*store.PromoWithScore{
		candidate("scored", "a", "", 0.9),
		candidate("unscored", "b", "", 0.8),
	}

	ranked, err := r.Rank(context.Background(), "query", candidates)

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	require.Equal(t, "scored", ranked[0].Promo.ID)
}

func TestRankErrorPropagates(t *testing.T) {
	service := &mockRerankerService{rerankErr: errors.New("scorer down")}
	r := NewReranker(service, nil, 0.55, 5)

	ranked, err := r.Rank(context.Background(), "query", []*store.PromoWithScore{candidate("p", "a", "", 0.9)})

	require.Error(t, err)
	require.Nil(t, ranked)
}

func TestRankDrawsFromSharedLimiter(t *testing.T) {
	service := &mockRerankerService{scores: []float64{0.9}}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	r := NewReranker(service, limiter, 0.55, 5)

	candidates := []*store.PromoWithScore{candidate("p", "a", "", 0.9)}

	ranked, err := r.Rank(context.Background(), "query", candidates)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	require.False(t, limiter.Allow(), "rerank call must consume the shared budget")

	// With the budget exhausted and the context gone, the wait fails before
	// the scorer is reached.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	service.lastDocs = nil
	_, err = r.Rank(ctx, "query", candidates)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, service.lastDocs)
}

func TestRankEmptyCandidates(t *testing.T) {
	r := NewReranker(&mockRerankerService{}, nil, 0.55, 5)

	ranked, err := r.Rank(context.Background(), "query", nil)

	require.NoError(t, err)
	require.Nil(t, ranked)
}
