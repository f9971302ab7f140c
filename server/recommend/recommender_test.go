package recommend

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scandelicious/promopilot/internal/profile"
	"github.com/scandelicious/promopilot/plugin/ai"
	"github.com/scandelicious/promopilot/server/enrich"
	"github.com/scandelicious/promopilot/server/retrieval"
	"github.com/scandelicious/promopilot/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// mockDriver serves a fixed transaction history.
type mockDriver struct {
	transactions []*store.Transaction
}

func (m *mockDriver) GetDB() *sql.DB                              { return nil }
func (m *mockDriver) Close() error                                { return nil }
func (m *mockDriver) IsInitialized(context.Context) (bool, error) { return true, nil }
func (m *mockDriver) ListTransactions(context.Context, *store.FindTransaction) ([]*store.Transaction, error) {
	return m.transactions, nil
}
func (m *mockDriver) UpsertPromo(context.Context, *store.Promo) (*store.Promo, error) {
	return nil, nil
}
func (m *mockDriver) SearchPromosByVector(context.Context, *store.SearchPromoOptions) ([]*store.PromoWithScore, error) {
	return nil, nil
}
func (m *mockDriver) DeleteExpiredPromos(context.Context, time.Time) (int64, error) { return 0, nil }

// mockSearcher serves the same hits for every query.
type mockSearcher struct {
	hits      []*store.PromoWithScore
	searchErr error
}

func (m *mockSearcher) Search(context.Context, string, int, *string) ([]*store.PromoWithScore, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits, nil
}

// mockRerankerService scores every document the same.
type mockRerankerService struct {
	score     float64
	rerankErr error
}

func (m *mockRerankerService) Rerank(_ context.Context, _ string, documents []string) ([]ai.RerankResult, error) {
	if m.rerankErr != nil {
		return nil, m.rerankErr
	}
	results := make([]ai.RerankResult, len(documents))
	for i := range documents {
		results[i] = ai.RerankResult{Index: i, Score: m.score}
	}
	return results, nil
}

// mockLLM returns a canned briefing.
type mockLLM struct {
	reply   string
	chatErr error
	prompts []ai.Message
}

func (m *mockLLM) Chat(_ context.Context, messages []ai.Message) (string, error) {
	m.prompts = messages
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func milkHistory() []*store.Transaction {
	txns := []*store.Transaction{}
	for i := 0; i < 8; i++ {
		txns = append(txns, &store.Transaction{
			UserID:           "user-1",
			ReceiptID:        fmt.Sprintf("r%d", i),
			Date:             testNow.AddDate(0, 0, -7*i-1),
			StoreName:        "Albert Heijn",
			NormalizedName:   "volle melk",
			GranularCategory: "Milk Fresh",
			Quantity:         1,
			ItemPrice:        1.79,
		})
	}
	return txns
}

func promoHit(id string, score float64) *store.PromoWithScore {
	orig, promo := 1.99, 0.99
	return &store.PromoWithScore{
		Promo: &store.Promo{
			ID:             id,
			NormalizedName: "volle melk",
			PromoMechanism: "1+1 Gratis",
			OriginalPrice:  &orig,
			PromoPrice:     &promo,
			SourceRetailer: "Albert Heijn",
		},
		Score: score,
	}
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		RerankQueryStrategy: profile.RerankSameAsSearch,
		LookbackDays:        90,
		WorkerLimit:         4,
		RerankThreshold:     0.55,
		RerankTopN:          5,
		SearchTopK:          20,
	}
}

func newTestRecommender(driver *mockDriver, searcher *mockSearcher, rerankSvc *mockRerankerService, llm ai.LLMService) *Recommender {
	p := testProfile()
	st := store.New(driver, p)
	return New(
		enrich.NewEnricher(st, p.LookbackDays),
		retrieval.NewRetriever(searcher, p.SearchTopK),
		retrieval.NewReranker(rerankSvc, nil, p.RerankThreshold, p.RerankTopN),
		llm,
		p,
	)
}

func TestRecommendEndToEnd(t *testing.T) {
	llm := &mockLLM{reply: "Melk is in de aanbieding!"}
	r := newTestRecommender(
		&mockDriver{transactions: milkHistory()},
		&mockSearcher{hits: []*store.PromoWithScore{promoHit("p1", 0.92)}},
		&mockRerankerService{score: 0.9},
		llm,
	)

	result, err := r.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	require.Equal(t, "user-1", result.UserID)
	require.NotEmpty(t, result.Profile.Items)
	require.Len(t, result.Matches, 1)
	require.Equal(t, "volle melk", result.Matches[0].Item.NormalizedName)
	require.Len(t, result.Matches[0].Promos, 1)
	require.Equal(t, "Melk is in de aanbieding!", result.Briefing)

	require.Len(t, llm.prompts, 2)
	require.Contains(t, llm.prompts[1].Content, "1+1 Gratis")
}

func TestRecommendRetrievalFailureIsolated(t *testing.T) {
	r := newTestRecommender(
		&mockDriver{transactions: milkHistory()},
		&mockSearcher{searchErr: errors.New("index down")},
		&mockRerankerService{score: 0.9},
		&mockLLM{reply: "unused"},
	)

	result, err := r.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	require.NotEmpty(t, result.Profile.Items)
	require.Empty(t, result.Matches)
	require.Empty(t, result.Briefing)
}

func TestRecommendRerankFailureIsolated(t *testing.T) {
	r := newTestRecommender(
		&mockDriver{transactions: milkHistory()},
		&mockSearcher{hits: []*store.PromoWithScore{promoHit("p1", 0.92)}},
		&mockRerankerService{rerankErr: errors.New("scorer down")},
		&mockLLM{reply: "unused"},
	)

	result, err := r.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	require.Empty(t, result.Matches)
}

func TestRecommendBriefingFailureDegrades(t *testing.T) {
	r := newTestRecommender(
		&mockDriver{transactions: milkHistory()},
		&mockSearcher{hits: []*store.PromoWithScore{promoHit("p1", 0.92)}},
		&mockRerankerService{score: 0.9},
		&mockLLM{chatErr: errors.New("llm down")},
	)

	result, err := r.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.Empty(t, result.Briefing)
}

func TestRecommendEmptyHistory(t *testing.T) {
	r := newTestRecommender(&mockDriver{}, &mockSearcher{}, &mockRerankerService{}, nil)

	result, err := r.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	require.Empty(t, result.Profile.Items)
	require.Empty(t, result.Matches)
}

func TestRecommendCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRecommender(
		&mockDriver{transactions: milkHistory()},
		&mockSearcher{hits: []*store.PromoWithScore{promoHit("p1", 0.92)}},
		&mockRerankerService{score: 0.9},
		nil,
	)

	_, err := r.Recommend(ctx, "user-1")

	require.ErrorIs(t, err, context.Canceled)
}

func TestEstimatedSavings(t *testing.T) {
	p1, p2 := promoHit("p1", 0.9), promoHit("p2", 0.8)
	matches := []*ItemMatch{
		{Item: &enrich.InterestItem{NormalizedName: "melk"}, Promos: []*retrieval.RankedPromo{
			{Promo: p1.Promo, RerankScore: 0.9},
			{Promo: p2.Promo, RerankScore: 0.8},
		}},
		// The same promo matched under a second item counts once.
		{Item: &enrich.InterestItem{NormalizedName: "halfvolle melk"}, Promos: []*retrieval.RankedPromo{
			{Promo: p1.Promo, RerankScore: 0.7},
		}},
	}

	require.InDelta(t, 2.0, EstimatedSavings(matches), 1e-9)
}
