package retrieval

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/scandelicious/promopilot/plugin/ai"
	"github.com/scandelicious/promopilot/store"
)

// RankedPromo is a candidate that survived reranking.
type RankedPromo struct {
	Promo       *store.Promo `json:"promo"`
	VectorScore float64      `json:"vector_score"`
	RerankScore float64      `json:"rerank_score"`
}

// Reranker scores candidates against the rerank query with a cross-encoder
// and applies the keep policy: score at or above the threshold, top N by
// score, ties broken by the original vector rank.
type Reranker struct {
	service   ai.RerankerService
	limiter   *rate.Limiter
	threshold float64
	topN      int
}

// NewReranker creates a Reranker. The limiter is the same one the promo
// index waits on, so index and rerank calls draw from one budget; nil skips
// throttling. The threshold is a property of the scorer in use, not a
// universal constant.
func NewReranker(service ai.RerankerService, limiter *rate.Limiter, threshold float64, topN int) *Reranker {
	return &Reranker{service: service, limiter: limiter, threshold: threshold, topN: topN}
}

// Rank reranks the candidate set for one interest item. The document side is
// each promo's canonical search text, so scores stay comparable across
// promotions. A scorer failure is an error; the caller decides whether to
// degrade.
func (r *Reranker) Rank(ctx context.Context, rerankQuery string, candidates []*store.PromoWithScore) ([]*RankedPromo, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, candidate := range candidates {
		documents[i] = candidate.Promo.SearchText()
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	results, err := r.service.Rerank(ctx, rerankQuery, documents)
	if err != nil {
		return nil, errors.Wrap(err, "rerank failed")
	}

	// scores stays in candidate (vector rank) order; unscored candidates keep
	// a sentinel below any threshold so they are excluded.
	scores := make([]float64, len(candidates))
	for i := range scores {
		scores[i] = -1
	}
	for _, result := range results {
		if result.Index >= 0 && result.Index < len(scores) {
			scores[result.Index] = result.Score
		}
	}

	ranked := []*RankedPromo{}
	for i, candidate := range candidates {
		if scores[i] < r.threshold {
			continue
		}
		ranked = append(ranked, &RankedPromo{
			Promo:       candidate.Promo,
			VectorScore: candidate.Score,
			RerankScore: scores[i],
		})
	}

	// Stable sort keeps vector order for equal rerank scores.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RerankScore > ranked[j].RerankScore })
	if len(ranked) > r.topN {
		ranked = ranked[:r.topN]
	}
	return ranked, nil
}
