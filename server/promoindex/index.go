// Package promoindex wraps the vector index over promotional offers: it owns
// embedding of queries and documents and expiry housekeeping, throttled by
// the process-wide rate limiter it shares with the reranker.
package promoindex

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/scandelicious/promopilot/plugin/ai"
	"github.com/scandelicious/promopilot/store"
)

// upsertBatchSize bounds the number of documents per embedding call during
// ingest.
const upsertBatchSize = 32

// PromoIndex is the semantic search surface over active promos. The rate
// limiter is the process-wide one shared with the reranker, so concurrent
// interest items cannot overrun the AI endpoints.
type PromoIndex struct {
	store    *store.Store
	embedder ai.EmbeddingService
	limiter  *rate.Limiter
	now      func() time.Time
}

// New creates a PromoIndex over the given store and embedding service. The
// limiter must be the shared one from the runtime wiring.
func New(st *store.Store, embedder ai.EmbeddingService, limiter *rate.Limiter) *PromoIndex {
	return &PromoIndex{
		store:    st,
		embedder: embedder,
		limiter:  limiter,
		now:      time.Now,
	}
}

// Search embeds the query text and returns the top matches by cosine
// similarity, restricted to promos still valid today. A nil categoryFilter
// searches the whole index.
func (idx *PromoIndex) Search(ctx context.Context, queryText string, topK int, categoryFilter *string) ([]*store.PromoWithScore, error) {
	if err := idx.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vector, err := idx.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed query %q", queryText)
	}

	activeOn := idx.now()
	hits, err := idx.store.SearchPromosByVector(ctx, &store.SearchPromoOptions{
		Vector:           vector,
		Model:            idx.embedder.Model(),
		Limit:            topK,
		GranularCategory: categoryFilter,
		ActiveOn:         &activeOn,
	})
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}
	return hits, nil
}

// Upsert embeds and stores the given promos, assigning IDs where missing.
// Returns the number of promos written.
func (idx *PromoIndex) Upsert(ctx context.Context, promos []*store.Promo) (int, error) {
	written := 0
	for start := 0; start < len(promos); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(promos) {
			end = len(promos)
		}
		batch := promos[start:end]

		texts := make([]string, len(batch))
		for i, promo := range batch {
			texts[i] = promo.SearchText()
		}

		if err := idx.limiter.Wait(ctx); err != nil {
			return written, err
		}
		vectors, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return written, errors.Wrap(err, "failed to embed promo batch")
		}
		if len(vectors) != len(batch) {
			return written, errors.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(batch))
		}

		for i, promo := range batch {
			if promo.ID == "" {
				promo.ID = uuid.New().String()
			}
			promo.Embedding = vectors[i]
			promo.EmbeddingModel = idx.embedder.Model()
			if _, err := idx.store.UpsertPromo(ctx, promo); err != nil {
				return written, errors.Wrapf(err, "failed to upsert promo %s", promo.NormalizedName)
			}
			written++
		}
	}

	slog.Info("promo index updated", "written", written)
	return written, nil
}

// PurgeExpired removes promos whose validity window has ended.
func (idx *PromoIndex) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := idx.store.DeleteExpiredPromos(ctx, idx.now())
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired promos")
	}
	if deleted > 0 {
		slog.Info("expired promos purged", "deleted", deleted)
	}
	return deleted, nil
}
