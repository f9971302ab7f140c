// Package recommend assembles personal promo recommendations: it fans the
// enriched profile's interest items out over the retrieval pipeline and
// renders the result into a shopper briefing.
package recommend

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/scandelicious/promopilot/internal/profile"
	"github.com/scandelicious/promopilot/plugin/ai"
	"github.com/scandelicious/promopilot/server/enrich"
	"github.com/scandelicious/promopilot/server/retrieval"
)

// ItemMatch pairs one interest item with the promos that survived reranking.
type ItemMatch struct {
	Item   *enrich.InterestItem     `json:"item"`
	Promos []*retrieval.RankedPromo `json:"promos"`
}

// Recommendation is the full result for one user.
type Recommendation struct {
	UserID      string                  `json:"user_id"`
	Profile     *enrich.EnrichedProfile `json:"profile"`
	Matches     []*ItemMatch            `json:"matches"`
	Briefing    string                  `json:"briefing,omitempty"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// Recommender runs the whole profile-to-recommendation pipeline.
type Recommender struct {
	enricher  *enrich.Enricher
	retriever *retrieval.Retriever
	reranker  *retrieval.Reranker
	llm       ai.LLMService
	profile   *profile.Profile
}

// New creates a Recommender. llm may be nil; the briefing is then skipped.
func New(enricher *enrich.Enricher, retriever *retrieval.Retriever, reranker *retrieval.Reranker, llm ai.LLMService, p *profile.Profile) *Recommender {
	return &Recommender{
		enricher:  enricher,
		retriever: retriever,
		reranker:  reranker,
		llm:       llm,
		profile:   p,
	}
}

// Recommend builds the enriched profile for the user, matches promos for each
// interest item concurrently, and generates the briefing text.
//
// Items fail independently: a retrieval or rerank error yields zero promos
// for that item and never aborts the batch. Cancelling ctx cancels in-flight
// item work.
func (r *Recommender) Recommend(ctx context.Context, userID string) (*Recommendation, error) {
	userProfile, err := r.enricher.BuildProfile(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build profile")
	}

	// Workers write only their own slot; matched is compacted after the wait.
	matched := make([]*ItemMatch, len(userProfile.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.profile.WorkerLimit)
	for i, item := range userProfile.Items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			promos := r.matchItem(gctx, item)
			if len(promos) > 0 {
				matched[i] = &ItemMatch{Item: item, Promos: promos}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Recommendation{
		UserID:      userID,
		Profile:     userProfile,
		Matches:     []*ItemMatch{},
		GeneratedAt: time.Now(),
	}
	for _, match := range matched {
		if match != nil {
			result.Matches = append(result.Matches, match)
		}
	}

	slog.Info("recommendation assembled",
		"user", userID,
		"items", len(userProfile.Items),
		"matched", len(result.Matches))

	if r.llm != nil && len(result.Matches) > 0 {
		briefing, err := r.generateBriefing(ctx, result)
		if err != nil {
			// Degrade to matches without narrative text.
			slog.Warn("briefing generation failed", "user", userID, "error", err)
		} else {
			result.Briefing = briefing
		}
	}

	return result, nil
}

// matchItem runs retrieval and reranking for one interest item. Failures are
// logged and converted into an empty result.
func (r *Recommender) matchItem(ctx context.Context, item *enrich.InterestItem) []*retrieval.RankedPromo {
	queries := retrieval.ComposeQueries(item, r.profile.RerankQueryStrategy)

	candidates, err := r.retriever.Retrieve(ctx, item, queries)
	if err != nil {
		slog.Warn("retrieval failed, skipping item", "item", item.NormalizedName, "error", err)
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	ranked, err := r.reranker.Rank(ctx, queries[0].RerankText, candidates)
	if err != nil {
		slog.Warn("rerank failed, skipping item", "item", item.NormalizedName, "error", err)
		return nil
	}
	return ranked
}

func (r *Recommender) generateBriefing(ctx context.Context, result *Recommendation) (string, error) {
	return r.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(briefingSystemPrompt),
		ai.UserMessage(BuildBriefingContext(result)),
	})
}
