// Package main defines the promopilot CLI: promo recommendation, profile
// inspection, and promo index maintenance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/scandelicious/promopilot/internal/profile"
	"github.com/scandelicious/promopilot/plugin/ai"
	"github.com/scandelicious/promopilot/server/enrich"
	"github.com/scandelicious/promopilot/server/promoindex"
	"github.com/scandelicious/promopilot/server/recommend"
	"github.com/scandelicious/promopilot/server/retrieval"
	"github.com/scandelicious/promopilot/store"
	"github.com/scandelicious/promopilot/store/db"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "promopilot",
	Short: "Personal supermarket promo recommendations from receipt history",
	Long: `Promopilot matches current supermarket promotions to what a shopper
actually buys. It builds an interest profile from scanned receipts, searches
a semantic promo index for each interest, and reranks the candidates with a
cross-encoder before assembling the final recommendation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(
		newRecommendCmd(),
		newRebuildProfileCmd(),
		newIngestCmd(),
		newPurgeCmd(),
		newVersionCmd(),
	)
}

// runtime bundles the wired pipeline components for one CLI invocation.
type runtime struct {
	profile  *profile.Profile
	store    *store.Store
	index    *promoindex.PromoIndex
	enricher *enrich.Enricher
	aiConfig *ai.Config
	limiter  *rate.Limiter // shared by index and rerank calls
}

func newRuntime() (*runtime, error) {
	p, err := profile.Load(version)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	aiConfig, err := ai.NewConfigFromProfile(p)
	if err != nil {
		return nil, err
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, p)

	embedder := ai.NewEmbeddingService(&aiConfig.Embedding)
	limiter := rate.NewLimiter(rate.Limit(p.IndexRatePerSec), 1)
	return &runtime{
		profile:  p,
		store:    st,
		index:    promoindex.New(st, embedder, limiter),
		enricher: enrich.NewEnricher(st, p.LookbackDays),
		aiConfig: aiConfig,
		limiter:  limiter,
	}, nil
}

func (r *runtime) close() {
	if err := r.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newRecommendCmd() *cobra.Command {
	var userID string
	var skipBriefing bool

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Match current promos to a user's shopping profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			var llm ai.LLMService
			if !skipBriefing {
				llm = ai.NewLLMService(&rt.aiConfig.LLM)
			}

			recommender := recommend.New(
				rt.enricher,
				retrieval.NewRetriever(rt.index, rt.profile.SearchTopK),
				retrieval.NewReranker(
					ai.NewRerankerService(&rt.aiConfig.Reranker),
					rt.limiter,
					rt.profile.RerankThreshold,
					rt.profile.RerankTopN,
				),
				llm,
				rt.profile,
			)

			result, err := recommender.Recommend(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to recommend for")
	cmd.Flags().BoolVar(&skipBriefing, "no-briefing", false, "skip LLM briefing generation")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newRebuildProfileCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "rebuild-profile",
		Short: "Build and print a user's enriched profile without matching promos",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			result, err := rt.enricher.BuildProfile(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to build the profile for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed and index promos from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			promos, err := readPromoFile(file)
			if err != nil {
				return err
			}

			written, err := rt.index.Upsert(ctx, promos)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d promos from %s\n", written, file)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the promo JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-expired",
		Short: "Remove promos whose validity window has ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			deleted, err := rt.index.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d expired promos\n", deleted)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("promopilot %s\n", version)
		},
	}
}
