// Package profile defines the runtime configuration for the recommendation
// pipeline, loaded from an optional config file and PROMOPILOT_* environment
// variables.
package profile

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Rerank query strategies. same_as_search reuses the vector search query for
// reranking; no_category strips the category suffix, which avoids penalizing
// promotions indexed under an adjacent category.
const (
	RerankSameAsSearch = "same_as_search"
	RerankNoCategory   = "no_category"
)

// Profile is the runtime configuration for the recommendation pipeline.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string `mapstructure:"mode"`
	// DSN points to the PostgreSQL database holding transactions and the promo index
	DSN string `mapstructure:"dsn"`
	// Version is the current version of the binary
	Version string

	// AI configuration
	AIAPIKey         string `mapstructure:"ai_api_key"`
	AIBaseURL        string `mapstructure:"ai_base_url"` // OpenAI-compatible endpoint
	AIEmbeddingModel string `mapstructure:"ai_embedding_model"`
	AIRerankModel    string `mapstructure:"ai_rerank_model"`
	AILLMModel       string `mapstructure:"ai_llm_model"`
	AIDimensions     int    `mapstructure:"ai_dimensions"`

	// Retrieval tuning
	SearchTopK          int     `mapstructure:"search_top_k"`       // candidates per vector search
	RerankTopN          int     `mapstructure:"rerank_top_n"`       // survivors per interest item
	RerankThreshold     float64 `mapstructure:"rerank_threshold"`   // min rerank score to keep; a property of the scorer in use
	RerankQueryStrategy string  `mapstructure:"rerank_query_strategy"`
	LookbackDays        int     `mapstructure:"lookback_days"`      // transaction window
	WorkerLimit         int     `mapstructure:"worker_limit"`       // concurrent interest items in flight
	IndexRatePerSec     float64 `mapstructure:"index_rate_per_sec"` // rate limit for index/rerank calls
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	// Empty defaults so AutomaticEnv picks these up during Unmarshal.
	v.SetDefault("dsn", "")
	v.SetDefault("ai_api_key", "")
	v.SetDefault("ai_base_url", "https://api.siliconflow.cn/v1")
	v.SetDefault("ai_embedding_model", "BAAI/bge-m3")
	v.SetDefault("ai_rerank_model", "BAAI/bge-reranker-v2-m3")
	v.SetDefault("ai_llm_model", "deepseek-chat")
	v.SetDefault("ai_dimensions", 1024)
	v.SetDefault("search_top_k", 20)
	v.SetDefault("rerank_top_n", 5)
	v.SetDefault("rerank_threshold", 0.55)
	v.SetDefault("rerank_query_strategy", RerankSameAsSearch)
	v.SetDefault("lookback_days", 90)
	v.SetDefault("worker_limit", 4)
	v.SetDefault("index_rate_per_sec", 5)
}

// Load reads the profile from promopilot.yaml (if present in the working
// directory) with PROMOPILOT_* environment variables taking precedence.
func Load(version string) (*Profile, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("promopilot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	v.SetEnvPrefix("promopilot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	p.Version = version
	return p, nil
}

// Validate checks the profile for configuration errors. These are fatal at
// startup; per-request failures are handled downstream.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.DSN == "" {
		return errors.New("database DSN is required (PROMOPILOT_DSN)")
	}
	if p.RerankThreshold < 0 || p.RerankThreshold > 1 {
		return errors.Errorf("rerank threshold %.2f out of range [0, 1]", p.RerankThreshold)
	}
	if p.RerankQueryStrategy != RerankSameAsSearch && p.RerankQueryStrategy != RerankNoCategory {
		return errors.Errorf("unknown rerank query strategy %q", p.RerankQueryStrategy)
	}
	if p.SearchTopK <= 0 {
		return errors.New("search top-k must be positive")
	}
	if p.RerankTopN <= 0 {
		return errors.New("rerank top-n must be positive")
	}
	if p.LookbackDays <= 0 {
		return errors.New("lookback days must be positive")
	}
	if p.WorkerLimit <= 0 {
		return errors.New("worker limit must be positive")
	}
	if p.IndexRatePerSec <= 0 {
		return errors.New("index rate must be positive")
	}
	return nil
}
