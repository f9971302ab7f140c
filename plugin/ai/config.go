package ai

import (
	"github.com/pkg/errors"

	"github.com/scandelicious/promopilot/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	Reranker  RerankerConfig
	LLM       LLMConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model      string // e.g. BAAI/bge-m3
	Dimensions int    // e.g. 1024
	APIKey     string
	BaseURL    string // OpenAI-compatible endpoint
}

// RerankerConfig represents cross-encoder reranker configuration.
type RerankerConfig struct {
	Model   string // e.g. BAAI/bge-reranker-v2-m3
	APIKey  string
	BaseURL string
}

// LLMConfig represents LLM configuration for briefing generation.
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// NewConfigFromProfile creates AI config from the runtime profile.
func NewConfigFromProfile(p *profile.Profile) (*Config, error) {
	if p.AIAPIKey == "" {
		return nil, errors.New("AI API key is required (PROMOPILOT_AI_API_KEY)")
	}

	return &Config{
		Embedding: EmbeddingConfig{
			Model:      p.AIEmbeddingModel,
			Dimensions: p.AIDimensions,
			APIKey:     p.AIAPIKey,
			BaseURL:    p.AIBaseURL,
		},
		Reranker: RerankerConfig{
			Model:   p.AIRerankModel,
			APIKey:  p.AIAPIKey,
			BaseURL: p.AIBaseURL,
		},
		LLM: LLMConfig{
			Model:       p.AILLMModel,
			APIKey:      p.AIAPIKey,
			BaseURL:     p.AIBaseURL,
			MaxTokens:   4096,
			Temperature: 0.7,
		},
	}, nil
}
