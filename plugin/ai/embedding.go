package ai

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int

	// Model returns the embedding model identifier.
	Model() string
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewEmbeddingService creates a new EmbeddingService against an
// OpenAI-compatible endpoint.
func NewEmbeddingService(cfg *EmbeddingConfig) EmbeddingService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(s.model),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings failed")
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = data.Embedding
	}

	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

func (s *embeddingService) Model() string {
	return s.model
}
