package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// RerankResult represents a reranking result.
type RerankResult struct {
	Index int     // position of the document in the request
	Score float64 // cross-encoder relevance score
}

// RerankerService is the cross-encoder reranking service interface.
type RerankerService interface {
	// Rerank scores documents against the query. Results are returned for
	// every document; ordering and thresholding are the caller's policy.
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)
}

type rerankerService struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewRerankerService creates a new RerankerService.
func NewRerankerService(cfg *RerankerConfig) RerankerService {
	return &rerankerService{
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *rerankerService) Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"model":     s.model,
		"query":     query,
		"documents": documents,
		"top_n":     len(documents),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "rerank request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("rerank API error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Results []struct {
			Index int     `json:"index"`
			Score float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode rerank response")
	}

	results := make([]RerankResult, len(result.Results))
	for i, r := range result.Results {
		results[i] = RerankResult{Index: r.Index, Score: r.Score}
	}
	return results, nil
}
