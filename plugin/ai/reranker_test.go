package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scandelicious/promopilot/internal/profile"
)

var (
	testProfileWithoutKey = profile.Profile{}
	testProfileWithKey    = profile.Profile{
		AIAPIKey:         "test-key",
		AIEmbeddingModel: "BAAI/bge-m3",
		AIRerankModel:    "BAAI/bge-reranker-v2-m3",
		AILLMModel:       "deepseek-chat",
		AIDimensions:     1024,
	}
)

func TestRerankRequestAndResponse(t *testing.T) {
	var received struct {
		Model     string   `json:"model"`
		Query     string   `json:"query"`
		Documents []string `json:"documents"`
		TopN      int      `json:"top_n"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"index":1,"relevance_score":0.92},{"index":0,"relevance_score":0.41}]}`))
	}))
	defer server.Close()

	service := NewRerankerService(&RerankerConfig{
		Model:   "BAAI/bge-reranker-v2-m3",
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	results, err := service.Rerank(context.Background(), "volle melk", []string{"halfvolle melk", "volle melk. 1+1 gratis"})

	require.NoError(t, err)
	require.Equal(t, "BAAI/bge-reranker-v2-m3", received.Model)
	require.Equal(t, "volle melk", received.Query)
	require.Len(t, received.Documents, 2)
	require.Equal(t, 2, received.TopN)

	require.Len(t, results, 2)
	require.Equal(t, 1, results[0].Index)
	require.InDelta(t, 0.92, results[0].Score, 1e-9)
}

func TestRerankEmptyDocuments(t *testing.T) {
	service := NewRerankerService(&RerankerConfig{BaseURL: "http://unused"})

	results, err := service.Rerank(context.Background(), "query", nil)

	require.NoError(t, err)
	require.Nil(t, results)
}

func TestRerankServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	service := NewRerankerService(&RerankerConfig{BaseURL: server.URL})

	_, err := service.Rerank(context.Background(), "query", []string{"doc"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestNewConfigFromProfileRequiresKey(t *testing.T) {
	_, err := NewConfigFromProfile(&testProfileWithoutKey)
	require.Error(t, err)

	cfg, err := NewConfigFromProfile(&testProfileWithKey)
	require.NoError(t, err)
	require.Equal(t, "BAAI/bge-m3", cfg.Embedding.Model)
	require.Equal(t, 1024, cfg.Embedding.Dimensions)
	require.Equal(t, "BAAI/bge-reranker-v2-m3", cfg.Reranker.Model)
	require.Equal(t, "deepseek-chat", cfg.LLM.Model)
}
