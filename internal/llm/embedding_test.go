package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopleos/jinji/internal/llm"
)

func TestOpenAIProvider_Embed(t *testing.T) {
	var gotAuth string
	var gotReq struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.5, -0.25, 1}, "index": 0},
			},
		})
	}))
	t.Cleanup(srv.Close)

	p := llm.NewOpenAIProvider("sk-test", srv.URL, "text-embedding-3-small", 3)
	vec, err := p.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.5, -0.25, 1}, vec.Slice())
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, []string{"hello world"}, gotReq.Input)
	assert.Equal(t, "text-embedding-3-small", gotReq.Model)
	assert.Equal(t, 3, p.Dimensions())
}

func TestOpenAIProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	t.Cleanup(srv.Close)

	p := llm.NewOpenAIProvider("sk-test", srv.URL, "text-embedding-3-small", 3)
	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestOpenAIProvider_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	t.Cleanup(srv.Close)

	p := llm.NewOpenAIProvider("sk-test", srv.URL, "text-embedding-3-small", 3)
	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty embedding response")
}

func TestNoopProvider(t *testing.T) {
	p := llm.NewNoopProvider(4)
	vec, err := p.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, vec.Slice())
	assert.Equal(t, 4, p.Dimensions())
}
