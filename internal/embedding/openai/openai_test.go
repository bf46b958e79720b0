package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/domain"
)

// fakeEmbeddingServer mimics the OpenAI embeddings endpoint. A non-200 status
// makes every request fail with errBody.
func fakeEmbeddingServer(t *testing.T, counter *atomic.Int64, status int, errBody string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(errBody))
			return
		}

		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		// Reverse the order to check the client reorders by index.
		data := make([]map[string]any, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i), 0.5, 0.25},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  body.Model,
			"usage":  map[string]int{"prompt_tokens": 4, "total_tokens": 4},
		})
	}))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{APIKey: "test-key", BaseURL: url, Model: "test-model"})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestEmbed_OrdersByIndex(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, http.StatusOK, "")
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	assert.Equal(t, "test-model", c.ModelID())

	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0])
	}
	assert.Equal(t, int64(1), counter.Load())
}

func TestEmbed_EmptyInputSkipsCall(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, http.StatusOK, "")
	defer srv.Close()

	vecs, err := newTestClient(t, srv.URL).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, counter.Load())
}

func TestEmbed_RateLimitIsTransient(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, http.StatusTooManyRequests,
		`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`)
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Equal(t, int64(1), counter.Load(), "client must not retry on its own")
}

func TestEmbed_BadRequestIsPermanent(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, http.StatusBadRequest,
		`{"error":{"message":"bad model","type":"invalid_request_error","code":"model_not_found"}}`)
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
}

func TestClassify_ResourceExhaustedCode(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, http.StatusServiceUnavailable,
		`{"error":{"message":"quota","type":"error","code":"RESOURCE_EXHAUSTED"}}`)
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
