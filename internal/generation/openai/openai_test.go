package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/domain"
)

func fakeChatServer(t *testing.T, status int, reply string, gotPrompt *string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"requests","code":"rate_limit_exceeded"}}`))
			return
		}
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if len(body.Messages) > 0 {
			*gotPrompt = body.Messages[0].Content
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{Model: "m"})
	require.Error(t, err)
	_, err = NewClient(Config{APIKey: "k"})
	require.Error(t, err)
}

func TestGenerate_ReturnsFirstChoice(t *testing.T) {
	var prompt string
	srv := fakeChatServer(t, http.StatusOK, "Try the Java 8 test.", &prompt)
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "chat-model"})
	require.NoError(t, err)
	assert.Equal(t, "chat-model", c.ModelID())

	out, err := c.Generate(context.Background(), "recommend something")
	require.NoError(t, err)
	assert.Equal(t, "Try the Java 8 test.", out)
	assert.Equal(t, "recommend something", prompt)
}

func TestGenerate_RateLimitClassified(t *testing.T) {
	var prompt string
	srv := fakeChatServer(t, http.StatusTooManyRequests, "", &prompt)
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "chat-model"})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
