package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"hi there"},"done":true,"prompt_eval_count":3,"eval_count":2}`)
	}))
	defer srv.Close()

	p := NewOllama(OllamaOptions{BaseURL: srv.URL, Model: "m"})
	temp := 0.5
	maxTokens := 64
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages:    []ChatMessage{{Role: RoleUser, Content: "hello"}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	require.NoError(t, err)

	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, "m", resp.Model)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.5, *got.Options.Temperature)
	assert.Equal(t, 64, *got.Options.NumPredict)
}

func TestOllamaChatStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(OllamaOptions{BaseURL: srv.URL}).Chat(context.Background(), ChatRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Ollama API error: Not Found", err.Error())
}

func TestOllamaChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, part := range []string{`{"score":`, ` 8,`, ` "feedback":"ok"}`} {
			fmt.Fprintf(w, "{\"message\":{\"content\":%q},\"done\":false}\n", part)
		}
		fmt.Fprint(w, "{\"message\":{\"content\":\"\"},\"done\":true}\n")
		fmt.Fprint(w, "{\"message\":{\"content\":\"after done\"},\"done\":false}\n")
	}))
	defer srv.Close()

	tokens, err := NewOllama(OllamaOptions{BaseURL: srv.URL}).ChatStream(context.Background(), ChatRequest{})
	require.NoError(t, err)

	var fragments []string
	var done bool
	for tok := range tokens {
		require.NoError(t, tok.Error)
		if tok.Done {
			done = true
			continue
		}
		fragments = append(fragments, tok.Content)
	}

	assert.True(t, done)
	assert.Equal(t, []string{`{"score":`, ` 8,`, ` "feedback":"ok"}`}, fragments)
}

func TestOllamaChatStreamErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"message\":{\"content\":\"a\"},\"done\":false}\n")
		fmt.Fprint(w, "{\"error\":\"model crashed\"}\n")
	}))
	defer srv.Close()

	tokens, err := NewOllama(OllamaOptions{BaseURL: srv.URL}).ChatStream(context.Background(), ChatRequest{})
	require.NoError(t, err)

	text, err := Collect(tokens)
	assert.Equal(t, "a", text)
	assert.EqualError(t, err, "Ollama API error: model crashed")
	_, open := <-tokens
	assert.False(t, open)
}

func TestOllamaChatStreamCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"message\":{\"content\":\"a\"},\"done\":false}\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	tokens, err := NewOllama(OllamaOptions{BaseURL: srv.URL}).ChatStream(ctx, ChatRequest{})
	require.NoError(t, err)

	first := <-tokens
	assert.Equal(t, "a", first.Content)
	cancel()

	for range tokens {
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])
		fmt.Fprint(w, `{"embeddings":[[0.1,0.2,0.3]]}`)
	}))
	defer srv.Close()

	p := NewOllama(OllamaOptions{BaseURL: srv.URL, EmbeddingModel: "nomic-embed-text"})
	vectors, err := p.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1, 0.2, 0.3}}, vectors)
}
