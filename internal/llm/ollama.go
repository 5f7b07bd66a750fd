package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "gpt-oss:120b-cloud"
)

// OllamaOptions configures an Ollama adapter
type OllamaOptions struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	HTTPClient     *http.Client
}

// Ollama talks to the Ollama REST API
type Ollama struct {
	modelName
	baseURL        string
	embeddingModel string
	client         *http.Client
}

var _ Streamer = (*Ollama)(nil)
var _ Embedder = (*Ollama)(nil)

// NewOllama creates an Ollama adapter
func NewOllama(opts OllamaOptions) *Ollama {
	o := &Ollama{
		baseURL:        strings.TrimRight(valueOr(opts.BaseURL, defaultOllamaBaseURL), "/"),
		embeddingModel: opts.EmbeddingModel,
		client:         opts.HTTPClient,
	}
	if o.client == nil {
		o.client = http.DefaultClient
	}
	o.name = valueOr(opts.Model, defaultOllamaModel)
	return o
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaChatChunk struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (o *Ollama) chatBody(req ChatRequest, stream bool) ollamaChatRequest {
	return ollamaChatRequest{
		Model:    o.Model(),
		Messages: req.Messages,
		Stream:   stream,
		Options:  ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	}
}

// Chat issues a single /api/chat call
func (o *Ollama) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := o.post(ctx, "/api/chat", o.chatBody(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chunk ollamaChatChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama response: %w", err)
	}
	if chunk.Error != "" {
		return nil, fmt.Errorf("Ollama API error: %s", chunk.Error)
	}

	return &ChatResponse{
		Content: chunk.Message.Content,
		Model:   o.Model(),
		Usage: &Usage{
			PromptTokens:     chunk.PromptEvalCount,
			CompletionTokens: chunk.EvalCount,
			TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
		},
	}, nil
}

// ChatStream streams /api/chat as newline-delimited JSON
func (o *Ollama) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	resp, err := o.post(ctx, "/api/chat", o.chatBody(req, true))
	if err != nil {
		return nil, err
	}

	tokens := make(chan StreamToken, streamBuffer)
	go func() {
		defer close(tokens)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				send(ctx, tokens, StreamToken{Error: fmt.Errorf("failed to decode Ollama stream: %w", err)})
				return
			}
			if chunk.Error != "" {
				send(ctx, tokens, StreamToken{Error: fmt.Errorf("Ollama API error: %s", chunk.Error)})
				return
			}
			if chunk.Message.Content != "" {
				if !send(ctx, tokens, StreamToken{Content: chunk.Message.Content}) {
					return
				}
			}
			if chunk.Done {
				send(ctx, tokens, StreamToken{Done: true})
				return
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
			send(ctx, tokens, StreamToken{Error: err})
			return
		}
		send(ctx, tokens, StreamToken{Done: true})
	}()

	return tokens, nil
}

// Embed calls /api/embed
func (o *Ollama) Embed(ctx context.Context, text string) ([][]float64, error) {
	body := map[string]any{
		"model": valueOr(o.embeddingModel, o.Model()),
		"input": text,
	}
	resp, err := o.post(ctx, "/api/embed", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama embeddings: %w", err)
	}
	return out.Embeddings, nil
}

func (o *Ollama) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Ollama request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, newAPIError("Ollama", resp, body)
	}
	return resp, nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
