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
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIOptions configures an OpenAI-compatible adapter
type OpenAIOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	HTTPClient     *http.Client
}

// OpenAI talks to the OpenAI chat completions API or any compatible server
type OpenAI struct {
	modelName
	apiKey         string
	baseURL        string
	embeddingModel string
	client         *http.Client
}

var _ Streamer = (*OpenAI)(nil)
var _ Embedder = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI adapter. The API key is mandatory.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	o := &OpenAI{
		apiKey:         opts.APIKey,
		baseURL:        strings.TrimRight(valueOr(opts.BaseURL, defaultOpenAIBaseURL), "/"),
		embeddingModel: opts.EmbeddingModel,
		client:         opts.HTTPClient,
	}
	if o.client == nil {
		o.client = http.DefaultClient
	}
	o.name = valueOr(opts.Model, defaultOpenAIModel)
	return o, nil
}

func (o *OpenAI) Name() string { return "openai" }

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (o *OpenAI) chatBody(req ChatRequest, stream bool) openAIChatRequest {
	return openAIChatRequest{
		Model:       o.Model(),
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

// Chat issues a single /chat/completions call
func (o *OpenAI) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := o.post(ctx, "/chat/completions", o.chatBody(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAI response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("OpenAI API error: response has no choices")
	}

	chat := &ChatResponse{Content: out.Choices[0].Message.Content, Model: out.Model}
	if out.Usage != nil {
		chat.Usage = &Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		}
	}
	return chat, nil
}

// ChatStream streams /chat/completions as server-sent events
func (o *OpenAI) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	resp, err := o.post(ctx, "/chat/completions", o.chatBody(req, true))
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
			line := strings.TrimSpace(scanner.Text())
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			if data == "[DONE]" {
				send(ctx, tokens, StreamToken{Done: true})
				return
			}
			var chunk openAIChatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// partial or keep-alive payloads are skipped
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(ctx, tokens, StreamToken{Content: chunk.Choices[0].Delta.Content}) {
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

// Embed calls /embeddings
func (o *OpenAI) Embed(ctx context.Context, text string) ([][]float64, error) {
	body := map[string]any{
		"model": valueOr(o.embeddingModel, o.Model()),
		"input": text,
	}
	resp, err := o.post(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAI embeddings: %w", err)
	}

	embeddings := make([][]float64, 0, len(out.Data))
	for _, item := range out.Data {
		embeddings = append(embeddings, item.Embedding)
	}
	return embeddings, nil
}

func (o *OpenAI) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, newAPIError("OpenAI", resp, body)
	}
	return resp, nil
}
