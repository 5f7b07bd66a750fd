package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	defaultGeminiModel          = "gemini-2.0-flash"
	defaultGeminiEmbeddingModel = "text-embedding-004"
)

// GeminiOptions configures a Gemini adapter
type GeminiOptions struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	HTTPClient     *http.Client
}

// Gemini talks to the Gemini API through the genai SDK
type Gemini struct {
	modelName
	client         *genai.Client
	embeddingModel string
}

var _ Streamer = (*Gemini)(nil)
var _ Embedder = (*Gemini)(nil)

// NewGemini creates a Gemini adapter. The API key is mandatory.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &Gemini{
		client:         client,
		embeddingModel: valueOr(opts.EmbeddingModel, defaultGeminiEmbeddingModel),
	}
	g.name = valueOr(opts.Model, defaultGeminiModel)
	return g, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Chat issues a single GenerateContent call
func (g *Gemini) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	contents, cfg := geminiRequest(req)
	model := g.Model()

	result, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, geminiError(err)
	}

	chat := &ChatResponse{Content: result.Text(), Model: model}
	if u := result.UsageMetadata; u != nil {
		chat.Usage = &Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return chat, nil
}

// ChatStream iterates GenerateContentStream
func (g *Gemini) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	contents, cfg := geminiRequest(req)
	model := g.Model()

	tokens := make(chan StreamToken, streamBuffer)
	go func() {
		defer close(tokens)
		for result, err := range g.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				send(ctx, tokens, StreamToken{Error: geminiError(err)})
				return
			}
			if text := result.Text(); text != "" {
				if !send(ctx, tokens, StreamToken{Content: text}) {
					return
				}
			}
		}
		send(ctx, tokens, StreamToken{Done: true})
	}()

	return tokens, nil
}

// Embed calls EmbedContent with the embedding model
func (g *Gemini) Embed(ctx context.Context, text string) ([][]float64, error) {
	result, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, geminiError(err)
	}

	embeddings := make([][]float64, 0, len(result.Embeddings))
	for _, e := range result.Embeddings {
		if e == nil {
			continue
		}
		values := make([]float64, len(e.Values))
		for i, v := range e.Values {
			values[i] = float64(v)
		}
		embeddings = append(embeddings, values)
	}
	return embeddings, nil
}

// geminiRequest maps a ChatRequest to genai contents and generation config
func geminiRequest(req ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, cfg
}

// geminiError keeps the status text of Google API errors
func geminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		text := http.StatusText(apiErr.Code)
		if text == "" {
			text = strconv.Itoa(apiErr.Code)
		}
		return &APIError{Provider: "Gemini", StatusCode: apiErr.Code, StatusText: text, Body: apiErr.Message}
	}
	return fmt.Errorf("Gemini API error: %w", err)
}
