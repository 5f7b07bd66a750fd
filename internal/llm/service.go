package llm

import (
	"context"
	"sync"

	"resumekit/internal/errors"
	"resumekit/internal/observability"
)

// Service is the entry point to the active provider. The provider can be
// swapped at runtime; calls already in flight keep the provider they started with.
type Service struct {
	mu       sync.RWMutex
	provider Provider
	om       *observability.Manager
	logger   *errors.Logger
}

// NewService creates a service backed by provider. om and logger may be nil.
func NewService(provider Provider, om *observability.Manager, logger *errors.Logger) *Service {
	return &Service{provider: provider, om: om, logger: logger}
}

// Provider returns the active provider
func (s *Service) Provider() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// SetProvider replaces the active provider
func (s *Service) SetProvider(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == p {
		return
	}
	s.provider = p
	if s.logger != nil {
		s.logger.Info("LLM provider switched", "provider", p.Name(), "model", p.Model())
	}
}

// Chat sends req to the active provider
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p := s.Provider()

	var resp *ChatResponse
	err := s.om.TrackLLMCall(ctx, p.Name(), "chat", func(ctx context.Context) (*observability.TokenUsage, error) {
		var err error
		resp, err = p.Chat(ctx, req)
		if err != nil {
			return nil, err
		}
		return tokenUsage(resp.Usage), nil
	})
	if err != nil {
		s.logError(err, "LLM chat failed", p)
		return nil, err
	}
	return resp, nil
}

// ChatStream opens a token stream on the active provider
func (s *Service) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	p := s.Provider()
	streamer, ok := p.(Streamer)
	if !ok {
		return nil, ErrStreamingNotSupported
	}

	var tokens <-chan StreamToken
	err := s.om.TrackLLMCall(ctx, p.Name(), "stream", func(ctx context.Context) (*observability.TokenUsage, error) {
		var err error
		tokens, err = streamer.ChatStream(ctx, req)
		return nil, err
	})
	if err != nil {
		s.logError(err, "LLM stream failed to open", p)
		return nil, err
	}
	return tokens, nil
}

// Embed embeds text with the active provider
func (s *Service) Embed(ctx context.Context, text string) ([][]float64, error) {
	p := s.Provider()
	embedder, ok := p.(Embedder)
	if !ok {
		return nil, ErrEmbeddingNotSupported
	}

	var vectors [][]float64
	err := s.om.TrackLLMCall(ctx, p.Name(), "embed", func(ctx context.Context) (*observability.TokenUsage, error) {
		var err error
		vectors, err = embedder.Embed(ctx, text)
		return nil, err
	})
	if err != nil {
		s.logError(err, "LLM embed failed", p)
		return nil, err
	}
	return vectors, nil
}

// Prompt sends a user prompt with an optional system prompt and returns the content
func (s *Service) Prompt(ctx context.Context, prompt, systemPrompt string) (string, error) {
	resp, err := s.Chat(ctx, ChatRequest{Messages: buildMessages(prompt, systemPrompt)})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// PromptStream is the streaming form of Prompt
func (s *Service) PromptStream(ctx context.Context, prompt, systemPrompt string) (<-chan StreamToken, error) {
	return s.ChatStream(ctx, ChatRequest{Messages: buildMessages(prompt, systemPrompt), Stream: true})
}

func (s *Service) logError(err error, msg string, p Provider) {
	if s.logger == nil {
		return
	}
	s.logger.LogError(err, msg, "provider", p.Name(), "model", p.Model())
}

func tokenUsage(u *Usage) *observability.TokenUsage {
	if u == nil {
		return nil
	}
	return &observability.TokenUsage{
		InputTokens:  int64(u.PromptTokens),
		OutputTokens: int64(u.CompletionTokens),
		TotalTokens:  int64(u.TotalTokens),
	}
}
