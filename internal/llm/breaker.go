package llm

import (
	"context"

	"resumekit/internal/config"
	"resumekit/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// breakerProvider guards the calls of a provider with a circuit breaker.
// Only opening a stream goes through the breaker, not the tokens that follow.
type breakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker[any]
}

type breakerStreamer struct{ *breakerProvider }

type breakerEmbedder struct{ *breakerProvider }

type breakerStreamEmbedder struct{ *breakerProvider }

// WithCircuitBreaker wraps p in a circuit breaker. The returned provider has
// the same capabilities as p. When the breaker is disabled p is returned as is.
func WithCircuitBreaker(p Provider, cfg config.CircuitBreakerConfig, logger *errors.Logger) Provider {
	if !cfg.Enabled {
		return p
	}

	settings := gobreaker.Settings{
		Name:        "llm-" + p.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	b := &breakerProvider{inner: p, cb: gobreaker.NewCircuitBreaker[any](settings)}
	_, canStream := p.(Streamer)
	_, canEmbed := p.(Embedder)
	switch {
	case canStream && canEmbed:
		return &breakerStreamEmbedder{b}
	case canStream:
		return &breakerStreamer{b}
	case canEmbed:
		return &breakerEmbedder{b}
	default:
		return b
	}
}

func (b *breakerProvider) Name() string          { return b.inner.Name() }
func (b *breakerProvider) Model() string         { return b.inner.Model() }
func (b *breakerProvider) SetModel(model string) { b.inner.SetModel(model) }

func (b *breakerProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.Chat(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*ChatResponse), nil
}

func (b *breakerProvider) chatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.(Streamer).ChatStream(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(<-chan StreamToken), nil
}

func (b *breakerProvider) embed(ctx context.Context, text string) ([][]float64, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.(Embedder).Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return out.([][]float64), nil
}

// Stats reports the breaker state for the stats endpoint
func (b *breakerProvider) Stats() map[string]any {
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

func (b *breakerStreamer) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	return b.chatStream(ctx, req)
}

func (b *breakerEmbedder) Embed(ctx context.Context, text string) ([][]float64, error) {
	return b.embed(ctx, text)
}

func (b *breakerStreamEmbedder) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	return b.chatStream(ctx, req)
}

func (b *breakerStreamEmbedder) Embed(ctx context.Context, text string) ([][]float64, error) {
	return b.embed(ctx, text)
}

// BreakerStats returns the circuit breaker state of p, if it has one
func BreakerStats(p Provider) map[string]any {
	if s, ok := p.(interface{ Stats() map[string]any }); ok {
		return s.Stats()
	}
	return map[string]any{"enabled": false}
}
