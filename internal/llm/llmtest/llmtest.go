// Package llmtest provides scripted providers for tests.
package llmtest

import (
	"context"
	"sync"
	"time"

	"resumekit/internal/llm"
)

// Reply is one scripted answer
type Reply struct {
	Content string
	Err     error
	// Fragments are streamed in order when the reply is consumed by ChatStream
	Fragments []string
	// StreamErr is sent after the fragments instead of a Done token
	StreamErr error
	// Delay is waited before answering
	Delay time.Duration
}

// Provider answers Chat calls from a script. When the script runs out the
// last reply is repeated.
type Provider struct {
	mu       sync.Mutex
	model    string
	replies  []Reply
	Requests []llm.ChatRequest
}

// NewProvider returns a chat-only provider
func NewProvider(replies ...Reply) *Provider {
	return &Provider{model: "test-model", replies: replies}
}

func (p *Provider) Name() string { return "fake" }

func (p *Provider) Model() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model
}

func (p *Provider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = model
}

// Calls returns how many requests were made
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// LastRequest returns the most recent request
func (p *Provider) LastRequest() llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Requests) == 0 {
		return llm.ChatRequest{}
	}
	return p.Requests[len(p.Requests)-1]
}

func (p *Provider) next(req llm.ChatRequest) Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if len(p.replies) == 0 {
		return Reply{}
	}
	r := p.replies[0]
	if len(p.replies) > 1 {
		p.replies = p.replies[1:]
	}
	return r
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	r := p.next(req)
	if err := wait(ctx, r.Delay); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &llm.ChatResponse{Content: r.Content, Model: p.Model()}, nil
}

// Streamer is a Provider that also streams
type Streamer struct {
	*Provider
}

// NewStreamer returns a streaming provider
func NewStreamer(replies ...Reply) *Streamer {
	return &Streamer{Provider: NewProvider(replies...)}
}

func (s *Streamer) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamToken, error) {
	r := s.next(req)
	if r.Err != nil {
		return nil, r.Err
	}

	ch := make(chan llm.StreamToken, 100)
	go func() {
		defer close(ch)
		for _, frag := range r.Fragments {
			if err := wait(ctx, r.Delay); err != nil {
				return
			}
			select {
			case ch <- llm.StreamToken{Content: frag}:
			case <-ctx.Done():
				return
			}
		}
		final := llm.StreamToken{Done: true}
		if r.StreamErr != nil {
			final = llm.StreamToken{Error: r.StreamErr}
		}
		select {
		case ch <- final:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}
