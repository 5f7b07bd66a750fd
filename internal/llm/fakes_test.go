package llm

import (
	"context"
	"sync"
)

// fakeProvider records requests and answers with a canned reply
type fakeProvider struct {
	modelName
	mu       sync.Mutex
	reply    string
	err      error
	requests []ChatRequest
}

func newFakeProvider(reply string) *fakeProvider {
	p := &fakeProvider{reply: reply}
	p.name = "fake-model"
	return p
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &ChatResponse{Content: f.reply, Model: f.Model()}, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakeStreamer emits fixed fragments
type fakeStreamer struct {
	*fakeProvider
	fragments []string
	streams   int
}

func newFakeStreamer(fragments ...string) *fakeStreamer {
	return &fakeStreamer{fakeProvider: newFakeProvider(""), fragments: fragments}
}

func (f *fakeStreamer) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	f.mu.Lock()
	f.streams++
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	ch := make(chan StreamToken, streamBuffer)
	go func() {
		defer close(ch)
		for _, frag := range f.fragments {
			if !send(ctx, ch, StreamToken{Content: frag}) {
				return
			}
		}
		send(ctx, ch, StreamToken{Done: true})
	}()
	return ch, nil
}

// fakeEmbedder returns a fixed vector
type fakeEmbedder struct {
	*fakeProvider
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([][]float64, error) {
	return [][]float64{{0.1, 0.2}}, nil
}
