// Package llm normalises chat, streaming and embedding calls across LLM backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Role of a chat message author
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// streamBuffer is the channel capacity of every token stream
const streamBuffer = 100

var (
	// ErrStreamingNotSupported is returned when the active provider cannot stream
	ErrStreamingNotSupported = errors.New("Streaming not supported by this provider")
	// ErrEmbeddingNotSupported is returned when the active provider cannot embed
	ErrEmbeddingNotSupported = errors.New("Embedding not supported by this provider")
)

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single completion request. Adapters never modify it.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature *float64
	MaxTokens   *int
	Stream      bool
}

// Usage is the token accounting reported by the backend
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ChatResponse is the result of a non-streaming completion
type ChatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// StreamToken is one element of a token stream. A token carrying Error is
// the last one sent; Done marks a normal end.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// Provider is the minimum every backend implements
type Provider interface {
	Name() string
	Model() string
	SetModel(model string)
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Streamer is a Provider that can stream completions
type Streamer interface {
	Provider
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error)
}

// Embedder is a Provider that can embed text
type Embedder interface {
	Provider
	Embed(ctx context.Context, text string) ([][]float64, error)
}

// APIError is a non-success response from a backend
type APIError struct {
	Provider   string
	StatusCode int
	StatusText string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Provider, e.StatusText)
}

func newAPIError(provider string, resp *http.Response, body []byte) *APIError {
	return &APIError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Body:       strings.TrimSpace(string(body)),
	}
}

// statusText returns the reason phrase of resp, or its numeric code
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = strconv.Itoa(resp.StatusCode)
	}
	return text
}

// modelName is the runtime-swappable model of an adapter
type modelName struct {
	mu   sync.RWMutex
	name string
}

func (m *modelName) Model() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

func (m *modelName) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = model
}

// send delivers tok unless ctx is cancelled first
func send(ctx context.Context, ch chan<- StreamToken, tok StreamToken) bool {
	select {
	case ch <- tok:
		return true
	case <-ctx.Done():
		return false
	}
}

// Collect drains a stream into a single string
func Collect(tokens <-chan StreamToken) (string, error) {
	var sb strings.Builder
	for tok := range tokens {
		if tok.Error != nil {
			return sb.String(), tok.Error
		}
		sb.WriteString(tok.Content)
		if tok.Done {
			break
		}
	}
	return sb.String(), nil
}

func buildMessages(user, system string) []ChatMessage {
	messages := make([]ChatMessage, 0, 2)
	if system != "" {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: system})
	}
	return append(messages, ChatMessage{Role: RoleUser, Content: user})
}
