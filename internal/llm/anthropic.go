package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 4096
)

// AnthropicOptions configures a Claude adapter
type AnthropicOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Anthropic talks to the Claude Messages API. It cannot embed.
type Anthropic struct {
	modelName
	client anthropic.Client
}

var _ Streamer = (*Anthropic)(nil)

// NewAnthropic creates a Claude adapter. The API key is mandatory.
func NewAnthropic(opts AnthropicOptions) (*Anthropic, error) {
	if opts.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	a := &Anthropic{client: anthropic.NewClient(clientOpts...)}
	a.name = valueOr(opts.Model, defaultAnthropicModel)
	return a, nil
}

func (a *Anthropic) Name() string { return "anthropic" }

// Chat issues a single Messages.New call
func (a *Anthropic) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message, err := a.client.Messages.New(ctx, a.params(req))
	if err != nil {
		return nil, anthropicError(err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &ChatResponse{
		Content: sb.String(),
		Model:   string(message.Model),
		Usage: &Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}, nil
}

// ChatStream relays text deltas until message_stop
func (a *Anthropic) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(req))

	tokens := make(chan StreamToken, streamBuffer)
	go func() {
		defer close(tokens)
		defer stream.Close()

		for stream.Next() {
			switch event := stream.Current().AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := event.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !send(ctx, tokens, StreamToken{Content: delta.Text}) {
						return
					}
				}
			case anthropic.MessageStopEvent:
				send(ctx, tokens, StreamToken{Done: true})
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(ctx, tokens, StreamToken{Error: anthropicError(err)})
			return
		}
		send(ctx, tokens, StreamToken{Done: true})
	}()

	return tokens, nil
}

func (a *Anthropic) params(req ChatRequest) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model()),
		MaxTokens: defaultAnthropicMaxTokens,
	}
	if req.MaxTokens != nil {
		params.MaxTokens = int64(*req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return params
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		text := http.StatusText(apiErr.StatusCode)
		if text == "" {
			text = strconv.Itoa(apiErr.StatusCode)
		}
		return &APIError{Provider: "Anthropic", StatusCode: apiErr.StatusCode, StatusText: text}
	}
	return fmt.Errorf("Anthropic API error: %w", err)
}
