package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"resumekit/internal/config"
	"resumekit/internal/errors"
)

// NewProviderFromConfig builds the adapter selected by cfg.Provider, falling
// back to LLM_PROVIDER and then to ollama. The adapter is wrapped in a circuit
// breaker when one is enabled.
func NewProviderFromConfig(ctx context.Context, cfg config.LLMConfig, logger *errors.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	}
	if name == "" {
		name = "ollama"
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	var provider Provider
	switch name {
	case "ollama":
		provider = NewOllama(OllamaOptions{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			HTTPClient:     httpClient,
		})
	case "openai":
		if cfg.APIKey == "" {
			return nil, missingKey("OPENAI_API_KEY", name)
		}
		p, err := NewOpenAI(OpenAIOptions{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			HTTPClient:     httpClient,
		})
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, err.Error(), err)
		}
		provider = p
	case "gemini":
		if cfg.APIKey == "" {
			return nil, missingKey("GEMINI_API_KEY", name)
		}
		p, err := NewGemini(ctx, GeminiOptions{
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			HTTPClient:     httpClient,
		})
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Failed to create Gemini provider", err)
		}
		provider = p
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, missingKey("ANTHROPIC_API_KEY", name)
		}
		p, err := NewAnthropic(AnthropicOptions{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, err.Error(), err)
		}
		provider = p
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unknown provider: %s", name), nil)
	}

	if logger != nil {
		logger.Debug("LLM provider created",
			"provider", provider.Name(),
			"model", provider.Model(),
			"circuit_breaker", cfg.CircuitBreaker.Enabled)
	}

	return WithCircuitBreaker(provider, cfg.CircuitBreaker, logger), nil
}

func missingKey(env, provider string) error {
	return errors.NewConfigError(errors.ErrCodeMissingAPIKey,
		fmt.Sprintf("%s is required when LLM_PROVIDER=%s", env, provider), nil)
}
