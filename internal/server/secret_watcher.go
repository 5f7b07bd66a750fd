package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resumekit/internal/config"
	"resumekit/internal/errors"
	"resumekit/internal/llm"
)

// SecretClient reads versioned KVv2 secrets. *config.VaultClient implements it.
type SecretClient interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// ProviderFactory builds an LLM provider from configuration
type ProviderFactory func(ctx context.Context, cfg config.LLMConfig, logger *errors.Logger) (llm.Provider, error)

// SecretWatcher polls the Vault secret holding the LLM API key and swaps the
// active provider when a newer version appears. The version seen on the first
// poll is recorded without a swap since startup already applied it.
type SecretWatcher struct {
	mu sync.RWMutex

	client       SecretClient
	secretPath   string
	pollInterval time.Duration
	llmConfig    config.LLMConfig
	target       *llm.Service
	build        ProviderFactory
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	primed      bool
	lastVersion int64
	lastError   string
	rotations   int
}

// NewSecretWatcher creates a watcher that rotates target's provider. build
// defaults to llm.NewProviderFromConfig.
func NewSecretWatcher(client SecretClient, secretPath string, pollInterval time.Duration, llmCfg config.LLMConfig, target *llm.Service, build ProviderFactory, logger *errors.Logger) *SecretWatcher {
	if build == nil {
		build = llm.NewProviderFromConfig
	}
	return &SecretWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		llmConfig:    llmCfg,
		target:       target,
		build:        build,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start begins polling Vault for secret changes
func (sw *SecretWatcher) Start() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.running {
		return fmt.Errorf("secret watcher is already running")
	}
	if sw.pollInterval <= 0 {
		return fmt.Errorf("secret watcher poll interval must be positive")
	}
	sw.running = true
	go sw.pollLoop()
	if sw.logger != nil {
		sw.logger.Info("Secret watcher started", "secret_path", sw.secretPath, "poll_interval", sw.pollInterval)
	}
	return nil
}

// Stop stops the watcher
func (sw *SecretWatcher) Stop() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.running {
		return nil
	}
	close(sw.stopChan)
	sw.running = false
	if sw.logger != nil {
		sw.logger.Info("Secret watcher stopped")
	}
	return nil
}

func (sw *SecretWatcher) pollLoop() {
	ticker := time.NewTicker(sw.pollInterval)
	defer ticker.Stop()

	// Record the current version right away so the first tick can rotate.
	sw.poll()
	for {
		select {
		case <-ticker.C:
			sw.poll()
		case <-sw.stopChan:
			return
		}
	}
}

func (sw *SecretWatcher) poll() {
	rotated, err := sw.checkAndRotate(context.Background())
	if err != nil {
		sw.mu.Lock()
		sw.lastError = err.Error()
		sw.mu.Unlock()
		if sw.logger != nil {
			sw.logger.LogError(err, "Failed to rotate LLM API key")
		}
		return
	}
	if rotated && sw.logger != nil {
		sw.logger.Info("LLM API key rotated", "secret_path", sw.secretPath)
	}
}

// checkAndRotate reads the secret and swaps the provider when its version grew
func (sw *SecretWatcher) checkAndRotate(ctx context.Context) (bool, error) {
	secret, err := sw.client.GetSecretV2(sw.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		return false, fmt.Errorf("secret not found at path %s", sw.secretPath)
	}

	sw.mu.Lock()
	if !sw.primed {
		sw.primed = true
		sw.lastVersion = secret.Version
		sw.mu.Unlock()
		return false, nil
	}
	if secret.Version <= sw.lastVersion {
		sw.mu.Unlock()
		return false, nil
	}
	sw.mu.Unlock()

	key, ok := secret.Data["api_key"].(string)
	if !ok || key == "" {
		return false, fmt.Errorf("key 'api_key' not found or not a string in secret %s", sw.secretPath)
	}

	cfg := sw.llmConfig
	cfg.APIKey = key
	provider, err := sw.build(ctx, cfg, sw.logger)
	if err != nil {
		return false, fmt.Errorf("failed to build provider with rotated key: %w", err)
	}
	// Keep any runtime model override.
	if current := sw.target.Provider(); current != nil && current.Model() != "" {
		provider.SetModel(current.Model())
	}
	sw.target.SetProvider(provider)

	sw.mu.Lock()
	sw.lastVersion = secret.Version
	sw.lastError = ""
	sw.rotations++
	sw.mu.Unlock()
	return true, nil
}

// Status returns the watcher state for health reporting
func (sw *SecretWatcher) Status() map[string]any {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	status := map[string]any{
		"running":       sw.running,
		"poll_interval": sw.pollInterval.String(),
		"secret_path":   sw.secretPath,
		"last_version":  sw.lastVersion,
		"rotations":     sw.rotations,
	}
	if sw.lastError != "" {
		status["last_error"] = sw.lastError
	}
	return status
}
