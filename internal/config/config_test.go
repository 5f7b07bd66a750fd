package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		LLM:     LLMConfig{Provider: "ollama", Timeout: time.Minute},
		Session: SessionConfig{Backend: "memory", TTL: 24 * time.Hour, HeartbeatInterval: 5 * time.Second},
		Server:  ServerConfig{Port: "3000", MaxUploadSize: 1024},
		App:     AppConfig{DefaultFormat: "text", SupportedFormats: []string{"json", "text", "markdown"}},
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 300*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.LLM.CircuitBreaker.Enabled)
	assert.Nil(t, cfg.LLM.Temperature)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "resumeSessionId", cfg.Session.CookieName)
	assert.Equal(t, 5*time.Second, cfg.Session.HeartbeatInterval)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxUploadSize)
}

func TestLoadConfigLegacyEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-legacy", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}

func TestLoadConfigPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("RESUMEKIT_LLM_PROVIDER", "anthropic")
	t.Setenv("RESUMEKIT_LLM_APIKEY", "explicit")
	t.Setenv("ANTHROPIC_API_KEY", "fallback")

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestLoadConfigServerAPIKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RESUMEKIT_SERVER_APIKEYS", " a , b ")

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.Server.APIKeys)
}

func TestValidate(t *testing.T) {
	tooHot := 3.0

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "cohere" }, wantErr: "unsupported LLM provider"},
		{name: "zero timeout", mutate: func(c *Config) { c.LLM.Timeout = 0 }, wantErr: "timeout must be positive"},
		{name: "temperature out of range", mutate: func(c *Config) { c.LLM.Temperature = &tooHot }, wantErr: "temperature"},
		{name: "breaker threshold", mutate: func(c *Config) {
			c.LLM.CircuitBreaker = CircuitBreakerConfig{Enabled: true, FailureThreshold: 1.5}
		}, wantErr: "failureThreshold"},
		{name: "unknown session backend", mutate: func(c *Config) { c.Session.Backend = "disk" }, wantErr: "invalid session backend"},
		{name: "redis without addr", mutate: func(c *Config) { c.Session.Backend = "redis" }, wantErr: "session.redis.addr"},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: "TTL"},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "port"},
		{name: "bad default format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: "default format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyProviderEnvFallbacks(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "llama3.2")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	cfg := &Config{LLM: LLMConfig{Provider: " Ollama "}}
	cfg.applyFallbacks()

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.BaseURL)
	assert.Empty(t, cfg.LLM.APIKey)
}
