package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// providerEnv lists the provider specific variables consulted when the
// generic llm.* keys are left empty.
var providerEnv = map[string]struct {
	APIKey  string
	Model   string
	BaseURL string
}{
	"ollama":    {Model: "OLLAMA_MODEL", BaseURL: "OLLAMA_BASE_URL"},
	"openai":    {APIKey: "OPENAI_API_KEY", Model: "OPENAI_MODEL", BaseURL: "OPENAI_BASE_URL"},
	"gemini":    {APIKey: "GEMINI_API_KEY", Model: "GEMINI_MODEL"},
	"anthropic": {APIKey: "ANTHROPIC_API_KEY", Model: "ANTHROPIC_MODEL", BaseURL: "ANTHROPIC_BASE_URL"},
}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}

	c.applyProviderEnvFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyObservabilityDefaults()
}

// applyProviderEnvFallbacks fills the LLM key, model and base URL from the provider's own variables
func (c *Config) applyProviderEnvFallbacks() {
	env, ok := providerEnv[c.LLM.Provider]
	if !ok {
		return
	}
	if c.LLM.APIKey == "" && env.APIKey != "" {
		c.LLM.APIKey = os.Getenv(env.APIKey)
	}
	if c.LLM.Model == "" && env.Model != "" {
		c.LLM.Model = os.Getenv(env.Model)
	}
	if c.LLM.BaseURL == "" && env.BaseURL != "" {
		c.LLM.BaseURL = os.Getenv(env.BaseURL)
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMEKIT_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMEKIT_LLM_PROVIDER",
		"RESUMEKIT_LLM_MODEL",
		"RESUMEKIT_LLM_APIKEY",
		"RESUMEKIT_SERVER_PORT",
		"RESUMEKIT_SERVER_HOST",
		"RESUMEKIT_APP_LOGLEVEL",
		"RESUMEKIT_SESSION_BACKEND",
		"RESUMEKIT_VAULT_ENABLED",
		"LLM_PROVIDER",
		"OLLAMA_MODEL",
		"OLLAMA_BASE_URL",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"GEMINI_API_KEY",
		"ANTHROPIC_API_KEY",
		"REDIS_ADDR",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] LLM Provider: %s", c.LLM.Provider)
	log.Printf("[CONFIG] LLM Model: %s", valueOr(c.LLM.Model, "(provider default)"))
	if c.LLM.APIKey != "" {
		log.Println("[CONFIG] LLM API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] LLM API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Circuit Breaker Enabled: %t", c.LLM.CircuitBreaker.Enabled)
	log.Printf("[CONFIG] Session Backend: %s (ttl %s)", c.Session.Backend, c.Session.TTL)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "password") || strings.Contains(lower, "token")
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
