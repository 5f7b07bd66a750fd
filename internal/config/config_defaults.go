package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM Configuration. Model and base URL stay empty so each provider applies its own default.
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.embeddingModel", "")
	v.SetDefault("llm.baseURL", "")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.maxTokens", 0)
	v.SetDefault("llm.timeout", 300*time.Second) // Generation can take minutes

	// Circuit breaker is opt-in, providers never retry
	v.SetDefault("llm.circuitBreaker.enabled", false)
	v.SetDefault("llm.circuitBreaker.maxRequests", 3)
	v.SetDefault("llm.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("llm.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("llm.circuitBreaker.minRequests", 3)
	v.SetDefault("llm.circuitBreaker.failureThreshold", 0.6)

	// Prompt overrides
	v.SetDefault("prompts.matchJob", "")
	v.SetDefault("prompts.matchJobFile", "")
	v.SetDefault("prompts.analyzeBullet", "")
	v.SetDefault("prompts.analyzeBulletFile", "")
	v.SetDefault("prompts.extractResume", "")
	v.SetDefault("prompts.extractResumeFile", "")
	v.SetDefault("prompts.generateBullets", "")
	v.SetDefault("prompts.generateBulletsFile", "")
	v.SetDefault("prompts.watch", false)
	v.SetDefault("prompts.debounceDelay", time.Second)

	// Session Configuration
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookieName", "resumeSessionId")
	v.SetDefault("session.heartbeatInterval", 5*time.Second)
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.keyPrefix", "resumekit:session:")

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.readHeaderTimeout", 10*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)
	v.SetDefault("server.maxUploadSize", 10*1024*1024) // 10MB
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024)

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.watchInterval", 0)
	v.SetDefault("vault.secrets.llmApiKey", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.redisPassword", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumekit")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
