package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// LLM API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values / RESUMEKIT_LLM_APIKEY
// 3. Provider specific environment variables (OPENAI_API_KEY, GEMINI_API_KEY, ANTHROPIC_API_KEY)
// 4. Default values - Lowest priority
type Config struct {
	LLM           LLMConfig           `mapstructure:"llm"`
	Prompts       PromptsConfig       `mapstructure:"prompts"`
	Session       SessionConfig       `mapstructure:"session"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	loaded LoadedPrompts
}

// LLMConfig selects and tunes the language model backend
type LLMConfig struct {
	Provider       string               `mapstructure:"provider"` // ollama, openai, gemini, anthropic
	Model          string               `mapstructure:"model"`
	EmbeddingModel string               `mapstructure:"embeddingModel"`
	BaseURL        string               `mapstructure:"baseURL"`
	APIKey         string               `mapstructure:"apiKey"`
	Temperature    *float64             `mapstructure:"temperature"`
	MaxTokens      int                  `mapstructure:"maxTokens"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Off unless explicitly requested
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// PromptsConfig overrides the built-in system prompts of each task.
// A *File entry wins over the inline value.
type PromptsConfig struct {
	MatchJob            string        `mapstructure:"matchJob"`
	MatchJobFile        string        `mapstructure:"matchJobFile"`
	AnalyzeBullet       string        `mapstructure:"analyzeBullet"`
	AnalyzeBulletFile   string        `mapstructure:"analyzeBulletFile"`
	ExtractResume       string        `mapstructure:"extractResume"`
	ExtractResumeFile   string        `mapstructure:"extractResumeFile"`
	GenerateBullets     string        `mapstructure:"generateBullets"`
	GenerateBulletsFile string        `mapstructure:"generateBulletsFile"`
	Watch               bool          `mapstructure:"watch"`
	DebounceDelay       time.Duration `mapstructure:"debounceDelay"`
}

// SessionConfig holds resume-builder session settings
type SessionConfig struct {
	Backend           string        `mapstructure:"backend"` // memory or redis
	TTL               time.Duration `mapstructure:"ttl"`
	CookieName        string        `mapstructure:"cookieName"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeatInterval"`
	Redis             RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the redis session backend connection
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              string        `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"`
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`
	MaxUploadSize     int64         `mapstructure:"maxUploadSize"`

	// API Authentication for /api routes, disabled when empty
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	ConsoleOutput   bool             `mapstructure:"consoleOutput"`
	SampleRate      float64          `mapstructure:"sampleRate"`
	Tracing         TracingConfig    `mapstructure:"tracing"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// PrometheusConfig holds Prometheus exporter configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

var validProviders = []string{"ollama", "openai", "gemini", "anthropic"}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("RESUMEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)
	log.Println("[CONFIG] Configured environment variable handling with prefix 'RESUMEKIT'")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/resumekit/")
	v.AddConfigPath("$HOME/.resumekit")
	v.AddConfigPath(".")
	log.Println("[CONFIG] Configured config file search paths: /etc/resumekit/, $HOME/.resumekit, .")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	log.Println("[CONFIG] Applied configuration fallbacks and environment variable overrides")

	config.logConfigurationSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// bindLegacyEnv maps the unprefixed variable names the web app has always
// honoured onto their config keys. Prefixed names still take precedence.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("llm.provider", "RESUMEKIT_LLM_PROVIDER", "LLM_PROVIDER")
	_ = v.BindEnv("llm.apiKey", "RESUMEKIT_LLM_APIKEY")
	_ = v.BindEnv("llm.temperature", "RESUMEKIT_LLM_TEMPERATURE")
	_ = v.BindEnv("session.redis.addr", "RESUMEKIT_SESSION_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("session.redis.password", "RESUMEKIT_SESSION_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("server.port", "RESUMEKIT_SERVER_PORT", "PORT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	provider := strings.ToLower(c.LLM.Provider)
	if !slices.Contains(validProviders, provider) {
		return fmt.Errorf("unsupported LLM provider: %s (must be one of %s)", c.LLM.Provider, strings.Join(validProviders, ", "))
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM timeout must be positive")
	}

	if c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2) {
		return fmt.Errorf("LLM temperature must be between 0 and 2")
	}

	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("LLM maxTokens cannot be negative")
	}

	if c.LLM.CircuitBreaker.Enabled {
		if c.LLM.CircuitBreaker.FailureThreshold <= 0 || c.LLM.CircuitBreaker.FailureThreshold > 1 {
			return fmt.Errorf("circuit breaker failureThreshold must be in (0, 1]")
		}
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required for the redis session backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be 'memory' or 'redis')", c.Session.Backend)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Session.HeartbeatInterval <= 0 {
		return fmt.Errorf("session heartbeat interval must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("server maxUploadSize must be positive")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}
