// Package server is the HTTP surface of resumekit: htmx pages, the SSE relays
// for bullet analysis and resume extraction, the job matcher and the
// operational endpoints.
package server

import (
	"fmt"
	"time"

	"resumekit/internal/builder"
	"resumekit/internal/config"
	"resumekit/internal/errors"
	"resumekit/internal/jobmatch"
	"resumekit/internal/llm"
	"resumekit/internal/observability"
	"resumekit/internal/session"
	"resumekit/internal/tasks"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Deps holds the services the HTTP layer drives
type Deps struct {
	LLM           *llm.Service
	Tasks         *tasks.Service
	Builder       *builder.Service
	JobMatch      *jobmatch.Service
	Sessions      session.Store
	Observability *observability.Manager
	// SecretWatcher is optional and started with the server
	SecretWatcher *SecretWatcher
	// PromptWatcher is optional and started with the server
	PromptWatcher *config.PromptWatcher
}

// Server holds configuration and collaborators for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication for /api routes
	APIKeys map[string]bool

	// Timeout configurations
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *ClientLimiter

	// Resume builder sessions
	CookieName        string
	SessionTTL        time.Duration
	HeartbeatInterval time.Duration

	Logger *errors.Logger

	llm           *llm.Service
	tasks         *tasks.Service
	builder       *builder.Service
	jobs          *jobmatch.Service
	sessions      session.Store
	om            *observability.Manager
	views         *views
	secretWatcher *SecretWatcher
	promptWatcher *config.PromptWatcher
}

// NewServer creates a Server from the application config and its collaborators
func NewServer(appCfg *config.Config, version string, deps Deps, logger *errors.Logger) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, fmt.Errorf("failed to load views: %w", err)
	}

	srv := appCfg.Server

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range srv.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *ClientLimiter
	if srv.RateLimit.Enabled {
		rateLimiter = NewClientLimiter(srv.RateLimit, logger)
	}

	cookieName := appCfg.Session.CookieName
	if cookieName == "" {
		cookieName = "resumeSessionId"
	}
	ttl := appCfg.Session.TTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	heartbeat := appCfg.Session.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 5 * time.Second
	}

	return &Server{
		Host:              srv.Host,
		Port:              srv.Port,
		Version:           version,
		AppConfig:         appCfg,
		APIKeys:           apiKeyMap,
		ReadHeaderTimeout: srv.ReadHeaderTimeout,
		IdleTimeout:       srv.IdleTimeout,
		ShutdownTimeout:   srv.ShutdownTimeout,
		MaxRequestSize:    srv.MaxUploadSize,
		RateLimit:         &srv.RateLimit,
		RateLimiter:       rateLimiter,
		CookieName:        cookieName,
		SessionTTL:        ttl,
		HeartbeatInterval: heartbeat,
		Logger:            logger,
		llm:               deps.LLM,
		tasks:             deps.Tasks,
		builder:           deps.Builder,
		jobs:              deps.JobMatch,
		sessions:          deps.Sessions,
		om:                deps.Observability,
		views:             v,
		secretWatcher:     deps.SecretWatcher,
		promptWatcher:     deps.PromptWatcher,
	}, nil
}
