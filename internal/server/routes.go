package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	api := func(h http.HandlerFunc) http.HandlerFunc {
		return s.rateLimitMiddleware()(s.authMiddleware(s.requestSizeLimitMiddleware()(h)))
	}

	// Pages
	mux.HandleFunc("GET /{$}", s.pageHandler(landingPage))
	mux.HandleFunc("GET /tools/job-matcher", s.pageHandler(matcherPage))
	mux.HandleFunc("GET /tools/bullet-analyzer", s.pageHandler(analyzerPage))
	mux.HandleFunc("GET /tools/resume-builder", s.pageHandler(builderPage))
	mux.HandleFunc("GET /style.css", s.handleStyle)

	// Operational
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	if handler := s.om.PrometheusHandler(); handler != nil {
		mux.Handle("GET "+s.om.PrometheusEndpoint(), handler)
	}

	// Bullet analyzer
	mux.HandleFunc("POST /api/bullet/init", api(s.handleBulletInit))
	mux.HandleFunc("GET /api/bullet/stream", api(s.handleBulletStream))

	// Job matcher
	mux.HandleFunc("POST /api/job/match", api(s.handleJobMatch))

	// Resume builder
	mux.HandleFunc("POST /api/resume/init-parse", api(s.handleInitParse))
	mux.HandleFunc("GET /api/resume/parse-stream", api(s.handleParseStream))
	mux.HandleFunc("GET /api/resume/state", api(s.handleResumeState))
	mux.HandleFunc("GET /api/resume/gaps", api(s.handleResumeGaps))
	mux.HandleFunc("PUT /api/resume/update", api(s.handleResumeUpdate))
	mux.HandleFunc("GET /api/resume/preview", api(s.handleResumePreview))
	mux.HandleFunc("POST /api/resume/download", api(s.handleResumeDownload))
	mux.HandleFunc("POST /api/resume/generate-bullets", api(s.handleGenerateBullets))

	return mux
}

// Handler returns the routed handler wrapped in the HTTP instrumentation
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// apiKeyFromRequest reads X-API-Key, falling back to a Bearer token
func apiKeyFromRequest(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := apiKeyFromRequest(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
