package server

import (
	"net/http"

	"resumekit/internal/llm"
)

// healthHandler reports service status, the active LLM provider and its circuit breaker
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumekit",
		"version": s.Version,
	}

	healthy := true
	if s.llm != nil && s.llm.Provider() != nil {
		p := s.llm.Provider()
		_, streaming := p.(llm.Streamer)
		_, embeddings := p.(llm.Embedder)
		response["llm"] = map[string]any{
			"provider":   p.Name(),
			"model":      p.Model(),
			"streaming":  streaming,
			"embeddings": embeddings,
		}

		breaker := llm.BreakerStats(p)
		if breaker != nil {
			response["circuit_breaker"] = breaker
			if state, ok := breaker["state"].(string); ok && state == "open" {
				healthy = false
			}
		}
	} else {
		response["llm"] = map[string]any{"available": false}
		healthy = false
	}

	if s.secretWatcher != nil {
		response["secret_watcher"] = s.secretWatcher.Status()
	}
	if s.promptWatcher != nil {
		response["prompt_watcher"] = map[string]any{"running": s.promptWatcher.IsRunning()}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting and session info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumekit",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.Stats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	sessions := map[string]any{
		"backend": s.AppConfig.Session.Backend,
		"ttl":     s.SessionTTL.String(),
	}
	if counter, ok := s.sessions.(interface{ Len() int }); ok {
		sessions["active"] = counter.Len()
	}
	response["sessions"] = sessions

	writeJSON(w, http.StatusOK, response)
}
