package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"resumekit/internal/config"
	"resumekit/internal/errors"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key (IP or API key).
// Buckets unused for limiterIdleTimeout are swept in the background.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	perSec  rate.Limit
	burst   int

	stop     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// NewClientLimiter creates a limiter allowing cfg.RequestsPerMin with bursts of cfg.BurstCapacity
func NewClientLimiter(cfg config.RateLimitConfig, logger *errors.Logger) *ClientLimiter {
	l := &ClientLimiter{
		clients: make(map[string]*limiterEntry),
		perSec:  rate.Limit(float64(cfg.RequestsPerMin) / 60.0),
		burst:   cfg.BurstCapacity,
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go l.sweepLoop(limiterIdleTimeout)
	return l
}

// Allow takes a token from the bucket of key, creating the bucket on first use
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	entry, ok := l.clients[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.perSec, l.burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// Stats reports the limiter settings and the number of tracked clients
func (l *ClientLimiter) Stats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]any{
		"active_clients":  len(l.clients),
		"rate_per_minute": float64(l.perSec) * 60.0,
		"burst_capacity":  l.burst,
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (l *ClientLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *ClientLimiter) sweepLoop(idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			l.sweep(now.Add(-idle))
		case <-l.stop:
			return
		}
	}
}

// sweep drops buckets not used since cutoff
func (l *ClientLimiter) sweep(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	if l.logger != nil && removed > 0 {
		l.logger.Debug("Swept idle rate limiters", "removed", removed, "remaining", len(l.clients))
	}
	return removed
}

// rateLimitMiddleware rejects requests whose client bucket is empty with 429
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" || s.RateLimiter.Allow(key) {
				next(w, r)
				return
			}

			s.Logger.Info("Rate limit exceeded",
				"key", maskClientKey(key),
				"endpoint", r.URL.Path)
			s.om.RecordRateLimitHit(r.Context(), attribute.String("endpoint", r.URL.Path))
			w.Header().Set("Retry-After", "60")
			writeErrorResponse(w, "Rate limit exceeded", http.StatusTooManyRequests)
		}
	}
}

// clientKey picks the bucket for r: the API key when enabled and present, else the client IP
func clientKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := apiKeyFromRequest(r); apiKey != "" {
			return "api:" + apiKey
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

func maskClientKey(key string) string {
	if apiKey, ok := strings.CutPrefix(key, "api:"); ok {
		return "api:" + maskAPIKey(apiKey)
	}
	return key
}

// getClientIP prefers the first valid X-Forwarded-For entry, then X-Real-IP, then RemoteAddr
func getClientIP(r *http.Request) string {
	for candidate := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(candidate); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
