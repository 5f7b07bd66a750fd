package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"resumekit/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiterSeparatesClients(t *testing.T) {
	l := NewClientLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstCapacity: 2}, nil)
	t.Cleanup(l.Close)

	assert.True(t, l.Allow("ip:10.0.0.1"))
	assert.True(t, l.Allow("ip:10.0.0.1"))
	assert.False(t, l.Allow("ip:10.0.0.1"))
	assert.True(t, l.Allow("ip:10.0.0.2"))

	assert.Equal(t, map[string]any{
		"active_clients":  2,
		"rate_per_minute": 60.0,
		"burst_capacity":  2,
	}, l.Stats())
}

func TestClientLimiterSweep(t *testing.T) {
	l := NewClientLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstCapacity: 1}, nil)
	t.Cleanup(l.Close)

	l.Allow("ip:a")
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	l.Allow("ip:b")

	assert.Equal(t, 1, l.sweep(cutoff))
	assert.Equal(t, 1, l.Stats()["active_clients"])
}

func TestClientLimiterCloseTwice(t *testing.T) {
	l := NewClientLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstCapacity: 1}, nil)
	l.Close()
	assert.NotPanics(t, l.Close)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/resume/state", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	assert.Equal(t, "ip:192.0.2.7", clientKey(req, true, true))
	assert.Equal(t, "", clientKey(req, true, false))

	req.Header.Set("X-API-Key", "secret-key-123")
	assert.Equal(t, "api:secret-key-123", clientKey(req, true, true))
	assert.Equal(t, "ip:192.0.2.7", clientKey(req, false, true))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first valid", map[string]string{"X-Forwarded-For": "junk, 203.0.113.9, 10.0.0.1"}, "192.0.2.7:1", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.10 "}, "192.0.2.7:1", "203.0.113.10"},
		{"invalid headers", map[string]string{"X-Forwarded-For": "junk", "X-Real-IP": "nope"}, "192.0.2.7:1", "192.0.2.7"},
		{"remote without port", nil, "192.0.2.8", "192.0.2.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
