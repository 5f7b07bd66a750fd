package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"resumekit/internal/errors"
	"resumekit/internal/observability"
)

// SSE event names
const (
	eventProgress = "progress"
	eventPing     = "ping"
	eventComplete = "complete"
	eventError    = "error"
	eventToken    = "token"
	eventResult   = "result"
)

// sseWriter serializes server-sent events onto one response. It is safe for
// use by the handler and its heartbeat goroutine at the same time.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	om      *observability.Manager
	logger  *errors.Logger
}

// newSSEWriter sets the event-stream headers and commits the response
func newSSEWriter(w http.ResponseWriter, om *observability.Manager, logger *errors.Logger) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher, om: om, logger: logger}, nil
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// formatEvent renders one event frame. Every line of data gets its own data
// field; CR and CRLF count as line ends, as they do for the client.
func formatEvent(event, data string) string {
	data = lineEndings.Replace(data)
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	for line := range strings.SplitSeq(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

// Send writes one event. Write failures are logged and returned but callers
// treat them as non-fatal.
func (s *sseWriter) Send(ctx context.Context, event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprint(s.w, formatEvent(event, data)); err != nil {
		if s.logger != nil {
			s.logger.Debug("SSE write failed", "event", event, "error", err)
		}
		return err
	}
	s.flusher.Flush()
	s.om.RecordSSEEvent(ctx, event)
	return nil
}
