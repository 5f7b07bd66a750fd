package server

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"resumekit/internal/errors"
	"resumekit/internal/observability"
	"resumekit/internal/tasks"
)

const emptyBulletHTML = `<div class="error">Bullet point cannot be empty. Please provide a valid bullet point.</div>`

// handleBulletInit validates the bullet and returns the loading box that
// opens the analysis stream
func (s *Server) handleBulletInit(w http.ResponseWriter, r *http.Request) {
	bullet := r.FormValue("bullet")
	if strings.TrimSpace(bullet) == "" {
		writeHTML(w, http.StatusBadRequest, emptyBulletHTML)
		return
	}

	streamURL := "/api/bullet/stream?bullet=" + url.QueryEscape(bullet)
	if err := s.views.render(w, http.StatusOK, "bullet_loading", streamData{StreamURL: streamURL}); err != nil {
		s.Logger.LogError(err, "Failed to render bullet loading view")
	}
}

// handleBulletStream relays the model output as token events and finishes
// with exactly one result event
func (s *Server) handleBulletStream(w http.ResponseWriter, r *http.Request) {
	bullet := r.URL.Query().Get("bullet")
	if strings.TrimSpace(bullet) == "" {
		writeHTML(w, http.StatusBadRequest, emptyBulletHTML)
		return
	}

	ctx := r.Context()
	sse, err := newSSEWriter(w, s.om, s.Logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := s.streamBulletAnalysis(ctx, sse, bullet)
	if err != nil {
		if ctx.Err() != nil {
			s.Logger.Debug("Bullet stream cancelled by client", "error", ctx.Err())
			return
		}
		s.Logger.LogError(err, "Stream analysis error")
		_ = sse.Send(ctx, eventResult, bulletErrorHTML(errors.UserMessage(err)))
		return
	}

	body, err := s.views.renderString("bullet_result", result)
	if err != nil {
		s.Logger.LogError(err, "Failed to render bullet result")
		_ = sse.Send(ctx, eventResult, bulletErrorHTML("Failed to render analysis"))
		return
	}
	s.om.RecordBusinessMetric(ctx, observability.OpBulletAnalyzed, true)
	_ = sse.Send(ctx, eventResult, body)
}

func (s *Server) streamBulletAnalysis(ctx context.Context, sse *sseWriter, bullet string) (*tasks.BulletAnalysis, error) {
	tokens, err := s.tasks.AnalyzeBullet(ctx, bullet)
	if err != nil {
		return nil, err
	}

	var full strings.Builder
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case tok, ok := <-tokens:
			if !ok {
				return tasks.ParseBulletAnalysis(full.String())
			}
			if tok.Error != nil {
				return nil, tok.Error
			}
			if tok.Done {
				continue
			}
			full.WriteString(tok.Content)
			_ = sse.Send(ctx, eventToken, sanitizeChunk(tok.Content))
		}
	}
}

// sanitizeChunk turns a raw model fragment into a displayable token span.
// Fences and braces are hidden so the live stream reads as prose.
func sanitizeChunk(chunk string) string {
	cleaned := strings.NewReplacer("{", " ", "}", " ").Replace(tasks.CleanFences(chunk))

	if strings.TrimSpace(cleaned) != "" {
		cleaned += " "
	}
	return `<span class="fade-in">` + html.EscapeString(cleaned) + `</span>`
}

func bulletErrorHTML(message string) string {
	return fmt.Sprintf(`<div class="error p-4 border border-red-400 bg-red-50 rounded-lg"><strong>Error:</strong> %s<br><small>Check console for details</small></div>`,
		html.EscapeString(message))
}
