package server

import (
	"net/http"
)

// page describes one navigable tool view
type page struct {
	template string
	tab      string
	// trigger is sent as HX-Trigger on htmx navigation
	trigger string
}

var (
	landingPage  = page{template: "landing", tab: "home"}
	matcherPage  = page{template: "job_matcher", tab: "matcher"}
	analyzerPage = page{template: "bullet_analyzer", tab: "analyzer", trigger: `{"setActiveTab":"analyzer"}`}
	builderPage  = page{template: "resume_builder", tab: "builder", trigger: `{"setActiveTab":"builder"}`}
)

func (s *Server) pageHandler(p page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.trigger != "" && isHTMX(r) {
			w.Header().Set("HX-Trigger", p.trigger)
		}
		if err := s.views.renderPage(w, r, p.template, p.tab, nil); err != nil {
			s.Logger.LogError(err, "Failed to render page", "page", p.template)
		}
	}
}

func (s *Server) handleStyle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(styleCSS)
}
