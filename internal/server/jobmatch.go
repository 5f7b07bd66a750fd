package server

import (
	"net/http"
	"strings"

	"resumekit/internal/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const msgJobMatchInputRequired = "Resume file and job description are required."

// handleJobMatch scores an uploaded resume against a job description
func (s *Server) handleJobMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("resumekit.api").Start(r.Context(), "api.job_match")
	defer span.End()

	if err := parseForm(r); err != nil {
		s.Logger.LogError(err, "Failed to parse job match form")
		writeErrorResponse(w, msgJobMatchInputRequired, http.StatusBadRequest)
		return
	}

	file, err := formDocument(r, "resume")
	if err != nil {
		s.Logger.LogError(err, "Failed to read uploaded resume")
		writeErrorResponse(w, msgJobMatchInputRequired, http.StatusBadRequest)
		return
	}
	jobDescription := r.FormValue("job_description")
	if file == nil || strings.TrimSpace(jobDescription) == "" {
		writeErrorResponse(w, msgJobMatchInputRequired, http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("resume.mime_type", file.MIMEType),
		attribute.Int("job_description.length", len(jobDescription)))

	result, err := s.jobs.MatchJob(ctx, file, jobDescription)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job match failed")
		writeErrorResponse(w, errors.UserMessage(err), http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.Float64("match.score", result.Score))
	if err := s.views.render(w, http.StatusOK, "job_results", result); err != nil {
		s.Logger.LogError(err, "Failed to render job match results")
	}
}
