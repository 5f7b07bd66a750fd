package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"resumekit/internal/builder"
	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/resume"
	"resumekit/internal/session"
)

const (
	parseStreamPath = "/api/resume/parse-stream"

	progressParsing    = "Parsing resume text... "
	progressExtracting = "✓ Parsing complete\nExtracting structured data... "
	progressGaps       = "✓ Extraction complete\nDetecting gaps... "
	progressReady      = "✓ Ready to review"

	completeHTML = `<div class="hidden" hx-on::load="htmx.ajax('GET', '/api/resume/gaps', { target: '#tool-content', swap: 'innerHTML', push: false })"></div>`
)

var workField = regexp.MustCompile(`^workExperience\[(\d+)\]\.(\w+)$`)

// sessionID returns the caller's session id, minting one when absent, and
// refreshes the cookie
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	id := ""
	if c, err := r.Cookie(s.CookieName); err == nil {
		id = strings.TrimSpace(c.Value)
	}
	if id == "" {
		id = session.NewID()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) renderError(w http.ResponseWriter, status int, title, message string) {
	if err := s.views.render(w, status, "error", errorData{Title: title, Message: message, Status: status}); err != nil {
		s.Logger.LogError(err, "Failed to render error component")
	}
}

// readResumeInput accepts JSON {"text"} or a urlencoded/multipart form with
// a "resume" file and/or "text" field
func readResumeInput(r *http.Request) (*extract.Document, string, error) {
	if mediaType(r) == "application/json" {
		var body struct {
			Text string `json:"text"`
		}
		if err := parseJSONRequest(r, &body); err != nil {
			return nil, "", err
		}
		return nil, body.Text, nil
	}

	if err := parseForm(r); err != nil {
		return nil, "", err
	}
	file, err := formDocument(r, "resume")
	if err != nil {
		return nil, "", err
	}
	return file, r.FormValue("text"), nil
}

// handleInitParse extracts the raw resume text and queues it for the parse stream
func (s *Server) handleInitParse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, text, err := readResumeInput(r)
	if err != nil {
		s.Logger.LogError(err, "Failed to read resume input")
		s.renderError(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if file == nil && strings.TrimSpace(text) == "" {
		s.renderError(w, http.StatusBadRequest, "No Input", "Please upload a resume file or paste resume text.")
		return
	}

	id := s.sessionID(w, r)
	if existing, err := s.sessions.Get(ctx, id); err == nil && existing.InProgress {
		s.renderError(w, http.StatusTooManyRequests, "Already Parsing", session.ErrParseInProgress.Error())
		return
	}

	resumeText, err := s.builder.ParseResume(ctx, file, text)
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, "Parse Error", errors.UserMessage(err))
		return
	}

	if err := s.sessions.BeginParse(ctx, id, resumeText); err != nil {
		if stderrors.Is(err, session.ErrParseInProgress) {
			s.renderError(w, http.StatusTooManyRequests, "Already Parsing", err.Error())
			return
		}
		s.Logger.LogError(err, "Failed to store resume session", "session_id", id)
		s.renderError(w, http.StatusInternalServerError, "Parse Error", "Failed to start resume parsing")
		return
	}

	if err := s.views.render(w, http.StatusOK, "parse_loader", streamData{StreamURL: parseStreamPath}); err != nil {
		s.Logger.LogError(err, "Failed to render parse loader")
	}
}

// handleParseStream runs the extraction queued by init-parse and reports
// progress over SSE
func (s *Server) handleParseStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := s.sessionID(w, r)

	sse, err := newSSEWriter(w, s.om, s.Logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sess, err := s.sessions.Get(ctx, id)
	if err != nil || sess.ResumeText == "" {
		_ = sse.Send(ctx, eventError, builder.MsgInputRequired)
		return
	}

	stop := s.startHeartbeat(ctx, sse)
	defer stop()

	result, err := s.extractWithProgress(ctx, sse, sess.ResumeText)
	if saveErr := s.finishParse(ctx, id, result); saveErr != nil {
		s.Logger.LogError(saveErr, "Failed to save parsed resume", "session_id", id)
		if err == nil {
			err = errors.NewInternalError(errors.ErrCodeSessionStoreFailed, "Failed to save parsed resume", saveErr)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			s.Logger.Debug("Parse stream cancelled by client", "session_id", id)
			return
		}
		_ = sse.Send(ctx, eventError, parseErrorHTML(errors.UserMessage(err)))
		return
	}

	_ = sse.Send(ctx, eventProgress, progressReady)
	_ = sse.Send(ctx, eventComplete, completeHTML)
}

func (s *Server) extractWithProgress(ctx context.Context, sse *sseWriter, resumeText string) (*resume.ExtractionResult, error) {
	_ = sse.Send(ctx, eventProgress, progressParsing)
	_ = sse.Send(ctx, eventProgress, progressExtracting)

	result, err := s.builder.ExtractResumeData(ctx, resumeText)
	if err != nil {
		return nil, err
	}

	_ = sse.Send(ctx, eventProgress, progressGaps)
	return result, nil
}

// finishParse clears the in-progress marker and stores result when present.
// It runs even after the client went away so the session never stays locked.
func (s *Server) finishParse(ctx context.Context, id string, result *resume.ExtractionResult) error {
	ctx = context.WithoutCancel(ctx)

	_, err := s.sessions.Update(ctx, id, func(sess *session.Session) error {
		sess.InProgress = false
		sess.ResumeText = ""
		if result != nil {
			sess.Resume = result.Resume
			sess.Gaps = result.Gaps
			sess.ExtractionNotes = result.ExtractionNotes
		}
		return nil
	})
	if stderrors.Is(err, session.ErrNotFound) && result != nil {
		return s.sessions.Save(ctx, id, &session.Session{
			Resume:          result.Resume,
			Gaps:            result.Gaps,
			ExtractionNotes: result.ExtractionNotes,
			UpdatedAt:       time.Now(),
		})
	}
	if stderrors.Is(err, session.ErrNotFound) {
		return nil
	}
	return err
}

// startHeartbeat pings the client until the returned stop function is called
func (s *Server) startHeartbeat(ctx context.Context, sse *sseWriter) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = sse.Send(ctx, eventPing, "💓")
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func parseErrorHTML(message string) string {
	return fmt.Sprintf(`<div class="p-4 border border-red-400 bg-red-50 rounded-lg text-red-700"><strong>Error:</strong> %s</div>`,
		html.EscapeString(message))
}

func startOverHTML(message string) string {
	return fmt.Sprintf(`<div class="p-4 border border-red-400 bg-red-50 rounded-lg text-red-700"><strong>Error:</strong> %s. Please <a href="/tools/resume-builder" class="underline">start over</a>.</div>`,
		html.EscapeString(message))
}

// lookupSession fetches the caller's session. A nil session with a nil error
// means there is none.
func (s *Server) lookupSession(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if stderrors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return sess, err
}

// handleResumeState returns the session as JSON
func (s *Server) handleResumeState(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	sess, err := s.lookupSession(r.Context(), id)
	if err != nil {
		s.Logger.LogError(err, "Failed to load resume session", "session_id", id)
		writeErrorResponse(w, "Failed to load resume session", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		writeErrorResponse(w, session.ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resume":          sess.Resume,
		"gaps":            sess.Gaps,
		"extractionNotes": sess.ExtractionNotes,
	})
}

// handleResumeGaps renders the gap review form
func (s *Server) handleResumeGaps(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	sess, err := s.lookupSession(r.Context(), id)
	if err != nil {
		s.Logger.LogError(err, "Failed to load resume session", "session_id", id)
		writeHTML(w, http.StatusInternalServerError, parseErrorHTML("Failed to load resume session"))
		return
	}
	if sess == nil {
		writeHTML(w, http.StatusNotFound, startOverHTML(session.ErrNotFound.Error()))
		return
	}

	if err := s.views.render(w, http.StatusOK, "resume_gaps", sess); err != nil {
		s.Logger.LogError(err, "Failed to render gaps view")
	}
}

// readResumeUpdate returns a function producing the update against the
// stored resume. JSON bodies carry {"updates": {...}}; forms carry the
// flattened field names of the gaps view.
func readResumeUpdate(r *http.Request) (func(resume.ParsedResume) resume.Update, error) {
	if mediaType(r) == "application/json" {
		var body struct {
			Updates resume.Update `json:"updates"`
		}
		if err := parseJSONRequest(r, &body); err != nil {
			return nil, err
		}
		return func(resume.ParsedResume) resume.Update { return body.Updates }, nil
	}

	if err := parseForm(r); err != nil {
		return nil, err
	}
	form := r.Form
	return func(base resume.ParsedResume) resume.Update { return updateFromForm(form, base) }, nil
}

// updateFromForm maps the gaps form onto an Update. Work entries are edited
// in place on a copy of base since list fields replace wholesale.
func updateFromForm(form url.Values, base resume.ParsedResume) resume.Update {
	var u resume.Update

	pi := &resume.PersonalInfoUpdate{}
	fields := map[string]**string{
		"personalInfo.name":     &pi.Name,
		"personalInfo.email":    &pi.Email,
		"personalInfo.phone":    &pi.Phone,
		"personalInfo.location": &pi.Location,
		"personalInfo.linkedin": &pi.LinkedIn,
		"personalInfo.website":  &pi.Website,
	}
	for key, target := range fields {
		if vals, ok := form[key]; ok && len(vals) > 0 {
			v := strings.TrimSpace(vals[0])
			*target = &v
			u.PersonalInfo = pi
		}
	}

	if vals, ok := form["summary"]; ok && len(vals) > 0 {
		v := strings.TrimSpace(vals[0])
		u.Summary = &v
	}
	if vals, ok := form["skills"]; ok && len(vals) > 0 {
		u.Skills = splitList(vals[0], ",")
	}

	work := base.Clone().WorkExperience
	touched := false
	for key, vals := range form {
		m := workField.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		i, err := strconv.Atoi(m[1])
		if err != nil || i >= len(work) {
			continue
		}
		v := strings.TrimSpace(vals[0])
		switch m[2] {
		case "company":
			work[i].Company = v
		case "title":
			work[i].Title = v
		case "startDate":
			work[i].StartDate = v
		case "endDate":
			work[i].EndDate = v
		case "teamSize":
			work[i].TeamSize = resume.FlexString(v)
		case "achievements":
			work[i].Achievements = splitList(v, "\n")
		default:
			continue
		}
		touched = true
	}
	if touched {
		u.WorkExperience = work
	}

	return u
}

func splitList(s, sep string) []string {
	out := []string{}
	for part := range strings.SplitSeq(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// handleResumeUpdate merges user edits into the stored resume
func (s *Server) handleResumeUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := s.sessionID(w, r)

	makeUpdate, err := readResumeUpdate(r)
	if err != nil {
		s.Logger.LogError(err, "Failed to read resume update", "session_id", id)
		writeErrorResponse(w, builder.MsgInvalidResume, http.StatusBadRequest)
		return
	}

	sess, err := s.sessions.Update(ctx, id, func(sess *session.Session) error {
		merged, err := s.builder.FillGaps(sess.Resume, makeUpdate(sess.Resume))
		if err != nil {
			return err
		}
		sess.Resume = merged
		return nil
	})
	switch {
	case stderrors.Is(err, session.ErrNotFound):
		writeErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	case errors.IsType(err, errors.ErrorTypeSchema):
		writeErrorResponse(w, errors.UserMessage(err), http.StatusBadRequest)
		return
	case err != nil:
		s.Logger.LogError(err, "Failed to update resume session", "session_id", id)
		writeErrorResponse(w, errors.UserMessage(err), errors.HTTPStatus(err))
		return
	}

	if isHTMX(r) {
		if err := s.views.render(w, http.StatusOK, "update_saved", sess.Resume); err != nil {
			s.Logger.LogError(err, "Failed to render update confirmation")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "resume": sess.Resume})
}

// handleResumePreview renders the read-only preview with the download button
func (s *Server) handleResumePreview(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	sess, err := s.lookupSession(r.Context(), id)
	if err != nil {
		s.Logger.LogError(err, "Failed to load resume session", "session_id", id)
		s.renderError(w, http.StatusInternalServerError, "Preview Error", "Failed to load resume session")
		return
	}
	if sess == nil {
		s.renderError(w, http.StatusNotFound, "No Resume", "Please parse a resume first.")
		return
	}

	if err := s.views.render(w, http.StatusOK, "resume_preview", sess.Resume); err != nil {
		s.Logger.LogError(err, "Failed to render resume preview")
	}
}

// handleResumeDownload renders the PDF and ends the session
func (s *Server) handleResumeDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := s.sessionID(w, r)

	sess, err := s.lookupSession(ctx, id)
	if err != nil {
		s.Logger.LogError(err, "Failed to load resume session", "session_id", id)
		writeErrorResponse(w, "Failed to load resume session", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		writeErrorResponse(w, session.ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	pdf, err := s.builder.GeneratePDF(ctx, sess.Resume)
	if err != nil {
		writeErrorResponse(w, errors.UserMessage(err), errors.HTTPStatus(err))
		return
	}

	if err := s.sessions.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.Logger.LogError(err, "Failed to clear resume session", "session_id", id)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", ContentDispositionAttachment(sess.Resume.PersonalInfo.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		s.Logger.Debug("Failed to write PDF response", "error", err)
	}
}

// handleGenerateBullets drafts achievement bullets for one work entry
func (s *Server) handleGenerateBullets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := s.sessionID(w, r)

	if err := parseForm(r); err != nil {
		writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}

	sess, err := s.lookupSession(ctx, id)
	if err != nil {
		s.Logger.LogError(err, "Failed to load resume session", "session_id", id)
		writeErrorResponse(w, "Failed to load resume session", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		writeErrorResponse(w, session.ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	index, err := strconv.Atoi(strings.TrimSpace(r.FormValue("index")))
	if err != nil || index < 0 || index >= len(sess.Resume.WorkExperience) {
		writeErrorResponse(w, "Invalid work experience index", http.StatusBadRequest)
		return
	}

	entry := sess.Resume.WorkExperience[index]
	company := strings.TrimSpace(r.FormValue("company"))
	if company == "" {
		company = entry.Company
	}

	bullets, err := s.builder.GenerateBullets(ctx, entry, company)
	if err != nil {
		writeErrorResponse(w, errors.UserMessage(err), http.StatusInternalServerError)
		return
	}

	if isHTMX(r) {
		if err := s.views.render(w, http.StatusOK, "bullets_generated", bullets); err != nil {
			s.Logger.LogError(err, "Failed to render generated bullets")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bullets": bullets})
}
