package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"resumekit/internal/builder"
	"resumekit/internal/config"
	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/jobmatch"
	"resumekit/internal/llm"
	"resumekit/internal/llm/llmtest"
	"resumekit/internal/pdfgen"
	"resumekit/internal/resume/resumetest"
	"resumekit/internal/session"
	"resumekit/internal/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extractionReply = `{
  "resume": {
    "personalInfo": {"name": "Jane Doe", "email": "jane@example.com", "phone": "", "location": "", "linkedin": "", "website": ""},
    "summary": "",
    "workExperience": [{"company": "Acme", "title": "Engineer", "startDate": "2019", "endDate": "", "current": true, "teamSize": "", "achievements": ["Built things"], "technologies": []}],
    "education": [],
    "skills": ["Go"],
    "certifications": []
  },
  "gaps": [{"section": "summary", "field": "summary", "message": "Add a professional summary"}],
  "extractionNotes": ""
}`

type testServer struct {
	*Server
	store    *session.MemoryStore
	provider llm.Provider
}

type serverOption func(*config.Config)

func newTestServer(t *testing.T, provider llm.Provider, opts ...serverOption) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:          "127.0.0.1",
			Port:          "0",
			MaxUploadSize: 10 << 20,
		},
		Session: config.SessionConfig{
			Backend:           "memory",
			TTL:               time.Hour,
			CookieName:        "resumeSessionId",
			HeartbeatInterval: time.Hour,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := errors.NewLogger(slog.LevelError)
	llmService := llm.NewService(provider, nil, logger)
	taskService := tasks.NewService(llmService, nil, nil, logger)
	extractor := extract.New()
	store := session.NewMemoryStore(cfg.Session.TTL, nil)

	srv, err := NewServer(cfg, "test", Deps{
		LLM:      llmService,
		Tasks:    taskService,
		Builder:  builder.NewService(taskService, extractor, pdfgen.NewRenderer(), nil, logger),
		JobMatch: jobmatch.NewService(taskService, extractor, logger),
		Sessions: store,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &testServer{Server: srv, store: store, provider: provider}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func withCookie(req *http.Request, id string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "resumeSessionId", Value: id})
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBulletStreamRendersResult(t *testing.T) {
	fragments := []string{"```json\n", `{"score": 8,`, ` "feedback": "Strong verb",`, ` "improved": "Led 5 engineers"}`, "\n```"}
	ts := newTestServer(t, llmtest.NewStreamer(llmtest.Reply{Fragments: fragments}))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/bullet/stream?bullet="+url.QueryEscape("Led a team"), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: token\n")
	assert.Contains(t, body, "&#34;score&#34;: 8,")
	assert.NotContains(t, body, "```")
	assert.Equal(t, 1, strings.Count(body, "event: result\n"))
	assert.Contains(t, body, "8/10")
	assert.Contains(t, body, "Led 5 engineers")
	assert.Less(t, strings.LastIndex(body, "event: token"), strings.Index(body, "event: result"))
}

func TestBulletStreamProviderError(t *testing.T) {
	ts := newTestServer(t, llmtest.NewStreamer(llmtest.Reply{Fragments: []string{`{"score"`}, StreamErr: streamError("upstream reset")}))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/bullet/stream?bullet=x", nil))

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event: result\n"))
	assert.Contains(t, body, "Error:")
}

func TestBulletEmptyInput(t *testing.T) {
	ts := newTestServer(t, llmtest.NewStreamer())

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/bullet/stream?bullet=", nil),
		formRequest(http.MethodPost, "/api/bullet/init", url.Values{"bullet": {"   "}}),
	} {
		rec := ts.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "cannot be empty")
	}
}

func TestBulletInitRendersStreamURL(t *testing.T) {
	ts := newTestServer(t, llmtest.NewStreamer())

	rec := ts.do(formRequest(http.MethodPost, "/api/bullet/init", url.Values{"bullet": {"Led a team & shipped"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/bullet/stream?bullet=Led+a+team+%26+shipped")
	assert.Contains(t, rec.Body.String(), "sse-connect")
}

func TestJobMatchUnsupportedUpload(t *testing.T) {
	p := llmtest.NewProvider()
	ts := newTestServer(t, p)

	req := multipartRequest(t, "/api/job/match", map[string]string{"job_description": "Go developer"},
		"resume", "resume.txt", "text/plain", []byte("plain text resume"))
	rec := ts.do(req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to extract text from the resume file."}`, rec.Body.String())
	assert.Equal(t, 0, p.Calls())
}

func TestJobMatchMissingInput(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())

	req := multipartRequest(t, "/api/job/match", map[string]string{"job_description": "Go developer"}, "", "", "", nil)
	rec := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Resume file and job description are required."}`, rec.Body.String())
}

func TestResumeBuilderFlow(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider(llmtest.Reply{Content: extractionReply}))
	const id = "session-flow"

	rec := ts.do(withCookie(jsonRequest(http.MethodPost, "/api/resume/init-parse", map[string]string{"text": "Jane Doe, Engineer at Acme"}), id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), parseStreamPath)

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, parseStreamPath, nil), id))
	body := rec.Body.String()
	last := -1
	for _, frame := range []string{
		formatEvent(eventProgress, progressParsing),
		formatEvent(eventProgress, progressExtracting),
		formatEvent(eventProgress, progressGaps),
		formatEvent(eventProgress, progressReady),
		"event: complete\n",
	} {
		idx := strings.Index(body, frame)
		require.GreaterOrEqual(t, idx, 0, "missing frame %q in %q", frame, body)
		assert.Greater(t, idx, last, "frame %q out of order", frame)
		last = idx
	}
	assert.Equal(t, 4, strings.Count(body, "event: progress\n"))

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/api/resume/state", nil), id))
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Resume struct {
			PersonalInfo struct {
				Name string `json:"name"`
			} `json:"personalInfo"`
		} `json:"resume"`
		Gaps []map[string]any `json:"gaps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Jane Doe", state.Resume.PersonalInfo.Name)
	assert.Len(t, state.Gaps, 1)

	rec = ts.do(withCookie(jsonRequest(http.MethodPut, "/api/resume/update", map[string]any{
		"updates": map[string]any{"summary": "Backend engineer"},
	}), id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Backend engineer")

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodPost, "/api/resume/download", nil), id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Jane_Doe_resume.pdf"; filename*=UTF-8''Jane_Doe_resume.pdf`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/api/resume/state", nil), id))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"No resume session found"}`, rec.Body.String())
}

func TestInitParseRejectedWhileInProgress(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider(llmtest.Reply{Content: extractionReply}))
	const id = "session-busy"
	require.NoError(t, ts.store.BeginParse(context.Background(), id, "first text"))

	rec := ts.do(withCookie(jsonRequest(http.MethodPost, "/api/resume/init-parse", map[string]string{"text": "second text"}), id))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	sess, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "first text", sess.ResumeText)
	assert.True(t, sess.InProgress)
}

func TestInitParseNoInput(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())

	rec := ts.do(jsonRequest(http.MethodPost, "/api/resume/init-parse", map[string]string{"text": "  "}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No Input")
}

func TestParseStreamWithoutSession(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())

	rec := ts.do(withCookie(httptest.NewRequest(http.MethodGet, parseStreamPath, nil), "unknown"))

	assert.Contains(t, rec.Body.String(), "event: error\ndata: "+builder.MsgInputRequired+"\n")
}

func TestParseStreamFailureReleasesSession(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider(llmtest.Reply{Content: "not json at all"}))
	const id = "session-fail"
	require.NoError(t, ts.store.BeginParse(context.Background(), id, "resume text"))

	rec := ts.do(withCookie(httptest.NewRequest(http.MethodGet, parseStreamPath, nil), id))

	assert.Contains(t, rec.Body.String(), "event: error\n")
	assert.NotContains(t, rec.Body.String(), "event: complete")
	sess, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, sess.InProgress)
}

func TestResumeUpdateWithoutSession(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())

	rec := ts.do(withCookie(jsonRequest(http.MethodPut, "/api/resume/update", map[string]any{"updates": map[string]any{}}), "nobody"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResumeUpdateRejectsInvalidResume(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())
	const id = "session-invalid"
	require.NoError(t, ts.store.Save(context.Background(), id, &session.Session{Resume: resumetest.Minimal()}))

	rec := ts.do(withCookie(jsonRequest(http.MethodPut, "/api/resume/update", map[string]any{
		"updates": map[string]any{"personalInfo": map[string]any{"name": ""}},
	}), id))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid resume data format"}`, rec.Body.String())
	sess, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Test User", sess.Resume.PersonalInfo.Name)
}

func TestResumeUpdateFromHTMXForm(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())
	const id = "session-form"
	require.NoError(t, ts.store.Save(context.Background(), id, &session.Session{Resume: resumetest.Minimal()}))

	req := formRequest(http.MethodPut, "/api/resume/update", url.Values{
		"personalInfo.name":             {"Ada Lovelace"},
		"summary":                       {"Mathematician"},
		"skills":                        {"Go, Analysis ,"},
		"workExperience[0].achievements": {"Wrote programs\n\nDesigned engines"},
	})
	req.Header.Set("HX-Request", "true")
	rec := ts.do(withCookie(req, id))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Changes saved for Ada Lovelace.")

	sess, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Mathematician", sess.Resume.Summary)
	assert.Equal(t, []string{"Go", "Analysis"}, sess.Resume.Skills)
	assert.Equal(t, []string{"Wrote programs", "Designed engines"}, sess.Resume.WorkExperience[0].Achievements)
	assert.Equal(t, "Acme", sess.Resume.WorkExperience[0].Company)
}

func TestGenerateBullets(t *testing.T) {
	p := llmtest.NewProvider(llmtest.Reply{Content: `{"bullets":["Cut costs 20% by caching"]}`})
	ts := newTestServer(t, p)
	const id = "session-bullets"
	require.NoError(t, ts.store.Save(context.Background(), id, &session.Session{Resume: resumetest.Minimal()}))

	rec := ts.do(withCookie(formRequest(http.MethodPost, "/api/resume/generate-bullets", url.Values{"index": {"0"}}), id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"bullets":["Cut costs 20% by caching"]}`, rec.Body.String())
	assert.Contains(t, p.LastRequest().Messages[1].Content, "Company: Acme")

	rec = ts.do(withCookie(formRequest(http.MethodPost, "/api/resume/generate-bullets", url.Values{"index": {"3"}}), id))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResumePreviewAndGapsWithoutSession(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())

	rec := ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/api/resume/preview", nil), "none"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please parse a resume first.")

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/api/resume/gaps", nil), "none"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "start over")
}

func TestSessionCookieAttributes(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/resume/state", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "resumeSessionId", c.Name)
	assert.NotEmpty(t, c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 3600, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/api/resume/state", nil), "existing-id"))
	assert.Equal(t, "existing-id", rec.Result().Cookies()[0].Value)
}

func TestPages(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), "AI-Powered Resume Tools")

	req := httptest.NewRequest(http.MethodGet, "/tools/bullet-analyzer", nil)
	req.Header.Set("HX-Request", "true")
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), "/api/bullet/init")
	assert.Equal(t, `{"setActiveTab":"analyzer"}`, rec.Header().Get("HX-Trigger"))

	req = httptest.NewRequest(http.MethodGet, "/tools/job-matcher", nil)
	req.Header.Set("HX-Request", "true")
	rec = ts.do(req)
	assert.Empty(t, rec.Header().Get("HX-Trigger"))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/style.css", nil))
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestHealthAndStats(t *testing.T) {
	ts := newTestServer(t, llmtest.NewStreamer())

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "resumekit", health["service"])
	llmInfo := health["llm"].(map[string]any)
	assert.Equal(t, "fake", llmInfo["provider"])
	assert.Equal(t, true, llmInfo["streaming"])

	require.NoError(t, ts.store.Save(context.Background(), "a", &session.Session{Resume: resumetest.Minimal()}))
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["sessions"].(map[string]any)["active"])
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider(), func(c *config.Config) {
		c.Server.APIKeys = []string{"secret-key-123"}
	})

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/resume/state", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Missing API key"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/resume/state", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = ts.do(req)
	assert.JSONEq(t, `{"error":"Invalid API key"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/resume/state", nil)
	req.Header.Set("Authorization", "Bearer secret-key-123")
	rec = ts.do(req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Pages stay public
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider(), func(c *config.Config) {
		c.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})
	t.Cleanup(ts.RateLimiter.Close)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/resume/state", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/resume/state", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, rec.Body.String())
}

func TestHeartbeat(t *testing.T) {
	ts := newTestServer(t, llmtest.NewProvider())
	ts.HeartbeatInterval = 5 * time.Millisecond

	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec, nil, ts.Logger)
	require.NoError(t, err)

	stop := ts.startHeartbeat(context.Background(), sse)
	time.Sleep(30 * time.Millisecond)
	stop()

	sse.mu.Lock()
	body := rec.Body.String()
	sse.mu.Unlock()
	assert.Contains(t, body, "event: ping\ndata: 💓\n\n")
}

func TestFormatEvent(t *testing.T) {
	assert.Equal(t, "event: token\ndata: hi\n\n", formatEvent("token", "hi"))
	assert.Equal(t, "event: progress\ndata: a\ndata: b\n\n", formatEvent("progress", "a\nb"))
	assert.Equal(t, "event: ping\ndata: \n\n", formatEvent("ping", ""))
	assert.Equal(t, "event: token\ndata: a\ndata: b\ndata: c\n\n", formatEvent("token", "a\r\nb\rc"))
	assert.NotContains(t, formatEvent("result", "x\ry"), "\r")
}

func TestSanitizeChunk(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n", `<span class="fade-in"></span>`},
		{`{"score": 6,`, `<span class="fade-in"> &#34;score&#34;: 6, </span>`},
		{"<b>", `<span class="fade-in">&lt;b&gt; </span>`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeChunk(tt.in))
	}
}

func TestUpdateFromFormIgnoresUnknownIndexes(t *testing.T) {
	base := resumetest.Minimal()
	u := updateFromForm(url.Values{"workExperience[7].company": {"Ghost"}}, base)

	assert.Nil(t, u.WorkExperience)
	assert.Nil(t, u.PersonalInfo)
	assert.Nil(t, u.Summary)
}

type streamError string

func (e streamError) Error() string { return string(e) }

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
