package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/style.css
var styleCSS []byte

// views holds the parsed page and fragment templates
type views struct {
	tmpl *template.Template
}

type layoutData struct {
	ActiveTab string
	Content   template.HTML
}

type errorData struct {
	Title   string
	Message string
	Status  int
}

type streamData struct {
	StreamURL string
}

var viewFuncs = template.FuncMap{
	"dict":         dict,
	"join":         strings.Join,
	"joinNonEmpty": joinNonEmpty,
	"tone":         tone,
	"plural":       plural,
	"steps":        steps,
}

func loadViews() (*views, error) {
	tmpl, err := template.New("resumekit").Funcs(viewFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &views{tmpl: tmpl}, nil
}

// renderString executes a named template into a string
func (v *views) renderString(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// render writes a named template as an HTML response. The template is
// executed into a buffer first so a failure never leaves a half-written page.
func (v *views) render(w http.ResponseWriter, status int, name string, data any) error {
	body, err := v.renderString(name, data)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write([]byte(body))
	return err
}

// renderPage writes a fragment for htmx requests, or the fragment inside the
// full layout otherwise
func (v *views) renderPage(w http.ResponseWriter, r *http.Request, name, activeTab string, data any) error {
	if isHTMX(r) {
		return v.render(w, http.StatusOK, name, data)
	}
	content, err := v.renderString(name, data)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}
	return v.render(w, http.StatusOK, "layout", layoutData{ActiveTab: activeTab, Content: template.HTML(content)})
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// tone maps a score onto the green, amber and red palette
func tone(score, high, mid float64) string {
	switch {
	case score >= high:
		return "green"
	case score >= mid:
		return "amber"
	default:
		return "red"
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// steps returns the filled state of the three builder progress segments
func steps(current int) []bool {
	out := make([]bool, 3)
	for i := range out {
		out[i] = i < current
	}
	return out
}
