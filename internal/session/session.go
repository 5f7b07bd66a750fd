// Package session stores resume-builder sessions keyed by a cookie id.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumekit/internal/config"
	"resumekit/internal/observability"
	"resumekit/internal/resume"
)

// DefaultTTL is how long an untouched session lives
const DefaultTTL = 24 * time.Hour

var (
	// ErrNotFound is returned for absent or expired sessions
	ErrNotFound = errors.New("No resume session found")
	// ErrParseInProgress is returned by BeginParse while an extraction is running
	ErrParseInProgress = errors.New("A resume parse is already in progress. Please wait or refresh after it completes.")
)

// Session is the server-side state of one resume-builder user
type Session struct {
	Resume          resume.ParsedResume `json:"resume"`
	Gaps            []resume.Gap        `json:"gaps"`
	ExtractionNotes string              `json:"extractionNotes"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	ResumeText      string              `json:"resumeText,omitempty"`
	InProgress      bool                `json:"inProgress"`
}

// Clone returns a deep copy of s
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Resume = s.Resume.Clone()
	if s.Gaps != nil {
		out.Gaps = append(make([]resume.Gap, 0, len(s.Gaps)), s.Gaps...)
	}
	return &out
}

// Store persists sessions. Get, Update and BeginParse treat sessions older than
// the TTL as absent and remove them.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, id string, s *Session) error
	Delete(ctx context.Context, id string) error
	// BeginParse atomically rejects with ErrParseInProgress when a parse is
	// running, otherwise replaces the session with an empty one holding text.
	BeginParse(ctx context.Context, id, text string) error
	// Update applies fn to a copy of the session and stores the result only
	// when fn returns nil.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Close() error
}

// NewID returns a fresh session id of the form session_<unixms>_<hex>
func NewID() string {
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// newParsing returns the session stored by BeginParse
func newParsing(text string, now time.Time) *Session {
	return &Session{
		Resume:     resume.Empty(),
		Gaps:       []resume.Gap{},
		UpdatedAt:  now,
		ResumeText: text,
		InProgress: true,
	}
}

func expired(s *Session, now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}

// NewStore builds the backend selected in cfg
func NewStore(ctx context.Context, cfg config.SessionConfig, om *observability.Manager) (Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(ttl, om), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis, ttl)
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}
