// Package jobmatch compares an uploaded resume with a job description.
package jobmatch

import (
	"context"
	"strings"

	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/tasks"
)

// MsgResumeRequired is returned when no resume document is given
const MsgResumeRequired = "Resume file is required"

// Matcher is the subset of the task service used here
type Matcher interface {
	MatchJob(ctx context.Context, resumeText, jobDescription string) (*tasks.JobMatchResult, error)
}

// Service extracts resume text and scores it
type Service struct {
	matcher   Matcher
	extractor extract.Extractor
	logger    *errors.Logger
}

// NewService creates a job matcher. extractor defaults to the document extractor.
func NewService(matcher Matcher, extractor extract.Extractor, logger *errors.Logger) *Service {
	if extractor == nil {
		extractor = extract.New()
	}
	return &Service{matcher: matcher, extractor: extractor, logger: logger}
}

// MatchJob extracts the text of file and matches it against jobDescription
func (s *Service) MatchJob(ctx context.Context, file *extract.Document, jobDescription string) (*tasks.JobMatchResult, error) {
	if file == nil {
		return nil, errors.NewValidationError(errors.ErrCodeMissingInput, MsgResumeRequired, nil)
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingInput, "Job description is required", nil)
	}

	resumeText, err := s.extractor.Extract(ctx, *file)
	if err != nil {
		if s.logger != nil {
			s.logger.LogError(err, "Error extracting resume text", "filename", file.Filename, "mime_type", file.MIMEType)
		}
		return nil, errors.NewExtractionError(errors.ErrCodeExtractionFailed, extract.UserMessage(err), err)
	}

	return s.matcher.MatchJob(ctx, resumeText, jobDescription)
}
