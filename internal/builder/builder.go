// Package builder implements the resume-builder workflow: turning an upload
// into text, extracting a structured resume, applying user edits and
// rendering the final PDF.
package builder

import (
	"context"
	stderrors "errors"
	"strings"

	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/observability"
	"resumekit/internal/resume"
)

// User facing failure messages
const (
	MsgInputRequired       = "Resume file or text is required"
	MsgExtractionFailed    = "Failed to extract resume information. Please try again."
	MsgInvalidResume       = "Invalid resume data format"
	MsgBulletsFailed       = "Failed to generate bullet points"
	MsgRendererUnavailable = "PDF generator service not available"
)

// Tasks is the subset of the task service the builder needs
type Tasks interface {
	ExtractResumeData(ctx context.Context, resumeText string) (*resume.ExtractionResult, error)
	GenerateAchievementBullets(ctx context.Context, experience resume.WorkExperience) ([]string, error)
}

// Renderer turns a resume into PDF bytes
type Renderer interface {
	Render(r resume.ParsedResume) ([]byte, error)
}

// Service runs the builder steps
type Service struct {
	tasks     Tasks
	extractor extract.Extractor
	renderer  Renderer
	om        *observability.Manager
	logger    *errors.Logger
}

// NewService creates a builder. renderer, om and logger may be nil.
func NewService(tasks Tasks, extractor extract.Extractor, renderer Renderer, om *observability.Manager, logger *errors.Logger) *Service {
	if extractor == nil {
		extractor = extract.New()
	}
	return &Service{tasks: tasks, extractor: extractor, renderer: renderer, om: om, logger: logger}
}

// ParseResume returns the resume text from an uploaded file, or the trimmed
// pasted text when no file was sent.
func (s *Service) ParseResume(ctx context.Context, file *extract.Document, text string) (string, error) {
	if file != nil {
		resumeText, err := s.extractor.Extract(ctx, *file)
		if err != nil {
			s.logError(err, "Error extracting resume text", "filename", file.Filename, "mime_type", file.MIMEType)
			return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, extract.UserMessage(err), err)
		}
		return resumeText, nil
	}

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return trimmed, nil
	}
	return "", errors.NewValidationError(errors.ErrCodeMissingInput, MsgInputRequired, nil)
}

// ExtractResumeData asks the model for a structured resume
func (s *Service) ExtractResumeData(ctx context.Context, resumeText string) (*resume.ExtractionResult, error) {
	result, err := s.tasks.ExtractResumeData(ctx, resumeText)
	if err == nil {
		err = result.Resume.Validate()
	}
	if err != nil {
		s.logError(err, "Error extracting resume data")
		if stderrors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errors.NewExtractionError(errors.ErrCodeLLMFailed, MsgExtractionFailed, err)
	}
	return result, nil
}

// FillGaps merges the user's edits into base and validates the result
func (s *Service) FillGaps(base resume.ParsedResume, updates resume.Update) (resume.ParsedResume, error) {
	merged := resume.Merge(base, updates)
	if err := merged.Validate(); err != nil {
		s.logError(err, "Error filling gaps")
		return resume.ParsedResume{}, errors.NewSchemaError(errors.ErrCodeValidationFailed, MsgInvalidResume, err)
	}
	return merged, nil
}

// GenerateBullets drafts achievement bullets for one position at company
func (s *Service) GenerateBullets(ctx context.Context, experience resume.WorkExperience, company string) ([]string, error) {
	experience.Company = company
	bullets, err := s.tasks.GenerateAchievementBullets(ctx, experience)
	if err != nil {
		s.logError(err, "Error generating bullets", "company", company)
		return nil, errors.NewInternalError(errors.ErrCodeLLMFailed, MsgBulletsFailed, err)
	}
	return bullets, nil
}

// GeneratePDF validates the resume and renders it
func (s *Service) GeneratePDF(ctx context.Context, r resume.ParsedResume) ([]byte, error) {
	if s.renderer == nil {
		return nil, errors.NewInternalError(errors.ErrCodeRenderFailed, MsgRendererUnavailable, nil)
	}

	validated := r.Clone()
	if err := validated.Validate(); err != nil {
		s.om.RecordBusinessMetric(ctx, observability.OpPDFDownloaded, false)
		return nil, errors.NewSchemaError(errors.ErrCodeValidationFailed, MsgInvalidResume, err)
	}

	data, err := s.renderer.Render(validated)
	if err != nil {
		s.om.RecordBusinessMetric(ctx, observability.OpPDFDownloaded, false)
		s.logError(err, "Error rendering resume PDF")
		return nil, err
	}
	s.om.RecordBusinessMetric(ctx, observability.OpPDFDownloaded, true)
	return data, nil
}

func (s *Service) logError(err error, msg string, args ...any) {
	if s.logger != nil {
		s.logger.LogError(err, msg, args...)
	}
}
