// Package tasks turns domain requests into LLM prompts and validated results.
package tasks

import (
	"context"
	"strings"
	"time"

	"resumekit/internal/config"
	"resumekit/internal/errors"
	"resumekit/internal/jsonresp"
	"resumekit/internal/llm"
	"resumekit/internal/observability"
	"resumekit/internal/resume"
)

// BulletAnalysis is the model's verdict on one resume bullet
type BulletAnalysis struct {
	Original string  `json:"original,omitempty"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	Improved string  `json:"improved"`
}

// JobMatchResult is the model's comparison of a resume with a job description
type JobMatchResult struct {
	Score           float64  `json:"score"`
	Strengths       []string `json:"strengths"`
	Gaps            []string `json:"gaps"`
	Recommendations []string `json:"recommendations"`
}

type bulletsResponse struct {
	Bullets []string `json:"bullets"`
}

func (b *bulletsResponse) ApplyDefaults() {
	if b.Bullets == nil {
		b.Bullets = []string{}
	}
}

// PromptSource supplies system prompt overrides. *config.Config implements it.
type PromptSource interface {
	SystemPrompts() config.LoadedPrompts
}

// Service runs the four LLM tasks
type Service struct {
	llm     *llm.Service
	prompts PromptSource
	om      *observability.Manager
	logger  *errors.Logger
}

// NewService creates a task service. prompts and om may be nil.
func NewService(llmService *llm.Service, prompts PromptSource, om *observability.Manager, logger *errors.Logger) *Service {
	return &Service{llm: llmService, prompts: prompts, om: om, logger: logger}
}

func (s *Service) systemPrompts() config.LoadedPrompts {
	var overrides config.LoadedPrompts
	if s.prompts != nil {
		overrides = s.prompts.SystemPrompts()
	}
	return config.LoadedPrompts{
		MatchJob:        resolvePrompt(overrides.MatchJob, DefaultSystemPrompts.MatchJob),
		AnalyzeBullet:   resolvePrompt(overrides.AnalyzeBullet, DefaultSystemPrompts.AnalyzeBullet),
		ExtractResume:   resolvePrompt(overrides.ExtractResume, DefaultSystemPrompts.ExtractResume),
		GenerateBullets: resolvePrompt(overrides.GenerateBullets, DefaultSystemPrompts.GenerateBullets),
	}
}

// MatchJob scores resumeText against jobDescription
func (s *Service) MatchJob(ctx context.Context, resumeText, jobDescription string) (*JobMatchResult, error) {
	start := time.Now()
	raw, err := s.llm.Prompt(ctx, matchJobPrompt(resumeText, jobDescription), s.systemPrompts().MatchJob)
	if err != nil {
		return nil, s.fail(ctx, observability.OpJobMatched, err)
	}

	result, err := jsonresp.Parse[JobMatchResult](raw, jsonresp.Options{})
	if err != nil {
		return nil, s.fail(ctx, observability.OpJobMatched, err)
	}

	s.succeed(ctx, observability.OpJobMatched, start, "score", result.Score)
	return &result, nil
}

// AnalyzeBullet streams the raw model output for one bullet
func (s *Service) AnalyzeBullet(ctx context.Context, bullet string) (<-chan llm.StreamToken, error) {
	tokens, err := s.llm.PromptStream(ctx, analyzeBulletPrompt(bullet), s.systemPrompts().AnalyzeBullet)
	if err != nil {
		return nil, s.fail(ctx, observability.OpBulletAnalyzed, err)
	}
	s.debug("Bullet analysis stream opened", "bullet_length", len(bullet))
	return tokens, nil
}

// ExtractResumeData extracts a validated resume and its gaps from plain text
func (s *Service) ExtractResumeData(ctx context.Context, resumeText string) (*resume.ExtractionResult, error) {
	start := time.Now()
	raw, err := s.llm.Prompt(ctx, extractResumePrompt(resumeText), s.systemPrompts().ExtractResume)
	if err != nil {
		return nil, s.fail(ctx, observability.OpResumeExtracted, err)
	}

	result, err := jsonresp.Parse[resume.ExtractionResult](raw, jsonresp.Strict(resume.Validator()))
	if err != nil {
		return nil, s.fail(ctx, observability.OpResumeExtracted, err)
	}

	s.succeed(ctx, observability.OpResumeExtracted, start,
		"work_entries", len(result.Resume.WorkExperience),
		"gaps", len(result.Gaps))
	return &result, nil
}

// GenerateAchievementBullets drafts XYZ bullets for one position
func (s *Service) GenerateAchievementBullets(ctx context.Context, experience resume.WorkExperience) ([]string, error) {
	start := time.Now()
	description := strings.Join(experience.Achievements, "; ")
	if description == "" {
		description = "General job responsibilities"
	}

	prompt := generateBulletsPrompt(experience.Title, experience.Company, description)
	raw, err := s.llm.Prompt(ctx, prompt, s.systemPrompts().GenerateBullets)
	if err != nil {
		return nil, s.fail(ctx, observability.OpBulletsGenerated, err)
	}

	result, err := jsonresp.Parse[bulletsResponse](raw, jsonresp.Strict(nil))
	if err != nil {
		return nil, s.fail(ctx, observability.OpBulletsGenerated, err)
	}

	s.succeed(ctx, observability.OpBulletsGenerated, start, "bullets", len(result.Bullets))
	return result.Bullets, nil
}

func (s *Service) fail(ctx context.Context, operation string, err error) error {
	s.om.RecordBusinessMetric(ctx, operation, false)
	if s.logger != nil {
		s.logger.LogError(err, "LLM task failed", "operation", operation)
	}
	return err
}

func (s *Service) succeed(ctx context.Context, operation string, start time.Time, args ...any) {
	s.om.RecordBusinessMetric(ctx, operation, true)
	s.debug("LLM task completed", append([]any{"operation", operation, "duration", time.Since(start)}, args...)...)
}

func (s *Service) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
