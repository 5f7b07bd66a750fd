package cli

import (
	"context"
	"fmt"
	"time"

	"resumekit/internal/builder"
	"resumekit/internal/config"
	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/jobmatch"
	"resumekit/internal/llm"
	"resumekit/internal/observability"
	"resumekit/internal/pdfgen"
	"resumekit/internal/tasks"
)

// services is the object graph shared by every command
type services struct {
	om      *observability.Manager
	llm     *llm.Service
	tasks   *tasks.Service
	builder *builder.Service
	jobs    *jobmatch.Service
	logger  *errors.Logger
}

// providerFactory is swapped in tests
var providerFactory = llm.NewProviderFromConfig

func newServices(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*services, error) {
	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	om, err := observability.NewManager(cfg.Observability, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	provider, err := providerFactory(ctx, cfg.LLM, logger)
	if err != nil {
		shutdownObservability(om, logger)
		return nil, err
	}

	llmService := llm.NewService(provider, om, logger)
	taskService := tasks.NewService(llmService, cfg, om, logger)
	extractor := extract.New()

	return &services{
		om:      om,
		llm:     llmService,
		tasks:   taskService,
		builder: builder.NewService(taskService, extractor, pdfgen.NewRenderer(), om, logger),
		jobs:    jobmatch.NewService(taskService, extractor, logger),
		logger:  logger,
	}, nil
}

func (s *services) close() {
	shutdownObservability(s.om, s.logger)
}

func shutdownObservability(om *observability.Manager, logger *errors.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		logger.LogError(err, "Failed to shutdown observability")
	}
}
