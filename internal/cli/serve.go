package cli

import (
	"context"
	"fmt"

	"resumekit/internal/config"
	"resumekit/internal/errors"
	"resumekit/internal/observability"
	"resumekit/internal/server"
	"resumekit/internal/session"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the resumekit web application",
		Long: `Start the HTTP server hosting the job matcher, the bullet analyzer and
the resume builder.

Pages:
- GET /, /tools/job-matcher, /tools/bullet-analyzer, /tools/resume-builder

API:
- POST /api/job/match: Score an uploaded resume against a job description
- POST /api/bullet/init, GET /api/bullet/stream: Stream a bullet critique (SSE)
- POST /api/resume/init-parse, GET /api/resume/parse-stream: Extract a resume (SSE)
- GET /api/resume/state, PUT /api/resume/update, POST /api/resume/download

Operations:
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	cmd.Flags().String("host", "", "Host to bind to (default from config)")
	cmd.Flags().String("session-backend", "", "Session backend: memory or redis (overrides config)")
	return cmd
}

// applyServeFlags copies explicitly set flags over the loaded config
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	overrides := map[string]*string{
		"port":            &cfg.Server.Port,
		"host":            &cfg.Server.Host,
		"session-backend": &cfg.Session.Backend,
	}
	for name, target := range overrides {
		if !cmd.Flags().Changed(name) {
			continue
		}
		value, err := cmd.Flags().GetString(name)
		if err != nil {
			return err
		}
		*target = value
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	store, err := session.NewStore(ctx, cfg.Session, svc.om)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	deps := server.Deps{
		LLM:           svc.llm,
		Tasks:         svc.tasks,
		Builder:       svc.builder,
		JobMatch:      svc.jobs,
		Sessions:      store,
		Observability: svc.om,
	}

	deps.PromptWatcher = newPromptWatcher(ctx, cfg, svc.om, logger)

	if cfg.Vault.Enabled && cfg.Vault.WatchInterval > 0 && cfg.Vault.Secrets.LLMAPIKey != "" {
		client, err := config.NewVaultClient(cfg.Vault, logger)
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to create vault client: %w", err)
		}
		if client != nil {
			deps.SecretWatcher = server.NewSecretWatcher(client, cfg.Vault.Secrets.LLMAPIKey,
				cfg.Vault.WatchInterval, cfg.LLM, svc.llm, providerFactory, logger)
		}
	}

	srv, err := server.NewServer(cfg, Version, deps, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	return srv.Start(ctx)
}

// newPromptWatcher returns nil unless prompts.watch is set and a prompt file is configured
func newPromptWatcher(ctx context.Context, cfg *config.Config, om *observability.Manager, logger *errors.Logger) *config.PromptWatcher {
	if !cfg.Prompts.Watch || len(cfg.PromptFiles()) == 0 {
		return nil
	}
	return config.NewPromptWatcher(cfg, func(config.LoadedPrompts) {
		om.RecordPromptReload(ctx, true)
	}, logger)
}
