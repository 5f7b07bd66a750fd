package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"resumekit/internal/common"
	"resumekit/internal/errors"
	"resumekit/internal/llm"
	"resumekit/internal/observability"
	"resumekit/internal/tasks"

	"github.com/spf13/cobra"
)

func newBulletCmd() *cobra.Command {
	var (
		cmdConfig common.CommandConfig
		noStream  bool
	)

	cmd := &cobra.Command{
		Use:   `bullet "resume bullet point"`,
		Short: "Critique a single resume bullet point",
		Long: `Score one resume bullet on a 0-10 scale, explain the score and suggest
an improved version. Model output is streamed while it is generated, then
the parsed analysis is printed in the selected format.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return resolveFormat(cmd, &cmdConfig)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := fromContext(cmd)
			if err != nil {
				return err
			}
			svc, err := newServices(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer svc.close()

			var stream io.Writer = cmd.ErrOrStderr()
			if noStream {
				stream = io.Discard
			}
			analysis, err := analyzeBullet(cmd.Context(), svc.tasks, stream, args[0])
			if err != nil {
				return fmt.Errorf("failed to analyze bullet: %w", err)
			}
			svc.om.RecordBusinessMetric(cmd.Context(), observability.OpBulletAnalyzed, true)

			return common.NewOutputHandlerTo(cmd.OutOrStdout(), logger).HandleOutput(analysis, cmdConfig)
		},
	}

	addOutputFlags(cmd, &cmdConfig)
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Do not echo model output while it is generated")
	return cmd
}

// bulletAnalyzer is the part of tasks.Service the command needs
type bulletAnalyzer interface {
	AnalyzeBullet(ctx context.Context, bullet string) (<-chan llm.StreamToken, error)
}

// analyzeBullet echoes fragments to stream and parses the full reply
func analyzeBullet(ctx context.Context, analyzer bulletAnalyzer, stream io.Writer, bullet string) (*tasks.BulletAnalysis, error) {
	if strings.TrimSpace(bullet) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingInput, "Bullet point cannot be empty", nil)
	}

	tokens, err := analyzer.AnalyzeBullet(ctx, bullet)
	if err != nil {
		return nil, err
	}

	var full strings.Builder
	for tok := range tokens {
		if tok.Error != nil {
			return nil, tok.Error
		}
		if tok.Done {
			continue
		}
		full.WriteString(tok.Content)
		_, _ = io.WriteString(stream, tasks.CleanFences(tok.Content))
	}
	_, _ = io.WriteString(stream, "\n")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis, err := tasks.ParseBulletAnalysis(full.String())
	if err != nil {
		return nil, err
	}
	analysis.Original = bullet
	return analysis, nil
}
