package cli

import (
	"context"
	"fmt"
	"io"

	"resumekit/internal/common"
	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/tasks"

	"github.com/spf13/cobra"
)

type matchInput struct {
	resumeText     string
	jobDescription string
}

func newMatchCmd() *cobra.Command {
	var (
		cmdConfig  common.CommandConfig
		resumeFile string
		jobFile    string
	)

	cmd := &cobra.Command{
		Use:   "match --resume FILE --job FILE",
		Short: "Score a resume against a job description",
		Long: `Compare a resume (PDF, DOCX or plain text) with a job description and
report a match score with strengths, gaps and recommendations.`,
		Args: cobra.NoArgs,
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

			return runMatch(cmd.Context(), svc.tasks, logger, cmd.OutOrStdout(), cmdConfig, resumeFile, jobFile)
		},
	}

	cmd.Flags().StringVar(&resumeFile, "resume", "", "Resume file (PDF, DOCX or text)")
	cmd.Flags().StringVar(&jobFile, "job", "", "Job description file")
	addOutputFlags(cmd, &cmdConfig)
	_ = cmd.MarkFlagRequired("resume")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

// jobMatcher is the part of tasks.Service the command needs
type jobMatcher interface {
	MatchJob(ctx context.Context, resumeText, jobDescription string) (*tasks.JobMatchResult, error)
}

func runMatch(ctx context.Context, matcher jobMatcher, logger *errors.Logger, stdout io.Writer, cmdConfig common.CommandConfig, resumeFile, jobFile string) error {
	fp := common.NewFileProcessor(logger)

	createInput := func(ctx context.Context, docs []extract.Document) (matchInput, error) {
		resumeText, err := fp.DocumentText(ctx, docs[0])
		if err != nil {
			return matchInput{}, err
		}
		return matchInput{resumeText: resumeText, jobDescription: string(docs[1].Data)}, nil
	}

	logDetails := func(input matchInput, cfg common.CommandConfig) {
		logger.Info("Starting job match",
			"resume_chars", len(input.resumeText),
			"job_chars", len(input.jobDescription),
			"output_format", cfg.OutputFormat)
	}

	operation := func(ctx context.Context, input matchInput) (*tasks.JobMatchResult, error) {
		return matcher.MatchJob(ctx, input.resumeText, input.jobDescription)
	}

	if err := common.RunFileCommand(ctx, logger, stdout, cmdConfig, []string{resumeFile, jobFile}, createInput, operation, logDetails); err != nil {
		return fmt.Errorf("failed to match job: %w", err)
	}
	logger.Info("Job match completed successfully")
	return nil
}
