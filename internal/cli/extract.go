package cli

import (
	"context"
	"fmt"
	"io"

	"resumekit/internal/common"
	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/resume"
	"resumekit/internal/utils"

	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	var (
		cmdConfig  common.CommandConfig
		resumeFile string
	)

	cmd := &cobra.Command{
		Use:   "extract --resume FILE",
		Short: "Extract a structured resume and report its gaps",
		Long: `Extract personal info, work experience, education, skills and
certifications from a resume (PDF, DOCX or plain text) and list the
information worth adding.`,
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

			return runExtract(cmd.Context(), svc.builder, logger, cmd.OutOrStdout(), cmdConfig, resumeFile)
		},
	}

	cmd.Flags().StringVar(&resumeFile, "resume", "", "Resume file (PDF, DOCX or text)")
	addOutputFlags(cmd, &cmdConfig)
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}

// resumeExtractor is the part of builder.Service the command needs
type resumeExtractor interface {
	ParseResume(ctx context.Context, file *extract.Document, text string) (string, error)
	ExtractResumeData(ctx context.Context, resumeText string) (*resume.ExtractionResult, error)
}

func runExtract(ctx context.Context, b resumeExtractor, logger *errors.Logger, stdout io.Writer, cmdConfig common.CommandConfig, resumeFile string) error {
	createInput := func(ctx context.Context, docs []extract.Document) (string, error) {
		doc := docs[0]
		if utils.IsDocumentFile(doc.Filename) {
			return b.ParseResume(ctx, &doc, "")
		}
		return b.ParseResume(ctx, nil, string(doc.Data))
	}

	logDetails := func(text string, cfg common.CommandConfig) {
		logger.Info("Starting resume extraction",
			"resume_chars", len(text),
			"output_format", cfg.OutputFormat)
	}

	if err := common.RunFileCommand(ctx, logger, stdout, cmdConfig, []string{resumeFile}, createInput, b.ExtractResumeData, logDetails); err != nil {
		return fmt.Errorf("failed to extract resume: %w", err)
	}
	logger.Info("Resume extraction completed successfully")
	return nil
}
