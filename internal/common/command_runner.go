package common

import (
	"context"
	"fmt"
	"io"

	"resumekit/internal/errors"
	"resumekit/internal/extract"
)

// CreateInputFunc builds the operation input from the documents named on the command line
type CreateInputFunc[Input any] func(ctx context.Context, docs []extract.Document) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc runs the service call behind a command
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunFileCommand reads the given files, runs operation and writes its formatted result
func RunFileCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	stdout io.Writer,
	cmdConfig CommandConfig,
	files []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandlerTo(stdout, logger)

	// Fail before the model call when the output cannot be written.
	if err := fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	docs, err := fileProcessor.ValidateAndReadFiles(files...)
	if err != nil {
		return err
	}

	input, err := createInput(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
