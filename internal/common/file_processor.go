package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads the raw content of a file
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	if fp.logger != nil {
		fp.logger.Debug("Read input file", "filename", filename, "size", utils.FormatFileSize(int64(len(content))))
	}
	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewInternalError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewInternalError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateAndReadFiles validates and reads input files as documents
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]extract.Document, error) {
	docs := make([]extract.Document, len(filenames))

	for i, filename := range filenames {
		if err := utils.ValidateInputFile(filename); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}

		if !utils.IsTextFile(filename) && !utils.IsDocumentFile(filename) && fp.logger != nil {
			fp.logger.Warn("File is neither text nor a PDF/DOCX document", "filename", filename)
		}

		content, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		docs[i] = extract.Document{
			Filename: filepath.Base(filename),
			MIMEType: extract.DetectType(filename, ""),
			Data:     content,
		}
	}

	return docs, nil
}

// DocumentText returns the text of doc. PDF and DOCX files are extracted,
// anything else is read as plain text.
func (fp *FileProcessor) DocumentText(ctx context.Context, doc extract.Document) (string, error) {
	if !utils.IsDocumentFile(doc.Filename) {
		return string(doc.Data), nil
	}
	text, err := extract.Text(ctx, doc.Filename, doc.MIMEType, doc.Data)
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, extract.UserMessage(err), err)
	}
	return text, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
