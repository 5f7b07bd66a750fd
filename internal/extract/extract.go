// Package extract pulls plain text out of uploaded resume documents.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Supported MIME types
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrNoFile is returned for an empty upload
	ErrNoFile = errors.New("Failed to extract text from the resume file. No file detected.")
	// ErrUnsupportedType is returned for anything but PDF and DOCX
	ErrUnsupportedType = errors.New("Unsupported file type. Please upload a PDF or DOCX file.")
	// ErrExtractionFailed is returned when a supported document cannot be read
	ErrExtractionFailed = errors.New("Failed to extract text from the resume file.")
)

// Error pairs one of the sentinel errors with its underlying cause
type Error struct {
	Kind  error
	Cause error
}

func (e *Error) Error() string { return e.Kind.Error() }

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Document is an uploaded file
type Document struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Extractor turns documents into text
type Extractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// DocumentExtractor extracts PDF and DOCX files
type DocumentExtractor struct{}

// New returns the default extractor
func New() *DocumentExtractor {
	return &DocumentExtractor{}
}

// Extract implements Extractor
func (DocumentExtractor) Extract(ctx context.Context, doc Document) (string, error) {
	return Text(ctx, doc.Filename, doc.MIMEType, doc.Data)
}

// Text extracts the text of a PDF or DOCX file. The MIME type comes from the
// upload; when it is missing or generic it is derived from the file extension.
func Text(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &Error{Kind: ErrNoFile}
	}
	if err := ctx.Err(); err != nil {
		return "", &Error{Kind: ErrExtractionFailed, Cause: err}
	}

	var (
		text string
		err  error
	)
	switch DetectType(filename, mimeType) {
	case MIMEPDF:
		text, err = pdfText(data)
	case MIMEDOCX:
		text, err = docxText(data)
	default:
		return "", &Error{Kind: ErrUnsupportedType, Cause: fmt.Errorf("unsupported file type: %q", mimeType)}
	}
	if err != nil {
		return "", &Error{Kind: ErrExtractionFailed, Cause: err}
	}
	return strings.TrimSpace(text), nil
}

// DetectType normalises the declared MIME type, falling back to the extension
func DetectType(filename, mimeType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if mediaType != "" && mediaType != "application/octet-stream" {
		return mediaType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MIMEPDF
	case ".docx":
		return MIMEDOCX
	}
	return mediaType
}

// UserMessage folds extraction failures into the message shown to users.
// Only an empty upload keeps its specific message.
func UserMessage(err error) string {
	if errors.Is(err, ErrNoFile) {
		return ErrNoFile.Error()
	}
	return ErrExtractionFailed.Error()
}
