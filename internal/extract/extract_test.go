package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>Ada Lovelace</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Engineer</w:t></w:r><w:r><w:tab/><w:t>R&amp;D</w:t></w:r></w:p>` +
	`</w:body></w:document>`

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func buildDocx(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"word/document.xml":            documentXML,
		"word/_rels/document.xml.rels": documentRels,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildPDF(t *testing.T, lines ...string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		doc.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestTextEmptyUpload(t *testing.T) {
	_, err := Text(context.Background(), "resume.pdf", MIMEPDF, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoFile))
	assert.Equal(t, "Failed to extract text from the resume file. No file detected.", UserMessage(err))
}

func TestTextUnsupportedType(t *testing.T) {
	_, err := Text(context.Background(), "resume.txt", "text/plain", []byte("hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.Equal(t, "Unsupported file type. Please upload a PDF or DOCX file.", err.Error())
	assert.Equal(t, "Failed to extract text from the resume file.", UserMessage(err))
}

func TestTextCorruptPDF(t *testing.T) {
	_, err := Text(context.Background(), "resume.pdf", MIMEPDF, []byte("%PDF-1.4 this is not really a pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
}

func TestTextCorruptDocx(t *testing.T) {
	_, err := Text(context.Background(), "resume.docx", MIMEDOCX, []byte("PK not a zip"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
}

func TestTextDocx(t *testing.T) {
	text, err := Text(context.Background(), "resume.docx", MIMEDOCX, buildDocx(t))
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace\nEngineer\tR&D", text)
}

func TestStripDocumentXMLIgnoresTabStops(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{
			name: "tab stop definitions",
			xml: `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>` +
				`<w:r><w:t>Skills</w:t></w:r><w:r><w:tab/><w:t>Go</w:t></w:r></w:p>`,
			want: "Skills\tGo\n",
		},
		{
			name: "empty properties",
			xml: `<w:p><w:pPr/><w:r><w:t>A</w:t></w:r></w:p>` +
				`<w:p><w:pPr w:rsidR="1"><w:tabs><w:tab w:pos="1"/></w:tabs></w:pPr><w:r><w:t>B</w:t></w:r></w:p>`,
			want: "A\nB\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripDocumentXML(tt.xml))
		})
	}
}

func TestTextPDF(t *testing.T) {
	text, err := Text(context.Background(), "resume.pdf", MIMEPDF, buildPDF(t, "Ada", "Engineer"))
	require.NoError(t, err)
	assert.Contains(t, text, "Ada")
	assert.Contains(t, text, "Engineer")
}

func TestTextCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Text(ctx, "resume.docx", MIMEDOCX, buildDocx(t))
	assert.True(t, errors.Is(err, ErrExtractionFailed))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		filename, mimeType, want string
	}{
		{"cv.pdf", "application/pdf", MIMEPDF},
		{"cv.pdf", "", MIMEPDF},
		{"cv.PDF", "application/octet-stream", MIMEPDF},
		{"cv.docx", "", MIMEDOCX},
		{"cv.bin", MIMEDOCX, MIMEDOCX},
		{"cv.pdf", "Application/PDF; name=cv.pdf", MIMEPDF},
		{"cv.txt", "text/plain", "text/plain"},
		{"cv", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectType(tt.filename, tt.mimeType), "%s %s", tt.filename, tt.mimeType)
	}
}

func TestExtractorInterface(t *testing.T) {
	var ex Extractor = New()
	text, err := ex.Extract(context.Background(), Document{Filename: "cv.docx", Data: buildDocx(t)})
	require.NoError(t, err)
	assert.Contains(t, text, "Ada Lovelace")
}
