package extract

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	docxParagraphProps = regexp.MustCompile(`(?s)<w:pPr(?:\s[^>]*)?>.*?</w:pPr>`)
	docxParagraphEnd   = regexp.MustCompile(`</w:p>`)
	docxBreak          = regexp.MustCompile(`<w:(br|cr)[^>]*/>`)
	docxTab            = regexp.MustCompile(`<w:tab[^>]*/>`)
	xmlTag             = regexp.MustCompile(`<[^>]+>`)
	blankLines         = regexp.MustCompile(`\n{3,}`)
)

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripDocumentXML(doc.Editable().GetContent()), nil
}

// stripDocumentXML reduces WordprocessingML to plain text, one paragraph per line
func stripDocumentXML(content string) string {
	// Tab stops in paragraph properties are layout, not text
	content = docxParagraphProps.ReplaceAllString(content, "")
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxBreak.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}
