package server

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxDownloadBaseName = 100

var (
	lineBreaks    = regexp.MustCompile(`[\r\n]+`)
	controlChars  = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	reservedChars = regexp.MustCompile(`["\\/<>|:*?]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// sanitizeBaseName makes a user supplied name safe for use in a filename
func sanitizeBaseName(raw string) string {
	const fallback = "resume"
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback
	}

	s = lineBreaks.ReplaceAllString(s, " ")
	s = controlChars.ReplaceAllString(s, "")
	s = reservedChars.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ", "_")
	if utf8.RuneCountInString(s) > maxDownloadBaseName {
		s = string([]rune(s)[:maxDownloadBaseName])
	}
	s = strings.Trim(s, "_")

	if s == "" {
		return fallback
	}
	return s
}

// asciiOnly keeps printable ASCII for the plain filename parameter
func asciiOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 0x20 && c <= 0x7E {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// encodeRFC5987 percent-encodes every byte outside the RFC 5987 attr-char set
// that URI components leave bare
func encodeRFC5987(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreservedByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}

// ContentDispositionAttachment builds the download header for a resume PDF
// named after name
func ContentDispositionAttachment(name string) string {
	final := sanitizeBaseName(name) + "_resume.pdf"
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiOnly(final), encodeRFC5987(final))
}
