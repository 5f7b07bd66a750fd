package tasks

import (
	"regexp"

	"resumekit/internal/jsonresp"
)

var (
	jsonFence    = regexp.MustCompile("```json\n?")
	anyFence     = regexp.MustCompile("```\n?")
	leadingJSONs = regexp.MustCompile(`^json\n`)
)

// CleanFences removes markdown fence markers anywhere in s. Streamed
// fragments split fences arbitrarily, so this works on partial text too.
func CleanFences(s string) string {
	s = jsonFence.ReplaceAllString(s, "")
	s = anyFence.ReplaceAllString(s, "")
	return leadingJSONs.ReplaceAllString(s, "")
}

// ParseBulletAnalysis decodes the accumulated output of AnalyzeBullet
func ParseBulletAnalysis(raw string) (*BulletAnalysis, error) {
	cleaned := CleanFences(jsonresp.StripFences(raw))

	analysis, err := jsonresp.Parse[BulletAnalysis](cleaned, jsonresp.Options{})
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}
