package formatters

import (
	"encoding/json"
	"testing"

	"resumekit/internal/resume"
	"resumekit/internal/resume/resumetest"
	"resumekit/internal/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMatchFormats(t *testing.T) {
	result := &tasks.JobMatchResult{
		Score:           72,
		Strengths:       []string{"Go"},
		Gaps:            nil,
		Recommendations: []string{"Learn Kubernetes"},
	}

	text, err := GlobalRegistry.Format(result, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Score: 72%")
	assert.Contains(t, text, "  - Go\n")
	assert.Contains(t, text, "Gaps:\n  - (none)\n")

	md, err := GlobalRegistry.Format(*result, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "**Score:** 72%")
	assert.Contains(t, md, "- Learn Kubernetes\n")

	js, err := GlobalRegistry.Format(result, "json")
	require.NoError(t, err)
	var decoded tasks.JobMatchResult
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	assert.Equal(t, 72.0, decoded.Score)
}

func TestBulletAnalysisFormats(t *testing.T) {
	analysis := tasks.BulletAnalysis{Original: "Led team", Score: 6.5, Feedback: "Add numbers", Improved: "Led 5 engineers"}

	text, err := GlobalRegistry.Format(analysis, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Score: 6.5/10")
	assert.Contains(t, text, "Original: Led team")
	assert.Contains(t, text, "Improved:\nLed 5 engineers")

	md, err := GlobalRegistry.Format(&analysis, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "> Led team")
	assert.Contains(t, md, "## Feedback\n\nAdd numbers")
}

func TestExtractionFormats(t *testing.T) {
	result := resume.ExtractionResult{
		Resume:          resumetest.Minimal(),
		Gaps:            []resume.Gap{{Section: "summary", Field: "summary", Message: "Add a summary"}},
		ExtractionNotes: "Dates were ambiguous",
	}

	text, err := GlobalRegistry.Format(result, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Test User\n")
	assert.Contains(t, text, "test@example.com | 555-5555 | Remote")
	assert.Contains(t, text, "Engineer, Acme (2020 - 2022)")
	assert.Contains(t, text, "BS in CS, Uni")
	assert.Contains(t, text, "[summary] Add a summary")
	assert.Contains(t, text, "Notes: Dates were ambiguous")

	result.Resume.WorkExperience[0].Current = true
	md, err := GlobalRegistry.Format(&result, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Test User")
	assert.Contains(t, md, "*2020 - Present*")
	assert.Contains(t, md, "- **summary**: Add a summary")
}

func TestUnknownFormat(t *testing.T) {
	_, err := GlobalRegistry.Format(tasks.BulletAnalysis{}, "xml")
	assert.EqualError(t, err, "no formatter found for format 'xml' and type 'BulletAnalysis'")
}

func TestGenericTypesFallBackToJSON(t *testing.T) {
	out, err := GlobalRegistry.Format(map[string]int{"a": 1}, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, out)

	_, err = GlobalRegistry.Format(map[string]int{"a": 1}, "text")
	assert.Error(t, err)
}

func TestSupportedFormats(t *testing.T) {
	assert.ElementsMatch(t, []string{"json", "text", "markdown"}, NewFormatterRegistry().GetSupportedFormats())
}
