package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumekit/internal/resume"
	"resumekit/internal/tasks"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "JobMatchResult", &JobMatchTextFormatter{})
	registry.RegisterFormatter("markdown", "JobMatchResult", &JobMatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "BulletAnalysis", &BulletTextFormatter{})
	registry.RegisterFormatter("markdown", "BulletAnalysis", &BulletMarkdownFormatter{})
	registry.RegisterFormatter("text", "ExtractionResult", &ExtractionTextFormatter{})
	registry.RegisterFormatter("markdown", "ExtractionResult", &ExtractionMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data = deref(data)
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

// deref lets callers pass the pointers the services return
func deref(data any) any {
	switch v := data.(type) {
	case *tasks.JobMatchResult:
		if v != nil {
			return *v
		}
	case *tasks.BulletAnalysis:
		if v != nil {
			return *v
		}
	case *resume.ExtractionResult:
		if v != nil {
			return *v
		}
	}
	return data
}

func getDataType(data any) string {
	switch data.(type) {
	case tasks.JobMatchResult:
		return "JobMatchResult"
	case tasks.BulletAnalysis:
		return "BulletAnalysis"
	case resume.ExtractionResult:
		return "ExtractionResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func writeList(b *strings.Builder, items []string, bullet string) {
	if len(items) == 0 {
		b.WriteString(bullet + "(none)\n")
		return
	}
	for _, item := range items {
		b.WriteString(bullet + item + "\n")
	}
}

// JobMatchTextFormatter handles text formatting for job match results
type JobMatchTextFormatter struct{}

func (f *JobMatchTextFormatter) Format(data any) (string, error) {
	result, ok := data.(tasks.JobMatchResult)
	if !ok {
		return "", fmt.Errorf("expected JobMatchResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== JOB MATCH ===\n")
	fmt.Fprintf(&output, "Score: %g%%\n\n", result.Score)
	output.WriteString("Strengths:\n")
	writeList(&output, result.Strengths, "  - ")
	output.WriteString("\nGaps:\n")
	writeList(&output, result.Gaps, "  - ")
	output.WriteString("\nRecommendations:\n")
	writeList(&output, result.Recommendations, "  - ")
	return output.String(), nil
}

func (f *JobMatchTextFormatter) SupportedType() string {
	return "JobMatchResult"
}

// JobMatchMarkdownFormatter handles markdown formatting for job match results
type JobMatchMarkdownFormatter struct{}

func (f *JobMatchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(tasks.JobMatchResult)
	if !ok {
		return "", fmt.Errorf("expected JobMatchResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Job Match\n\n")
	fmt.Fprintf(&output, "**Score:** %g%%\n\n", result.Score)
	output.WriteString("## 💪🏾 Strengths\n\n")
	writeList(&output, result.Strengths, "- ")
	output.WriteString("\n## 👀 Gaps\n\n")
	writeList(&output, result.Gaps, "- ")
	output.WriteString("\n## 🚀 Recommendations\n\n")
	writeList(&output, result.Recommendations, "- ")
	return output.String(), nil
}

func (f *JobMatchMarkdownFormatter) SupportedType() string {
	return "JobMatchResult"
}

// BulletTextFormatter handles text formatting for bullet analyses
type BulletTextFormatter struct{}

func (f *BulletTextFormatter) Format(data any) (string, error) {
	result, ok := data.(tasks.BulletAnalysis)
	if !ok {
		return "", fmt.Errorf("expected BulletAnalysis, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== BULLET ANALYSIS ===\n")
	if result.Original != "" {
		fmt.Fprintf(&output, "Original: %s\n", result.Original)
	}
	fmt.Fprintf(&output, "Score: %g/10\n\n", result.Score)
	output.WriteString("Feedback:\n")
	output.WriteString(result.Feedback)
	output.WriteString("\n\nImproved:\n")
	output.WriteString(result.Improved)
	output.WriteString("\n")
	return output.String(), nil
}

func (f *BulletTextFormatter) SupportedType() string {
	return "BulletAnalysis"
}

// BulletMarkdownFormatter handles markdown formatting for bullet analyses
type BulletMarkdownFormatter struct{}

func (f *BulletMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(tasks.BulletAnalysis)
	if !ok {
		return "", fmt.Errorf("expected BulletAnalysis, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Bullet Analysis\n\n")
	if result.Original != "" {
		fmt.Fprintf(&output, "> %s\n\n", result.Original)
	}
	fmt.Fprintf(&output, "**Score:** %g/10\n\n", result.Score)
	output.WriteString("## Feedback\n\n")
	output.WriteString(result.Feedback)
	output.WriteString("\n\n## Improved\n\n")
	output.WriteString(result.Improved)
	output.WriteString("\n")
	return output.String(), nil
}

func (f *BulletMarkdownFormatter) SupportedType() string {
	return "BulletAnalysis"
}

// ExtractionTextFormatter handles text formatting for resume extractions
type ExtractionTextFormatter struct{}

func (f *ExtractionTextFormatter) Format(data any) (string, error) {
	result, ok := data.(resume.ExtractionResult)
	if !ok {
		return "", fmt.Errorf("expected ExtractionResult, got %T", data)
	}
	r := result.Resume

	var output strings.Builder
	output.WriteString("=== RESUME ===\n")
	output.WriteString(r.PersonalInfo.Name + "\n")
	if contact := joinNonEmpty(" | ", r.PersonalInfo.Email, r.PersonalInfo.Phone, r.PersonalInfo.Location); contact != "" {
		output.WriteString(contact + "\n")
	}
	if r.Summary != "" {
		output.WriteString("\nSummary:\n" + r.Summary + "\n")
	}

	if len(r.WorkExperience) > 0 {
		output.WriteString("\nExperience:\n")
		for _, w := range r.WorkExperience {
			fmt.Fprintf(&output, "  %s, %s (%s)\n", w.Title, w.Company, dateRange(w))
			for _, a := range w.Achievements {
				output.WriteString("    - " + a + "\n")
			}
		}
	}
	if len(r.Education) > 0 {
		output.WriteString("\nEducation:\n")
		for _, e := range r.Education {
			fmt.Fprintf(&output, "  %s, %s\n", joinNonEmpty(" in ", e.Degree, e.Field), e.Institution)
		}
	}
	if len(r.Skills) > 0 {
		output.WriteString("\nSkills: " + strings.Join(r.Skills, ", ") + "\n")
	}
	if len(r.Certifications) > 0 {
		output.WriteString("Certifications: " + strings.Join(r.Certifications, ", ") + "\n")
	}

	output.WriteString("\n=== GAPS ===\n")
	if len(result.Gaps) == 0 {
		output.WriteString("No major gaps.\n")
	}
	for _, g := range result.Gaps {
		fmt.Fprintf(&output, "  - [%s] %s\n", g.Section, g.Message)
	}
	if result.ExtractionNotes != "" {
		output.WriteString("\nNotes: " + result.ExtractionNotes + "\n")
	}
	return output.String(), nil
}

func (f *ExtractionTextFormatter) SupportedType() string {
	return "ExtractionResult"
}

// ExtractionMarkdownFormatter handles markdown formatting for resume extractions
type ExtractionMarkdownFormatter struct{}

func (f *ExtractionMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(resume.ExtractionResult)
	if !ok {
		return "", fmt.Errorf("expected ExtractionResult, got %T", data)
	}
	r := result.Resume

	var output strings.Builder
	output.WriteString("# " + r.PersonalInfo.Name + "\n\n")
	if contact := joinNonEmpty(" · ", r.PersonalInfo.Email, r.PersonalInfo.Phone, r.PersonalInfo.Location); contact != "" {
		output.WriteString(contact + "\n\n")
	}
	if r.Summary != "" {
		output.WriteString("## Summary\n\n" + r.Summary + "\n\n")
	}
	if len(r.WorkExperience) > 0 {
		output.WriteString("## Experience\n\n")
		for _, w := range r.WorkExperience {
			fmt.Fprintf(&output, "### %s, %s\n\n*%s*\n\n", w.Title, w.Company, dateRange(w))
			for _, a := range w.Achievements {
				output.WriteString("- " + a + "\n")
			}
			output.WriteString("\n")
		}
	}
	if len(r.Education) > 0 {
		output.WriteString("## Education\n\n")
		for _, e := range r.Education {
			fmt.Fprintf(&output, "- %s, %s\n", joinNonEmpty(" in ", e.Degree, e.Field), e.Institution)
		}
		output.WriteString("\n")
	}
	if len(r.Skills) > 0 {
		output.WriteString("## Skills\n\n" + strings.Join(r.Skills, ", ") + "\n\n")
	}

	output.WriteString("## Gaps\n\n")
	if len(result.Gaps) == 0 {
		output.WriteString("No major gaps.\n")
	}
	for _, g := range result.Gaps {
		fmt.Fprintf(&output, "- **%s**: %s\n", g.Section, g.Message)
	}
	return output.String(), nil
}

func (f *ExtractionMarkdownFormatter) SupportedType() string {
	return "ExtractionResult"
}

func dateRange(w resume.WorkExperience) string {
	end := w.EndDate
	if w.Current || end == "" {
		end = "Present"
	}
	return w.StartDate + " - " + end
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// GlobalRegistry is the global formatter registry
var GlobalRegistry = NewFormatterRegistry()
