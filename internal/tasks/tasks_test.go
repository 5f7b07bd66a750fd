package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"resumekit/internal/config"
	"resumekit/internal/jsonresp"
	"resumekit/internal/llm"
	"resumekit/internal/llm/llmtest"
	"resumekit/internal/resume"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPrompts config.LoadedPrompts

func (p staticPrompts) SystemPrompts() config.LoadedPrompts { return config.LoadedPrompts(p) }

const validExtraction = `{
  "resume": {
    "personalInfo": {"name": "Ada Lovelace", "email": "ada@example.com", "phone": "", "location": "London", "linkedin": "", "website": ""},
    "summary": "",
    "workExperience": [{"company": "Analytical Engines", "title": "Engineer", "startDate": "1842", "endDate": "", "current": true, "teamSize": 3, "achievements": ["Wrote the first program"], "technologies": []}],
    "education": [{"institution": "Home", "degree": "Tutoring", "field": "Mathematics", "graduationDate": "", "gpa": 4}],
    "skills": ["Mathematics"],
    "certifications": []
  },
  "gaps": [{"section": "summary", "field": "summary", "message": "Add a summary"}],
  "extractionNotes": "Clean input"
}`

func newService(p llm.Provider, prompts PromptSource) *Service {
	return NewService(llm.NewService(p, nil, nil), prompts, nil, nil)
}

func TestMatchJob(t *testing.T) {
	p := llmtest.NewProvider(llmtest.Reply{Content: `{"score":72,"strengths":["Go"],"gaps":["K8s"],"recommendations":["Learn K8s"]}`})
	svc := newService(p, nil)

	result, err := svc.MatchJob(context.Background(), "RESUME BODY", "JOB BODY")
	require.NoError(t, err)
	assert.Equal(t, &JobMatchResult{Score: 72, Strengths: []string{"Go"}, Gaps: []string{"K8s"}, Recommendations: []string{"Learn K8s"}}, result)

	req := p.LastRequest()
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompts.MatchJob, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, `Resume: """RESUME BODY"""`)
	assert.Contains(t, req.Messages[1].Content, `Job Description: """JOB BODY"""`)
}

func TestMatchJobInvalidJSON(t *testing.T) {
	svc := newService(llmtest.NewProvider(llmtest.Reply{Content: "Sure! Here is the analysis"}), nil)

	_, err := svc.MatchJob(context.Background(), "r", "j")
	require.Error(t, err)
	assert.True(t, errors.Is(err, jsonresp.ErrInvalidJSON))
}

func TestMatchJobProviderError(t *testing.T) {
	svc := newService(llmtest.NewProvider(llmtest.Reply{Err: errors.New("OpenAI API error: Bad Gateway")}), nil)

	_, err := svc.MatchJob(context.Background(), "r", "j")
	assert.EqualError(t, err, "OpenAI API error: Bad Gateway")
}

func TestAnalyzeBulletReturnsRawFragments(t *testing.T) {
	fragments := []string{"```json\n", `{"score": 6,`, ` "feedback": "Add metrics",`, ` "improved": "Cut costs 20%"}`, "\n```"}
	p := llmtest.NewStreamer(llmtest.Reply{Fragments: fragments})
	svc := newService(p, nil)

	tokens, err := svc.AnalyzeBullet(context.Background(), "Managed a team")
	require.NoError(t, err)

	var got []string
	for tok := range tokens {
		require.NoError(t, tok.Error)
		if !tok.Done {
			got = append(got, tok.Content)
		}
	}
	assert.Equal(t, fragments, got)
	assert.Contains(t, p.LastRequest().Messages[1].Content, `Bullet Point: "Managed a team"`)
}

func TestAnalyzeBulletRequiresStreamer(t *testing.T) {
	svc := newService(llmtest.NewProvider(), nil)

	_, err := svc.AnalyzeBullet(context.Background(), "x")
	assert.True(t, errors.Is(err, llm.ErrStreamingNotSupported))
}

func TestExtractResumeData(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "bare", raw: validExtraction},
		{name: "fenced", raw: "```json\n" + validExtraction + "\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(llmtest.NewProvider(llmtest.Reply{Content: tt.raw}), nil)

			result, err := svc.ExtractResumeData(context.Background(), "resume text")
			require.NoError(t, err)
			assert.Equal(t, "Ada Lovelace", result.Resume.PersonalInfo.Name)
			assert.Equal(t, resume.FlexString("3"), result.Resume.WorkExperience[0].TeamSize)
			assert.Equal(t, resume.FlexString("4"), result.Resume.Education[0].GPA)
			assert.Len(t, result.Gaps, 1)
			assert.Equal(t, "Clean input", result.ExtractionNotes)
		})
	}
}

func TestExtractResumeDataErrors(t *testing.T) {
	missingName := strings.Replace(validExtraction, `"name": "Ada Lovelace"`, `"name": ""`, 1)

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "prose around json", raw: "Here it is: " + validExtraction, wantErr: jsonresp.ErrNotPureJSON},
		{name: "truncated", raw: `{"resume": {"personalInfo": {}]}`, wantErr: jsonresp.ErrInvalidJSON},
		{name: "schema violation", raw: missingName, wantErr: jsonresp.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(llmtest.NewProvider(llmtest.Reply{Content: tt.raw}), nil)

			_, err := svc.ExtractResumeData(context.Background(), "resume text")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestGenerateAchievementBullets(t *testing.T) {
	p := llmtest.NewProvider(llmtest.Reply{Content: "```json\n{\"bullets\":[\"Cut latency 40% by caching\",\"Shipped 3 features\"]}\n```"})
	svc := newService(p, nil)

	bullets, err := svc.GenerateAchievementBullets(context.Background(), resume.WorkExperience{
		Title: "Engineer", Company: "Acme", Achievements: []string{"Built APIs", "Led migrations"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cut latency 40% by caching", "Shipped 3 features"}, bullets)

	prompt := p.LastRequest().Messages[1].Content
	assert.Contains(t, prompt, "Position: Engineer")
	assert.Contains(t, prompt, "Company: Acme")
	assert.Contains(t, prompt, "Context: Built APIs; Led migrations")
}

func TestGenerateAchievementBulletsDefaults(t *testing.T) {
	p := llmtest.NewProvider(llmtest.Reply{Content: `{}`})
	svc := newService(p, nil)

	bullets, err := svc.GenerateAchievementBullets(context.Background(), resume.WorkExperience{Title: "Engineer", Company: "Acme"})
	require.NoError(t, err)
	assert.NotNil(t, bullets)
	assert.Empty(t, bullets)
	assert.Contains(t, p.LastRequest().Messages[1].Content, "Context: General job responsibilities")
}

func TestSystemPromptOverrides(t *testing.T) {
	p := llmtest.NewProvider(llmtest.Reply{Content: `{"score":1,"strengths":[],"gaps":[],"recommendations":[]}`})
	svc := newService(p, staticPrompts{MatchJob: "custom matcher"})

	_, err := svc.MatchJob(context.Background(), "r", "j")
	require.NoError(t, err)
	assert.Equal(t, "custom matcher", p.LastRequest().Messages[0].Content)

	resolved := svc.systemPrompts()
	assert.Equal(t, DefaultSystemPrompts.AnalyzeBullet, resolved.AnalyzeBullet)
}

func TestParseBulletAnalysis(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "fenced", raw: "```json\n{\"score\": 5, \"feedback\": \"ok\", \"improved\": \"better\"}\n```"},
		{name: "bare", raw: `{"score": 5, "feedback": "ok", "improved": "better"}`},
		{name: "language tag only", raw: "json\n{\"score\": 5, \"feedback\": \"ok\", \"improved\": \"better\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBulletAnalysis(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, &BulletAnalysis{Score: 5, Feedback: "ok", Improved: "better"}, got)
		})
	}

	_, err := ParseBulletAnalysis("Here you go")
	assert.Error(t, err)
}

func TestCleanFences(t *testing.T) {
	assert.Equal(t, "", CleanFences("```json\n"))
	assert.Equal(t, "\n", CleanFences("\n```"))
	assert.Equal(t, `{"a":1}`, CleanFences("```json\n{\"a\":1}```"))
}
