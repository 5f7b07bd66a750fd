package builder

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumekit/internal/errors"
	"resumekit/internal/extract"
	"resumekit/internal/llm"
	"resumekit/internal/llm/llmtest"
	"resumekit/internal/resume"
	"resumekit/internal/resume/resumetest"
	"resumekit/internal/tasks"
)

type extractorFunc func(ctx context.Context, doc extract.Document) (string, error)

func (f extractorFunc) Extract(ctx context.Context, doc extract.Document) (string, error) {
	return f(ctx, doc)
}

type fakeRenderer struct {
	got resume.ParsedResume
	err error
}

func (r *fakeRenderer) Render(res resume.ParsedResume) ([]byte, error) {
	r.got = res
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-fake"), nil
}

func strPtr(s string) *string { return &s }

func newBuilder(replies []llmtest.Reply, ex extract.Extractor, r Renderer) *Service {
	p := llmtest.NewProvider(replies...)
	t := tasks.NewService(llm.NewService(p, nil, nil), nil, nil, nil)
	return NewService(t, ex, r, nil, nil)
}

func TestParseResumePrefersFile(t *testing.T) {
	var seen extract.Document
	ex := extractorFunc(func(_ context.Context, doc extract.Document) (string, error) {
		seen = doc
		return "from file", nil
	})
	svc := newBuilder(nil, ex, nil)

	text, err := svc.ParseResume(context.Background(), &extract.Document{Filename: "cv.pdf", Data: []byte("x")}, "pasted")
	require.NoError(t, err)
	assert.Equal(t, "from file", text)
	assert.Equal(t, "cv.pdf", seen.Filename)
}

func TestParseResumeUsesTrimmedText(t *testing.T) {
	svc := newBuilder(nil, nil, nil)

	text, err := svc.ParseResume(context.Background(), nil, "  pasted resume \n")
	require.NoError(t, err)
	assert.Equal(t, "pasted resume", text)
}

func TestParseResumeRequiresInput(t *testing.T) {
	svc := newBuilder(nil, nil, nil)

	_, err := svc.ParseResume(context.Background(), nil, "   ")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, MsgInputRequired, errors.UserMessage(err))
}

func TestParseResumeFoldsExtractionErrors(t *testing.T) {
	svc := newBuilder(nil, nil, nil)

	_, err := svc.ParseResume(context.Background(), &extract.Document{Filename: "cv.txt", MIMEType: "text/plain", Data: []byte("x")}, "")
	require.Error(t, err)
	assert.Equal(t, "Failed to extract text from the resume file.", errors.UserMessage(err))
	assert.True(t, stderrors.Is(err, extract.ErrUnsupportedType))

	_, err = svc.ParseResume(context.Background(), &extract.Document{Filename: "cv.pdf", MIMEType: extract.MIMEPDF}, "")
	require.Error(t, err)
	assert.Equal(t, "Failed to extract text from the resume file. No file detected.", errors.UserMessage(err))
}

func TestExtractResumeDataWrapsFailures(t *testing.T) {
	svc := newBuilder([]llmtest.Reply{{Content: "not json"}}, nil, nil)

	_, err := svc.ExtractResumeData(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, MsgExtractionFailed, errors.UserMessage(err))
}

func TestFillGaps(t *testing.T) {
	svc := newBuilder(nil, nil, nil)
	base := resumetest.Minimal()

	merged, err := svc.FillGaps(base, resume.Update{Summary: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "", merged.Summary)

	roundTrip, err := svc.FillGaps(base, resume.Update{})
	require.NoError(t, err)
	assert.Equal(t, base, roundTrip)
}

func TestFillGapsRejectsInvalidResult(t *testing.T) {
	svc := newBuilder(nil, nil, nil)

	_, err := svc.FillGaps(resumetest.Minimal(), resume.Update{PersonalInfo: &resume.PersonalInfoUpdate{Name: strPtr("")}})
	require.Error(t, err)
	assert.Equal(t, MsgInvalidResume, errors.UserMessage(err))
	assert.True(t, stderrors.Is(err, resume.ErrInvalidResume))
}

func TestGenerateBullets(t *testing.T) {
	p := llmtest.NewProvider(llmtest.Reply{Content: `{"bullets":["Did X","Did Y","Did Z"]}`})
	svc := NewService(tasks.NewService(llm.NewService(p, nil, nil), nil, nil, nil), nil, nil, nil, nil)

	bullets, err := svc.GenerateBullets(context.Background(), resume.WorkExperience{Title: "Engineer"}, "Acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"Did X", "Did Y", "Did Z"}, bullets)
	assert.Contains(t, p.LastRequest().Messages[1].Content, "Acme")
}

func TestGenerateBulletsFailure(t *testing.T) {
	svc := newBuilder([]llmtest.Reply{{Err: stderrors.New("backend down")}}, nil, nil)

	_, err := svc.GenerateBullets(context.Background(), resume.WorkExperience{}, "Acme")
	require.Error(t, err)
	assert.Equal(t, MsgBulletsFailed, errors.UserMessage(err))
}

func TestGeneratePDF(t *testing.T) {
	r := &fakeRenderer{}
	svc := newBuilder(nil, nil, r)

	data, err := svc.GeneratePDF(context.Background(), resumetest.Minimal())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-fake"), data)
	assert.Equal(t, "Test User", r.got.PersonalInfo.Name)
}

func TestGeneratePDFWithoutRenderer(t *testing.T) {
	svc := newBuilder(nil, nil, nil)

	_, err := svc.GeneratePDF(context.Background(), resumetest.Minimal())
	require.Error(t, err)
	assert.Equal(t, MsgRendererUnavailable, errors.UserMessage(err))
}

func TestGeneratePDFValidatesFirst(t *testing.T) {
	r := &fakeRenderer{}
	svc := newBuilder(nil, nil, r)

	_, err := svc.GeneratePDF(context.Background(), resume.Empty())
	require.Error(t, err)
	assert.Empty(t, r.got.PersonalInfo.Name)
	assert.Nil(t, r.got.Skills, "renderer must not be called")
}
