package tasks

import (
	"fmt"
	"strings"

	"resumekit/internal/config"
)

// DefaultSystemPrompts are used when no override is configured
var DefaultSystemPrompts = config.LoadedPrompts{
	MatchJob: `You are an expert career coach and job matching specialist. Analyze resumes against job descriptions to provide a match score, identify strengths and gaps, and offer actionable recommendations.`,

	AnalyzeBullet: `You are an expert career coach and resume writer. Analyze the resume bullet point using the XYZ formula (Accomplished X as measured by Y by doing Z) to provide a score from 0 to 10, constructive feedback, and an improved version of the bullet point. You do not need to make direct references to the formula in your response.`,

	ExtractResume: `You are an expert resume parser and analyzer. Extract and structure resume information accurately, identifying gaps and suggesting improvements. Be thorough in extraction but realistic about what's present in the text.`,

	GenerateBullets: `You are an expert resume writer specializing in creating impactful, quantifiable achievement statements using the XYZ formula (Accomplished X as measured by Y by doing Z). Your bullets are ATS-friendly and compelling to recruiters.`,
}

// resolvePrompt picks the override when present, otherwise the default
func resolvePrompt(override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return fallback
}

func matchJobPrompt(resumeText, jobDescription string) string {
	return fmt.Sprintf(`Given the following resume and job description, evaluate how well the resume matches the job requirements. Provide a match score from 1 to 100, list key strengths of the resume in relation to the job, identify any gaps or weaknesses, and offer recommendations for improvement.
  Generate the response in the following JSON format:
{
  "score": number, // Match score from 1 to 100
  "strengths": string[], // List of strengths
  "gaps": string[], // List of gaps or weaknesses
  "recommendations": string[] // List of recommendations for improvement
}

Resume: """%s"""

Job Description: """%s"""`, resumeText, jobDescription)
}

func analyzeBulletPrompt(bullet string) string {
	return fmt.Sprintf(`Analyze the following resume bullet point for clarity, impact, and overall quality. Provide a score from 1 to 10, constructive feedback, and an improved version of the bullet point. 

Bullet Point: "%s"

Format the response as a JSON object with the following structure:
{
  "score": numeric score from 1 to 10,
  "feedback": "constructive feedback",
  "improved": "improved bullet point"
}`, bullet)
}

func extractResumePrompt(resumeText string) string {
	return fmt.Sprintf(`Extract structured information from the resume text below and detect what is missing or weak.

Return ONLY a JSON object with exactly this shape:
{
  "resume": {
    "personalInfo": {
      "name": "string (required)",
      "email": "string",
      "phone": "string",
      "location": "string",
      "linkedin": "string",
      "website": "string"
    },
    "summary": "string",
    "workExperience": [
      {
        "company": "string (required)",
        "title": "string (required)",
        "startDate": "string (required)",
        "endDate": "string",
        "current": boolean,
        "teamSize": "string",
        "achievements": ["string"],
        "technologies": ["string"]
      }
    ],
    "education": [
      {
        "institution": "string (required)",
        "degree": "string (required)",
        "field": "string",
        "graduationDate": "string",
        "gpa": "string"
      }
    ],
    "skills": ["string"],
    "certifications": ["string"]
  },
  "gaps": [
    {
      "section": "personalInfo | summary | workExperience | education | skills | certifications",
      "field": "string",
      "message": "what is missing and why it matters",
      "index": number (only for entries of workExperience or education)
    }
  ],
  "extractionNotes": "string"
}

Formatting rules:
- Never use null. Use "" for unknown strings, false for unknown booleans and [] for empty lists.
- Never omit a key or an array, even when it is empty.
- Dates are strings as written in the resume, for example "Jan 2020" or "2020". Use "Present" only through "current": true and an empty endDate.
- GPA and team size are strings, for example "3.8" or "5".
- URLs always include a scheme, for example "https://linkedin.com/in/name".
- Achievements are copied as written, one per entry, without bullet characters.
- Report a gap for every missing contact detail, a missing summary, work entries without measurable achievements and empty skills.

Resume text:
"""%s"""`, resumeText)
}

func generateBulletsPrompt(title, company, description string) string {
	return fmt.Sprintf(`Write 3 to 4 achievement bullets for the following position using the XYZ formula (Accomplished X as measured by Y by doing Z).

Position: %s
Company: %s
Context: %s

Each bullet starts with a strong action verb, contains a plausible metric and stays under 30 words.

Return ONLY a JSON object in this format:
{
  "bullets": ["bullet 1", "bullet 2", "bullet 3"]
}`, title, company, description)
}
