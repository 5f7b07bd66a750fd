// Package resumetest provides resume fixtures for tests.
package resumetest

import (
	"fmt"
	"strings"

	"resumekit/internal/resume"
)

// Minimal returns a small but complete resume
func Minimal() resume.ParsedResume {
	return resume.ParsedResume{
		PersonalInfo: resume.PersonalInfo{
			Name:     "Test User",
			Email:    "test@example.com",
			Phone:    "555-5555",
			Location: "Remote",
			LinkedIn: "https://linkedin.com/in/test",
			Website:  "",
		},
		Summary: "Experienced engineer.",
		WorkExperience: []resume.WorkExperience{{
			Title:        "Engineer",
			Company:      "Acme",
			StartDate:    "2020",
			EndDate:      "2022",
			Current:      false,
			TeamSize:     "",
			Achievements: []string{"Delivered features", "Improved performance"},
			Technologies: []string{"Go", "Redis"},
		}},
		Education: []resume.Education{{
			Degree:         "BS",
			Institution:    "Uni",
			Field:          "CS",
			GraduationDate: "2018",
			GPA:            "3.8",
		}},
		Skills:         []string{"Go", "SQL", "Redis"},
		Certifications: []string{"AWS CP"},
	}
}

// LongBullets returns a resume whose achievements force wrapping and page breaks
func LongBullets() resume.ParsedResume {
	r := Minimal()
	r.Summary = "Experienced engineer with focus on performance and reliability."
	achievements := make([]string, 40)
	for i := range achievements {
		achievements[i] = fmt.Sprintf("Achievement %d: %sto force wrapping and pagination.", i+1, strings.Repeat("Very long detail ", 8))
	}
	r.WorkExperience[0].Achievements = achievements
	r.Skills = []string{"Go", "SQL", "Redis", "HTMX", "Prometheus", "OpenTelemetry"}
	return r
}
