// Package resume holds the structured resume model shared by extraction,
// the builder session and PDF rendering.
package resume

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PersonalInfo is the contact block of a resume
type PersonalInfo struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin"`
	Website  string `json:"website"`
}

// WorkExperience is one position held
type WorkExperience struct {
	Company      string     `json:"company" validate:"required,notblank"`
	Title        string     `json:"title" validate:"required,notblank"`
	StartDate    string     `json:"startDate" validate:"required,notblank"`
	EndDate      string     `json:"endDate"`
	Current      bool       `json:"current"`
	TeamSize     FlexString `json:"teamSize"`
	Achievements []string   `json:"achievements"`
	Technologies []string   `json:"technologies"`
}

// Education is one degree or program
type Education struct {
	Institution    string     `json:"institution" validate:"required,notblank"`
	Degree         string     `json:"degree" validate:"required,notblank"`
	Field          string     `json:"field"`
	GraduationDate string     `json:"graduationDate"`
	GPA            FlexString `json:"gpa"`
}

// ParsedResume is the structured form of a resume
type ParsedResume struct {
	PersonalInfo   PersonalInfo     `json:"personalInfo"`
	Summary        string           `json:"summary"`
	WorkExperience []WorkExperience `json:"workExperience" validate:"dive"`
	Education      []Education      `json:"education" validate:"dive"`
	Skills         []string         `json:"skills"`
	Certifications []string         `json:"certifications"`
}

// Gap describes one omission detected in a ParsedResume
type Gap struct {
	Section string `json:"section"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Index   *int   `json:"index,omitempty"`
}

// ExtractionResult is the output of a resume extraction
type ExtractionResult struct {
	Resume          ParsedResume `json:"resume"`
	Gaps            []Gap        `json:"gaps"`
	ExtractionNotes string       `json:"extractionNotes"`
}

// Empty returns a resume with every field at its zero value and every list non-nil
func Empty() ParsedResume {
	r := ParsedResume{}
	r.ApplyDefaults()
	return r
}

// ApplyDefaults replaces nil lists with empty ones so the resume never serialises nulls
func (r *ParsedResume) ApplyDefaults() {
	r.WorkExperience = orEmpty(r.WorkExperience)
	r.Education = orEmpty(r.Education)
	r.Skills = orEmpty(r.Skills)
	r.Certifications = orEmpty(r.Certifications)
	for i := range r.WorkExperience {
		r.WorkExperience[i].Achievements = orEmpty(r.WorkExperience[i].Achievements)
		r.WorkExperience[i].Technologies = orEmpty(r.WorkExperience[i].Technologies)
	}
}

// ApplyDefaults fills the nested resume and the gap list
func (e *ExtractionResult) ApplyDefaults() {
	e.Resume.ApplyDefaults()
	e.Gaps = orEmpty(e.Gaps)
}

// Clone returns a deep copy of r
func (r ParsedResume) Clone() ParsedResume {
	out := r
	out.Skills = cloneSlice(r.Skills)
	out.Certifications = cloneSlice(r.Certifications)
	out.Education = cloneSlice(r.Education)
	out.WorkExperience = make([]WorkExperience, len(r.WorkExperience))
	for i, w := range r.WorkExperience {
		w.Achievements = cloneSlice(w.Achievements)
		w.Technologies = cloneSlice(w.Technologies)
		out.WorkExperience[i] = w
	}
	if r.WorkExperience == nil {
		out.WorkExperience = nil
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// FlexString is a string that also accepts JSON numbers and null. Models
// regularly emit team sizes and GPAs as numbers despite being asked for strings.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		if i, err := n.Int64(); err == nil {
			*f = FlexString(strconv.FormatInt(i, 10))
			return nil
		}
		*f = FlexString(n.String())
		return nil
	}
}

func (f FlexString) String() string { return string(f) }
