// Package pdfgen renders a ParsedResume as a single-column, ATS friendly PDF.
package pdfgen

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-pdf/fpdf"

	"resumekit/internal/errors"
	"resumekit/internal/resume"
)

const (
	margin       = 40.0
	sectionTop   = 6.0
	sectionAfter = 10.0
	blockAfter   = 8.0
	bulletAfter  = 4.0
	bulletIndent = 18.0
)

type rgb struct{ r, g, b int }

var (
	headerText   = rgb{0, 0, 0}
	sectionTitle = rgb{40, 40, 40}
	bodyText     = rgb{50, 50, 50}
	mutedText    = rgb{100, 100, 100}
	accentLine   = rgb{220, 220, 220}
)

// Renderer produces resume PDFs
type Renderer struct {
	PageSize string
	Creator  string
}

// NewRenderer returns a Renderer for US Letter pages
func NewRenderer() *Renderer {
	return &Renderer{PageSize: "Letter", Creator: "resumekit"}
}

// Render draws the resume and returns the PDF bytes. Content that does not fit
// on one page continues on the next.
func (r *Renderer) Render(res resume.ParsedResume) ([]byte, error) {
	pageSize := r.PageSize
	if pageSize == "" {
		pageSize = "Letter"
	}

	pdf := fpdf.New("P", "pt", pageSize, "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreator(r.Creator, true)
	pdf.SetTitle(res.PersonalInfo.Name+" Resume", true)
	pdf.AddPage()

	d := &drawer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	d.contact(res.PersonalInfo)
	d.summary(res.Summary)
	d.work(res.WorkExperience)
	d.education(res.Education)
	d.skills(res.Skills)
	d.certifications(res.Certifications)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeRenderFailed, "failed to render resume PDF", err)
	}
	return buf.Bytes(), nil
}

type drawer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func lineHeight(size float64) float64 {
	return size * 1.4
}

func (d *drawer) font(style string, size float64, c rgb) {
	d.pdf.SetFont("Helvetica", style, size)
	d.pdf.SetTextColor(c.r, c.g, c.b)
}

func (d *drawer) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - 2*margin
}

func (d *drawer) line(text string, size float64) {
	d.pdf.CellFormat(0, lineHeight(size), d.tr(text), "", 1, "L", false, 0, "")
}

func (d *drawer) wrapped(text string, size float64) {
	d.pdf.MultiCell(0, lineHeight(size), d.tr(text), "", "L", false)
}

func (d *drawer) heading(title string) {
	d.pdf.Ln(sectionTop)
	d.font("B", 12, sectionTitle)
	d.line(title, 12)
	d.pdf.Ln(sectionTop)
}

func (d *drawer) contact(p resume.PersonalInfo) {
	d.font("B", 20, headerText)
	d.line(p.Name, 20)

	var parts []string
	for _, part := range []string{p.Email, p.Phone, p.Location} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	if p.LinkedIn != "" {
		parts = append(parts, stripURL(p.LinkedIn))
	}
	if p.Website != "" {
		parts = append(parts, stripURL(p.Website))
	}
	d.font("", 10, bodyText)
	if len(parts) > 0 {
		d.wrapped(strings.Join(parts, " • "), 10)
	}

	y := d.pdf.GetY() + 4
	w, _ := d.pdf.GetPageSize()
	d.pdf.SetDrawColor(accentLine.r, accentLine.g, accentLine.b)
	d.pdf.Line(margin, y, w-margin, y)
	d.pdf.SetY(y + 4)
}

func (d *drawer) summary(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	d.heading("Professional Summary")
	d.font("", 10, bodyText)
	d.wrapped(text, 10)
	d.pdf.Ln(sectionAfter)
}

func (d *drawer) work(jobs []resume.WorkExperience) {
	if len(jobs) == 0 {
		return
	}
	d.heading("Work Experience")

	for _, job := range jobs {
		d.font("B", 11, headerText)
		dates := dateRange(job)
		d.pdf.SetFont("Helvetica", "", 10)
		dateWidth := d.pdf.GetStringWidth(d.tr(dates))
		d.font("B", 11, headerText)
		d.pdf.CellFormat(d.contentWidth()-dateWidth, lineHeight(11), d.tr(job.Title), "", 0, "L", false, 0, "")
		d.font("", 10, bodyText)
		d.pdf.CellFormat(dateWidth, lineHeight(11), d.tr(dates), "", 1, "R", false, 0, "")

		d.line(job.Company, 10)
		if team := job.TeamSize.String(); team != "" {
			d.font("", 9, bodyText)
			d.line(fmt.Sprintf("Team Size: %s people", team), 9)
		}

		d.font("", 10, bodyText)
		for _, achievement := range job.Achievements {
			d.bullet(achievement, 10)
		}

		if len(job.Technologies) > 0 {
			d.font("I", 9, mutedText)
			d.wrapped("Tech: "+strings.Join(job.Technologies, ", "), 9)
		}
		d.pdf.Ln(blockAfter)
	}
	d.pdf.Ln(sectionAfter)
}

func (d *drawer) bullet(text string, size float64) {
	x := d.pdf.GetX()
	d.pdf.CellFormat(bulletIndent, lineHeight(size), d.tr("•"), "", 0, "C", false, 0, "")
	d.pdf.MultiCell(d.contentWidth()-bulletIndent, lineHeight(size), d.tr(text), "", "L", false)
	d.pdf.SetX(x)
	d.pdf.Ln(bulletAfter)
}

func (d *drawer) education(entries []resume.Education) {
	if len(entries) == 0 {
		return
	}
	d.heading("Education")

	for _, edu := range entries {
		degree := edu.Degree
		if edu.Field != "" {
			degree = fmt.Sprintf("%s in %s", edu.Degree, edu.Field)
		}
		d.font("B", 11, headerText)
		d.line(degree, 11)
		d.font("", 10, bodyText)
		d.line(edu.Institution, 10)

		var details []string
		if edu.GraduationDate != "" {
			details = append(details, "Graduated: "+edu.GraduationDate)
		}
		if gpa := edu.GPA.String(); gpa != "" {
			details = append(details, "GPA: "+gpa)
		}
		if len(details) > 0 {
			d.font("", 9, bodyText)
			d.wrapped(strings.Join(details, " • "), 9)
		}
		d.pdf.Ln(blockAfter)
	}
	d.pdf.Ln(sectionAfter)
}

func (d *drawer) skills(skills []string) {
	if len(skills) == 0 {
		return
	}
	d.heading("Skills")
	d.font("", 10, bodyText)
	d.wrapped(strings.Join(skills, ", "), 10)
	d.pdf.Ln(sectionAfter)
}

func (d *drawer) certifications(certs []string) {
	if len(certs) == 0 {
		return
	}
	d.heading("Certifications")
	d.font("", 10, bodyText)
	for _, cert := range certs {
		d.bullet(cert, 10)
	}
}

func dateRange(job resume.WorkExperience) string {
	switch {
	case job.EndDate != "":
		return job.StartDate + " - " + job.EndDate
	case job.Current:
		return job.StartDate + " - Present"
	default:
		return job.StartDate
	}
}

// stripURL reduces a URL to its host for display
func stripURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
