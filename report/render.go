/*
Package report renders leave-register PDFs.

PURPOSE:
  Three documents come out of here: a per-faculty leave register for a
  date window, the combined register (a front-page summary table plus
  one register page per faculty member), and the daily digest of leaves
  recorded for a single day. All rendering is pure: callers fetch and
  summarize, this package only draws.

LAYOUT:
  A4 portrait, Helvetica. The institution banner uses the house navy
  (#0d0046) with the rule underneath in red (#cf1e18). Tables are plain
  bordered cells; category labels are humanized from their storage keys.

SEE ALSO:
  - ledger/aggregate.go: the Summary and sorting this package consumes
  - api/handlers.go: the HTTP surface that streams these documents
*/
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campus/leave-ledger/ledger"
)

// =============================================================================
// CONFIG & RENDERER
// =============================================================================

// Config is the institution identity printed on every banner.
type Config struct {
	CollegeName     string
	CollegeSubtitle string
	Address         string
}

// Renderer draws PDF documents. Safe for concurrent use; every call
// builds its own fpdf instance.
type Renderer struct {
	cfg Config
	log *zap.Logger
}

func NewRenderer(cfg Config, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{cfg: cfg, log: log}
}

// =============================================================================
// INPUT SHAPES
// =============================================================================

// FacultyReport is everything one register page needs: the faculty
// record, their events already filtered to the window, and the window
// summary computed from those events.
type FacultyReport struct {
	Faculty    ledger.Faculty
	Department string
	From, To   ledger.Date
	Events     []ledger.LeaveEvent
	Summary    ledger.Summary
}

// OverviewRow is one line of the combined report's front-page table.
type OverviewRow struct {
	Name            string
	Designation     string
	WindowTotal     decimal.Decimal
	RemainingLeaves decimal.Decimal
}

// DigestEntry is one leave recorded on the digest day.
type DigestEntry struct {
	FacultyName string
	Designation string
	Category    ledger.Category
	Detail      ledger.Detail
}

// Digest is the input for the daily report: every leave whose date is
// the digest day, across the whole department.
type Digest struct {
	Date       ledger.Date
	Department string
	Entries    []DigestEntry
}

// =============================================================================
// LABELS
// =============================================================================

var categoryLabels = map[ledger.Category]string{
	ledger.CategoryShortLeave:          "Short Leave",
	ledger.CategoryHalfDayLeave:        "Half Day Leave",
	ledger.CategoryCasualLeave:         "Full Day Leave",
	ledger.CategoryMedicalLeave:        "Medical/Maternity Leave",
	ledger.CategoryAcademicLeave:       "Academic Leave",
	ledger.CategoryCompensatoryLeave:   "Compensatory Leave",
	ledger.CategoryWithoutPaymentLeave: "Without Payment Leave",
	ledger.CategoryEarnedLeave:         "Earned Leave",
	ledger.CategoryGrantedLeave:        "Granted Leave",
}

// CategoryLabel humanizes a storage key for display.
func CategoryLabel(c ledger.Category) string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.TrimSuffix(strings.Join(words, " "), "s")
}

// DetailLabel renders the parenthesized annotation after a category
// label, or "" when the event carries no detail.
func DetailLabel(d ledger.Detail) string {
	switch v := d.(type) {
	case ledger.ShortLeaveDetail:
		return fmt.Sprintf("(%s to %s)", v.From, v.To)
	case ledger.HalfDayDetail:
		if v.Type == ledger.HalfDayBeforeNoon {
			return "(Before Noon)"
		}
		return "(After Noon)"
	default:
		return ""
	}
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// RenderFacultyReport writes one faculty member's register for the
// window to w.
func (r *Renderer) RenderFacultyReport(w io.Writer, data FacultyReport) error {
	pdf := r.newDoc()
	r.facultyPage(pdf, data)
	return r.output(pdf, w, "faculty report")
}

// RenderCombinedReport writes the front-page overview table followed by
// one register page per faculty member. Rows and pages must already be
// in listing order.
func (r *Renderer) RenderCombinedReport(w io.Writer, from, to ledger.Date, rows []OverviewRow, pages []FacultyReport) error {
	pdf := r.newDoc()
	r.overviewPage(pdf, from, to, rows)
	for _, page := range pages {
		r.facultyPage(pdf, page)
	}
	return r.output(pdf, w, "combined report")
}

// RenderDailyDigest writes the single-day digest to w. Entries are
// grouped by category in display order; an empty digest still renders
// the banner with a "no leaves recorded" line.
func (r *Renderer) RenderDailyDigest(w io.Writer, data Digest) error {
	pdf := r.newDoc()
	pdf.AddPage()
	r.banner(pdf, data.Department)

	// Letter form addressed to the principal.
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "To,", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "The Principal", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, "Leave Report for "+data.Date.String(), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	if len(data.Entries) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, "No leaves recorded for this date.", "", 1, "C", false, 0, "")
		return r.output(pdf, w, "daily digest")
	}

	for _, cat := range ledger.Categories {
		var group []DigestEntry
		for _, e := range data.Entries {
			if e.Category == cat {
				group = append(group, e)
			}
		}
		if len(group) == 0 {
			continue
		}

		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(207, 30, 24)
		pdf.CellFormat(0, 8, CategoryLabel(cat), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)

		pdf.SetFont("Helvetica", "", 10)
		for _, e := range group {
			line := fmt.Sprintf("%s, %s", e.FacultyName, e.Designation)
			if d := DetailLabel(e.Detail); d != "" {
				line += " " + d
			}
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}
	return r.output(pdf, w, "daily digest")
}

// =============================================================================
// PAGE BUILDERS
// =============================================================================

func (r *Renderer) newDoc() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	return pdf
}

func (r *Renderer) output(pdf *fpdf.Fpdf, w io.Writer, doc string) error {
	if err := pdf.Output(w); err != nil {
		r.log.Error("pdf render failed", zap.String("document", doc), zap.Error(err))
		return fmt.Errorf("render %s: %w", doc, err)
	}
	return nil
}

// banner draws the institution heading shared by every document.
func (r *Renderer) banner(pdf *fpdf.Fpdf, department string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(13, 0, 70)
	pdf.CellFormat(0, 10, r.cfg.CollegeName, "", 1, "C", false, 0, "")

	if r.cfg.CollegeSubtitle != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, r.cfg.CollegeSubtitle, "", 1, "C", false, 0, "")
	}
	if r.cfg.Address != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 5, r.cfg.Address, "", 1, "C", false, 0, "")
	}
	if department != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Department of "+department, "", 1, "C", false, 0, "")
	}

	pdf.SetDrawColor(207, 30, 24)
	pdf.SetLineWidth(0.6)
	x, y := pdf.GetX(), pdf.GetY()+1
	pageW, _ := pdf.GetPageSize()
	pdf.Line(x, y, pageW-x, y)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(5)
}

func (r *Renderer) overviewPage(pdf *fpdf.Fpdf, from, to ledger.Date, rows []OverviewRow) {
	pdf.AddPage()
	r.banner(pdf, "")

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, fmt.Sprintf("Leave Summary: %s to %s", from, to), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	widths := []float64{12, 68, 50, 30, 30}
	headers := []string{"#", "Name", "Designation", "Taken", "Remaining"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(13, 0, 70)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for i, row := range rows {
		pdf.CellFormat(widths[0], 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 7, row.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, row.Designation, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, row.WindowTotal.StringFixed(2), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 7, row.RemainingLeaves.StringFixed(2), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
}

func (r *Renderer) facultyPage(pdf *fpdf.Fpdf, data FacultyReport) {
	pdf.AddPage()
	r.banner(pdf, data.Department)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, fmt.Sprintf("%s, %s", data.Faculty.Name, data.Faculty.Designation), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Leave record from %s to %s", data.From, data.To), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// Per-category counts for the window, skipping empty categories.
	widths := []float64{90, 50}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(13, 0, 70)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(widths[0], 8, "Category", "1", 0, "C", true, 0, "")
	pdf.CellFormat(widths[1], 8, "Count", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, cat := range ledger.Categories {
		n := data.Summary.Counts[cat]
		if n == 0 {
			continue
		}
		pdf.CellFormat(widths[0], 7, CategoryLabel(cat), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", n), "1", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0], 7, "Total Leaves (window)", "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[1], 7, data.Summary.TotalLeaves.StringFixed(2), "1", 1, "C", false, 0, "")
	pdf.CellFormat(widths[0], 7, "Remaining Leaves", "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[1], 7, data.Summary.RemainingLeaves.StringFixed(2), "1", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(data.Events) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 7, "No leaves recorded in this window.", "", 1, "L", false, 0, "")
		return
	}

	// Event-by-event listing, newest first as the store returns them.
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Details", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, ev := range data.Events {
		line := fmt.Sprintf("%s  %s", ev.Date, CategoryLabel(ev.Category))
		if d := DetailLabel(ev.Detail); d != "" {
			line += " " + d
		}
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
}
