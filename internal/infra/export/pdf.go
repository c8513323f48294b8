package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"gift_delivery_bot/internal/domain/member"

	"github.com/go-pdf/fpdf"
)

const DefaultNotesPreview = 30

// ReportOptions control the PDF report layout.
type ReportOptions struct {
	Organization string
	Title        string
	NotesPreview int // Notes longer than this many runes are cut for display
	GeneratedAt  time.Time
}

func (o ReportOptions) withDefaults() ReportOptions {
	if o.Title == "" {
		o.Title = "Gift Delivery Report"
	}
	if o.NotesPreview <= 0 {
		o.NotesPreview = DefaultNotesPreview
	}
	if o.GeneratedAt.IsZero() {
		o.GeneratedAt = time.Now()
	}
	return o
}

// Truncate shortens s to n runes followed by "..." when it is longer than n.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var (
	tableHeader = []string{"Cedula", "Full name", "Agency", "Company", "Status", "Notes"}
	tableWidths = []float64{24, 56, 30, 30, 22, 28}

	agencyHeader = []string{"Agency", "Delivered", "Pending", "Total", "% Delivered"}
	agencyWidths = []float64{60, 25, 25, 25, 30}
)

// WritePDF renders an A4 report with a statistics summary, a per-agency summary and the
// full record table.
func WritePDF(w io.Writer, stats member.Statistics, members []member.Member, opts ReportOptions) error {
	opts = opts.withDefaults()

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(opts.Title, true)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	if opts.Organization != "" {
		pdf.CellFormat(0, 9, tr(opts.Organization), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 9, tr(opts.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Date: "+opts.GeneratedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	statRows := [][2]string{
		{"Total members", strconv.Itoa(stats.Total)},
		{"Delivered", strconv.Itoa(stats.Delivered)},
		{"Pending", strconv.Itoa(stats.Pending)},
		{"With notes", strconv.Itoa(stats.WithNotes)},
	}
	headerStyle(pdf, 12)
	pdf.CellFormat(60, 8, "Statistic", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Count", "1", 1, "C", true, 0, "")
	bodyStyle(pdf, 10)
	for _, r := range statRows {
		pdf.CellFormat(60, 7, r[0], "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 7, r[1], "1", 1, "C", true, 0, "")
	}
	pdf.Ln(8)

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	const rowHeight = 6.0

	if agencies := member.TallyByAgency(members); len(agencies) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Summary by agency", "", 1, "L", false, 0, "")
		writeAgencyHeader(pdf, tr)
		for _, a := range agencies {
			if pdf.GetY()+rowHeight > pageHeight-bottom {
				pdf.AddPage()
				writeAgencyHeader(pdf, tr)
			}
			cells := []string{
				a.Agency,
				strconv.Itoa(a.Delivered),
				strconv.Itoa(a.Pending),
				strconv.Itoa(a.Total),
				strconv.FormatFloat(a.DeliveredPct, 'f', 1, 64) + "%",
			}
			for i, c := range cells {
				pdf.CellFormat(agencyWidths[i], rowHeight, tr(c), "1", 0, "C", true, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(8)
	}

	writeTableHeader(pdf, tr)
	for _, m := range members {
		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
			writeTableHeader(pdf, tr)
		}
		cells := []string{
			m.Cedula,
			m.FullName(),
			m.Agency,
			m.Company,
			string(m.Status),
			Truncate(m.Notes, opts.NotesPreview),
		}
		for i, c := range cells {
			pdf.CellFormat(tableWidths[i], rowHeight, tr(c), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf report: %w", err)
	}
	return nil
}

func writeTableHeader(pdf *fpdf.Fpdf, tr func(string) string) {
	headerStyle(pdf, 10)
	for i, h := range tableHeader {
		pdf.CellFormat(tableWidths[i], 8, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	bodyStyle(pdf, 8)
}

func writeAgencyHeader(pdf *fpdf.Fpdf, tr func(string) string) {
	headerStyle(pdf, 10)
	for i, h := range agencyHeader {
		pdf.CellFormat(agencyWidths[i], 8, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	bodyStyle(pdf, 9)
}

func headerStyle(pdf *fpdf.Fpdf, size float64) {
	pdf.SetFont("Helvetica", "B", size)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
}

func bodyStyle(pdf *fpdf.Fpdf, size float64) {
	pdf.SetFont("Helvetica", "", size)
	pdf.SetFillColor(245, 245, 220)
	pdf.SetTextColor(0, 0, 0)
}
