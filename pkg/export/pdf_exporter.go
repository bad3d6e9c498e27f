package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var pdfColumns = []struct {
	header string
	width  float64
	value  func(OccurrenceRow) string
}{
	{"Date", 24, func(r OccurrenceRow) string { return r.Date }},
	{"Day", 22, func(r OccurrenceRow) string { return r.Day }},
	{"Start", 16, func(r OccurrenceRow) string { return r.StartTime }},
	{"End", 16, func(r OccurrenceRow) string { return r.EndTime }},
	{"Course", 62, func(r OccurrenceRow) string { return r.CourseCode + " " + r.CourseName }},
	{"Teacher", 34, func(r OccurrenceRow) string { return r.Teacher }},
	{"Room", 16, func(r OccurrenceRow) string { return r.Room }},
}

// PDFExporter renders occurrence rows into a printable timetable.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a title and the occurrence table. Rows
// are expected pre-sorted by date and start time.
func (e *PDFExporter) Render(title string, rows []OccurrenceRow) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 9)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 8, col.header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	lastDate := ""
	for _, row := range rows {
		if row.Date != lastDate && lastDate != "" {
			pdf.Ln(1)
		}
		lastDate = row.Date
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, col.value(row), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
