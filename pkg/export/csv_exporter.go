package export

import (
	"fmt"

	"github.com/gocarina/gocsv"
)

// OccurrenceRow is one exported timetable line.
type OccurrenceRow struct {
	Date       string `csv:"date"`
	Day        string `csv:"day"`
	StartTime  string `csv:"start_time"`
	EndTime    string `csv:"end_time"`
	CourseCode string `csv:"course_code"`
	CourseName string `csv:"course_name"`
	Teacher    string `csv:"teacher"`
	Room       string `csv:"room"`
	Status     string `csv:"status"`
}

// CSVExporter renders occurrence rows into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the rows, header included.
func (e *CSVExporter) Render(rows []OccurrenceRow) ([]byte, error) {
	payload, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return payload, nil
}
