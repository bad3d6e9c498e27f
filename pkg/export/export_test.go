package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []OccurrenceRow {
	return []OccurrenceRow{
		{
			Date: "2026-01-05", Day: "monday", StartTime: "08:00", EndTime: "10:00",
			CourseCode: "MATH-CM", CourseName: "Analysis lectures",
			Teacher: "A. Mbarga", Room: "A101", Status: "scheduled",
		},
		{
			Date: "2026-01-08", Day: "thursday", StartTime: "14:00", EndTime: "16:00",
			CourseCode: "MATH-TD", CourseName: "Analysis tutorials",
			Teacher: "B. Nkoulou", Room: "A102", Status: "scheduled",
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleRows())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,day,start_time,end_time,course_code,course_name,teacher,room,status", lines[0])
	assert.Contains(t, lines[1], "2026-01-05")
	assert.Contains(t, lines[1], "MATH-CM")
	assert.Contains(t, lines[2], "A102")
}

func TestCSVExporterRenderEmpty(t *testing.T) {
	payload, err := NewCSVExporter().Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "date,day,start_time,end_time,course_code,course_name,teacher,room,status", strings.TrimSpace(string(payload)))
}

func TestPDFExporterRender(t *testing.T) {
	payload, err := NewPDFExporter().Render("S1 2026", sampleRows())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}
