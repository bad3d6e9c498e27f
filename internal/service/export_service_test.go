package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/models"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
)

type occurrenceReaderStub struct {
	items []models.SessionOccurrence
}

func (s occurrenceReaderStub) ListOccurrences(ctx context.Context, scheduleID string) ([]models.SessionOccurrence, error) {
	return s.items, nil
}

func exportFixtureOccurrences() []models.SessionOccurrence {
	return []models.SessionOccurrence{
		{
			ID: "occ-1", SessionID: "sess-cm",
			Date:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			StartTime: "08:00", EndTime: "10:00",
			RoomID: "room-a", TeacherID: "teacher-1",
			Status: models.OccurrenceStatusScheduled,
		},
		{
			ID: "occ-2", SessionID: "sess-td",
			Date:      time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
			StartTime: "14:00", EndTime: "16:00",
			RoomID: "room-b", TeacherID: "teacher-2",
			Status: models.OccurrenceStatusScheduled,
		},
	}
}

func newExportFixture(items []models.SessionOccurrence) *ExportService {
	schedules := scheduleRepoStub{schedule: &models.Schedule{ID: fixtureScheduleID, Name: "S1 2026"}}
	return NewExportService(
		newLoaderFixture(),
		schedules,
		occurrenceReaderStub{items: items},
		nil,
		nil,
		zap.NewNop(),
	)
}

func TestExportServiceCSV(t *testing.T) {
	service := newExportFixture(exportFixtureOccurrences())

	payload, filename, err := service.ExportCSV(context.Background(), fixtureScheduleID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "s1_2026_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	body := string(payload)
	assert.Contains(t, body, "MATH-CM")
	assert.Contains(t, body, "A. Mbarga")
	assert.Contains(t, body, "A102")
	assert.Contains(t, body, "2026-01-08")
}

func TestExportServicePDF(t *testing.T) {
	service := newExportFixture(exportFixtureOccurrences())

	payload, filename, err := service.ExportPDF(context.Background(), fixtureScheduleID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportServiceRequiresOccurrences(t *testing.T) {
	service := newExportFixture(nil)

	_, _, err := service.ExportCSV(context.Background(), fixtureScheduleID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
