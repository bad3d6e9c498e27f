package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/models"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
	"github.com/oapet-edu/timetable-api/pkg/export"
)

type occurrenceReader interface {
	ListOccurrences(ctx context.Context, scheduleID string) ([]models.SessionOccurrence, error)
}

type scheduleNameReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type csvRenderer interface {
	Render(rows []export.OccurrenceRow) ([]byte, error)
}

type pdfRenderer interface {
	Render(title string, rows []export.OccurrenceRow) ([]byte, error)
}

// ExportService renders a schedule's generated occurrences into downloadable
// documents.
type ExportService struct {
	loader      *SnapshotLoader
	schedules   scheduleNameReader
	occurrences occurrenceReader
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// package defaults.
func NewExportService(loader *SnapshotLoader, schedules scheduleNameReader, occurrences occurrenceReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		loader:      loader,
		schedules:   schedules,
		occurrences: occurrences,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
	}
}

// ExportCSV renders the schedule's occurrences as CSV, returning the payload
// and a suggested filename.
func (s *ExportService) ExportCSV(ctx context.Context, scheduleID string) ([]byte, string, error) {
	rows, name, err := s.buildRows(ctx, scheduleID)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.Render(rows)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv export")
	}
	return payload, exportFilename(name, "csv"), nil
}

// ExportPDF renders the schedule's occurrences as a printable PDF.
func (s *ExportService) ExportPDF(ctx context.Context, scheduleID string) ([]byte, string, error) {
	rows, name, err := s.buildRows(ctx, scheduleID)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.pdf.Render(name, rows)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf export")
	}
	return payload, exportFilename(name, "pdf"), nil
}

// buildRows resolves occurrence references through the snapshot. Rows keep the
// repository ordering: date first, then start time.
func (s *ExportService) buildRows(ctx context.Context, scheduleID string) ([]export.OccurrenceRow, string, error) {
	snap, err := s.loader.Load(ctx, scheduleID)
	if err != nil {
		return nil, "", err
	}
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}

	occurrences, err := s.occurrences.ListOccurrences(ctx, scheduleID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load occurrences")
	}
	if len(occurrences) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule has no generated occurrences to export")
	}

	rows := make([]export.OccurrenceRow, 0, len(occurrences))
	for _, occ := range occurrences {
		row := export.OccurrenceRow{
			Date:      occ.Date.Format("2006-01-02"),
			Day:       strings.ToLower(occ.Date.Weekday().String()),
			StartTime: occ.StartTime,
			EndTime:   occ.EndTime,
			Status:    string(occ.Status),
		}
		if sess, ok := snap.SessionByID(occ.SessionID); ok {
			if course, ok := snap.CourseForSession(sess); ok {
				row.CourseCode = course.Code
				row.CourseName = course.Name
			}
		}
		if teacher, ok := snap.TeacherByID(occ.TeacherID); ok {
			row.Teacher = teacher.FullName
		}
		if room, ok := snap.RoomByID(occ.RoomID); ok {
			row.Room = room.Code
		}
		rows = append(rows, row)
	}

	s.logger.Debug("export rows built",
		zap.String("schedule_id", scheduleID),
		zap.Int("rows", len(rows)))
	return rows, schedule.Name, nil
}

func exportFilename(scheduleName, ext string) string {
	name := strings.ToLower(strings.TrimSpace(scheduleName))
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-")
	name = replacer.Replace(name)
	if name == "" {
		name = "timetable"
	}
	return fmt.Sprintf("%s_%s.%s", name, time.Now().UTC().Format("20060102_150405"), ext)
}
