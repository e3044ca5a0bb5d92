package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/export"
)

type detailedTimetableLister interface {
	ListDetailed(ctx context.Context, tenantID string, filter models.TimetableFilter) ([]models.TimetableEntryDetail, error)
}

// TimetableService serves read views over the persisted schedule: filtered
// listings, the weekly grid, and CSV/PDF exports of that grid.
type TimetableService struct {
	timetable detailedTimetableLister
	cache     *TimetableCache
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs the read side of the timetable API.
func NewTimetableService(
	timetable detailedTimetableLister,
	cache *TimetableCache,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		timetable: timetable,
		cache:     cache,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// List returns filtered entries with paging metadata. Paging happens after
// the filtered load; schedules are bounded by periods × class groups, so the
// working set stays small.
func (s *TimetableService) List(ctx context.Context, tenantID string, filter models.TimetableFilter) ([]models.TimetableEntryDetail, *models.Pagination, error) {
	if tenantID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}

	entries, err := s.timetable.ListDetailed(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	pagination := models.NewPagination(page, pageSize, len(entries))

	start := (page - 1) * pageSize
	if start >= len(entries) {
		return []models.TimetableEntryDetail{}, pagination, nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], pagination, nil
}

// Weekly builds the Monday-to-Friday grid for one class group or teacher.
// Exactly one of the two scope filters must be set.
func (s *TimetableService) Weekly(ctx context.Context, tenantID string, query dto.WeeklyTimetableQuery) (*dto.WeeklyTimetable, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekly timetable query")
	}
	scope, scopeID, err := weeklyScope(query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached dto.WeeklyTimetable
		if cacheErr := s.cache.GetWeekly(ctx, tenantID, scope, scopeID, &cached); cacheErr == nil {
			return &cached, nil
		}
	}

	filter := models.TimetableFilter{ClassGroupID: query.ClassGroupID, TeacherID: query.TeacherID}
	entries, err := s.timetable.ListDetailed(ctx, tenantID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly timetable")
	}

	view := buildWeeklyView(tenantID, query, entries)
	if s.cache != nil {
		s.cache.SetWeekly(ctx, tenantID, scope, scopeID, view)
	}
	return view, nil
}

// Export renders the weekly grid as CSV or PDF and returns the payload with
// its content type.
func (s *TimetableService) Export(ctx context.Context, tenantID string, query dto.WeeklyTimetableQuery) ([]byte, string, error) {
	view, err := s.Weekly(ctx, tenantID, query)
	if err != nil {
		return nil, "", err
	}

	data := weeklyDataset(view)
	switch query.Format {
	case "pdf":
		title := fmt.Sprintf("Weekly Timetable %s", tenantID)
		payload, renderErr := s.pdf.Render(data, title)
		if renderErr != nil {
			return nil, "", appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", nil
	case "csv", "":
		payload, renderErr := s.csv.Render(data)
		if renderErr != nil {
			return nil, "", appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", query.Format))
	}
}

func weeklyScope(query dto.WeeklyTimetableQuery) (string, string, error) {
	hasClass := query.ClassGroupID != ""
	hasTeacher := query.TeacherID != ""
	switch {
	case hasClass && hasTeacher:
		return "", "", appErrors.Clone(appErrors.ErrValidation, "classGroupId and teacherId are mutually exclusive")
	case hasClass:
		return "class_group", query.ClassGroupID, nil
	case hasTeacher:
		return "teacher", query.TeacherID, nil
	default:
		return "", "", appErrors.Clone(appErrors.ErrValidation, "classGroupId or teacherId is required")
	}
}

// buildWeeklyView groups detail rows into per-day buckets. Rows arrive
// ordered by day then start time, so bucket order is already chronological.
func buildWeeklyView(tenantID string, query dto.WeeklyTimetableQuery, entries []models.TimetableEntryDetail) *dto.WeeklyTimetable {
	view := &dto.WeeklyTimetable{
		TenantID:     tenantID,
		ClassGroupID: query.ClassGroupID,
		TeacherID:    query.TeacherID,
		Days:         make([]dto.WeeklyDay, 0, models.DayFriday),
	}

	byDay := make(map[int][]dto.WeeklyLesson)
	for _, entry := range entries {
		byDay[entry.DayOfWeek] = append(byDay[entry.DayOfWeek], dto.WeeklyLesson{
			EntryID:        entry.ID,
			PeriodID:       entry.PeriodID,
			StartTime:      entry.StartTime,
			EndTime:        entry.EndTime,
			SubjectName:    entry.SubjectName,
			TeacherName:    entry.TeacherName,
			ClassGroupName: entry.ClassGroupName,
			RoomName:       entry.RoomName,
		})
	}

	for day := models.DayMonday; day <= models.DayFriday; day++ {
		lessons := byDay[day]
		if lessons == nil {
			lessons = []dto.WeeklyLesson{}
		}
		view.Days = append(view.Days, dto.WeeklyDay{
			DayOfWeek: day,
			DayName:   models.DayName(day),
			Lessons:   lessons,
		})
	}
	return view
}

// weeklyDataset flattens the grid into a Time × weekday table: one row per
// distinct time slot, one column per weekday.
func weeklyDataset(view *dto.WeeklyTimetable) export.Dataset {
	headers := []string{"Time"}
	for _, day := range view.Days {
		headers = append(headers, day.DayName)
	}

	slots := make([]string, 0)
	seen := make(map[string]bool)
	cells := make(map[string]map[string]string)
	for _, day := range view.Days {
		for _, lesson := range day.Lessons {
			slot := fmt.Sprintf("%s-%s", lesson.StartTime, lesson.EndTime)
			if !seen[slot] {
				seen[slot] = true
				slots = append(slots, slot)
			}
			if cells[slot] == nil {
				cells[slot] = make(map[string]string)
			}
			label := lesson.SubjectName
			if view.ClassGroupID != "" {
				label = fmt.Sprintf("%s (%s)", lesson.SubjectName, lesson.TeacherName)
			} else if view.TeacherID != "" {
				label = fmt.Sprintf("%s (%s)", lesson.SubjectName, lesson.ClassGroupName)
			}
			if lesson.RoomName != nil && *lesson.RoomName != "" {
				label = fmt.Sprintf("%s @%s", label, *lesson.RoomName)
			}
			cells[slot][day.DayName] = label
		}
	}

	sort.Strings(slots)
	rows := make([]map[string]string, 0, len(slots))
	for _, slot := range slots {
		row := map[string]string{"Time": slot}
		for dayName, label := range cells[slot] {
			row[dayName] = label
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
