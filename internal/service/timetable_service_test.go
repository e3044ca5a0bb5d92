package service

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

func TestTimetableServiceWeeklyGroupsByDay(t *testing.T) {
	service := newTimetableFixture(sampleDetails(), nil)

	view, err := service.Weekly(context.Background(), "tenant-1", dto.WeeklyTimetableQuery{ClassGroupID: "7a"})
	require.NoError(t, err)
	require.Len(t, view.Days, 5)
	assert.Equal(t, "MONDAY", view.Days[0].DayName)
	require.Len(t, view.Days[0].Lessons, 2)
	assert.Equal(t, "08:00", view.Days[0].Lessons[0].StartTime)
	assert.Equal(t, "Mathematics", view.Days[0].Lessons[0].SubjectName)
	require.Len(t, view.Days[1].Lessons, 1)
	assert.Empty(t, view.Days[4].Lessons, "days without lessons stay present but empty")
}

func TestTimetableServiceWeeklyRequiresExactlyOneScope(t *testing.T) {
	service := newTimetableFixture(nil, nil)

	_, err := service.Weekly(context.Background(), "tenant-1", dto.WeeklyTimetableQuery{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.Weekly(context.Background(), "tenant-1", dto.WeeklyTimetableQuery{ClassGroupID: "7a", TeacherID: "t-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceWeeklyServesFromCache(t *testing.T) {
	cached := dto.WeeklyTimetable{TenantID: "tenant-1", ClassGroupID: "7a"}
	store := &cacheStoreStub{values: map[string]interface{}{
		"timetable:tenant-1:weekly:class_group:7a": cached,
	}}
	service := newTimetableFixture(nil, store)

	view, err := service.Weekly(context.Background(), "tenant-1", dto.WeeklyTimetableQuery{ClassGroupID: "7a"})
	require.NoError(t, err)
	assert.Equal(t, cached.TenantID, view.TenantID)
	assert.Zero(t, store.sets, "cache hits must not rewrite the entry")
}

func TestTimetableServiceWeeklyPopulatesCache(t *testing.T) {
	store := &cacheStoreStub{}
	service := newTimetableFixture(sampleDetails(), store)

	_, err := service.Weekly(context.Background(), "tenant-1", dto.WeeklyTimetableQuery{ClassGroupID: "7a"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.sets)
}

func TestTimetableServiceExportCSV(t *testing.T) {
	service := newTimetableFixture(sampleDetails(), nil)

	payload, contentType, err := service.Export(context.Background(), "tenant-1", dto.WeeklyTimetableQuery{ClassGroupID: "7a", Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, []string{"Time", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}, records[0])
	// Two distinct time slots across the sample week.
	assert.Len(t, records, 3)
	assert.Equal(t, "08:00-08:45", records[1][0])
	assert.Contains(t, records[1][1], "Mathematics")
}

func TestTimetableServiceExportPDF(t *testing.T) {
	service := newTimetableFixture(sampleDetails(), nil)

	payload, contentType, err := service.Export(context.Background(), "tenant-1", dto.WeeklyTimetableQuery{ClassGroupID: "7a", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestTimetableServiceListPaginates(t *testing.T) {
	service := newTimetableFixture(sampleDetails(), nil)

	entries, pagination, err := service.List(context.Background(), "tenant-1", models.TimetableFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 3, pagination.TotalItems)
	assert.Equal(t, 2, pagination.TotalPages)

	entries, _, err = service.List(context.Background(), "tenant-1", models.TimetableFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, _, err = service.List(context.Background(), "tenant-1", models.TimetableFilter{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func newTimetableFixture(details []models.TimetableEntryDetail, store *cacheStoreStub) *TimetableService {
	var cache *TimetableCache
	if store != nil {
		cache = NewTimetableCache(store, true, time.Minute, zap.NewNop())
	}
	return NewTimetableService(detailedListStub{items: details}, cache, nil, zap.NewNop())
}

func sampleDetails() []models.TimetableEntryDetail {
	detail := func(id string, day int, start, end, subject string) models.TimetableEntryDetail {
		return models.TimetableEntryDetail{
			TimetableEntry: models.TimetableEntry{
				ID:           id,
				TenantID:     "tenant-1",
				PeriodID:     "p-" + id,
				ClassGroupID: "7a",
				SubjectID:    strings.ToLower(subject),
				TeacherID:    "t-1",
			},
			DayOfWeek:      day,
			StartTime:      start,
			EndTime:        end,
			SubjectName:    subject,
			TeacherName:    "A. Turing",
			ClassGroupName: "7A",
		}
	}
	return []models.TimetableEntryDetail{
		detail("1", 1, "08:00", "08:45", "Mathematics"),
		detail("2", 1, "09:00", "09:45", "Physics"),
		detail("3", 2, "08:00", "08:45", "Chemistry"),
	}
}

type detailedListStub struct {
	items []models.TimetableEntryDetail
}

func (s detailedListStub) ListDetailed(ctx context.Context, tenantID string, filter models.TimetableFilter) ([]models.TimetableEntryDetail, error) {
	return s.items, nil
}

type cacheStoreStub struct {
	values map[string]interface{}
	sets   int
}

func (s *cacheStoreStub) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	cached, ok := value.(dto.WeeklyTimetable)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	out, ok := dest.(*dto.WeeklyTimetable)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*out = cached
	return nil
}

func (s *cacheStoreStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.sets++
	return nil
}

func (s *cacheStoreStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.values = nil
	return nil
}
