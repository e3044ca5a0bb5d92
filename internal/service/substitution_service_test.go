package service

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

func TestSubstitutionServicePicksLeastLoadedCandidate(t *testing.T) {
	// t-2 carries two weekly lessons, t-3 only one, so t-3 covers the
	// absence even though t-2 sorts first by id.
	store, mock := newSubstitutionStoreMock(t,
		[]models.TimetableEntry{
			entry("e-1", "p-1", "7a", "math", "t-1"),
			entry("e-2", "p-2", "7b", "science", "t-2"),
			entry("e-3", "p-3", "7c", "science", "t-2"),
			entry("e-4", "p-4", "7d", "history", "t-3"),
		},
		map[string]int{"e-1": 1},
	)
	mock.ExpectBegin()
	mock.ExpectCommit()

	service := newSubstitutionFixture(store, []models.CapabilityAssignment{
		capability("cap-1", "t-1", "math", "7a", 1),
		capability("cap-2", "t-2", "math", "7a", 1),
		capability("cap-3", "t-3", "math", "7a", 1),
	})

	resp, err := service.Substitute(context.Background(), "tenant-1", dto.SubstituteRequest{TeacherID: "t-1", DayOfWeek: 1})
	require.NoError(t, err)
	require.Len(t, resp.Reassigned, 1)
	assert.Equal(t, "e-1", resp.Reassigned[0].EntryID)
	assert.Equal(t, "t-1", resp.Reassigned[0].FromTeacher)
	assert.Equal(t, "t-3", resp.Reassigned[0].ToTeacher)
	assert.Empty(t, resp.Unresolved)
	assert.Equal(t, "t-3", store.teacherOf("e-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionServiceExcludesBusyCandidates(t *testing.T) {
	// t-2 already teaches another class at p-1 and must not be double-booked.
	store, mock := newSubstitutionStoreMock(t,
		[]models.TimetableEntry{
			entry("e-1", "p-1", "7a", "math", "t-1"),
			entry("e-2", "p-1", "7b", "science", "t-2"),
		},
		map[string]int{"e-1": 1},
	)
	mock.ExpectBegin()
	mock.ExpectCommit()

	service := newSubstitutionFixture(store, []models.CapabilityAssignment{
		capability("cap-1", "t-1", "math", "7a", 1),
		capability("cap-2", "t-2", "math", "7a", 1),
		capability("cap-3", "t-3", "math", "7a", 1),
	})

	resp, err := service.Substitute(context.Background(), "tenant-1", dto.SubstituteRequest{TeacherID: "t-1", DayOfWeek: 1})
	require.NoError(t, err)
	require.Len(t, resp.Reassigned, 1)
	assert.Equal(t, "t-3", resp.Reassigned[0].ToTeacher)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionServiceTracksSameRunLoad(t *testing.T) {
	// After e-1 lands on t-2, t-2's weekly load rises within the run, so
	// e-2 goes to the now lighter t-3.
	store, mock := newSubstitutionStoreMock(t,
		[]models.TimetableEntry{
			entry("e-1", "p-1", "7a", "math", "t-1"),
			entry("e-2", "p-2", "7b", "math", "t-1"),
		},
		map[string]int{"e-1": 1, "e-2": 1},
	)
	mock.ExpectBegin()
	mock.ExpectCommit()

	service := newSubstitutionFixture(store, []models.CapabilityAssignment{
		capability("cap-1", "t-1", "math", "7a", 1),
		capability("cap-2", "t-1", "math", "7b", 1),
		capability("cap-3", "t-2", "math", "7a", 1),
		capability("cap-4", "t-2", "math", "7b", 1),
		capability("cap-5", "t-3", "math", "7b", 1),
	})

	resp, err := service.Substitute(context.Background(), "tenant-1", dto.SubstituteRequest{TeacherID: "t-1", DayOfWeek: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Reassigned, 2)
	assert.Equal(t, "t-2", store.teacherOf("e-1"))
	assert.Equal(t, "t-3", store.teacherOf("e-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionServiceSurfacesUnresolvedEntries(t *testing.T) {
	store, mock := newSubstitutionStoreMock(t,
		[]models.TimetableEntry{
			entry("e-1", "p-1", "7a", "math", "t-1"),
		},
		map[string]int{"e-1": 1},
	)
	mock.ExpectBegin()
	mock.ExpectCommit()

	// Only the absent teacher holds the required capability.
	service := newSubstitutionFixture(store, []models.CapabilityAssignment{
		capability("cap-1", "t-1", "math", "7a", 1),
	})

	resp, err := service.Substitute(context.Background(), "tenant-1", dto.SubstituteRequest{TeacherID: "t-1", DayOfWeek: 1})
	require.NoError(t, err)
	assert.Empty(t, resp.Reassigned)
	require.Len(t, resp.Unresolved, 1)
	assert.Equal(t, "e-1", resp.Unresolved[0].EntryID)
	assert.Equal(t, appErrors.ErrNoSubstitute.Code, resp.Unresolved[0].Reason)
	assert.Equal(t, "t-1", store.teacherOf("e-1"), "unresolved lessons stay on the absent teacher")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionServiceMixedOutcome(t *testing.T) {
	// Two lessons on the absence day: a substitute exists for the first,
	// nobody else teaches physics to 7b, so the second stays unresolved.
	store, mock := newSubstitutionStoreMock(t,
		[]models.TimetableEntry{
			entry("e-1", "p-1", "7a", "math", "t-1"),
			entry("e-2", "p-2", "7b", "physics", "t-1"),
		},
		map[string]int{"e-1": 1, "e-2": 1},
	)
	mock.ExpectBegin()
	mock.ExpectCommit()

	service := newSubstitutionFixture(store, []models.CapabilityAssignment{
		capability("cap-1", "t-1", "math", "7a", 1),
		capability("cap-2", "t-1", "physics", "7b", 1),
		capability("cap-3", "t-2", "math", "7a", 1),
	})

	resp, err := service.Substitute(context.Background(), "tenant-1", dto.SubstituteRequest{TeacherID: "t-1", DayOfWeek: 1})
	require.NoError(t, err)
	require.Len(t, resp.Reassigned, 1)
	assert.Equal(t, "e-1", resp.Reassigned[0].EntryID)
	assert.Equal(t, "t-2", resp.Reassigned[0].ToTeacher)
	require.Len(t, resp.Unresolved, 1)
	assert.Equal(t, "e-2", resp.Unresolved[0].EntryID)
	assert.Equal(t, "t-1", store.teacherOf("e-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionServiceNoLessonsOnDay(t *testing.T) {
	store, mock := newSubstitutionStoreMock(t, nil, nil)

	service := newSubstitutionFixture(store, nil)

	resp, err := service.Substitute(context.Background(), "tenant-1", dto.SubstituteRequest{TeacherID: "t-1", DayOfWeek: 3})
	require.NoError(t, err)
	assert.Empty(t, resp.Reassigned)
	assert.Empty(t, resp.Unresolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionServiceRejectsConcurrentRun(t *testing.T) {
	store, _ := newSubstitutionStoreMock(t, nil, nil)
	locks := NewTenantLocks()
	release, ok := locks.TryAcquire("tenant-1")
	require.True(t, ok)
	defer release()

	service := NewSubstitutionService(store, capabilityCandidateStub{}, locks, nil, nil, validator.New(), zap.NewNop())

	_, err := service.Substitute(context.Background(), "tenant-1", dto.SubstituteRequest{TeacherID: "t-1", DayOfWeek: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGenerationBusy.Code, appErrors.FromError(err).Code)
}

func TestSubstitutionServiceValidatesRequest(t *testing.T) {
	store, _ := newSubstitutionStoreMock(t, nil, nil)
	service := newSubstitutionFixture(store, nil)

	_, err := service.Substitute(context.Background(), "tenant-1", dto.SubstituteRequest{TeacherID: "t-1", DayOfWeek: 6})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func newSubstitutionFixture(store *substitutionStoreMock, capabilities []models.CapabilityAssignment) *SubstitutionService {
	return NewSubstitutionService(
		store,
		capabilityCandidateStub{items: capabilities},
		NewTenantLocks(),
		nil,
		nil,
		validator.New(),
		zap.NewNop(),
	)
}

// substitutionStoreMock keeps entries in memory and applies reassignments so
// assertions can inspect the post-run schedule. absentDay marks which entry
// ids fall on the requested weekday.
type substitutionStoreMock struct {
	db        *sqlx.DB
	entries   []models.TimetableEntry
	absentDay map[string]int
}

func newSubstitutionStoreMock(t *testing.T, entries []models.TimetableEntry, absentDay map[string]int) (*substitutionStoreMock, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &substitutionStoreMock{db: sqlxdb, entries: entries, absentDay: absentDay}, mock
}

func (m *substitutionStoreMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}

func (m *substitutionStoreMock) ListByTenant(ctx context.Context, tenantID string) ([]models.TimetableEntry, error) {
	out := make([]models.TimetableEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *substitutionStoreMock) ListByTeacherDay(ctx context.Context, tenantID, teacherID string, dayOfWeek int) ([]models.TimetableEntry, error) {
	var out []models.TimetableEntry
	for _, e := range m.entries {
		if e.TeacherID == teacherID && m.absentDay[e.ID] == dayOfWeek {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *substitutionStoreMock) ReassignTeacherWithTx(ctx context.Context, tx *sqlx.Tx, tenantID, entryID, teacherID string) error {
	for i := range m.entries {
		if m.entries[i].ID == entryID {
			m.entries[i].TeacherID = teacherID
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *substitutionStoreMock) teacherOf(entryID string) string {
	for _, e := range m.entries {
		if e.ID == entryID {
			return e.TeacherID
		}
	}
	return ""
}

type capabilityCandidateStub struct {
	items []models.CapabilityAssignment
}

func (s capabilityCandidateStub) ListBySubjectClassGroup(ctx context.Context, tenantID, subjectID, classGroupID string) ([]models.CapabilityAssignment, error) {
	var out []models.CapabilityAssignment
	for _, c := range s.items {
		if c.SubjectID == subjectID && c.ClassGroupID == classGroupID {
			out = append(out, c)
		}
	}
	return out, nil
}
