package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func entryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tenant_id", "period_id", "class_group_id", "subject_id", "teacher_id", "room_id", "created_at", "updated_at"})
}

func TestTimetableRepositoryListByTenant(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	rows := entryRows().
		AddRow("e-1", "tenant-1", "p-1", "7a", "math", "t-1", nil, time.Now(), time.Now()).
		AddRow("e-2", "tenant-1", "p-2", "7a", "math", "t-1", nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tenant_id, period_id, class_group_id, subject_id, teacher_id, room_id, created_at, updated_at FROM timetable_entries WHERE tenant_id = $1 ORDER BY period_id ASC, class_group_id ASC")).
		WithArgs("tenant-1").
		WillReturnRows(rows)

	entries, err := repo.ListByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByTeacherDay(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	rows := entryRows().
		AddRow("e-1", "tenant-1", "p-1", "7a", "math", "t-1", nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT e.id, e.tenant_id, .+ JOIN periods p ON p.id = e.period_id").
		WithArgs("tenant-1", "t-1", 1).
		WillReturnRows(rows)

	entries, err := repo.ListByTeacherDay(context.Background(), "tenant-1", "t-1", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e-1", entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceForTenantWithTx(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE tenant_id = $1")).
		WithArgs("tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO timetable_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	entries := []models.TimetableEntry{
		{TenantID: "tenant-1", PeriodID: "p-1", ClassGroupID: "7a", SubjectID: "math", TeacherID: "t-1"},
		{TenantID: "tenant-1", PeriodID: "p-2", ClassGroupID: "7a", SubjectID: "math", TeacherID: "t-1"},
	}
	require.NoError(t, repo.ReplaceForTenantWithTx(context.Background(), tx, "tenant-1", entries))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, entries[0].ID, "ids are filled in before insert")
	assert.False(t, entries[0].UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReassignTeacherWithTx(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_entries SET teacher_id = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4")).
		WithArgs("t-2", sqlmock.AnyArg(), "e-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.ReassignTeacherWithTx(context.Background(), tx, "tenant-1", "e-1", "t-2"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReassignTeacherMissingEntry(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE timetable_entries SET teacher_id").
		WithArgs("t-2", sqlmock.AnyArg(), "missing", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.ReassignTeacherWithTx(context.Background(), tx, "tenant-1", "missing", "t-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
