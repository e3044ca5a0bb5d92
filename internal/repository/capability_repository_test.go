package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/models"
)

func capabilityRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tenant_id", "teacher_id", "subject_id", "class_group_id", "lessons_per_week", "created_at", "updated_at"})
}

func TestCapabilityRepositoryListByTenant(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCapabilityRepository(db)

	rows := capabilityRows().
		AddRow("cap-1", "tenant-1", "t-1", "math", "7a", 3, time.Now(), time.Now()).
		AddRow("cap-2", "tenant-1", "t-2", "science", "7b", 2, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, tenant_id, teacher_id, subject_id, class_group_id, lessons_per_week, .+ ORDER BY teacher_id ASC, subject_id ASC, class_group_id ASC").
		WithArgs("tenant-1").
		WillReturnRows(rows)

	capabilities, err := repo.ListByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Len(t, capabilities, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapabilityRepositoryListBySubjectClassGroup(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCapabilityRepository(db)

	rows := capabilityRows().
		AddRow("cap-1", "tenant-1", "t-1", "math", "7a", 3, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, tenant_id, teacher_id, subject_id, class_group_id, lessons_per_week, .+ WHERE tenant_id = .+ AND subject_id = .+ AND class_group_id = ").
		WithArgs("tenant-1", "math", "7a").
		WillReturnRows(rows)

	capabilities, err := repo.ListBySubjectClassGroup(context.Background(), "tenant-1", "math", "7a")
	require.NoError(t, err)
	require.Len(t, capabilities, 1)
	assert.Equal(t, "t-1", capabilities[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapabilityRepositoryExists(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCapabilityRepository(db)

	mock.ExpectQuery("SELECT 1 FROM capability_assignments").
		WithArgs("tenant-1", "t-1", "math", "7a").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "tenant-1", "t-1", "math", "7a")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM capability_assignments").
		WithArgs("tenant-1", "t-9", "math", "7a").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.Exists(context.Background(), "tenant-1", "t-9", "math", "7a")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapabilityRepositoryCreate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCapabilityRepository(db)

	mock.ExpectExec("INSERT INTO capability_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	capability := &models.CapabilityAssignment{
		TenantID:       "tenant-1",
		TeacherID:      "t-1",
		SubjectID:      "math",
		ClassGroupID:   "7a",
		LessonsPerWeek: 3,
	}
	require.NoError(t, repo.Create(context.Background(), capability))
	assert.NotEmpty(t, capability.ID)
	assert.False(t, capability.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapabilityRepositoryUpdateQuota(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCapabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE capability_assignments SET lessons_per_week = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4")).
		WithArgs(5, sqlmock.AnyArg(), "cap-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateQuota(context.Background(), "tenant-1", "cap-1", 5))

	mock.ExpectExec("UPDATE capability_assignments SET lessons_per_week").
		WithArgs(5, sqlmock.AnyArg(), "missing", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateQuota(context.Background(), "tenant-1", "missing", 5)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
