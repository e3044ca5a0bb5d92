package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/models"
)

func TestPeriodRepositoryListByTenant(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "day_of_week", "start_time", "end_time", "created_at", "updated_at"}).
		AddRow("p-1", "tenant-1", 1, "08:00", "08:45", time.Now(), time.Now()).
		AddRow("p-2", "tenant-1", 1, "09:00", "09:45", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, tenant_id, day_of_week, start_time, end_time, .+ ORDER BY day_of_week ASC, start_time ASC").
		WithArgs("tenant-1").
		WillReturnRows(rows)

	periods, err := repo.ListByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, 1, periods[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryExists(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	mock.ExpectQuery("SELECT 1 FROM periods").
		WithArgs("tenant-1", 1, "08:00").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "tenant-1", 1, "08:00")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM periods").
		WithArgs("tenant-1", 2, "08:00").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.Exists(context.Background(), "tenant-1", 2, "08:00")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	mock.ExpectExec("INSERT INTO periods").
		WillReturnResult(sqlmock.NewResult(1, 1))

	period := &models.Period{TenantID: "tenant-1", DayOfWeek: 1, StartTime: "08:00", EndTime: "08:45"}
	require.NoError(t, repo.Create(context.Background(), period))
	assert.NotEmpty(t, period.ID)
	assert.False(t, period.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
