package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/timetable-api/internal/models"
)

// PeriodRepository persists the bookable time-slot catalog.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository creates a new period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// ListByTenant returns all periods for a tenant ordered by day and start time.
func (r *PeriodRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Period, error) {
	const query = `SELECT id, tenant_id, day_of_week, start_time, end_time, created_at, updated_at
FROM periods WHERE tenant_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, tenantID); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// FindByID loads a period by id.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.Period, error) {
	const query = `SELECT id, tenant_id, day_of_week, start_time, end_time, created_at, updated_at FROM periods WHERE id = $1`
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// Exists checks the (tenant, day, start_time) uniqueness tuple.
func (r *PeriodRepository) Exists(ctx context.Context, tenantID string, dayOfWeek int, startTime string) (bool, error) {
	const query = `SELECT 1 FROM periods WHERE tenant_id = $1 AND day_of_week = $2 AND start_time = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, tenantID, dayOfWeek, startTime); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check period: %w", err)
	}
	return true, nil
}

// Create stores a new period.
func (r *PeriodRepository) Create(ctx context.Context, period *models.Period) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now

	const query = `INSERT INTO periods (id, tenant_id, day_of_week, start_time, end_time, created_at, updated_at)
VALUES (:id, :tenant_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

// Delete removes a period by id.
func (r *PeriodRepository) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM periods WHERE id = $1 AND tenant_id = $2`, id, tenantID); err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	return nil
}
