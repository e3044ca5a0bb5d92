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

const timetableColumns = `id, tenant_id, period_id, class_group_id, subject_id, teacher_id, room_id, created_at, updated_at`

// TimetableRepository is the persisted schedule store. It holds no business
// rules; conflict checking lives in the audit service.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// BeginTxx starts a transaction; generation and substitution wrap their
// writes in one so readers never observe a half-written schedule.
func (r *TimetableRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// ListByTenant returns every entry for a tenant ordered by period.
func (r *TimetableRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE tenant_id = $1 ORDER BY period_id ASC, class_group_id ASC`, timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// ListByTeacher returns a teacher's entries.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, tenantID, teacherID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE tenant_id = $1 AND teacher_id = $2 ORDER BY period_id ASC`, timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, teacherID); err != nil {
		return nil, fmt.Errorf("list timetable entries by teacher: %w", err)
	}
	return entries, nil
}

// ListByClassGroup returns a class group's entries.
func (r *TimetableRepository) ListByClassGroup(ctx context.Context, tenantID, classGroupID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE tenant_id = $1 AND class_group_id = $2 ORDER BY period_id ASC`, timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, classGroupID); err != nil {
		return nil, fmt.Errorf("list timetable entries by class group: %w", err)
	}
	return entries, nil
}

// ListByPeriod returns all entries occupying one period.
func (r *TimetableRepository) ListByPeriod(ctx context.Context, tenantID, periodID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE tenant_id = $1 AND period_id = $2 ORDER BY class_group_id ASC`, timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, periodID); err != nil {
		return nil, fmt.Errorf("list timetable entries by period: %w", err)
	}
	return entries, nil
}

// ListByTeacherDay returns the absent teacher's lessons on one weekday,
// ordered by start time so substitution walks the day chronologically.
func (r *TimetableRepository) ListByTeacherDay(ctx context.Context, tenantID, teacherID string, dayOfWeek int) ([]models.TimetableEntry, error) {
	const query = `SELECT e.id, e.tenant_id, e.period_id, e.class_group_id, e.subject_id, e.teacher_id, e.room_id, e.created_at, e.updated_at
FROM timetable_entries e
JOIN periods p ON p.id = e.period_id
WHERE e.tenant_id = $1 AND e.teacher_id = $2 AND p.day_of_week = $3
ORDER BY p.start_time ASC, e.class_group_id ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, teacherID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list timetable entries by teacher and day: %w", err)
	}
	return entries, nil
}

// ListDetailed joins period and roster names for weekly views and exports.
func (r *TimetableRepository) ListDetailed(ctx context.Context, tenantID string, filter models.TimetableFilter) ([]models.TimetableEntryDetail, error) {
	query := `SELECT e.id, e.tenant_id, e.period_id, e.class_group_id, e.subject_id, e.teacher_id, e.room_id, e.created_at, e.updated_at,
       p.day_of_week, p.start_time, p.end_time,
       s.name AS subject_name, t.full_name AS teacher_name, g.name AS class_group_name, r.name AS room_name
FROM timetable_entries e
JOIN periods p ON p.id = e.period_id
JOIN subjects s ON s.id = e.subject_id
JOIN teachers t ON t.id = e.teacher_id
JOIN class_groups g ON g.id = e.class_group_id
LEFT JOIN rooms r ON r.id = e.room_id
WHERE e.tenant_id = $1`
	args := []interface{}{tenantID}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		query += fmt.Sprintf(" AND e.teacher_id = $%d", len(args))
	}
	if filter.ClassGroupID != "" {
		args = append(args, filter.ClassGroupID)
		query += fmt.Sprintf(" AND e.class_group_id = $%d", len(args))
	}
	if filter.DayOfWeek > 0 {
		args = append(args, filter.DayOfWeek)
		query += fmt.Sprintf(" AND p.day_of_week = $%d", len(args))
	}
	query += " ORDER BY p.day_of_week ASC, p.start_time ASC, g.name ASC"

	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list detailed timetable entries: %w", err)
	}
	return entries, nil
}

// ReplaceForTenantWithTx atomically swaps a tenant's schedule for the given
// entry set inside the provided transaction.
func (r *TimetableRepository) ReplaceForTenantWithTx(ctx context.Context, tx *sqlx.Tx, tenantID string, entries []models.TimetableEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("clear timetable entries: %w", err)
	}

	now := time.Now().UTC()
	const query = `INSERT INTO timetable_entries (id, tenant_id, period_id, class_group_id, subject_id, teacher_id, room_id, created_at, updated_at)
VALUES (:id, :tenant_id, :period_id, :class_group_id, :subject_id, :teacher_id, :room_id, :created_at, :updated_at)`
	for i := range entries {
		payload := entries[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
		entries[i] = payload
	}
	return nil
}

// ReassignTeacherWithTx mutates the teacher column of one entry, leaving all
// other fields untouched.
func (r *TimetableRepository) ReassignTeacherWithTx(ctx context.Context, tx *sqlx.Tx, tenantID, entryID, teacherID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE timetable_entries SET teacher_id = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`
	result, err := tx.ExecContext(ctx, query, teacherID, time.Now().UTC(), entryID, tenantID)
	if err != nil {
		return fmt.Errorf("reassign timetable entry teacher: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reassign timetable entry teacher: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
