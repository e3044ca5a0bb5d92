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

// CapabilityRepository persists teaching obligations.
type CapabilityRepository struct {
	db *sqlx.DB
}

// NewCapabilityRepository constructs the repository.
func NewCapabilityRepository(db *sqlx.DB) *CapabilityRepository {
	return &CapabilityRepository{db: db}
}

// ListByTenant returns every capability for a tenant in a stable order. The
// ordering doubles as the scheduler's processing order, so it must be
// deterministic across calls.
func (r *CapabilityRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.CapabilityAssignment, error) {
	const query = `SELECT id, tenant_id, teacher_id, subject_id, class_group_id, lessons_per_week, created_at, updated_at
FROM capability_assignments WHERE tenant_id = $1
ORDER BY teacher_id ASC, subject_id ASC, class_group_id ASC`
	var capabilities []models.CapabilityAssignment
	if err := r.db.SelectContext(ctx, &capabilities, query, tenantID); err != nil {
		return nil, fmt.Errorf("list capabilities: %w", err)
	}
	return capabilities, nil
}

// ListBySubjectClassGroup returns capabilities able to cover a lesson,
// ordered by teacher for deterministic candidate iteration.
func (r *CapabilityRepository) ListBySubjectClassGroup(ctx context.Context, tenantID, subjectID, classGroupID string) ([]models.CapabilityAssignment, error) {
	const query = `SELECT id, tenant_id, teacher_id, subject_id, class_group_id, lessons_per_week, created_at, updated_at
FROM capability_assignments WHERE tenant_id = $1 AND subject_id = $2 AND class_group_id = $3
ORDER BY teacher_id ASC`
	var capabilities []models.CapabilityAssignment
	if err := r.db.SelectContext(ctx, &capabilities, query, tenantID, subjectID, classGroupID); err != nil {
		return nil, fmt.Errorf("list capabilities by subject and class group: %w", err)
	}
	return capabilities, nil
}

// FindByID loads a capability by id.
func (r *CapabilityRepository) FindByID(ctx context.Context, id string) (*models.CapabilityAssignment, error) {
	const query = `SELECT id, tenant_id, teacher_id, subject_id, class_group_id, lessons_per_week, created_at, updated_at
FROM capability_assignments WHERE id = $1`
	var capability models.CapabilityAssignment
	if err := r.db.GetContext(ctx, &capability, query, id); err != nil {
		return nil, err
	}
	return &capability, nil
}

// Exists checks whether the identity tuple is already registered.
func (r *CapabilityRepository) Exists(ctx context.Context, tenantID, teacherID, subjectID, classGroupID string) (bool, error) {
	const query = `SELECT 1 FROM capability_assignments
WHERE tenant_id = $1 AND teacher_id = $2 AND subject_id = $3 AND class_group_id = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, tenantID, teacherID, subjectID, classGroupID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check capability: %w", err)
	}
	return true, nil
}

// Create inserts a new capability.
func (r *CapabilityRepository) Create(ctx context.Context, capability *models.CapabilityAssignment) error {
	if capability.ID == "" {
		capability.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if capability.CreatedAt.IsZero() {
		capability.CreatedAt = now
	}
	capability.UpdatedAt = now

	const query = `INSERT INTO capability_assignments (id, tenant_id, teacher_id, subject_id, class_group_id, lessons_per_week, created_at, updated_at)
VALUES (:id, :tenant_id, :teacher_id, :subject_id, :class_group_id, :lessons_per_week, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, capability); err != nil {
		return fmt.Errorf("create capability: %w", err)
	}
	return nil
}

// UpdateQuota changes the weekly lesson quota.
func (r *CapabilityRepository) UpdateQuota(ctx context.Context, tenantID, id string, lessonsPerWeek int) error {
	const query = `UPDATE capability_assignments SET lessons_per_week = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`
	result, err := r.db.ExecContext(ctx, query, lessonsPerWeek, time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("update capability quota: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update capability quota: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a capability by id.
func (r *CapabilityRepository) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM capability_assignments WHERE id = $1 AND tenant_id = $2`, id, tenantID); err != nil {
		return fmt.Errorf("delete capability: %w", err)
	}
	return nil
}
