package models

import "time"

// CapabilityAssignment is the quota contract the scheduler must satisfy:
// the teacher delivers the subject to the class group exactly
// LessonsPerWeek times in a complete schedule. Unique per
// (tenant, teacher, subject, class_group).
type CapabilityAssignment struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	ClassGroupID   string    `db:"class_group_id" json:"class_group_id"`
	LessonsPerWeek int       `db:"lessons_per_week" json:"lessons_per_week"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CapabilityDeficit reports the gap between a capability's weekly quota and
// the lessons actually placed by a generation run.
type CapabilityDeficit struct {
	CapabilityID string `json:"capability_id"`
	TeacherID    string `json:"teacher_id"`
	SubjectID    string `json:"subject_id"`
	ClassGroupID string `json:"class_group_id"`
	Required     int    `json:"required"`
	Scheduled    int    `json:"scheduled"`
	Missing      int    `json:"missing"`
	Reason       string `json:"reason"`
}

// Deficit reasons.
const (
	DeficitNoFreePeriod  = "NO_FREE_PERIOD"
	DeficitSolverTimeout = "SOLVER_TIMEOUT"
)
