package models

// Conflict dimensions reported by the auditor.
const (
	ConflictDimensionTeacher    = "TEACHER"
	ConflictDimensionClassGroup = "CLASS_GROUP"
	ConflictDimensionRoom       = "ROOM"
)

// Quota mismatch severities. An over-count always indicates a bypassed
// write path; an under-count is an incomplete schedule.
const (
	QuotaSeverityError   = "ERROR"
	QuotaSeverityWarning = "WARNING"
)

// BookingConflict flags a period double-booked along one dimension. EntryIDs
// lists every entry in the colliding group.
type BookingConflict struct {
	Dimension string   `json:"dimension"`
	PeriodID  string   `json:"period_id"`
	SubjectID string   `json:"subject_id,omitempty"`
	HolderID  string   `json:"holder_id"`
	EntryIDs  []string `json:"entry_ids"`
}

// QuotaMismatch reports a scheduled lesson count diverging from the
// capability's weekly quota.
type QuotaMismatch struct {
	CapabilityID string `json:"capability_id"`
	TeacherID    string `json:"teacher_id"`
	SubjectID    string `json:"subject_id"`
	ClassGroupID string `json:"class_group_id"`
	Expected     int    `json:"expected"`
	Actual       int    `json:"actual"`
	Severity     string `json:"severity"`
}

// AuditReport is the complete result of an invariant validation pass.
type AuditReport struct {
	TenantID            string            `json:"tenant_id"`
	TeacherConflicts    []BookingConflict `json:"teacher_conflicts"`
	ClassGroupConflicts []BookingConflict `json:"class_group_conflicts"`
	RoomConflicts       []BookingConflict `json:"room_conflicts"`
	QuotaMismatches     []QuotaMismatch   `json:"quota_mismatches"`
	Blocking            bool              `json:"blocking"`
}

// Clean reports whether the audit found nothing at all.
func (r AuditReport) Clean() bool {
	return len(r.TeacherConflicts) == 0 &&
		len(r.ClassGroupConflicts) == 0 &&
		len(r.RoomConflicts) == 0 &&
		len(r.QuotaMismatches) == 0
}
