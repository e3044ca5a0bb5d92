package dto

import "github.com/campushq/timetable-api/internal/models"

// Generation strategies. GREEDY is fast but does not backtrack and can miss
// feasible placements; EXACT searches exhaustively within its budget.
const (
	StrategyGreedy = "GREEDY"
	StrategyExact  = "EXACT"
)

// GenerateTimetableRequest instructs a full regeneration for a tenant.
type GenerateTimetableRequest struct {
	Strategy      string `json:"strategy" validate:"omitempty,oneof=GREEDY EXACT"`
	AllocateRooms *bool  `json:"allocateRooms"`
	AllOrNothing  bool   `json:"allOrNothing"`
}

// GenerateTimetableResponse summarises a generation run.
type GenerateTimetableResponse struct {
	TenantID       string                     `json:"tenantId"`
	Strategy       string                     `json:"strategy"`
	EntriesCreated int                        `json:"entriesCreated"`
	Deficits       []models.CapabilityDeficit `json:"deficits"`
	TimedOut       bool                       `json:"timedOut"`
	Committed      bool                       `json:"committed"`
}

// AsyncAccepted acknowledges a queued regeneration job.
type AsyncAccepted struct {
	JobID    string `json:"jobId"`
	TenantID string `json:"tenantId"`
	Status   string `json:"status"`
}

// SubstituteRequest asks for replacement teachers covering one absence day.
type SubstituteRequest struct {
	TeacherID string `json:"teacherId" validate:"required"`
	DayOfWeek int    `json:"dayOfWeek" validate:"required,min=1,max=5"`
}

// SubstitutionResult is one reassigned lesson.
type SubstitutionResult struct {
	EntryID      string `json:"entryId"`
	PeriodID     string `json:"periodId"`
	SubjectID    string `json:"subjectId"`
	ClassGroupID string `json:"classGroupId"`
	FromTeacher  string `json:"fromTeacherId"`
	ToTeacher    string `json:"toTeacherId"`
}

// UnresolvedEntry is a lesson left on the absent teacher because no
// qualified, conflict-free replacement exists.
type UnresolvedEntry struct {
	EntryID      string `json:"entryId"`
	PeriodID     string `json:"periodId"`
	SubjectID    string `json:"subjectId"`
	ClassGroupID string `json:"classGroupId"`
	Reason       string `json:"reason"`
}

// SubstituteResponse reports the outcome of a substitution run.
type SubstituteResponse struct {
	TenantID   string               `json:"tenantId"`
	TeacherID  string               `json:"teacherId"`
	DayOfWeek  int                  `json:"dayOfWeek"`
	Reassigned []SubstitutionResult `json:"reassigned"`
	Unresolved []UnresolvedEntry    `json:"unresolved"`
}

// AuditQuery toggles strict quota checking, where under-counts escalate
// from warnings to errors.
type AuditQuery struct {
	Strict bool `form:"strict"`
}

// WeeklyTimetableQuery selects a weekly view for export or display.
type WeeklyTimetableQuery struct {
	ClassGroupID string `form:"classGroupId"`
	TeacherID    string `form:"teacherId"`
	Format       string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// WeeklyLesson is one cell of the weekly grid.
type WeeklyLesson struct {
	EntryID        string  `json:"entryId"`
	PeriodID       string  `json:"periodId"`
	StartTime      string  `json:"startTime"`
	EndTime        string  `json:"endTime"`
	SubjectName    string  `json:"subjectName"`
	TeacherName    string  `json:"teacherName"`
	ClassGroupName string  `json:"classGroupName"`
	RoomName       *string `json:"roomName,omitempty"`
}

// WeeklyDay groups one weekday's lessons in chronological order.
type WeeklyDay struct {
	DayOfWeek int            `json:"dayOfWeek"`
	DayName   string         `json:"dayName"`
	Lessons   []WeeklyLesson `json:"lessons"`
}

// WeeklyTimetable is the Monday-to-Friday view for one class group or
// teacher.
type WeeklyTimetable struct {
	TenantID     string      `json:"tenantId"`
	ClassGroupID string      `json:"classGroupId,omitempty"`
	TeacherID    string      `json:"teacherId,omitempty"`
	Days         []WeeklyDay `json:"days"`
}
