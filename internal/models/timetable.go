package models

import "time"

// TimetableEntry is one concrete lesson placement: a period bound to a
// teacher, subject, class group, and optional room. A valid schedule never
// holds two entries sharing (period, class_group), (period, teacher), or
// (period, room) within a tenant.
type TimetableEntry struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	PeriodID     string    `db:"period_id" json:"period_id"`
	ClassGroupID string    `db:"class_group_id" json:"class_group_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	RoomID       *string   `db:"room_id" json:"room_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableEntryDetail joins display names for weekly views and exports.
type TimetableEntryDetail struct {
	TimetableEntry
	DayOfWeek      int     `db:"day_of_week" json:"day_of_week"`
	StartTime      string  `db:"start_time" json:"start_time"`
	EndTime        string  `db:"end_time" json:"end_time"`
	SubjectName    string  `db:"subject_name" json:"subject_name"`
	TeacherName    string  `db:"teacher_name" json:"teacher_name"`
	ClassGroupName string  `db:"class_group_name" json:"class_group_name"`
	RoomName       *string `db:"room_name" json:"room_name,omitempty"`
}

// TimetableFilter describes query params for listing timetable entries.
type TimetableFilter struct {
	TeacherID    string
	ClassGroupID string
	PeriodID     string
	DayOfWeek    int
	Page         int
	PageSize     int
}
