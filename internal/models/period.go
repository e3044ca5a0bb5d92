package models

import "time"

// Weekday bounds for bookable periods. Weekends are never schedulable.
const (
	DayMonday = 1
	DayFriday = 5
)

// Period is a fixed weekly time slot within a tenant. Reference data:
// created by configuration, never by the scheduler.
type Period struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

var dayNames = map[int]string{
	1: "MONDAY",
	2: "TUESDAY",
	3: "WEDNESDAY",
	4: "THURSDAY",
	5: "FRIDAY",
}

// DayName returns the uppercase weekday name for a 1-based day index.
func DayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return ""
}
