package dto

// CreatePeriodRequest registers a bookable time slot.
type CreatePeriodRequest struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"required,min=1,max=5"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// CreateRoomRequest registers a lesson location.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1"`
	IsLab    bool   `json:"isLab"`
}

// CreateCapabilityRequest authors a teaching obligation.
type CreateCapabilityRequest struct {
	TeacherID      string `json:"teacherId" validate:"required"`
	SubjectID      string `json:"subjectId" validate:"required"`
	ClassGroupID   string `json:"classGroupId" validate:"required"`
	LessonsPerWeek int    `json:"lessonsPerWeek" validate:"required,min=1"`
}

// UpdateCapabilityRequest adjusts the weekly quota only; the identity tuple
// is immutable once created.
type UpdateCapabilityRequest struct {
	LessonsPerWeek int `json:"lessonsPerWeek" validate:"required,min=1"`
}
