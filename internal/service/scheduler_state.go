package service

import (
	"github.com/campushq/timetable-api/internal/models"
)

// placement binds one lesson of a capability to a period and optional room.
type placement struct {
	capabilityIdx int
	periodIdx     int
	roomID        *string
}

// occupancy tracks which periods are taken along each exclusivity dimension
// while a solution is being built. It is strategy-agnostic: the greedy pass
// and the exact solver mutate the same structure.
type occupancy struct {
	periods []models.Period
	rooms   []models.Room

	allocateRooms bool

	teacherBusy map[int]map[string]bool
	classBusy   map[int]map[string]bool
	roomBusy    map[int]map[string]bool
}

func newOccupancy(periods []models.Period, rooms []models.Room, allocateRooms bool) *occupancy {
	return &occupancy{
		periods:       periods,
		rooms:         rooms,
		allocateRooms: allocateRooms,
		teacherBusy:   make(map[int]map[string]bool),
		classBusy:     make(map[int]map[string]bool),
		roomBusy:      make(map[int]map[string]bool),
	}
}

// canPlace reports whether the capability's teacher and class group are both
// free at the period, and, when rooms are allocated, a room is still open.
func (o *occupancy) canPlace(capability models.CapabilityAssignment, periodIdx int) bool {
	if o.teacherBusy[periodIdx][capability.TeacherID] {
		return false
	}
	if o.classBusy[periodIdx][capability.ClassGroupID] {
		return false
	}
	if o.allocateRooms && o.freeRoom(periodIdx) == nil {
		return false
	}
	return true
}

// freeRoom returns the first catalog room unoccupied at the period. Catalog
// order is stable, so the pick is deterministic.
func (o *occupancy) freeRoom(periodIdx int) *models.Room {
	for i := range o.rooms {
		if !o.roomBusy[periodIdx][o.rooms[i].ID] {
			return &o.rooms[i]
		}
	}
	return nil
}

// place marks the period taken and returns the allocated room id, if any.
func (o *occupancy) place(capability models.CapabilityAssignment, periodIdx int) *string {
	if o.teacherBusy[periodIdx] == nil {
		o.teacherBusy[periodIdx] = make(map[string]bool)
	}
	o.teacherBusy[periodIdx][capability.TeacherID] = true

	if o.classBusy[periodIdx] == nil {
		o.classBusy[periodIdx] = make(map[string]bool)
	}
	o.classBusy[periodIdx][capability.ClassGroupID] = true

	if !o.allocateRooms {
		return nil
	}
	room := o.freeRoom(periodIdx)
	if room == nil {
		return nil
	}
	if o.roomBusy[periodIdx] == nil {
		o.roomBusy[periodIdx] = make(map[string]bool)
	}
	o.roomBusy[periodIdx][room.ID] = true
	roomID := room.ID
	return &roomID
}

// release undoes a place call during backtracking.
func (o *occupancy) release(capability models.CapabilityAssignment, periodIdx int, roomID *string) {
	delete(o.teacherBusy[periodIdx], capability.TeacherID)
	delete(o.classBusy[periodIdx], capability.ClassGroupID)
	if roomID != nil {
		delete(o.roomBusy[periodIdx], *roomID)
	}
}

// solution is the outcome of one solving pass, before persistence.
type solution struct {
	placements []placement
	deficits   []models.CapabilityDeficit
	timedOut   bool
}

// buildDeficits compares placed counts against quotas. reason is applied to
// every shortfall; a timed-out exact run marks them SOLVER_TIMEOUT.
func buildDeficits(capabilities []models.CapabilityAssignment, placements []placement, reason string) []models.CapabilityDeficit {
	placed := make(map[int]int, len(capabilities))
	for _, p := range placements {
		placed[p.capabilityIdx]++
	}

	var deficits []models.CapabilityDeficit
	for i, capability := range capabilities {
		missing := capability.LessonsPerWeek - placed[i]
		if missing <= 0 {
			continue
		}
		deficits = append(deficits, models.CapabilityDeficit{
			CapabilityID: capability.ID,
			TeacherID:    capability.TeacherID,
			SubjectID:    capability.SubjectID,
			ClassGroupID: capability.ClassGroupID,
			Required:     capability.LessonsPerWeek,
			Scheduled:    placed[i],
			Missing:      missing,
			Reason:       reason,
		})
	}
	return deficits
}
