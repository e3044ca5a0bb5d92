package service

import (
	"github.com/campushq/timetable-api/internal/models"
)

// runGreedy places lessons by walking the period list round-robin. The
// cursor is shared across capabilities and advances monotonically; it is
// threaded through the placement loop as a plain value so the pass stays
// reentrant. The strategy never backtracks: it can miss a feasible layout
// the exact solver would find, which is the documented trade-off for its
// speed. Callers needing guaranteed feasibility use the exact strategy.
func runGreedy(capabilities []models.CapabilityAssignment, periods []models.Period, rooms []models.Room, allocateRooms bool) solution {
	occ := newOccupancy(periods, rooms, allocateRooms)
	placements := make([]placement, 0)
	cursor := 0

	for i, capability := range capabilities {
		for lesson := 0; lesson < capability.LessonsPerWeek; lesson++ {
			idx, ok := nextFreePeriod(occ, capability, cursor)
			if !ok {
				break
			}
			roomID := occ.place(capability, idx)
			placements = append(placements, placement{capabilityIdx: i, periodIdx: idx, roomID: roomID})
			cursor = (idx + 1) % len(periods)
		}
	}

	return solution{
		placements: placements,
		deficits:   buildDeficits(capabilities, placements, models.DeficitNoFreePeriod),
	}
}

// nextFreePeriod scans at most one full revolution starting at cursor.
func nextFreePeriod(occ *occupancy, capability models.CapabilityAssignment, cursor int) (int, bool) {
	total := len(occ.periods)
	if total == 0 {
		return 0, false
	}
	for offset := 0; offset < total; offset++ {
		idx := (cursor + offset) % total
		if occ.canPlace(capability, idx) {
			return idx, true
		}
	}
	return 0, false
}
