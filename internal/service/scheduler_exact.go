package service

import (
	"context"

	"github.com/campushq/timetable-api/internal/models"
)

// exactSolver runs an exhaustive backtracking search over the lesson
// placement problem: every capability must receive exactly its weekly quota
// of distinct, non-conflicting periods. The search is bounded by the caller's
// context deadline and by a node budget; when either is exhausted the best
// partial placement found so far stands in for a full solution and the
// shortfall is reported as a timeout deficit.
type exactSolver struct {
	capabilities []models.CapabilityAssignment
	occ          *occupancy

	remaining []int // lessons still to place per capability
	lastIdx   []int // symmetry break: period indexes ascend within a capability

	current []placement
	best    []placement

	nodes    int
	maxNodes int
	timedOut bool
}

func runExact(ctx context.Context, capabilities []models.CapabilityAssignment, periods []models.Period, rooms []models.Room, allocateRooms bool, maxNodes int) solution {
	s := &exactSolver{
		capabilities: capabilities,
		occ:          newOccupancy(periods, rooms, allocateRooms),
		remaining:    make([]int, len(capabilities)),
		lastIdx:      make([]int, len(capabilities)),
		maxNodes:     maxNodes,
	}
	for i, capability := range capabilities {
		s.remaining[i] = capability.LessonsPerWeek
		s.lastIdx[i] = -1
	}

	solved := s.search(ctx)

	placements := s.best
	if solved {
		placements = s.current
	}
	reason := models.DeficitNoFreePeriod
	if s.timedOut {
		reason = models.DeficitSolverTimeout
	}
	return solution{
		placements: placements,
		deficits:   buildDeficits(capabilities, placements, reason),
		timedOut:   s.timedOut,
	}
}

// search returns true once every capability is fully placed. It picks the
// most constrained open capability first, which prunes the tree sharply on
// tight instances.
func (s *exactSolver) search(ctx context.Context) bool {
	if s.exhausted(ctx) {
		s.recordBest()
		return false
	}

	capIdx, candidates := s.mostConstrained()
	if capIdx < 0 {
		// Everything placed.
		s.recordBest()
		return true
	}
	if len(candidates) == 0 {
		s.recordBest()
		return false
	}

	capability := s.capabilities[capIdx]
	prevLast := s.lastIdx[capIdx]
	for _, periodIdx := range candidates {
		s.nodes++
		roomID := s.occ.place(capability, periodIdx)
		s.remaining[capIdx]--
		s.lastIdx[capIdx] = periodIdx
		s.current = append(s.current, placement{capabilityIdx: capIdx, periodIdx: periodIdx, roomID: roomID})

		if s.search(ctx) {
			return true
		}

		s.current = s.current[:len(s.current)-1]
		s.lastIdx[capIdx] = prevLast
		s.remaining[capIdx]++
		s.occ.release(capability, periodIdx, roomID)

		if s.timedOut {
			return false
		}
	}
	return false
}

func (s *exactSolver) exhausted(ctx context.Context) bool {
	if s.timedOut {
		return true
	}
	if ctx.Err() != nil || (s.maxNodes > 0 && s.nodes >= s.maxNodes) {
		s.timedOut = true
		return true
	}
	return false
}

// mostConstrained returns the open capability with the fewest feasible
// periods and that candidate list. A return of -1 means nothing is open.
// Period indexes within one capability are forced ascending; the lessons of
// a capability are interchangeable, so this discards only mirrored orderings.
func (s *exactSolver) mostConstrained() (int, []int) {
	bestIdx := -1
	var bestCandidates []int

	for i := range s.capabilities {
		if s.remaining[i] == 0 {
			continue
		}
		candidates := s.feasiblePeriods(i)
		if bestIdx == -1 || len(candidates) < len(bestCandidates) {
			bestIdx = i
			bestCandidates = candidates
		}
		if len(bestCandidates) == 0 {
			break
		}
	}
	return bestIdx, bestCandidates
}

func (s *exactSolver) feasiblePeriods(capIdx int) []int {
	capability := s.capabilities[capIdx]
	var candidates []int
	for idx := s.lastIdx[capIdx] + 1; idx < len(s.occ.periods); idx++ {
		if s.occ.canPlace(capability, idx) {
			candidates = append(candidates, idx)
		}
	}
	return candidates
}

func (s *exactSolver) recordBest() {
	if len(s.current) <= len(s.best) {
		return
	}
	s.best = make([]placement, len(s.current))
	copy(s.best, s.current)
}
