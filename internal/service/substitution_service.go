package service

import (
	"context"
	"database/sql"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type substitutionStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	ListByTenant(ctx context.Context, tenantID string) ([]models.TimetableEntry, error)
	ListByTeacherDay(ctx context.Context, tenantID, teacherID string, dayOfWeek int) ([]models.TimetableEntry, error)
	ReassignTeacherWithTx(ctx context.Context, tx *sqlx.Tx, tenantID, entryID, teacherID string) error
}

type capabilityCandidateLister interface {
	ListBySubjectClassGroup(ctx context.Context, tenantID, subjectID, classGroupID string) ([]models.CapabilityAssignment, error)
}

type substitutionObserver interface {
	ObserveSubstitution(outcome string, count int)
}

// SubstitutionService repairs one day of the schedule after a teacher
// absence. It mutates only the teacher column of existing entries; rows are
// never created or deleted and the capability registry is never touched.
type SubstitutionService struct {
	timetable    substitutionStore
	capabilities capabilityCandidateLister
	locks        *tenantLocks
	cache        timetableCacheInvalidator
	metrics      substitutionObserver
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewSubstitutionService wires the resolver. locks must be the same registry
// the scheduler uses; cache and metrics may be nil.
func NewSubstitutionService(
	timetable substitutionStore,
	capabilities capabilityCandidateLister,
	locks *tenantLocks,
	cache timetableCacheInvalidator,
	metrics substitutionObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *SubstitutionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewTenantLocks()
	}
	return &SubstitutionService{
		timetable:    timetable,
		capabilities: capabilities,
		locks:        locks,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Substitute reassigns every lesson the absent teacher holds on the given
// weekday to a qualified, conflict-free replacement. Replacement choice is
// deterministic: lowest current weekly load first, ties broken by teacher
// id, so re-running against unchanged state yields the same result. Lessons
// with no viable candidate stay on the absent teacher and are returned as
// unresolved, never dropped.
func (s *SubstitutionService) Substitute(ctx context.Context, tenantID string, req dto.SubstituteRequest) (*dto.SubstituteResponse, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitute payload")
	}

	release, ok := s.locks.TryAcquire(tenantID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrGenerationBusy, "")
	}
	defer release()

	affected, err := s.timetable.ListByTeacherDay(ctx, tenantID, req.TeacherID, req.DayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load affected entries")
	}

	resp := &dto.SubstituteResponse{
		TenantID:   tenantID,
		TeacherID:  req.TeacherID,
		DayOfWeek:  req.DayOfWeek,
		Reassigned: make([]dto.SubstitutionResult, 0, len(affected)),
		Unresolved: make([]dto.UnresolvedEntry, 0),
	}
	if len(affected) == 0 {
		return resp, nil
	}

	all, err := s.timetable.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}
	busy := make(map[string]map[string]bool)
	weeklyLoad := make(map[string]int)
	for _, entry := range all {
		if busy[entry.PeriodID] == nil {
			busy[entry.PeriodID] = make(map[string]bool)
		}
		busy[entry.PeriodID][entry.TeacherID] = true
		weeklyLoad[entry.TeacherID]++
	}

	tx, err := s.timetable.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin substitution transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, entry := range affected {
		candidate, findErr := s.pickCandidate(ctx, tenantID, entry, req.TeacherID, busy, weeklyLoad)
		if findErr != nil {
			err = findErr
			return nil, err
		}
		if candidate == "" {
			resp.Unresolved = append(resp.Unresolved, dto.UnresolvedEntry{
				EntryID:      entry.ID,
				PeriodID:     entry.PeriodID,
				SubjectID:    entry.SubjectID,
				ClassGroupID: entry.ClassGroupID,
				Reason:       appErrors.ErrNoSubstitute.Code,
			})
			continue
		}

		if err = s.timetable.ReassignTeacherWithTx(ctx, tx, tenantID, entry.ID, candidate); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign entry")
			return nil, err
		}

		// Later lessons the same day must see this booking.
		delete(busy[entry.PeriodID], req.TeacherID)
		busy[entry.PeriodID][candidate] = true
		weeklyLoad[req.TeacherID]--
		weeklyLoad[candidate]++

		resp.Reassigned = append(resp.Reassigned, dto.SubstitutionResult{
			EntryID:      entry.ID,
			PeriodID:     entry.PeriodID,
			SubjectID:    entry.SubjectID,
			ClassGroupID: entry.ClassGroupID,
			FromTeacher:  req.TeacherID,
			ToTeacher:    candidate,
		})
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit substitution transaction")
		return nil, err
	}

	if s.cache != nil && len(resp.Reassigned) > 0 {
		s.cache.InvalidateTenant(ctx, tenantID)
	}
	if s.metrics != nil {
		s.metrics.ObserveSubstitution("reassigned", len(resp.Reassigned))
		s.metrics.ObserveSubstitution("unresolved", len(resp.Unresolved))
	}
	s.logger.Info("substitution completed",
		zap.String("tenant_id", tenantID),
		zap.String("absent_teacher_id", req.TeacherID),
		zap.Int("day_of_week", req.DayOfWeek),
		zap.Int("reassigned", len(resp.Reassigned)),
		zap.Int("unresolved", len(resp.Unresolved)))
	return resp, nil
}

// pickCandidate returns the replacement teacher id, or empty when none
// qualifies.
func (s *SubstitutionService) pickCandidate(
	ctx context.Context,
	tenantID string,
	entry models.TimetableEntry,
	absentTeacherID string,
	busy map[string]map[string]bool,
	weeklyLoad map[string]int,
) (string, error) {
	capabilities, err := s.capabilities.ListBySubjectClassGroup(ctx, tenantID, entry.SubjectID, entry.ClassGroupID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate capabilities")
	}

	candidates := make([]string, 0, len(capabilities))
	seen := make(map[string]bool, len(capabilities))
	for _, capability := range capabilities {
		teacherID := capability.TeacherID
		if teacherID == absentTeacherID || seen[teacherID] {
			continue
		}
		seen[teacherID] = true
		if busy[entry.PeriodID][teacherID] {
			continue
		}
		candidates = append(candidates, teacherID)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if weeklyLoad[candidates[i]] == weeklyLoad[candidates[j]] {
			return candidates[i] < candidates[j]
		}
		return weeklyLoad[candidates[i]] < weeklyLoad[candidates[j]]
	})
	return candidates[0], nil
}
