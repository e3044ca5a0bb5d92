package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type capabilityLister interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.CapabilityAssignment, error)
}

type periodLister interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.Period, error)
}

type roomLister interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.Room, error)
}

type timetableReplacer interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	ReplaceForTenantWithTx(ctx context.Context, tx *sqlx.Tx, tenantID string, entries []models.TimetableEntry) error
}

type timetableCacheInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string)
}

type generationObserver interface {
	ObserveGeneration(strategy string, outcome string, duration time.Duration, deficitLessons int)
}

// SchedulerService produces conflict-free timetables from the capability
// registry and the period/room catalogs. A full run replaces the tenant's
// stored entries atomically; concurrent writes on the same tenant are
// rejected, other tenants are unaffected.
type SchedulerService struct {
	capabilities capabilityLister
	periods      periodLister
	rooms        roomLister
	timetable    timetableReplacer
	locks        *tenantLocks
	cache        timetableCacheInvalidator
	metrics      generationObserver
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          SchedulerConfig
}

// SchedulerConfig governs solver behaviour.
type SchedulerConfig struct {
	DefaultStrategy string
	SolverTimeout   time.Duration
	SolverMaxNodes  int
	AllocateRooms   bool
}

// NewSchedulerService wires scheduler dependencies. cache and metrics may be
// nil.
func NewSchedulerService(
	capabilities capabilityLister,
	periods periodLister,
	rooms roomLister,
	timetable timetableReplacer,
	locks *tenantLocks,
	cache timetableCacheInvalidator,
	metrics generationObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SchedulerConfig,
) *SchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewTenantLocks()
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = dto.StrategyGreedy
	}
	if cfg.SolverTimeout <= 0 {
		cfg.SolverTimeout = 30 * time.Second
	}
	if cfg.SolverMaxNodes <= 0 {
		cfg.SolverMaxNodes = 500000
	}
	return &SchedulerService{
		capabilities: capabilities,
		periods:      periods,
		rooms:        rooms,
		timetable:    timetable,
		locks:        locks,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// Generate runs a full regeneration for the tenant. Deficits are returned as
// structured data, never swallowed: a partially satisfiable system commits
// the feasible subset and reports the shortfall, unless allOrNothing is set,
// in which case nothing is written.
func (s *SchedulerService) Generate(ctx context.Context, tenantID string, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}

	release, ok := s.locks.TryAcquire(tenantID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrGenerationBusy, "")
	}
	defer release()

	strategy := req.Strategy
	if strategy == "" {
		strategy = s.cfg.DefaultStrategy
	}
	allocateRooms := s.cfg.AllocateRooms
	if req.AllocateRooms != nil {
		allocateRooms = *req.AllocateRooms
	}

	capabilities, err := s.capabilities.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load capability assignments")
	}
	if len(capabilities) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no capability assignments defined for this tenant")
	}
	periods, err := s.periods.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load periods")
	}
	if len(periods) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no periods defined for this tenant")
	}
	var rooms []models.Room
	if allocateRooms {
		rooms, err = s.rooms.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
		}
		if len(rooms) == 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "room allocation requested but no rooms defined")
		}
	}

	start := time.Now()
	result := s.solve(ctx, strategy, capabilities, periods, rooms, allocateRooms)

	resp := &dto.GenerateTimetableResponse{
		TenantID: tenantID,
		Strategy: strategy,
		Deficits: result.deficits,
		TimedOut: result.timedOut,
	}

	if req.AllOrNothing && len(result.deficits) > 0 {
		s.observe(strategy, "rejected", time.Since(start), result.deficits)
		s.logger.Warn("generation rejected under all-or-nothing",
			zap.String("tenant_id", tenantID),
			zap.String("strategy", strategy),
			zap.Int("deficits", len(result.deficits)))
		return resp, nil
	}

	entries := make([]models.TimetableEntry, 0, len(result.placements))
	for _, p := range result.placements {
		capability := capabilities[p.capabilityIdx]
		entries = append(entries, models.TimetableEntry{
			TenantID:     tenantID,
			PeriodID:     periods[p.periodIdx].ID,
			ClassGroupID: capability.ClassGroupID,
			SubjectID:    capability.SubjectID,
			TeacherID:    capability.TeacherID,
			RoomID:       p.roomID,
		})
	}

	tx, err := s.timetable.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin timetable transaction")
	}
	if err = s.timetable.ReplaceForTenantWithTx(ctx, tx, tenantID, entries); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace timetable entries")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
	}

	if s.cache != nil {
		s.cache.InvalidateTenant(ctx, tenantID)
	}

	resp.EntriesCreated = len(entries)
	resp.Committed = true

	outcome := "complete"
	if len(result.deficits) > 0 {
		outcome = "partial"
	}
	s.observe(strategy, outcome, time.Since(start), result.deficits)
	s.logger.Info("timetable generated",
		zap.String("tenant_id", tenantID),
		zap.String("strategy", strategy),
		zap.Int("entries", len(entries)),
		zap.Int("deficits", len(result.deficits)),
		zap.Bool("timed_out", result.timedOut))
	return resp, nil
}

func (s *SchedulerService) solve(ctx context.Context, strategy string, capabilities []models.CapabilityAssignment, periods []models.Period, rooms []models.Room, allocateRooms bool) solution {
	if strategy == dto.StrategyExact {
		solveCtx, cancel := context.WithTimeout(ctx, s.cfg.SolverTimeout)
		defer cancel()
		return runExact(solveCtx, capabilities, periods, rooms, allocateRooms, s.cfg.SolverMaxNodes)
	}
	return runGreedy(capabilities, periods, rooms, allocateRooms)
}

func (s *SchedulerService) observe(strategy, outcome string, duration time.Duration, deficits []models.CapabilityDeficit) {
	if s.metrics == nil {
		return
	}
	missing := 0
	for _, d := range deficits {
		missing += d.Missing
	}
	s.metrics.ObserveGeneration(strategy, outcome, duration, missing)
}
