package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type periodStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.Period, error)
	FindByID(ctx context.Context, id string) (*models.Period, error)
	Exists(ctx context.Context, tenantID string, dayOfWeek int, startTime string) (bool, error)
	Create(ctx context.Context, period *models.Period) error
	Delete(ctx context.Context, tenantID, id string) error
}

type roomStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, tenantID, id string) error
}

type capabilityStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.CapabilityAssignment, error)
	FindByID(ctx context.Context, id string) (*models.CapabilityAssignment, error)
	Exists(ctx context.Context, tenantID, teacherID, subjectID, classGroupID string) (bool, error)
	Create(ctx context.Context, capability *models.CapabilityAssignment) error
	UpdateQuota(ctx context.Context, tenantID, id string, lessonsPerWeek int) error
	Delete(ctx context.Context, tenantID, id string) error
}

// CatalogService manages the scheduling reference data: periods, rooms, and
// capability assignments. Mutations here invalidate nothing in the timetable
// store; stale placements surface through the audit instead.
type CatalogService struct {
	periods      periodStore
	rooms        roomStore
	capabilities capabilityStore
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCatalogService constructs the catalog CRUD layer.
func NewCatalogService(
	periods periodStore,
	rooms roomStore,
	capabilities capabilityStore,
	validate *validator.Validate,
	logger *zap.Logger,
) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		periods:      periods,
		rooms:        rooms,
		capabilities: capabilities,
		validator:    validate,
		logger:       logger,
	}
}

// ListPeriods returns the tenant's period catalog ordered by day and start
// time.
func (s *CatalogService) ListPeriods(ctx context.Context, tenantID string) ([]models.Period, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	periods, err := s.periods.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	return periods, nil
}

// CreatePeriod registers a new time slot. (tenant, day, start) must be
// unique and start must precede end; HH:MM strings compare correctly as
// text.
func (s *CatalogService) CreatePeriod(ctx context.Context, tenantID string, req dto.CreatePeriodRequest) (*models.Period, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	if !timeOfDayPattern.MatchString(req.StartTime) || !timeOfDayPattern.MatchString(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime and endTime must be HH:MM")
	}
	if req.StartTime >= req.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must precede endTime")
	}

	exists, err := s.periods.Exists(ctx, tenantID, req.DayOfWeek, req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check period")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("period on day %d at %s already exists", req.DayOfWeek, req.StartTime))
	}

	period := &models.Period{
		TenantID:  tenantID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.periods.Create(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create period")
	}
	s.logger.Info("period created",
		zap.String("tenant_id", tenantID),
		zap.String("period_id", period.ID),
		zap.Int("day_of_week", period.DayOfWeek))
	return period, nil
}

// DeletePeriod removes a time slot from the catalog.
func (s *CatalogService) DeletePeriod(ctx context.Context, tenantID, id string) error {
	if err := s.requireTenantOwned(ctx, tenantID, id, "period", func(ctx context.Context, id string) (string, error) {
		period, err := s.periods.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return period.TenantID, nil
	}); err != nil {
		return err
	}
	if err := s.periods.Delete(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete period")
	}
	return nil
}

// ListRooms returns the tenant's room catalog.
func (s *CatalogService) ListRooms(ctx context.Context, tenantID string) ([]models.Room, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	rooms, err := s.rooms.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// CreateRoom registers a lesson location.
func (s *CatalogService) CreateRoom(ctx context.Context, tenantID string, req dto.CreateRoomRequest) (*models.Room, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := &models.Room{
		TenantID: tenantID,
		Name:     req.Name,
		Capacity: req.Capacity,
		IsLab:    req.IsLab,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	s.logger.Info("room created",
		zap.String("tenant_id", tenantID),
		zap.String("room_id", room.ID),
		zap.String("name", room.Name))
	return room, nil
}

// DeleteRoom removes a room from the catalog.
func (s *CatalogService) DeleteRoom(ctx context.Context, tenantID, id string) error {
	if err := s.requireTenantOwned(ctx, tenantID, id, "room", func(ctx context.Context, id string) (string, error) {
		room, err := s.rooms.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return room.TenantID, nil
	}); err != nil {
		return err
	}
	if err := s.rooms.Delete(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	return nil
}

// ListCapabilities returns the tenant's capability assignments.
func (s *CatalogService) ListCapabilities(ctx context.Context, tenantID string) ([]models.CapabilityAssignment, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	capabilities, err := s.capabilities.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list capabilities")
	}
	return capabilities, nil
}

// CreateCapability registers a teaching obligation. The
// (teacher, subject, class_group) tuple is unique per tenant.
func (s *CatalogService) CreateCapability(ctx context.Context, tenantID string, req dto.CreateCapabilityRequest) (*models.CapabilityAssignment, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capability payload")
	}

	exists, err := s.capabilities.Exists(ctx, tenantID, req.TeacherID, req.SubjectID, req.ClassGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check capability")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "capability already registered for this teacher, subject and class group")
	}

	capability := &models.CapabilityAssignment{
		TenantID:       tenantID,
		TeacherID:      req.TeacherID,
		SubjectID:      req.SubjectID,
		ClassGroupID:   req.ClassGroupID,
		LessonsPerWeek: req.LessonsPerWeek,
	}
	if err := s.capabilities.Create(ctx, capability); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create capability")
	}
	s.logger.Info("capability created",
		zap.String("tenant_id", tenantID),
		zap.String("capability_id", capability.ID),
		zap.String("teacher_id", capability.TeacherID),
		zap.Int("lessons_per_week", capability.LessonsPerWeek))
	return capability, nil
}

// UpdateCapabilityQuota adjusts the weekly quota of one capability.
func (s *CatalogService) UpdateCapabilityQuota(ctx context.Context, tenantID, id string, req dto.UpdateCapabilityRequest) (*models.CapabilityAssignment, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capability payload")
	}

	if err := s.capabilities.UpdateQuota(ctx, tenantID, id, req.LessonsPerWeek); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "capability not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update capability quota")
	}

	capability, err := s.capabilities.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload capability")
	}
	return capability, nil
}

// DeleteCapability removes a teaching obligation. Already-scheduled lessons
// keep their rows; the next audit reports them as uncovered.
func (s *CatalogService) DeleteCapability(ctx context.Context, tenantID, id string) error {
	if err := s.requireTenantOwned(ctx, tenantID, id, "capability", func(ctx context.Context, id string) (string, error) {
		capability, err := s.capabilities.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return capability.TenantID, nil
	}); err != nil {
		return err
	}
	if err := s.capabilities.Delete(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete capability")
	}
	return nil
}

// requireTenantOwned verifies the resource exists and belongs to the tenant.
// Cross-tenant ids read as not found so ids never leak across tenants.
func (s *CatalogService) requireTenantOwned(
	ctx context.Context,
	tenantID, id, kind string,
	ownerOf func(ctx context.Context, id string) (string, error),
) error {
	if tenantID == "" || id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "tenant id and resource id are required")
	}
	owner, err := ownerOf(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", kind))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", kind))
	}
	if owner != tenantID {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", kind))
	}
	return nil
}
