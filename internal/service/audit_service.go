package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type timetableLister interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.TimetableEntry, error)
}

type auditObserver interface {
	ObserveAudit(dimension string, violations int)
}

// AuditService validates stored timetables against the hard scheduling
// invariants. It is a pure read: the same committed state always yields the
// same report, and it may run concurrently with anything.
type AuditService struct {
	timetable    timetableLister
	capabilities capabilityLister
	metrics      auditObserver
	logger       *zap.Logger
}

// NewAuditService wires the auditor. metrics may be nil.
func NewAuditService(timetable timetableLister, capabilities capabilityLister, metrics auditObserver, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{timetable: timetable, capabilities: capabilities, metrics: metrics, logger: logger}
}

// Audit returns every invariant violation in the tenant's stored schedule.
// Double-bookings mark the report blocking: they indicate a bypassed write
// path and downstream consumers must not trust the schedule until repaired.
// Quota under-counts are warnings unless strict is set.
func (s *AuditService) Audit(ctx context.Context, tenantID string, strict bool) (*models.AuditReport, error) {
	if tenantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenant id is required")
	}

	entries, err := s.timetable.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}
	capabilities, err := s.capabilities.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load capability assignments")
	}

	report := &models.AuditReport{
		TenantID:            tenantID,
		TeacherConflicts:    groupConflicts(entries, models.ConflictDimensionTeacher),
		ClassGroupConflicts: groupConflicts(entries, models.ConflictDimensionClassGroup),
		RoomConflicts:       groupConflicts(entries, models.ConflictDimensionRoom),
		QuotaMismatches:     quotaMismatches(entries, capabilities, strict),
	}

	report.Blocking = len(report.TeacherConflicts) > 0 ||
		len(report.ClassGroupConflicts) > 0 ||
		len(report.RoomConflicts) > 0
	for _, mismatch := range report.QuotaMismatches {
		if mismatch.Severity == models.QuotaSeverityError {
			report.Blocking = true
			break
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveAudit(models.ConflictDimensionTeacher, len(report.TeacherConflicts))
		s.metrics.ObserveAudit(models.ConflictDimensionClassGroup, len(report.ClassGroupConflicts))
		s.metrics.ObserveAudit(models.ConflictDimensionRoom, len(report.RoomConflicts))
	}
	if report.Blocking {
		s.logger.Warn("audit found blocking violations",
			zap.String("tenant_id", tenantID),
			zap.Int("teacher_conflicts", len(report.TeacherConflicts)),
			zap.Int("class_group_conflicts", len(report.ClassGroupConflicts)),
			zap.Int("room_conflicts", len(report.RoomConflicts)))
	}
	return report, nil
}

type conflictKey struct {
	periodID string
	holderID string
}

// groupConflicts buckets entries by (period, holder) along one dimension and
// flags every bucket holding more than one entry.
func groupConflicts(entries []models.TimetableEntry, dimension string) []models.BookingConflict {
	groups := make(map[conflictKey][]models.TimetableEntry)
	for _, entry := range entries {
		var holder string
		switch dimension {
		case models.ConflictDimensionTeacher:
			holder = entry.TeacherID
		case models.ConflictDimensionClassGroup:
			holder = entry.ClassGroupID
		case models.ConflictDimensionRoom:
			if entry.RoomID == nil || *entry.RoomID == "" {
				continue
			}
			holder = *entry.RoomID
		}
		key := conflictKey{periodID: entry.PeriodID, holderID: holder}
		groups[key] = append(groups[key], entry)
	}

	var conflicts []models.BookingConflict
	for key, group := range groups {
		if len(group) < 2 {
			continue
		}
		ids := make([]string, 0, len(group))
		for _, entry := range group {
			ids = append(ids, entry.ID)
		}
		sort.Strings(ids)
		conflicts = append(conflicts, models.BookingConflict{
			Dimension: dimension,
			PeriodID:  key.periodID,
			HolderID:  key.holderID,
			EntryIDs:  ids,
		})
	}
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].PeriodID == conflicts[j].PeriodID {
			return conflicts[i].HolderID < conflicts[j].HolderID
		}
		return conflicts[i].PeriodID < conflicts[j].PeriodID
	})
	return conflicts
}

type quotaKey struct {
	teacherID    string
	subjectID    string
	classGroupID string
}

func quotaMismatches(entries []models.TimetableEntry, capabilities []models.CapabilityAssignment, strict bool) []models.QuotaMismatch {
	counts := make(map[quotaKey]int)
	for _, entry := range entries {
		counts[quotaKey{entry.TeacherID, entry.SubjectID, entry.ClassGroupID}]++
	}

	var mismatches []models.QuotaMismatch
	covered := make(map[quotaKey]bool, len(capabilities))
	for _, capability := range capabilities {
		key := quotaKey{capability.TeacherID, capability.SubjectID, capability.ClassGroupID}
		covered[key] = true
		actual := counts[key]
		if actual == capability.LessonsPerWeek {
			continue
		}
		severity := models.QuotaSeverityWarning
		if actual > capability.LessonsPerWeek || strict {
			severity = models.QuotaSeverityError
		}
		mismatches = append(mismatches, models.QuotaMismatch{
			CapabilityID: capability.ID,
			TeacherID:    capability.TeacherID,
			SubjectID:    capability.SubjectID,
			ClassGroupID: capability.ClassGroupID,
			Expected:     capability.LessonsPerWeek,
			Actual:       actual,
			Severity:     severity,
		})
	}

	// Lessons scheduled with no backing capability at all are always errors.
	uncoveredKeys := make([]quotaKey, 0)
	for key := range counts {
		if !covered[key] {
			uncoveredKeys = append(uncoveredKeys, key)
		}
	}
	sort.Slice(uncoveredKeys, func(i, j int) bool {
		if uncoveredKeys[i].teacherID != uncoveredKeys[j].teacherID {
			return uncoveredKeys[i].teacherID < uncoveredKeys[j].teacherID
		}
		if uncoveredKeys[i].subjectID != uncoveredKeys[j].subjectID {
			return uncoveredKeys[i].subjectID < uncoveredKeys[j].subjectID
		}
		return uncoveredKeys[i].classGroupID < uncoveredKeys[j].classGroupID
	})
	for _, key := range uncoveredKeys {
		mismatches = append(mismatches, models.QuotaMismatch{
			TeacherID:    key.teacherID,
			SubjectID:    key.subjectID,
			ClassGroupID: key.classGroupID,
			Expected:     0,
			Actual:       counts[key],
			Severity:     models.QuotaSeverityError,
		})
	}
	return mismatches
}
