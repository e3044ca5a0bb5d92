package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TimetableCache caches weekly views in Redis, keyed per tenant so one
// invalidation after a schedule rewrite drops every view for that tenant.
// A disabled cache behaves as permanently empty.
type TimetableCache struct {
	store   cacheStore
	enabled bool
	ttl     time.Duration
	logger  *zap.Logger
}

// NewTimetableCache builds the cache layer. store may be nil, which forces
// the cache off.
func NewTimetableCache(store cacheStore, enabled bool, ttl time.Duration, logger *zap.Logger) *TimetableCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		enabled = false
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TimetableCache{store: store, enabled: enabled, ttl: ttl, logger: logger}
}

func weeklyKey(tenantID, scope, scopeID string) string {
	return fmt.Sprintf("timetable:%s:weekly:%s:%s", tenantID, scope, scopeID)
}

// GetWeekly loads a cached weekly view; ErrCacheMiss means absent.
func (c *TimetableCache) GetWeekly(ctx context.Context, tenantID, scope, scopeID string, dest interface{}) error {
	if !c.enabled {
		return appErrors.ErrCacheMiss
	}
	return c.store.Get(ctx, weeklyKey(tenantID, scope, scopeID), dest)
}

// SetWeekly stores a weekly view. Failures are logged, not surfaced; a cold
// cache only costs a rebuild.
func (c *TimetableCache) SetWeekly(ctx context.Context, tenantID, scope, scopeID string, value interface{}) {
	if !c.enabled {
		return
	}
	if err := c.store.Set(ctx, weeklyKey(tenantID, scope, scopeID), value, c.ttl); err != nil {
		c.logger.Warn("failed to cache weekly timetable",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}

// InvalidateTenant drops every cached view for a tenant.
func (c *TimetableCache) InvalidateTenant(ctx context.Context, tenantID string) {
	if !c.enabled {
		return
	}
	if err := c.store.DeleteByPattern(ctx, fmt.Sprintf("timetable:%s:*", tenantID)); err != nil {
		c.logger.Warn("failed to invalidate timetable cache",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}
