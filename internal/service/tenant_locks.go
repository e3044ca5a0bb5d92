package service

import "sync"

// tenantLocks serialises timetable writes per tenant. Generation and
// substitution both take the tenant's lock for the duration of their write;
// different tenants proceed independently.
type tenantLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTenantLocks builds the shared lock registry. One instance is shared
// between the scheduler and the substitution resolver.
func NewTenantLocks() *tenantLocks {
	return &tenantLocks{locks: make(map[string]*sync.Mutex)}
}

func (t *tenantLocks) get(tenantID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[tenantID] = lock
	}
	return lock
}

// TryAcquire takes the tenant's write lock without blocking. It returns a
// release func and true, or nil and false when a write is already running.
func (t *tenantLocks) TryAcquire(tenantID string) (func(), bool) {
	lock := t.get(tenantID)
	if !lock.TryLock() {
		return nil, false
	}
	return lock.Unlock, true
}
