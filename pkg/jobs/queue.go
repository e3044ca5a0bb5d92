// Package jobs runs timetable regenerations in the background. The queue is
// domain-shaped on purpose: its unit of work is one tenant regeneration, and
// a tenant holds at most one queued-or-running job at a time, mirroring the
// exclusive write lock the scheduler takes.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrTenantQueued rejects a regeneration for a tenant that already has one
// queued or running.
var ErrTenantQueued = errors.New("a regeneration is already queued for this tenant")

// GeneratePayload is one tenant regeneration request.
type GeneratePayload struct {
	TenantID      string
	Strategy      string
	AllocateRooms *bool
	AllOrNothing  bool
}

// Job wraps a payload with queue bookkeeping.
type Job struct {
	ID       string
	Payload  GeneratePayload
	Attempt  int
	Enqueued time.Time
}

// Handler executes one regeneration.
type Handler func(context.Context, Job) error

// QueueConfig tunes the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue dispatches regeneration jobs to a fixed worker pool. The pending set
// enforces the one-job-per-tenant rule; a tenant's slot frees once its job
// succeeds or exhausts its retries.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	pending map[string]struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a stopped queue; call Start before enqueueing.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan Job, cfg.BufferSize),
		pending:    make(map[string]struct{}),
	}
}

// Start spins up the workers. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("regeneration queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels the workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("regeneration queue stopped", "queue", q.name)
}

// Enqueue submits a regeneration. A tenant with a job already queued or
// running gets ErrTenantQueued; callers surface that as a busy conflict.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	ctx := q.ctx
	if _, dup := q.pending[job.Payload.TenantID]; dup {
		q.mu.Unlock()
		return ErrTenantQueued
	}
	q.pending[job.Payload.TenantID] = struct{}{}
	q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		q.clearTenant(job.Payload.TenantID)
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.retryOrDrop(job, err)
				continue
			}
			q.clearTenant(job.Payload.TenantID)
		}
	}
}

// retryOrDrop requeues a failed job after the retry delay. The tenant's
// pending slot is held across retries so a competing submission cannot
// interleave with the retry.
func (q *Queue) retryOrDrop(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.clearTenant(job.Payload.TenantID)
		q.logger.Sugar().Errorw("regeneration exhausted retries",
			"queue", q.name, "job_id", job.ID, "tenant_id", job.Payload.TenantID, "error", err)
		return
	}
	q.logger.Sugar().Warnw("regeneration failed, retrying",
		"queue", q.name, "job_id", job.ID, "tenant_id", job.Payload.TenantID, "attempt", job.Attempt, "error", err)

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.clearTenant(j.Payload.TenantID)
		case <-timer.C:
			select {
			case <-q.ctx.Done():
				q.clearTenant(j.Payload.TenantID)
			case q.jobs <- j:
			}
		}
	}(job)
}

func (q *Queue) clearTenant(tenantID string) {
	q.mu.Lock()
	delete(q.pending, tenantID)
	q.mu.Unlock()
}
