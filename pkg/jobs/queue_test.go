package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRejectsDuplicateTenant(t *testing.T) {
	began := make(chan string, 8)
	release := make(chan struct{})
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		began <- job.Payload.TenantID
		<-release
		return nil
	}, QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	defer close(release)

	require.NoError(t, queue.Enqueue(Job{ID: "j-1", Payload: GeneratePayload{TenantID: "tenant-1"}}))
	select {
	case tenant := <-began:
		assert.Equal(t, "tenant-1", tenant)
	case <-time.After(time.Second):
		t.Fatal("first job never started")
	}

	err := queue.Enqueue(Job{ID: "j-2", Payload: GeneratePayload{TenantID: "tenant-1"}})
	require.ErrorIs(t, err, ErrTenantQueued)

	// Other tenants are unaffected.
	require.NoError(t, queue.Enqueue(Job{ID: "j-3", Payload: GeneratePayload{TenantID: "tenant-2"}}))
}

func TestQueueFreesTenantAfterCompletion(t *testing.T) {
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		return nil
	}, QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "j-1", Payload: GeneratePayload{TenantID: "tenant-1"}}))
	assert.Eventually(t, func() bool {
		return queue.Enqueue(Job{ID: "j-2", Payload: GeneratePayload{TenantID: "tenant-1"}}) == nil
	}, time.Second, 5*time.Millisecond)
}

func TestQueueRetriesFailedJob(t *testing.T) {
	var attempts int32
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "j-1", Payload: GeneratePayload{TenantID: "tenant-1"}}))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) == 2
	}, time.Second, 5*time.Millisecond)

	// The retry succeeded, so the tenant slot is free again.
	assert.Eventually(t, func() bool {
		return queue.Enqueue(Job{ID: "j-2", Payload: GeneratePayload{TenantID: "tenant-1"}}) == nil
	}, time.Second, 5*time.Millisecond)
}

func TestQueueRequiresStart(t *testing.T) {
	queue := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	err := queue.Enqueue(Job{ID: "j-1", Payload: GeneratePayload{TenantID: "tenant-1"}})
	require.Error(t, err)
}
