package jobs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncLeaseExclusive(t *testing.T) {
	lease := NewSyncLease(time.Minute)

	token, err := lease.TryAcquire("scheduler")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, token)

	_, err = lease.TryAcquire("admin")
	assert.True(t, errors.Is(err, shared.ErrSyncInProgress))
	var serviceErr *shared.ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, shared.ErrorCategoryConflict, serviceErr.Category)
	require.IsType(t, LeaseStatus{}, serviceErr.Details)
	assert.Equal(t, "scheduler", serviceErr.Details.(LeaseStatus).Holder)

	status := lease.Status()
	assert.True(t, status.Held)
	assert.Equal(t, "scheduler", status.Holder)

	assert.False(t, lease.Release(uuid.New()), "foreign token does not release")
	assert.True(t, lease.Release(token))
	assert.False(t, lease.Release(token), "double release is a no-op")
	assert.False(t, lease.Status().Held)

	_, err = lease.TryAcquire("admin")
	assert.NoError(t, err)
}

func TestSyncLeaseExpires(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lease := NewSyncLease(10 * time.Minute)
	lease.now = func() time.Time { return now }

	stale, err := lease.TryAcquire("crashed")
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	assert.False(t, lease.Status().Held)

	fresh, err := lease.TryAcquire("scheduler")
	require.NoError(t, err)
	assert.NotEqual(t, stale, fresh)
	assert.False(t, lease.Release(stale), "the expired holder cannot release the new lease")
	assert.True(t, lease.Status().Held)
}

func TestSyncLeaseConcurrentAcquire(t *testing.T) {
	lease := NewSyncLease(time.Minute)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lease.TryAcquire("worker"); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
