package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/config"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "lock.db"),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func exerciseExclusive(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, err := l.Acquire(ctx, UserKey(1))
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			rel()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func exerciseTimeout(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	rel, err := l.Acquire(ctx, UserKey(2))
	require.NoError(t, err)

	_, err = l.Acquire(ctx, UserKey(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	rel()
	rel2, err := l.Acquire(ctx, UserKey(2))
	require.NoError(t, err)
	rel2()
}

func TestMemoryLocker_Exclusive(t *testing.T) {
	exerciseExclusive(t, NewMemoryLocker(time.Second))
}

func TestMemoryLocker_Timeout(t *testing.T) {
	exerciseTimeout(t, NewMemoryLocker(30*time.Millisecond))
}

func TestMemoryLocker_ReleaseIsIdempotent(t *testing.T) {
	l := NewMemoryLocker(30 * time.Millisecond)
	rel, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	rel()
	rel()

	rel, err = l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	rel()
}

func TestMemoryLocker_ParentCancel(t *testing.T) {
	l := NewMemoryLocker(time.Second)
	rel, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer rel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireAll_SortedAndDeduped(t *testing.T) {
	l := NewMemoryLocker(50 * time.Millisecond)
	ctx := context.Background()

	rel, err := AcquireAll(ctx, l, []string{UserKey(3), UserKey(1), UserKey(3)})
	require.NoError(t, err)

	_, err = l.Acquire(ctx, UserKey(1))
	assert.ErrorIs(t, err, ErrTimeout)

	rel()
	rel1, err := l.Acquire(ctx, UserKey(1))
	require.NoError(t, err)
	rel1()
}

func TestAcquireAll_ReleasesOnFailure(t *testing.T) {
	l := NewMemoryLocker(30 * time.Millisecond)
	ctx := context.Background()

	held, err := l.Acquire(ctx, "b")
	require.NoError(t, err)

	_, err = AcquireAll(ctx, l, []string{"a", "b"})
	require.ErrorIs(t, err, ErrTimeout)
	held()

	relA, err := l.Acquire(ctx, "a")
	require.NoError(t, err, "key a must not stay held after a failed AcquireAll")
	relA()
}

func TestDBLocker_Exclusive(t *testing.T) {
	exerciseExclusive(t, NewDBLocker(openTestDB(t), "timer", 5*time.Second, time.Minute))
}

func TestDBLocker_Timeout(t *testing.T) {
	exerciseTimeout(t, NewDBLocker(openTestDB(t), "timer", 60*time.Millisecond, time.Minute))
}

func TestDBLocker_ReclaimsExpiredLease(t *testing.T) {
	db := openTestDB(t)
	stale := models.SchedulerLock{
		LockName:  "timer",
		LockKey:   UserKey(9),
		LockedBy:  "crashed-process",
		LockedAt:  time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(&stale).Error)

	l := NewDBLocker(db, "timer", 100*time.Millisecond, time.Minute)
	rel, err := l.Acquire(context.Background(), UserKey(9))
	require.NoError(t, err)
	rel()

	var count int64
	db.Model(&models.SchedulerLock{}).Where("lock_key = ?", UserKey(9)).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDBLocker_NamesAreIndependent(t *testing.T) {
	db := openTestDB(t)
	timers := NewDBLocker(db, "timer", 50*time.Millisecond, time.Minute)
	cron := NewDBLocker(db, "cron", 50*time.Millisecond, time.Minute)

	rel1, err := timers.Acquire(context.Background(), "same")
	require.NoError(t, err)
	defer rel1()

	rel2, err := cron.Acquire(context.Background(), "same")
	require.NoError(t, err)
	rel2()
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client, err := NewRedisClient(context.Background(), addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	exerciseExclusive(t, NewRedisLocker(client, 5*time.Second, time.Minute))
	exerciseTimeout(t, NewRedisLocker(client, 60*time.Millisecond, time.Minute))
}
