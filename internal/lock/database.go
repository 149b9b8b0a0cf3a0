package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"gorm.io/gorm"
)

// DBLocker uses rows in scheduler_locks as leases. The unique index on
// (lock_name, lock_key) makes the insert the acquisition; expired leases
// left by a crashed process are reclaimed before each attempt.
type DBLocker struct {
	db       *gorm.DB
	name     string
	owner    string
	timeout  time.Duration
	ttl      time.Duration
	interval time.Duration
}

// NewDBLocker returns a locker whose keys live under the given lock name.
func NewDBLocker(db *gorm.DB, name string, timeout, ttl time.Duration) *DBLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DBLocker{
		db:       db,
		name:     name,
		owner:    uuid.New().String(),
		timeout:  timeout,
		ttl:      ttl,
		interval: 20 * time.Millisecond,
	}
}

func (l *DBLocker) Acquire(ctx context.Context, key string) (Release, error) {
	waitCtx, cancel := deadline(ctx, l.timeout)
	defer cancel()

	token := l.owner + ":" + uuid.New().String()
	for {
		ok, err := l.tryAcquire(waitCtx, key, token)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-time.After(l.interval):
		case <-waitCtx.Done():
			return nil, waitErr(ctx)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			err := l.db.Where("lock_name = ? AND lock_key = ? AND locked_by = ?", l.name, key, token).
				Delete(&models.SchedulerLock{}).Error
			if err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("failed to release database lock")
			}
		})
	}, nil
}

func (l *DBLocker) tryAcquire(ctx context.Context, key, token string) (bool, error) {
	now := time.Now()
	db := l.db.WithContext(ctx)

	if err := db.Where("lock_name = ? AND lock_key = ? AND expires_at < ?", l.name, key, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	lease := models.SchedulerLock{
		LockName:  l.name,
		LockKey:   key,
		LockedBy:  token,
		LockedAt:  now,
		ExpiresAt: now.Add(l.ttl),
	}
	err := db.Create(&lease).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if ctx.Err() != nil {
		return false, nil
	}
	return false, err
}
