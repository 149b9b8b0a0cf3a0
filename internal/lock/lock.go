// Package lock provides keyed mutual exclusion with bounded waits. The timer
// service takes one key per affected user before it touches running timers.
package lock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
)

// ErrTimeout is returned when a key could not be acquired in time. It is a
// Conflict so callers can surface it as a retryable race.
var ErrTimeout = fmt.Errorf("%w: lock wait timed out", apperrors.ErrConflict)

// Release gives a held key back. It is safe to call once.
type Release func()

// Locker acquires exclusive ownership of a key, waiting at most the
// locker's configured timeout.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// AcquireAll takes every key in sorted order so that two callers with
// overlapping key sets cannot deadlock. On failure nothing stays held.
func AcquireAll(ctx context.Context, l Locker, keys []string) (Release, error) {
	sorted := dedupe(keys)
	sort.Strings(sorted)

	held := make([]Release, 0, len(sorted))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for _, key := range sorted {
		rel, err := l.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		held = append(held, rel)
	}
	return releaseAll, nil
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// UserKey is the lock key guarding a user's running timer.
func UserKey(userID uint) string {
	return fmt.Sprintf("timer:user:%d", userID)
}

func deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// waitErr converts a finished wait context into the error reported to callers.
// A parent cancellation is passed through untouched.
func waitErr(parent context.Context) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	return ErrTimeout
}
