package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker serializes keys inside a single process. Each key owns a
// one-slot channel; holding the slot is holding the lock.
type MemoryLocker struct {
	mu      sync.Mutex
	slots   map[string]chan struct{}
	timeout time.Duration
}

func NewMemoryLocker(timeout time.Duration) *MemoryLocker {
	return &MemoryLocker{
		slots:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (m *MemoryLocker) getSlot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.slots[key]; ok {
		return ch
	}
	ch := make(chan struct{}, 1)
	m.slots[key] = ch
	return ch
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string) (Release, error) {
	slot := m.getSlot(key)

	waitCtx, cancel := deadline(ctx, m.timeout)
	defer cancel()

	select {
	case slot <- struct{}{}:
	case <-waitCtx.Done():
		return nil, waitErr(ctx)
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}
