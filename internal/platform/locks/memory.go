package locks

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker holds locks in process. Suitable for a single replica and for tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]struct{}{}}
}

func (m *MemoryLocker) Acquire(ctx context.Context, keys []string, wait time.Duration) (Lease, error) {
	keys = NormalizeKeys(keys)
	err := RetryUntil(ctx, wait, func() (bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, k := range keys {
			if _, busy := m.held[k]; busy {
				return false, nil
			}
		}
		for _, k := range keys {
			m.held[k] = struct{}{}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &memoryLease{owner: m, keys: keys}, nil
}

type memoryLease struct {
	owner *MemoryLocker
	keys  []string
	once  sync.Once
}

func (l *memoryLease) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		defer l.owner.mu.Unlock()
		for _, k := range l.keys {
			delete(l.owner.held, k)
		}
	})
	return nil
}
