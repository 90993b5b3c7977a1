// Package locks provides short-lived exclusive locks keyed by string, used to
// serialize merges that touch the same person records.
package locks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotAcquired is returned when every key could not be held within the wait bound.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires a set of keys all-or-nothing.
type Locker interface {
	Acquire(ctx context.Context, keys []string, wait time.Duration) (Lease, error)
}

// Lease is a held set of keys.
type Lease interface {
	Release(ctx context.Context) error
}

const pollInterval = 5 * time.Millisecond

// PersonKey returns the lock key guarding a person record.
func PersonKey(id string) string {
	return "person:" + strings.TrimSpace(id)
}

// NormalizeKeys trims, dedupes and sorts keys so that overlapping lock sets
// are always taken in the same order.
func NormalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RetryUntil calls try until it reports success, the wait bound elapses, or ctx ends.
func RetryUntil(ctx context.Context, wait time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrNotAcquired
		}
		sleep := pollInterval
		if remaining := time.Until(deadline); remaining < sleep {
			sleep = remaining
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
