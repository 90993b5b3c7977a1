package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/heirloom-backend/internal/observability"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

// Hooks receive one ObserveOperation per aggregate write, plus a signal for each
// conflict and retry.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type multiHooks []Hooks

// CombineHooks fans signals out to every non-nil hook.
func CombineHooks(hooks ...Hooks) Hooks {
	out := make(multiHooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	switch len(out) {
	case 0:
		return noopHooks{}
	case 1:
		return out[0]
	default:
		return out
	}
}

func (m multiHooks) ObserveOperation(name, status string, dur time.Duration) {
	for _, h := range m {
		h.ObserveOperation(name, status, dur)
	}
}

func (m multiHooks) IncConflict(name string) {
	for _, h := range m {
		h.IncConflict(name)
	}
}

func (m multiHooks) IncRetry(name string) {
	for _, h := range m {
		h.IncRetry(name)
	}
}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks feeds aggregate signals into the Prometheus metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return nil
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}

// slowWrite is the duration past which a successful write is logged at Warn.
const slowWrite = 2 * time.Second

type loggingHooks struct {
	log *logger.Logger
}

// NewLoggingHooks logs failed and slow writes, and each lost race.
func NewLoggingHooks(log *logger.Logger) Hooks {
	if log == nil {
		return nil
	}
	return &loggingHooks{log: log.With("component", "AggregateHooks")}
}

func (h *loggingHooks) ObserveOperation(name, status string, dur time.Duration) {
	switch {
	case status != "success":
		h.log.Debug("aggregate write failed", "op", name, "status", status, "duration_ms", dur.Milliseconds())
	case dur >= slowWrite:
		h.log.Warn("slow aggregate write", "op", name, "duration_ms", dur.Milliseconds())
	}
}

func (h *loggingHooks) IncConflict(name string) {
	h.log.Info("aggregate conflict", "op", name)
}

func (h *loggingHooks) IncRetry(name string) {
	h.log.Info("aggregate retry", "op", name)
}
