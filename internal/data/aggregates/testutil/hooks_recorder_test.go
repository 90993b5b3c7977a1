package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("Dedupe.Merge", "success", 10*time.Millisecond)
	h.ObserveOperation("Dedupe.Candidate.Dismiss", "conflict", time.Millisecond)
	h.ObserveOperation("Dedupe.Merge", "conflict", time.Millisecond)
	h.IncConflict("Dedupe.Merge")
	h.IncRetry("Dedupe.Candidate.SyncScan")

	if len(h.Operations) != 3 {
		t.Fatalf("expected 3 op events, got %d", len(h.Operations))
	}
	got := h.Statuses("Dedupe.Merge")
	if len(got) != 2 || got[0] != "success" || got[1] != "conflict" {
		t.Fatalf("unexpected merge statuses: %v", got)
	}
	if h.ConflictCount("Dedupe.Merge") != 1 || h.ConflictCount("Dedupe.Candidate.Dismiss") != 0 {
		t.Fatalf("unexpected conflicts: %+v", h.Conflicts)
	}
	if len(h.Retries) != 1 || h.Retries[0] != "Dedupe.Candidate.SyncScan" {
		t.Fatalf("unexpected retries: %+v", h.Retries)
	}
}
