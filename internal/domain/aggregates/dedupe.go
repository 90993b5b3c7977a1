package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/domain/people"
)

var CandidateAggregateContract = Contract{
	Name:             "Dedupe.CandidateAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	SerializedBy:     []LockScope{LockScopeFamily},
	Notes:            "Owns pending-pair uniqueness and the one-way pending->dismissed|merged lifecycle.",
}

var MergeAggregateContract = Contract{
	Name:             "Dedupe.MergeAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	SerializedBy:     []LockScope{LockScopePerson},
	Notes:            "Owns atomic person consolidation: snapshot, field resolution, dependent repointing, tombstone, history.",
}

// CandidateAggregate owns the duplicate candidate state machine.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeRetryable, CodeInternal.
type CandidateAggregate interface {
	Aggregate

	// SyncScan applies one family's scored pairs atomically: insert new pending rows,
	// refresh existing pending rows, retract pending rows that fell below the floor,
	// never touch terminal rows.
	SyncScan(ctx context.Context, in SyncScanInput) (SyncScanResult, error)

	// Dismiss moves a pending candidate to dismissed.
	Dismiss(ctx context.Context, in DismissCandidateInput) (*dedupe.DuplicateCandidate, error)

	// MarkMerged moves a pending candidate to merged and links its history entry.
	MarkMerged(ctx context.Context, in MarkCandidateMergedInput) (*dedupe.DuplicateCandidate, error)
}

// ScoredPair is one scanner output ready to be written.
type ScoredPair struct {
	PersonAID uuid.UUID
	PersonBID uuid.UUID
	Score     float64
	Band      string
	Reasons   []dedupe.Reason
	Breakdown dedupe.Breakdown
	// Surfaced is false when the score is below the floor.
	Surfaced bool
}

type SyncScanInput struct {
	FamilyID uuid.UUID
	Pairs    []ScoredPair
	// Watermark is recorded as the family's last scan time on success.
	Watermark time.Time
	// PairsScored is recorded on the scan state. Zero means len(Pairs).
	PairsScored int
}

type SyncScanResult struct {
	Inserted   int `json:"inserted"`
	Refreshed  int `json:"refreshed"`
	Retracted  int `json:"retracted"`
	Suppressed int `json:"suppressed"`
}

type DismissCandidateInput struct {
	CandidateID uuid.UUID
	ActorID     string
}

type MarkCandidateMergedInput struct {
	CandidateID    uuid.UUID
	MergeHistoryID uuid.UUID
}

// MergeAggregate owns person merge invariants.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeScopeMismatch, CodeConflict, CodeIntegrity, CodeRetryable, CodeInternal.
type MergeAggregate interface {
	Aggregate

	Merge(ctx context.Context, in MergeInput) (MergeResult, error)
}

// MergeInput names the pair either via CandidateID or via WinnerID+LoserID.
// When both are given they must agree.
type MergeInput struct {
	// FamilyID, when set, must be the family of both persons.
	FamilyID         uuid.UUID
	CandidateID      uuid.UUID
	WinnerID         uuid.UUID
	LoserID          uuid.UUID
	FieldResolutions map[string]string
	ActorID          string
}

type MergeResult struct {
	WinnerID       uuid.UUID
	LoserID        uuid.UUID
	MergeHistoryID uuid.UUID
	CandidateID    *uuid.UUID
	Winner         *people.Person
	Repoints       []dedupe.RepointResult
	MergedAt       time.Time
}
