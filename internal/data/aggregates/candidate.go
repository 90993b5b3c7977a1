package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/heirloom-backend/internal/data/repos"
	types "github.com/yungbote/heirloom-backend/internal/domain"
	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
)

const (
	candidateTable        = "duplicate_candidate"
	candidateLockNS       = "duplicate_candidate_family"
	syncScanWriteAttempts = 3
)

type CandidateAggregateDeps struct {
	Base BaseDeps

	Candidates repos.CandidateRepo
	ScanStates repos.ScanStateRepo
}

type candidateAggregate struct {
	deps CandidateAggregateDeps
}

func NewCandidateAggregate(deps CandidateAggregateDeps) domainagg.CandidateAggregate {
	deps.Base = deps.Base.withDefaults()
	return &candidateAggregate{deps: deps}
}

func (a *candidateAggregate) Contract() domainagg.Contract {
	return domainagg.CandidateAggregateContract
}

func pairKey(x, y uuid.UUID) string {
	a, b := dedupe.CanonicalPair(x, y)
	return a.String() + "|" + b.String()
}

func (a *candidateAggregate) SyncScan(ctx context.Context, in domainagg.SyncScanInput) (domainagg.SyncScanResult, error) {
	const op = "Dedupe.Candidate.SyncScan"
	var out domainagg.SyncScanResult
	if in.FamilyID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing family_id", nil)
	}
	if a.deps.Candidates == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "candidate repo not configured", nil)
	}
	for _, p := range in.Pairs {
		if p.PersonAID == uuid.Nil || p.PersonBID == uuid.Nil || p.PersonAID == p.PersonBID {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "pair must name two distinct persons", nil)
		}
	}
	watermark := in.Watermark.UTC()
	if watermark.IsZero() {
		watermark = time.Now().UTC()
	}

	err := executeWriteRetrying(ctx, a.deps.Base, op, syncScanWriteAttempts, func(dbc dbctx.Context) error {
		out = domainagg.SyncScanResult{}
		if err := advisoryXactLock(dbc.Tx, candidateLockNS, in.FamilyID); err != nil {
			return err
		}

		existing, err := a.deps.Candidates.ListByFamily(dbc, in.FamilyID)
		if err != nil {
			return err
		}
		pending := map[string]*types.DuplicateCandidate{}
		terminal := map[string]bool{}
		var seq int64
		for _, c := range existing {
			if c.Seq > seq {
				seq = c.Seq
			}
			k := pairKey(c.PersonAID, c.PersonBID)
			if dedupe.IsTerminalCandidateStatus(c.Status) {
				terminal[k] = true
				continue
			}
			pending[k] = c
		}

		now := time.Now().UTC()
		var inserts []*types.DuplicateCandidate
		var retract []uuid.UUID
		handled := map[string]bool{}
		for _, p := range in.Pairs {
			k := pairKey(p.PersonAID, p.PersonBID)
			if handled[k] {
				continue
			}
			handled[k] = true
			if terminal[k] {
				out.Suppressed++
				continue
			}
			row, ok := pending[k]
			switch {
			case ok && p.Surfaced:
				err := a.deps.Candidates.UpdateFields(dbc, row.ID, map[string]interface{}{
					"score":      p.Score,
					"band":       p.Band,
					"reasons":    datatypes.NewJSONSlice(p.Reasons),
					"breakdown":  datatypes.NewJSONType(p.Breakdown),
					"updated_at": now,
				})
				if err != nil {
					return err
				}
				out.Refreshed++
			case ok:
				retract = append(retract, row.ID)
			case p.Surfaced:
				pa, pb := dedupe.CanonicalPair(p.PersonAID, p.PersonBID)
				seq++
				inserts = append(inserts, &types.DuplicateCandidate{
					ID:        uuid.New(),
					FamilyID:  in.FamilyID,
					PersonAID: pa,
					PersonBID: pb,
					Score:     p.Score,
					Band:      p.Band,
					Reasons:   datatypes.NewJSONSlice(p.Reasons),
					Breakdown: datatypes.NewJSONType(p.Breakdown),
					Status:    types.CandidateStatusPending,
					Seq:       seq,
					CreatedAt: now,
					UpdatedAt: now,
				})
			}
		}

		if len(inserts) > 0 {
			if _, err := a.deps.Candidates.Create(dbc, inserts); err != nil {
				return err
			}
			out.Inserted = len(inserts)
		}
		if len(retract) > 0 {
			n, err := a.deps.Candidates.DeletePendingByIDs(dbc, retract)
			if err != nil {
				return err
			}
			out.Retracted = int(n)
		}

		if a.deps.ScanStates != nil {
			scored := in.PairsScored
			if scored <= 0 {
				scored = len(in.Pairs)
			}
			if err := a.deps.ScanStates.Upsert(dbc, &types.ScanState{
				FamilyID:      in.FamilyID,
				LastScannedAt: watermark,
				PairsScored:   scored,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (a *candidateAggregate) Dismiss(ctx context.Context, in domainagg.DismissCandidateInput) (*types.DuplicateCandidate, error) {
	const op = "Dedupe.Candidate.Dismiss"
	if in.CandidateID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing candidate_id", nil)
	}
	if a.deps.Candidates == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "candidate repo not configured", nil)
	}

	var out *types.DuplicateCandidate
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		now := time.Now().UTC()
		err := a.deps.Base.CASGuard.Transition(dbc, op, candidateTable, in.CandidateID,
			[]string{types.CandidateStatusPending},
			map[string]any{
				"status":       types.CandidateStatusDismissed,
				"dismissed_by": in.ActorID,
				"resolved_at":  now,
				"updated_at":   now,
			})
		if err != nil {
			return err
		}
		row, err := a.deps.Candidates.GetByID(dbc, in.CandidateID)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, err
}

func (a *candidateAggregate) MarkMerged(ctx context.Context, in domainagg.MarkCandidateMergedInput) (*types.DuplicateCandidate, error) {
	const op = "Dedupe.Candidate.MarkMerged"
	if in.CandidateID == uuid.Nil || in.MergeHistoryID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing candidate_id or merge_history_id", nil)
	}
	if a.deps.Candidates == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "candidate repo not configured", nil)
	}
	var out *types.DuplicateCandidate
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := markCandidateMerged(dbc, a.deps.Base.CASGuard, op, in.CandidateID, in.MergeHistoryID); err != nil {
			return err
		}
		row, err := a.deps.Candidates.GetByID(dbc, in.CandidateID)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, err
}

// markCandidateMerged is the shared pending -> merged compare-and-set. It joins the
// caller's transaction.
func markCandidateMerged(dbc dbctx.Context, guard CASGuard, op string, candidateID, historyID uuid.UUID) error {
	now := time.Now().UTC()
	return guard.Transition(dbc, op, candidateTable, candidateID,
		[]string{types.CandidateStatusPending},
		map[string]any{
			"status":           types.CandidateStatusMerged,
			"merge_history_id": historyID,
			"resolved_at":      now,
			"updated_at":       now,
		})
}
