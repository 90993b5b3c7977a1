package aggregates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/heirloom-backend/internal/data/repos"
	types "github.com/yungbote/heirloom-backend/internal/domain"
	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/locks"
)

// Person locks are taken in a single attempt: a merge that finds either person
// held by another merge fails with a conflict instead of queueing behind it.
const mergeLockWait time.Duration = 0

type MergeAggregateDeps struct {
	Base BaseDeps

	Persons    repos.PersonRepo
	Candidates repos.CandidateRepo
	History    repos.MergeHistoryRepo
	Registry   *DependentRegistry

	Locker locks.Locker
}

type mergeAggregate struct {
	deps MergeAggregateDeps
}

func NewMergeAggregate(deps MergeAggregateDeps) domainagg.MergeAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Registry == nil {
		deps.Registry = NewDependentRegistry()
	}
	if deps.Locker == nil {
		deps.Locker = locks.NewMemoryLocker()
	}
	return &mergeAggregate{deps: deps}
}

func (a *mergeAggregate) Contract() domainagg.Contract {
	return domainagg.MergeAggregateContract
}

func (a *mergeAggregate) Merge(ctx context.Context, in domainagg.MergeInput) (domainagg.MergeResult, error) {
	const op = "Dedupe.Merge"
	var out domainagg.MergeResult

	if a.deps.Persons == nil || a.deps.Candidates == nil || a.deps.History == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "merge aggregate repos not configured", nil)
	}
	actorID := strings.TrimSpace(in.ActorID)
	if actorID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing actor_id", nil)
	}
	if err := validateResolutions(in.FieldResolutions); err != nil {
		return out, MapError(op, err)
	}
	winnerID, loserID, err := a.resolvePair(ctx, op, in)
	if err != nil {
		return out, err
	}

	lease, err := a.deps.Locker.Acquire(ctx, []string{locks.PersonKey(winnerID.String()), locks.PersonKey(loserID.String())}, mergeLockWait)
	if err != nil {
		if errors.Is(err, locks.ErrNotAcquired) {
			a.deps.Base.Hooks.IncConflict(op)
			return out, domainagg.NewError(domainagg.CodeConflict, op, "another merge holds one of these persons", err)
		}
		return out, MapError(op, err)
	}
	defer func() {
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil && a.deps.Base.Log != nil {
			a.deps.Base.Log.Warn("merge lock release failed", "error", rerr, "winner_id", winnerID.String(), "loser_id", loserID.String())
		}
	}()

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Registry.Verify(dbc.Tx); err != nil {
			return err
		}

		rows, err := a.deps.Persons.LockByIDs(dbc, []uuid.UUID{winnerID, loserID})
		if err != nil {
			return err
		}
		var winner, loser *types.Person
		for _, p := range rows {
			switch p.ID {
			case winnerID:
				winner = p
			case loserID:
				loser = p
			}
		}
		if winner == nil {
			return NotFoundError(fmt.Sprintf("winner person not found: %s", winnerID))
		}
		if loser == nil {
			return NotFoundError(fmt.Sprintf("loser person not found: %s", loserID))
		}
		if winner.FamilyID != loser.FamilyID {
			return ScopeError("winner and loser belong to different families")
		}
		if in.FamilyID != uuid.Nil && winner.FamilyID != in.FamilyID {
			return ScopeError(fmt.Sprintf("persons do not belong to family %s", in.FamilyID))
		}
		if winner.IsTombstone() || loser.IsTombstone() {
			return ConflictError("person already merged")
		}

		candidate, err := a.originCandidate(dbc, in.CandidateID, winner, loser)
		if err != nil {
			return err
		}

		merged, decisions, err := resolveFields(winner, loser, in.FieldResolutions)
		if err != nil {
			return err
		}

		snapshot, err := a.deps.Registry.Snapshot(dbc, loserID)
		if err != nil {
			return err
		}

		historyID := uuid.New()
		var candidateID *uuid.UUID
		if candidate != nil {
			// Resolve the origin first so the candidate handler, which only moves
			// pending rows, leaves it alone.
			if err := markCandidateMerged(dbc, a.deps.Base.CASGuard, op, candidate.ID, historyID); err != nil {
				return err
			}
			id := candidate.ID
			candidateID = &id
		}

		repoints, err := a.deps.Registry.Repoint(dbc, loserID, winnerID)
		if err != nil {
			return err
		}
		remaining, err := a.deps.Registry.Remaining(dbc, loserID)
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			return IntegrityError("references to loser remain after repoint: " + formatCounts(remaining))
		}

		now := time.Now().UTC()
		if err := a.deps.Persons.Save(dbc, merged); err != nil {
			return err
		}
		if err := a.deps.Persons.UpdateFields(dbc, loserID, map[string]interface{}{
			"status":                types.PersonStatusMerged,
			"merged_into_person_id": winnerID,
			"merged_at":             now,
		}); err != nil {
			return err
		}

		entry := &types.MergeHistoryEntry{
			ID:             historyID,
			FamilyID:       winner.FamilyID,
			WinnerPersonID: winnerID,
			LoserPersonID:  loserID,
			CandidateID:    candidateID,
			ActorID:        actorID,
			MergedAt:       now,
			Decisions:      datatypes.NewJSONSlice(decisions),
			WinnerBefore:   datatypes.NewJSONType(*winner),
			WinnerAfter:    datatypes.NewJSONType(*merged),
			LoserSnapshot:  datatypes.NewJSONType(*loser),
			Dependents:     datatypes.NewJSONType(snapshot),
			Repoints:       datatypes.NewJSONSlice(repoints),
			CreatedAt:      now,
		}
		if err := a.deps.History.Create(dbc, entry); err != nil {
			return err
		}

		out = domainagg.MergeResult{
			WinnerID:       winnerID,
			LoserID:        loserID,
			MergeHistoryID: historyID,
			CandidateID:    candidateID,
			Winner:         merged,
			Repoints:       repoints,
			MergedAt:       now,
		}
		return nil
	})
	return out, err
}

// resolvePair settles winner and loser from the explicit ids and, when given, the candidate.
func (a *mergeAggregate) resolvePair(ctx context.Context, op string, in domainagg.MergeInput) (uuid.UUID, uuid.UUID, error) {
	winnerID, loserID := in.WinnerID, in.LoserID
	if in.CandidateID == uuid.Nil {
		if winnerID == uuid.Nil || loserID == uuid.Nil {
			return uuid.Nil, uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, "winner_id and loser_id are required without candidate_id", nil)
		}
		if winnerID == loserID {
			return uuid.Nil, uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, "winner and loser must differ", nil)
		}
		return winnerID, loserID, nil
	}

	c, err := a.deps.Candidates.GetByID(dbctx.Context{Ctx: ctx}, in.CandidateID)
	if err != nil {
		return uuid.Nil, uuid.Nil, MapError(op, err)
	}
	if c == nil {
		return uuid.Nil, uuid.Nil, domainagg.NotFound(op, "duplicate_candidate", in.CandidateID)
	}
	other := func(id uuid.UUID) uuid.UUID {
		if id == c.PersonAID {
			return c.PersonBID
		}
		return c.PersonAID
	}
	switch {
	case winnerID == uuid.Nil:
		return uuid.Nil, uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, "winner_id is required", nil)
	case !c.Involves(winnerID):
		return uuid.Nil, uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, "winner is not part of the candidate pair", nil)
	case loserID == uuid.Nil:
		loserID = other(winnerID)
	case loserID != other(winnerID):
		return uuid.Nil, uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, "winner and loser do not match the candidate pair", nil)
	}
	return winnerID, loserID, nil
}

// originCandidate locks the named candidate or, without one, the pending row for the pair.
func (a *mergeAggregate) originCandidate(dbc dbctx.Context, candidateID uuid.UUID, winner, loser *types.Person) (*types.DuplicateCandidate, error) {
	if candidateID == uuid.Nil {
		return a.deps.Candidates.GetPendingByPair(dbc, winner.FamilyID, winner.ID, loser.ID)
	}
	c, err := a.deps.Candidates.LockByID(dbc, candidateID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NotFoundError(fmt.Sprintf("duplicate_candidate not found: %s", candidateID))
	}
	if c.FamilyID != winner.FamilyID {
		return nil, ScopeError("candidate belongs to a different family")
	}
	if !c.Involves(winner.ID) || !c.Involves(loser.ID) {
		return nil, ValidationError("candidate does not name this pair")
	}
	if c.Status != dedupe.CandidateStatusPending {
		return nil, ConflictError(fmt.Sprintf("duplicate_candidate %s is %s", c.ID, c.Status))
	}
	return c, nil
}

func formatCounts(m map[string]int64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}
