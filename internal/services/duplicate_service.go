package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/heirloom-backend/internal/data/repos"
	types "github.com/yungbote/heirloom-backend/internal/domain"
	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"github.com/yungbote/heirloom-backend/internal/observability"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ResolvedPerson is the live record for a requested id. Redirected is true when the
// requested id was a tombstone.
type ResolvedPerson struct {
	RequestedID uuid.UUID     `json:"requested_id"`
	Person      *types.Person `json:"person"`
	Redirected  bool          `json:"redirected"`
}

type DuplicateService interface {
	Scan(ctx context.Context, familyID uuid.UUID, forceRefresh bool) ([]*types.DuplicateCandidate, error)
	ScanFamilies(ctx context.Context, familyIDs []uuid.UUID, forceRefresh bool) ([]ScanSummary, error)
	ListPending(ctx context.Context, familyID uuid.UUID) ([]*types.DuplicateCandidate, error)
	GetCandidate(ctx context.Context, candidateID uuid.UUID) (*types.DuplicateCandidate, error)
	Dismiss(ctx context.Context, candidateID uuid.UUID, actorID string) (*types.DuplicateCandidate, error)
	Merge(ctx context.Context, in domainagg.MergeInput) (domainagg.MergeResult, error)
	ListHistory(ctx context.Context, familyID uuid.UUID, limit int) ([]*types.MergeHistoryEntry, error)
	GetHistory(ctx context.Context, historyID uuid.UUID) (*types.MergeHistoryEntry, error)
	ResolvePerson(ctx context.Context, personID uuid.UUID) (*ResolvedPerson, error)
}

type duplicateService struct {
	log          *logger.Logger
	scanner      DuplicateScanner
	persons      repos.PersonRepo
	candidates   repos.CandidateRepo
	history      repos.MergeHistoryRepo
	candidateAgg domainagg.CandidateAggregate
	mergeAgg     domainagg.MergeAggregate
	metrics      *observability.Metrics
}

func NewDuplicateService(
	baseLog *logger.Logger,
	scanner DuplicateScanner,
	persons repos.PersonRepo,
	candidates repos.CandidateRepo,
	history repos.MergeHistoryRepo,
	candidateAgg domainagg.CandidateAggregate,
	mergeAgg domainagg.MergeAggregate,
	metrics *observability.Metrics,
) DuplicateService {
	return &duplicateService{
		log:          baseLog.With("service", "DuplicateService"),
		scanner:      scanner,
		persons:      persons,
		candidates:   candidates,
		history:      history,
		candidateAgg: candidateAgg,
		mergeAgg:     mergeAgg,
		metrics:      metrics,
	}
}

func (s *duplicateService) Scan(ctx context.Context, familyID uuid.UUID, forceRefresh bool) ([]*types.DuplicateCandidate, error) {
	return s.scanner.Scan(ctx, familyID, forceRefresh)
}

func (s *duplicateService) ScanFamilies(ctx context.Context, familyIDs []uuid.UUID, forceRefresh bool) ([]ScanSummary, error) {
	return s.scanner.ScanFamilies(ctx, familyIDs, forceRefresh)
}

func (s *duplicateService) ListPending(ctx context.Context, familyID uuid.UUID) ([]*types.DuplicateCandidate, error) {
	const op = "Dedupe.ListPending"
	if familyID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing family_id", nil)
	}
	out, err := s.candidates.ListPending(dbctx.Context{Ctx: ctx}, familyID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "list pending candidates", err)
	}
	return out, nil
}

func (s *duplicateService) GetCandidate(ctx context.Context, candidateID uuid.UUID) (*types.DuplicateCandidate, error) {
	const op = "Dedupe.GetCandidate"
	if candidateID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing candidate_id", nil)
	}
	row, err := s.candidates.GetByID(dbctx.Context{Ctx: ctx}, candidateID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "load candidate", err)
	}
	if row == nil {
		return nil, domainagg.NotFound(op, "duplicate_candidate", candidateID)
	}
	return row, nil
}

func (s *duplicateService) Dismiss(ctx context.Context, candidateID uuid.UUID, actorID string) (*types.DuplicateCandidate, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, "Dedupe.Candidate.Dismiss", "missing actor_id", nil)
	}
	row, err := s.candidateAgg.Dismiss(ctx, domainagg.DismissCandidateInput{CandidateID: candidateID, ActorID: actorID})
	if err != nil {
		s.log.Warn("dismiss failed", "candidate_id", candidateID.String(), "actor_id", actorID, "error", err)
		return nil, err
	}
	s.log.Info("candidate dismissed", "candidate_id", candidateID.String(), "actor_id", actorID, "family_id", row.FamilyID.String())
	return row, nil
}

func (s *duplicateService) Merge(ctx context.Context, in domainagg.MergeInput) (domainagg.MergeResult, error) {
	ctx, span := observability.StartSpan(ctx, tracerDedupe, "dedupe.merge",
		"candidate_id", in.CandidateID.String(),
		"winner_id", in.WinnerID.String(),
		"loser_id", in.LoserID.String(),
	)
	start := time.Now()
	res, err := s.mergeAgg.Merge(ctx, in)
	observability.EndSpan(span, err)

	if err != nil {
		outcome := string(domainagg.CodeOf(err))
		if outcome == "" {
			outcome = "error"
		}
		s.metrics.IncMergeOutcome(outcome)
		s.log.Warn("merge failed",
			"candidate_id", in.CandidateID.String(),
			"winner_id", in.WinnerID.String(),
			"loser_id", in.LoserID.String(),
			"actor_id", in.ActorID,
			"error", err,
		)
		return res, err
	}
	s.metrics.IncMergeOutcome("merged")
	s.log.Info("persons merged",
		"merge_history_id", res.MergeHistoryID.String(),
		"winner_id", res.WinnerID.String(),
		"loser_id", res.LoserID.String(),
		"actor_id", in.ActorID,
		"repoints", len(res.Repoints),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *duplicateService) ListHistory(ctx context.Context, familyID uuid.UUID, limit int) ([]*types.MergeHistoryEntry, error) {
	const op = "Dedupe.ListHistory"
	if familyID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing family_id", nil)
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	out, err := s.history.ListByFamily(dbctx.Context{Ctx: ctx}, familyID, limit)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "list merge history", err)
	}
	return out, nil
}

func (s *duplicateService) GetHistory(ctx context.Context, historyID uuid.UUID) (*types.MergeHistoryEntry, error) {
	const op = "Dedupe.GetHistory"
	if historyID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing merge_history_id", nil)
	}
	row, err := s.history.GetByID(dbctx.Context{Ctx: ctx}, historyID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "load merge history", err)
	}
	if row == nil {
		return nil, domainagg.NotFound(op, "merge_history", historyID)
	}
	return row, nil
}

// ResolvePerson follows a tombstone one hop to its winner. Merges re-point older
// tombstones, so a second hop means the store is inconsistent.
func (s *duplicateService) ResolvePerson(ctx context.Context, personID uuid.UUID) (*ResolvedPerson, error) {
	const op = "Dedupe.ResolvePerson"
	if personID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing person_id", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	p, err := s.persons.GetByID(dbc, personID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "load person", err)
	}
	if p == nil {
		return nil, domainagg.NotFound(op, "person", personID)
	}
	out := &ResolvedPerson{RequestedID: personID, Person: p}
	if !p.IsTombstone() {
		return out, nil
	}
	if p.MergedIntoPersonID == nil || *p.MergedIntoPersonID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeIntegrity, op, fmt.Sprintf("tombstone %s has no winner", personID), nil)
	}
	target, err := s.persons.GetByID(dbc, *p.MergedIntoPersonID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "load merge winner", err)
	}
	if target == nil {
		return nil, domainagg.NewError(domainagg.CodeIntegrity, op, fmt.Sprintf("merge winner missing for %s", personID), nil)
	}
	if target.IsTombstone() {
		return nil, domainagg.NewError(domainagg.CodeIntegrity, op, fmt.Sprintf("tombstone chain at %s", target.ID), nil)
	}
	out.Person = target
	out.Redirected = true
	return out, nil
}
