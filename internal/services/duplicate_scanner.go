package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/heirloom-backend/internal/data/repos"
	"github.com/yungbote/heirloom-backend/internal/dedupe/scoring"
	"github.com/yungbote/heirloom-backend/internal/dedupe/similarity"
	types "github.com/yungbote/heirloom-backend/internal/domain"
	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/observability"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

const (
	scanModeFull        = "full"
	scanModeIncremental = "incremental"
	tracerDedupe        = "heirloom/dedupe"
)

// ScanSummary reports one family's scan inside ScanFamilies.
type ScanSummary struct {
	FamilyID uuid.UUID                `json:"family_id"`
	Mode     string                   `json:"mode"`
	Pending  int                      `json:"pending"`
	Result   domainagg.SyncScanResult `json:"result"`
	// Skipped counts pairs that failed to score.
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

type DuplicateScanner interface {
	// Scan scores the family's pairs, writes candidates and returns every pending
	// candidate for the family, best first.
	Scan(ctx context.Context, familyID uuid.UUID, forceRefresh bool) ([]*types.DuplicateCandidate, error)
	// ScanFamilies scans each family with bounded parallelism. An empty list scans
	// every family that has persons.
	ScanFamilies(ctx context.Context, familyIDs []uuid.UUID, forceRefresh bool) ([]ScanSummary, error)
}

type duplicateScanner struct {
	log           *logger.Logger
	persons       repos.PersonRepo
	relationships repos.RelationshipRepo
	candidates    repos.CandidateRepo
	scanStates    repos.ScanStateRepo
	candidateAgg  domainagg.CandidateAggregate
	scorer        *scoring.Scorer
	metrics       *observability.Metrics
	parallelism   int
}

func NewDuplicateScanner(
	baseLog *logger.Logger,
	persons repos.PersonRepo,
	relationships repos.RelationshipRepo,
	candidates repos.CandidateRepo,
	scanStates repos.ScanStateRepo,
	candidateAgg domainagg.CandidateAggregate,
	scorer *scoring.Scorer,
	metrics *observability.Metrics,
	parallelism int,
) DuplicateScanner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &duplicateScanner{
		log:           baseLog.With("service", "DuplicateScanner"),
		persons:       persons,
		relationships: relationships,
		candidates:    candidates,
		scanStates:    scanStates,
		candidateAgg:  candidateAgg,
		scorer:        scorer,
		metrics:       metrics,
		parallelism:   parallelism,
	}
}

func (s *duplicateScanner) Scan(ctx context.Context, familyID uuid.UUID, forceRefresh bool) ([]*types.DuplicateCandidate, error) {
	out, _, err := s.scan(ctx, familyID, forceRefresh)
	return out, err
}

func (s *duplicateScanner) scan(ctx context.Context, familyID uuid.UUID, forceRefresh bool) ([]*types.DuplicateCandidate, ScanSummary, error) {
	summary := ScanSummary{FamilyID: familyID, Mode: scanModeFull}
	if familyID == uuid.Nil {
		return nil, summary, domainagg.NewError(domainagg.CodeValidation, "Dedupe.Scan", "missing family_id", nil)
	}
	if s.scorer == nil || s.candidateAgg == nil {
		return nil, summary, domainagg.NewError(domainagg.CodeInternal, "Dedupe.Scan", "scanner not configured", nil)
	}

	ctx, span := observability.StartSpan(ctx, tracerDedupe, "dedupe.scan", "family_id", familyID.String())
	start := time.Now()
	// The watermark is taken before loading so edits made during the scan are seen next time.
	watermark := start.UTC()
	dbc := dbctx.Context{Ctx: ctx}

	var err error
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.ObserveScan(summary.Mode, status, time.Since(start))
		observability.EndSpan(span, err)
	}()

	var since *time.Time
	if !forceRefresh && s.scanStates != nil {
		state, serr := s.scanStates.Get(dbc, familyID)
		if serr != nil {
			err = fmt.Errorf("load scan state: %w", serr)
			return nil, summary, err
		}
		if state != nil && !state.LastScannedAt.IsZero() {
			t := state.LastScannedAt
			since = &t
			summary.Mode = scanModeIncremental
		}
	}

	persons, err := s.persons.ListActiveByFamily(dbc, familyID)
	if err != nil {
		err = fmt.Errorf("load family persons: %w", err)
		return nil, summary, err
	}
	rels, err := s.relationships.ListByFamily(dbc, familyID)
	if err != nil {
		err = fmt.Errorf("load family relationships: %w", err)
		return nil, summary, err
	}
	existing, err := s.candidates.ListByFamily(dbc, familyID)
	if err != nil {
		err = fmt.Errorf("load family candidates: %w", err)
		return nil, summary, err
	}

	var touched map[uuid.UUID]bool
	if since != nil {
		ids, lerr := s.persons.ListActiveUpdatedSince(dbc, familyID, *since)
		if lerr != nil {
			err = fmt.Errorf("load updated persons: %w", lerr)
			return nil, summary, err
		}
		// Relationship overlap changes when an edge is added or repointed even
		// though neither endpoint row was edited.
		edged, lerr := s.relationships.ListEndpointsChangedSince(dbc, familyID, *since)
		if lerr != nil {
			err = fmt.Errorf("load changed relationships: %w", lerr)
			return nil, summary, err
		}
		touched = make(map[uuid.UUID]bool, len(ids)+len(edged))
		for _, id := range append(ids, edged...) {
			touched[id] = true
		}
	}

	pairs, scored, skipped := s.scorePairs(familyID, persons, rels, existing, touched)
	summary.Skipped = skipped

	res, err := s.candidateAgg.SyncScan(ctx, domainagg.SyncScanInput{
		FamilyID:    familyID,
		Pairs:       pairs,
		Watermark:   watermark,
		PairsScored: scored,
	})
	if err != nil {
		return nil, summary, err
	}
	summary.Result = res
	s.metrics.AddCandidateWrites("inserted", res.Inserted)
	s.metrics.AddCandidateWrites("refreshed", res.Refreshed)
	s.metrics.AddCandidateWrites("retracted", res.Retracted)
	s.metrics.AddCandidateWrites("suppressed", res.Suppressed)

	out, err := s.candidates.ListPending(dbc, familyID)
	if err != nil {
		err = fmt.Errorf("list pending candidates: %w", err)
		return nil, summary, err
	}
	summary.Pending = len(out)

	s.log.Info("duplicate scan finished",
		"family_id", familyID.String(),
		"mode", summary.Mode,
		"persons", len(persons),
		"pairs_scored", scored,
		"skipped", skipped,
		"inserted", res.Inserted,
		"refreshed", res.Refreshed,
		"retracted", res.Retracted,
		"suppressed", res.Suppressed,
		"pending", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, summary, nil
}

// scorePairs scores every pair that needs it. With touched set, only pairs naming a
// touched person are considered. Pairs under the floor are only passed on when a
// pending row exists, so SyncScan can retract it.
func (s *duplicateScanner) scorePairs(
	familyID uuid.UUID,
	persons []*types.Person,
	rels []*types.PersonRelationship,
	existing []*types.DuplicateCandidate,
	touched map[uuid.UUID]bool,
) ([]domainagg.ScoredPair, int, int) {
	sorted := make([]*types.Person, 0, len(persons))
	for _, p := range persons {
		if p != nil && p.ID != uuid.Nil && !p.IsTombstone() {
			sorted = append(sorted, p)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.String() < sorted[j].ID.String() })

	records := make(map[uuid.UUID]similarity.Record, len(sorted))
	for _, p := range sorted {
		records[p.ID] = similarity.FromPerson(p, rels)
	}

	terminal := map[[2]uuid.UUID]bool{}
	pending := map[[2]uuid.UUID]bool{}
	for _, c := range existing {
		k := canonicalKey(c.PersonAID, c.PersonBID)
		if dedupe.IsTerminalCandidateStatus(c.Status) {
			terminal[k] = true
		} else {
			pending[k] = true
		}
	}

	var (
		out      []domainagg.ScoredPair
		scored   int
		failed   int
		excluded int
	)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if touched != nil && !touched[a.ID] && !touched[b.ID] {
				continue
			}
			k := canonicalKey(a.ID, b.ID)
			if terminal[k] {
				excluded++
				continue
			}
			pair, err := s.scorePair(records[a.ID], records[b.ID])
			if err != nil {
				failed++
				s.log.Warn("skipping unscorable pair",
					"family_id", familyID.String(),
					"person_a_id", a.ID.String(),
					"person_b_id", b.ID.String(),
					"error", err,
				)
				continue
			}
			scored++
			if pair.Surfaced || pending[k] {
				out = append(out, pair)
			}
		}
	}
	s.metrics.AddScanPairs("scored", scored)
	s.metrics.AddScanPairs("failed", failed)
	s.metrics.AddScanPairs("suppressed", excluded)
	return out, scored, failed
}

// scorePair isolates one pair: an error or panic here must not abort the scan.
func (s *duplicateScanner) scorePair(a, b similarity.Record) (pair domainagg.ScoredPair, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scoring: %v", r)
		}
	}()
	breakdown, err := similarity.Evaluate(a, b)
	if err != nil {
		return pair, err
	}
	res := s.scorer.Score(breakdown)
	pa, pb := dedupe.CanonicalPair(a.ID, b.ID)
	return domainagg.ScoredPair{
		PersonAID: pa,
		PersonBID: pb,
		Score:     res.Score,
		Band:      res.Band,
		Reasons:   res.Reasons,
		Breakdown: breakdown,
		Surfaced:  res.Surfaced,
	}, nil
}

func canonicalKey(x, y uuid.UUID) [2]uuid.UUID {
	a, b := dedupe.CanonicalPair(x, y)
	return [2]uuid.UUID{a, b}
}

func (s *duplicateScanner) ScanFamilies(ctx context.Context, familyIDs []uuid.UUID, forceRefresh bool) ([]ScanSummary, error) {
	ids := familyIDs
	if len(ids) == 0 {
		all, err := s.persons.ListFamilyIDs(dbctx.Context{Ctx: ctx})
		if err != nil {
			return nil, fmt.Errorf("list families: %w", err)
		}
		ids = all
	}

	out := make([]ScanSummary, len(ids))
	var (
		mu   sync.Mutex
		errs []error
	)
	// Families are independent: one failure is reported without cancelling the rest.
	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if ctx.Err() != nil {
				out[i] = ScanSummary{FamilyID: id, Error: ctx.Err().Error()}
				mu.Lock()
				errs = append(errs, ctx.Err())
				mu.Unlock()
				return nil
			}
			_, summary, err := s.scan(ctx, id, forceRefresh)
			if err != nil {
				summary.Error = err.Error()
				s.log.Warn("family scan failed", "family_id", id.String(), "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("family %s: %w", id, err))
				mu.Unlock()
			}
			out[i] = summary
			return nil
		})
	}
	_ = g.Wait()
	return out, errors.Join(errs...)
}
