package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/heirloom-backend/internal/data/aggregates"
	"github.com/yungbote/heirloom-backend/internal/data/repos"
	repotest "github.com/yungbote/heirloom-backend/internal/data/repos/testutil"
	"github.com/yungbote/heirloom-backend/internal/dedupe/scoring"
	types "github.com/yungbote/heirloom-backend/internal/domain"
	"github.com/yungbote/heirloom-backend/internal/services"
)

type cliTestEnv struct {
	db  *gorm.DB
	svc services.DuplicateService
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)

	persons := repos.NewPersonRepo(db, log)
	candidates := repos.NewCandidateRepo(db, log)
	history := repos.NewMergeHistoryRepo(db, log)
	scanStates := repos.NewScanStateRepo(db, log)

	base := aggregates.BaseDeps{DB: db, Log: log}
	candidateAgg := aggregates.NewCandidateAggregate(aggregates.CandidateAggregateDeps{
		Base:       base,
		Candidates: candidates,
		ScanStates: scanStates,
	})
	mergeAgg := aggregates.NewMergeAggregate(aggregates.MergeAggregateDeps{
		Base:       base,
		Persons:    persons,
		Candidates: candidates,
		History:    history,
	})
	scorer, err := scoring.NewScorer(scoring.DefaultPolicy())
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	scanner := services.NewDuplicateScanner(log, persons, repos.NewRelationshipRepo(db, log), candidates, scanStates, candidateAgg, scorer, nil, 2)
	svc := services.NewDuplicateService(log, scanner, persons, candidates, history, candidateAgg, mergeAgg, nil)
	return &cliTestEnv{db: db, svc: svc}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	closed := false
	cc := newCommandContext(func() (services.DuplicateService, func(), error) {
		return env.svc, func() { closed = true }, nil
	})
	cmd := newRootCommand(cc)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	cc.close()
	if cc.svc != nil && !closed {
		t.Fatalf("service was not closed")
	}
	return out.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("output missing %q:\n%s", want, out)
	}
}

func seedSmiths(t *testing.T, db *gorm.DB, family uuid.UUID) (*types.Person, *types.Person) {
	t.Helper()
	ctx := context.Background()
	john := repotest.SeedPerson(t, ctx, db, family, "John", "Smith", repotest.WithBirth("1950-01-01", "Springfield"), repotest.WithBio("Farmer"))
	jon := repotest.SeedPerson(t, ctx, db, family, "Jon", "Smith", repotest.WithBirth("1950-01-01", "Springfield"), repotest.WithBio("Farmer and miller"))
	repotest.SeedPerson(t, ctx, db, family, "Mary", "Jones", repotest.WithBirth("1921-07-04", "Cork"))
	return john, jon
}

func TestScanAndCandidatesCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	family := uuid.New()
	seedSmiths(t, env.db, family)

	out, err := runCLI(t, env, "scan", family.String())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "name_similarity")
	requireContains(t, out, "high")

	out, err = runCLI(t, env, "--json", "candidates", family.String())
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	var listed []types.DuplicateCandidate
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode candidates: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].Score < 0.8 {
		t.Fatalf("candidates: %+v", listed)
	}
}

func TestScanRequiresTarget(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, env, "scan"); err == nil || !strings.Contains(err.Error(), "--all") {
		t.Fatalf("want --all hint, got %v", err)
	}
	if _, err := runCLI(t, env, "scan", "not-a-uuid"); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestScanAllPrintsSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	f1, f2 := uuid.New(), uuid.New()
	seedSmiths(t, env.db, f1)
	seedSmiths(t, env.db, f2)

	out, err := runCLI(t, env, "scan", "--all", "--force")
	if err != nil {
		t.Fatalf("scan --all: %v", err)
	}
	requireContains(t, out, f1.String())
	requireContains(t, out, f2.String())
	requireContains(t, out, "full")
}

func TestDismissMergeHistoryResolve(t *testing.T) {
	env := setupCLITestEnv(t)
	family := uuid.New()
	john, jon := seedSmiths(t, env.db, family)

	out, err := runCLI(t, env, "--json", "scan", family.String())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var scanned []types.DuplicateCandidate
	if err := json.Unmarshal([]byte(out), &scanned); err != nil || len(scanned) != 1 {
		t.Fatalf("scan output: %v\n%s", err, out)
	}

	if _, err := runCLI(t, env, "dismiss", uuid.New().String(), "--actor", "ops"); err == nil {
		t.Fatalf("expected not found for unknown candidate")
	}

	out, err = runCLI(t, env, "merge",
		"--candidate", scanned[0].ID.String(),
		"--winner", john.ID.String(),
		"--resolve", "bio=keep_loser",
		"--actor", "ops",
	)
	if err != nil {
		t.Fatalf("merge: %v\n%s", err, out)
	}
	requireContains(t, out, "Merged "+jon.ID.String()+" into "+john.ID.String())

	out, err = runCLI(t, env, "history", family.String())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "ops")
	requireContains(t, out, jon.ID.String())

	out, err = runCLI(t, env, "resolve", jon.ID.String())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, "was merged into "+john.ID.String())

	if _, err := runCLI(t, env, "merge", "--winner", john.ID.String(), "--resolve", "bio"); err == nil {
		t.Fatalf("expected bad --resolve to fail")
	}
}

func TestParseResolutions(t *testing.T) {
	got, err := parseResolutions([]string{"bio=keep_loser", " tags = union "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["bio"] != "keep_loser" || got["tags"] != "union" {
		t.Fatalf("resolutions: %+v", got)
	}
	if _, err := parseResolutions([]string{"=union"}); err == nil {
		t.Fatalf("expected error for empty field")
	}
}
