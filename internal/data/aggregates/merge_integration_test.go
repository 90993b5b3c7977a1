package aggregates

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/heirloom-backend/internal/data/repos"
	repotest "github.com/yungbote/heirloom-backend/internal/data/repos/testutil"
	types "github.com/yungbote/heirloom-backend/internal/domain"
	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"github.com/yungbote/heirloom-backend/internal/domain/people"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/locks"
)

type dedupeHarness struct {
	db         *gorm.DB
	hooks      *spyHooks
	persons    repos.PersonRepo
	candidates repos.CandidateRepo
	history    repos.MergeHistoryRepo
	scanStates repos.ScanStateRepo
	registry   *DependentRegistry
	locker     *locks.MemoryLocker
	merge      domainagg.MergeAggregate
	candidate  domainagg.CandidateAggregate
}

func newDedupeHarness(t *testing.T) *dedupeHarness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	h := &dedupeHarness{
		db:         db,
		hooks:      &spyHooks{},
		persons:    repos.NewPersonRepo(db, log),
		candidates: repos.NewCandidateRepo(db, log),
		history:    repos.NewMergeHistoryRepo(db, log),
		scanStates: repos.NewScanStateRepo(db, log),
		registry:   NewDependentRegistry(),
		locker:     locks.NewMemoryLocker(),
	}
	base := BaseDeps{DB: db, Log: log, Hooks: h.hooks}
	h.merge = NewMergeAggregate(MergeAggregateDeps{
		Base:       base,
		Persons:    h.persons,
		Candidates: h.candidates,
		History:    h.history,
		Registry:   h.registry,
		Locker:     h.locker,
	})
	h.candidate = NewCandidateAggregate(CandidateAggregateDeps{
		Base:       base,
		Candidates: h.candidates,
		ScanStates: h.scanStates,
	})
	return h
}

func (h *dedupeHarness) person(t *testing.T, id uuid.UUID) *types.Person {
	t.Helper()
	p, err := h.persons.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	if p == nil {
		t.Fatalf("person %s missing", id)
	}
	return p
}

func (h *dedupeHarness) historyCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(&types.MergeHistoryEntry{}).Count(&n).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	return n
}

func repointFor(results []types.RepointResult, table string) types.RepointResult {
	for _, r := range results {
		if r.Table == table {
			return r
		}
	}
	return types.RepointResult{Table: table}
}

func TestMergeJohnAndJonSmith(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()

	john := repotest.SeedPerson(t, ctx, h.db, family, "John", "Smith",
		repotest.WithBirth("1900-01-15", "Boston, Massachusetts"), repotest.WithBio("Farmer."))
	jon := repotest.SeedPerson(t, ctx, h.db, family, "Jon", "Smith",
		repotest.WithBirth("1900-01-15", "Boston, Massachusetts"), repotest.WithBio("Farmer and fiddler."))
	story := uuid.New()
	repotest.SeedStoryPerson(t, ctx, h.db, story, jon.ID)
	cand := repotest.SeedCandidate(t, ctx, h.db, family, john.ID, jon.ID, 0.9875, types.CandidateStatusPending)

	res, err := h.merge.Merge(ctx, domainagg.MergeInput{
		CandidateID:      cand.ID,
		WinnerID:         john.ID,
		FieldResolutions: map[string]string{"bio": "keep_loser"},
		ActorID:          "operator-1",
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.LoserID != jon.ID {
		t.Fatalf("loser: want=%s got=%s", jon.ID, res.LoserID)
	}

	winner := h.person(t, john.ID)
	if winner.Bio != "Farmer and fiddler." {
		t.Fatalf("winner bio: want=%q got=%q", "Farmer and fiddler.", winner.Bio)
	}
	if winner.GivenName != "John" {
		t.Fatalf("winner given name: want=John got=%q", winner.GivenName)
	}
	foundAlt := false
	for _, n := range winner.AlternateNames {
		if n == "Jon Smith" {
			foundAlt = true
		}
	}
	if !foundAlt {
		t.Fatalf("alternate names should carry the loser display name: %v", winner.AlternateNames)
	}

	loser := h.person(t, jon.ID)
	if loser.Status != types.PersonStatusMerged || loser.MergedIntoPersonID == nil || *loser.MergedIntoPersonID != john.ID {
		t.Fatalf("loser not tombstoned onto winner: %+v", loser)
	}

	var link types.StoryPerson
	if err := h.db.Where("story_id = ?", story).First(&link).Error; err != nil {
		t.Fatalf("load story link: %v", err)
	}
	if link.PersonID != john.ID {
		t.Fatalf("story link: want=%s got=%s", john.ID, link.PersonID)
	}
	if got := repointFor(res.Repoints, "story_person"); got.Repointed != 1 || got.Dropped != 0 {
		t.Fatalf("story_person repoint: %+v", got)
	}

	c, err := h.candidates.GetByID(dbctx.Context{Ctx: ctx}, cand.ID)
	if err != nil {
		t.Fatalf("get candidate: %v", err)
	}
	if c.Status != types.CandidateStatusMerged || c.MergeHistoryID == nil || *c.MergeHistoryID != res.MergeHistoryID {
		t.Fatalf("candidate not marked merged: %+v", c)
	}

	entry, err := h.history.GetByID(dbctx.Context{Ctx: ctx}, res.MergeHistoryID)
	if err != nil || entry == nil {
		t.Fatalf("history entry: %v %v", entry, err)
	}
	if entry.ActorID != "operator-1" {
		t.Fatalf("history actor: got=%q", entry.ActorID)
	}
	if entry.LoserSnapshot.Data().Bio != "Farmer and fiddler." || entry.WinnerBefore.Data().Bio != "Farmer." {
		t.Fatalf("history snapshots: winner_before=%q loser=%q", entry.WinnerBefore.Data().Bio, entry.LoserSnapshot.Data().Bio)
	}
	if len(entry.Dependents.Data()["story_person"]) != 1 {
		t.Fatalf("dependent snapshot should hold the story link: %+v", entry.Dependents.Data())
	}
}

func TestMergeLeavesNoReferencesToLoser(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()

	winner := repotest.SeedPerson(t, ctx, h.db, family, "Mary", "Jones", repotest.WithTags("immigrant"))
	loser := repotest.SeedPerson(t, ctx, h.db, family, "Maria", "Jones", repotest.WithTags("Immigrant", "nurse"))
	child := repotest.SeedPerson(t, ctx, h.db, family, "Ann", "Jones")
	parent := repotest.SeedPerson(t, ctx, h.db, family, "Otto", "Jones")
	other := repotest.SeedPerson(t, ctx, h.db, family, "Mae", "Jones")
	oldTomb := repotest.SeedPerson(t, ctx, h.db, family, "M.", "Jones")
	if err := h.db.Model(&types.Person{}).Where("id = ?", oldTomb.ID).Updates(map[string]any{
		"status": types.PersonStatusMerged, "merged_into_person_id": loser.ID,
	}).Error; err != nil {
		t.Fatalf("tombstone setup: %v", err)
	}

	// same fact stated from both sides: winner parent-of child, child child-of loser
	repotest.SeedRelationship(t, ctx, h.db, family, winner.ID, child.ID, people.RelationshipParent)
	repotest.SeedRelationship(t, ctx, h.db, family, child.ID, loser.ID, people.RelationshipChild)
	repotest.SeedRelationship(t, ctx, h.db, family, parent.ID, loser.ID, people.RelationshipParent)
	repotest.SeedRelationship(t, ctx, h.db, family, loser.ID, winner.ID, people.RelationshipSibling)

	media := uuid.New()
	repotest.SeedMediaTag(t, ctx, h.db, media, winner.ID)
	repotest.SeedMediaTag(t, ctx, h.db, media, loser.ID)
	repotest.SeedMediaTag(t, ctx, h.db, uuid.New(), loser.ID)
	repotest.SeedClaim(t, ctx, h.db, loser.ID, "user-7")
	repotest.SeedTimelineEvent(t, ctx, h.db, winner.ID, "birth", "1890", "Born")
	repotest.SeedTimelineEvent(t, ctx, h.db, loser.ID, "birth", "1890", "Born")
	repotest.SeedTimelineEvent(t, ctx, h.db, loser.ID, "marriage", "1912", "Married")
	repotest.SeedCandidate(t, ctx, h.db, family, loser.ID, other.ID, 0.7, types.CandidateStatusPending)

	res, err := h.merge.Merge(ctx, domainagg.MergeInput{WinnerID: winner.ID, LoserID: loser.ID, ActorID: "op"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	dbc := dbctx.Context{Ctx: ctx, Tx: h.db}
	for _, handler := range h.registry.Handlers() {
		n, err := handler.CountReferences(dbc, loser.ID)
		if err != nil {
			t.Fatalf("count %s: %v", handler.Table(), err)
		}
		if n != 0 {
			t.Fatalf("%s still references loser: %d rows", handler.Table(), n)
		}
	}

	rel := repointFor(res.Repoints, "person_relationship")
	if rel.Repointed != 1 || rel.Dropped != 2 {
		t.Fatalf("relationship repoint: want repointed=1 dropped=2 got=%+v", rel)
	}
	tags := repointFor(res.Repoints, "media_tag")
	if tags.Repointed != 1 || tags.Dropped != 1 {
		t.Fatalf("media_tag repoint: want repointed=1 dropped=1 got=%+v", tags)
	}
	events := repointFor(res.Repoints, "timeline_event")
	if events.Repointed != 1 || events.Dropped != 1 {
		t.Fatalf("timeline_event repoint: want repointed=1 dropped=1 got=%+v", events)
	}
	if got := repointFor(res.Repoints, "person_claim"); got.Repointed != 1 {
		t.Fatalf("person_claim repoint: %+v", got)
	}
	if got := repointFor(res.Repoints, "duplicate_candidate"); got.Repointed != 1 {
		t.Fatalf("duplicate_candidate repoint: %+v", got)
	}

	moved, err := h.candidates.GetPendingByPair(dbc, family, winner.ID, other.ID)
	if err != nil || moved == nil {
		t.Fatalf("pending candidate should now name the winner: %v %v", moved, err)
	}
	tomb := h.person(t, oldTomb.ID)
	if tomb.MergedIntoPersonID == nil || *tomb.MergedIntoPersonID != winner.ID {
		t.Fatalf("older tombstone should resolve to winner in one hop: %+v", tomb.MergedIntoPersonID)
	}
	w := h.person(t, winner.ID)
	if len(w.Tags) != 2 || w.Tags[0] != "immigrant" || w.Tags[1] != "nurse" {
		t.Fatalf("tags union: got=%v", w.Tags)
	}
}

func TestMergeTwiceConflictsWithoutSecondHistory(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Karl", "Berg")
	b := repotest.SeedPerson(t, ctx, h.db, family, "Carl", "Berg")

	in := domainagg.MergeInput{WinnerID: a.ID, LoserID: b.ID, ActorID: "op"}
	if _, err := h.merge.Merge(ctx, in); err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	_, err := h.merge.Merge(ctx, in)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("second Merge: want conflict got=%v", err)
	}
	if n := h.historyCount(t); n != 1 {
		t.Fatalf("history rows: want=1 got=%d", n)
	}
}

func TestMergeRollsBackOnFailure(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Lena", "Holm")
	b := repotest.SeedPerson(t, ctx, h.db, family, "Lina", "Holm", repotest.WithBio("weaver"))
	story := uuid.New()
	repotest.SeedStoryPerson(t, ctx, h.db, story, b.ID)
	cand := repotest.SeedCandidate(t, ctx, h.db, family, a.ID, b.ID, 0.8, types.CandidateStatusPending)

	// A stray history row for the loser makes the final insert hit the unique index.
	stray := &types.MergeHistoryEntry{
		ID:             uuid.New(),
		FamilyID:       family,
		WinnerPersonID: uuid.New(),
		LoserPersonID:  b.ID,
		ActorID:        "someone",
		MergedAt:       time.Now().UTC(),
	}
	if err := h.db.Create(stray).Error; err != nil {
		t.Fatalf("seed stray history: %v", err)
	}

	_, err := h.merge.Merge(ctx, domainagg.MergeInput{CandidateID: cand.ID, WinnerID: a.ID, ActorID: "op"})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("Merge: want conflict got=%v", err)
	}

	loser := h.person(t, b.ID)
	if loser.IsTombstone() {
		t.Fatalf("loser must not be tombstoned after rollback")
	}
	winner := h.person(t, a.ID)
	if winner.Bio != "" || len(winner.AlternateNames) != 0 {
		t.Fatalf("winner must be unchanged after rollback: %+v", winner)
	}
	var link types.StoryPerson
	if err := h.db.Where("story_id = ?", story).First(&link).Error; err != nil {
		t.Fatalf("load story link: %v", err)
	}
	if link.PersonID != b.ID {
		t.Fatalf("story link must still reference loser after rollback")
	}
	c, _ := h.candidates.GetByID(dbctx.Context{Ctx: ctx}, cand.ID)
	if c == nil || c.Status != types.CandidateStatusPending {
		t.Fatalf("candidate must stay pending after rollback: %+v", c)
	}
}

func TestMergePreconditions(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Ida", "Lund")
	b := repotest.SeedPerson(t, ctx, h.db, family, "Ada", "Lund")
	stranger := repotest.SeedPerson(t, ctx, h.db, uuid.New(), "Ida", "Lund")

	cases := []struct {
		name string
		in   domainagg.MergeInput
		code domainagg.ErrorCode
	}{
		{"self", domainagg.MergeInput{WinnerID: a.ID, LoserID: a.ID, ActorID: "op"}, domainagg.CodeValidation},
		{"missing actor", domainagg.MergeInput{WinnerID: a.ID, LoserID: b.ID}, domainagg.CodeValidation},
		{"missing loser", domainagg.MergeInput{WinnerID: a.ID, ActorID: "op"}, domainagg.CodeValidation},
		{"unknown person", domainagg.MergeInput{WinnerID: a.ID, LoserID: uuid.New(), ActorID: "op"}, domainagg.CodeNotFound},
		{"cross family", domainagg.MergeInput{WinnerID: a.ID, LoserID: stranger.ID, ActorID: "op"}, domainagg.CodeScopeMismatch},
		{"unknown candidate", domainagg.MergeInput{CandidateID: uuid.New(), WinnerID: a.ID, ActorID: "op"}, domainagg.CodeNotFound},
		{"bad strategy", domainagg.MergeInput{WinnerID: a.ID, LoserID: b.ID, ActorID: "op", FieldResolutions: map[string]string{"bio": "keep_both"}}, domainagg.CodeValidation},
		{"unknown field", domainagg.MergeInput{WinnerID: a.ID, LoserID: b.ID, ActorID: "op", FieldResolutions: map[string]string{"shoe_size": "keep_loser"}}, domainagg.CodeValidation},
		{"union on scalar", domainagg.MergeInput{WinnerID: a.ID, LoserID: b.ID, ActorID: "op", FieldResolutions: map[string]string{"birth_date": "union"}}, domainagg.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.merge.Merge(ctx, tc.in)
			if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("want %s got=%v", tc.code, err)
			}
		})
	}
	if n := h.historyCount(t); n != 0 {
		t.Fatalf("history rows: want=0 got=%d", n)
	}
	if h.person(t, b.ID).IsTombstone() {
		t.Fatalf("no precondition failure may tombstone a person")
	}
}

func TestMergeCandidateMismatch(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Eva", "Ek")
	b := repotest.SeedPerson(t, ctx, h.db, family, "Eve", "Ek")
	c := repotest.SeedPerson(t, ctx, h.db, family, "Evy", "Ek")
	cand := repotest.SeedCandidate(t, ctx, h.db, family, a.ID, b.ID, 0.8, types.CandidateStatusPending)
	dismissed := repotest.SeedCandidate(t, ctx, h.db, family, a.ID, c.ID, 0.8, types.CandidateStatusDismissed)

	_, err := h.merge.Merge(ctx, domainagg.MergeInput{CandidateID: cand.ID, WinnerID: c.ID, ActorID: "op"})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("winner outside pair: want validation got=%v", err)
	}
	_, err = h.merge.Merge(ctx, domainagg.MergeInput{CandidateID: cand.ID, WinnerID: a.ID, LoserID: c.ID, ActorID: "op"})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("loser outside pair: want validation got=%v", err)
	}
	_, err = h.merge.Merge(ctx, domainagg.MergeInput{CandidateID: dismissed.ID, WinnerID: a.ID, ActorID: "op"})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("dismissed candidate: want conflict got=%v", err)
	}
}

func TestMergeWithoutCandidateResolvesPendingPair(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Rosa", "Vik")
	b := repotest.SeedPerson(t, ctx, h.db, family, "Rose", "Vik")
	cand := repotest.SeedCandidate(t, ctx, h.db, family, a.ID, b.ID, 0.75, types.CandidateStatusPending)

	res, err := h.merge.Merge(ctx, domainagg.MergeInput{WinnerID: b.ID, LoserID: a.ID, ActorID: "op"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.CandidateID == nil || *res.CandidateID != cand.ID {
		t.Fatalf("merge should resolve the pending pair row: %+v", res.CandidateID)
	}
	c, _ := h.candidates.GetByID(dbctx.Context{Ctx: ctx}, cand.ID)
	if c.Status != types.CandidateStatusMerged {
		t.Fatalf("candidate status: want=merged got=%s", c.Status)
	}
}

func TestMergeFailsOnUnregisteredPersonColumn(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Nils", "Dahl")
	b := repotest.SeedPerson(t, ctx, h.db, family, "Nils", "Dahl")
	if err := h.db.Exec(`CREATE TABLE person_note (id TEXT PRIMARY KEY, subject_person_id TEXT NOT NULL)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	_, err := h.merge.Merge(ctx, domainagg.MergeInput{WinnerID: a.ID, LoserID: b.ID, ActorID: "op"})
	if !domainagg.IsCode(err, domainagg.CodeIntegrity) {
		t.Fatalf("want integrity got=%v", err)
	}
	if h.person(t, b.ID).IsTombstone() {
		t.Fatalf("integrity failure must not tombstone the loser")
	}
}

func TestConcurrentMergesOnSamePersonOneWins(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Olof", "Sand")
	b := repotest.SeedPerson(t, ctx, h.db, family, "Olov", "Sand")
	c := repotest.SeedPerson(t, ctx, h.db, family, "Olle", "Sand")
	repotest.SeedStoryPerson(t, ctx, h.db, uuid.New(), b.ID)

	inputs := []domainagg.MergeInput{
		{WinnerID: a.ID, LoserID: b.ID, ActorID: "op-1"},
		{WinnerID: c.ID, LoserID: b.ID, ActorID: "op-2"},
	}
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = h.merge.Merge(ctx, inputs[i])
		}(i)
	}
	close(start)
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case domainagg.IsCode(err, domainagg.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("want one success and one conflict, got successes=%d conflicts=%d", successes, conflicts)
	}
	if n := h.historyCount(t); n != 1 {
		t.Fatalf("history rows: want=1 got=%d", n)
	}
	loser := h.person(t, b.ID)
	if loser.MergedIntoPersonID == nil {
		t.Fatalf("loser must be tombstoned exactly once")
	}
	var stories []types.StoryPerson
	if err := h.db.Find(&stories).Error; err != nil {
		t.Fatalf("load stories: %v", err)
	}
	if len(stories) != 1 || stories[0].PersonID != *loser.MergedIntoPersonID {
		t.Fatalf("story link should follow the single winner: %+v", stories)
	}
}

func TestMergeFailsFastWhenPersonLockHeld(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Signe", "Berg")
	c := repotest.SeedPerson(t, ctx, h.db, family, "Signy", "Berg")

	held, err := h.locker.Acquire(ctx, []string{locks.PersonKey(a.ID.String())}, 0)
	if err != nil {
		t.Fatalf("hold winner lock: %v", err)
	}
	defer held.Release(ctx)

	start := time.Now()
	_, err = h.merge.Merge(ctx, domainagg.MergeInput{WinnerID: a.ID, LoserID: c.ID, ActorID: "op"})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict got %v", err)
	}
	if waited := time.Since(start); waited > 500*time.Millisecond {
		t.Fatalf("merge waited %s for a held lock", waited)
	}
	if n := h.historyCount(t); n != 0 {
		t.Fatalf("history rows: want=0 got=%d", n)
	}
	if h.person(t, c.ID).MergedIntoPersonID != nil {
		t.Fatalf("loser tombstoned despite conflict")
	}
}

// parkingRunner holds the first transaction before it begins until released.
type parkingRunner struct {
	inner   TxRunner
	once    sync.Once
	parked  chan struct{}
	release chan struct{}
}

func (r *parkingRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.once.Do(func() {
		close(r.parked)
		<-r.release
	})
	return r.inner.InTx(ctx, fn)
}

func TestConcurrentMergesSharingWinnerOneWins(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	a := repotest.SeedPerson(t, ctx, h.db, family, "Karin", "Lund")
	b := repotest.SeedPerson(t, ctx, h.db, family, "Karen", "Lund")
	c := repotest.SeedPerson(t, ctx, h.db, family, "Carin", "Lund")

	runner := &parkingRunner{
		inner:   NewGormTxRunner(h.db),
		parked:  make(chan struct{}),
		release: make(chan struct{}),
	}
	merge := NewMergeAggregate(MergeAggregateDeps{
		Base:       BaseDeps{DB: h.db, Runner: runner, Hooks: h.hooks},
		Persons:    h.persons,
		Candidates: h.candidates,
		History:    h.history,
		Registry:   h.registry,
		Locker:     h.locker,
	})

	first := make(chan error, 1)
	go func() {
		_, err := merge.Merge(ctx, domainagg.MergeInput{WinnerID: a.ID, LoserID: b.ID, ActorID: "op-1"})
		first <- err
	}()
	<-runner.parked

	_, err := merge.Merge(ctx, domainagg.MergeInput{WinnerID: a.ID, LoserID: c.ID, ActorID: "op-2"})
	close(runner.release)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("second merge: want conflict got %v", err)
	}
	if err := <-first; err != nil {
		t.Fatalf("first merge: %v", err)
	}

	if n := h.historyCount(t); n != 1 {
		t.Fatalf("history rows: want=1 got=%d", n)
	}
	if h.person(t, b.ID).MergedIntoPersonID == nil {
		t.Fatalf("first loser not tombstoned")
	}
	if h.person(t, c.ID).MergedIntoPersonID != nil {
		t.Fatalf("second loser tombstoned")
	}
}

func TestMergeMarksKinOfDroppedEdgesEdited(t *testing.T) {
	h := newDedupeHarness(t)
	ctx := context.Background()
	family := uuid.New()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	w := repotest.SeedPerson(t, ctx, h.db, family, "Nils", "Ek")
	l := repotest.SeedPerson(t, ctx, h.db, family, "Nisse", "Ek")
	parent := repotest.SeedPerson(t, ctx, h.db, family, "Greta", "Ek", repotest.WithUpdatedAt(old))
	bystander := repotest.SeedPerson(t, ctx, h.db, family, "Arvid", "Ek", repotest.WithUpdatedAt(old))
	repotest.SeedRelationship(t, ctx, h.db, family, w.ID, parent.ID, "parent")
	repotest.SeedRelationship(t, ctx, h.db, family, l.ID, parent.ID, "parent")

	if _, err := h.merge.Merge(ctx, domainagg.MergeInput{WinnerID: w.ID, LoserID: l.ID, ActorID: "op"}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if got := h.person(t, parent.ID).UpdatedAt; !got.After(old) {
		t.Fatalf("parent of dropped edge not marked edited: %s", got)
	}
	if got := h.person(t, bystander.ID).UpdatedAt; !got.Equal(old) {
		t.Fatalf("unrelated person touched: %s", got)
	}
	var edges []types.PersonRelationship
	if err := h.db.Where("related_person_id = ?", parent.ID).Find(&edges).Error; err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if len(edges) != 1 || edges[0].PersonID != w.ID {
		t.Fatalf("edges after merge: %+v", edges)
	}
}
