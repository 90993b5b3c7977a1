package aggregates

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	repotest "github.com/yungbote/heirloom-backend/internal/data/repos/testutil"
	types "github.com/yungbote/heirloom-backend/internal/domain"
	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"github.com/yungbote/heirloom-backend/internal/domain/people"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
)

func TestIsPersonReferenceColumn(t *testing.T) {
	cases := map[string]bool{
		"person_id":             true,
		"related_person_id":     true,
		"merged_into_person_id": true,
		"person_a_id":           true,
		"PERSON_B_ID":           true,
		"winner_person_id":      true,
		"family_id":             false,
		"id":                    false,
		"story_id":              false,
		"personal_note":         false,
		"person":                false,
	}
	for name, want := range cases {
		if got := IsPersonReferenceColumn(name); got != want {
			t.Fatalf("IsPersonReferenceColumn(%q): want=%v got=%v", name, want, got)
		}
	}
}

func TestDependentRegistryVerifyMigratedSchema(t *testing.T) {
	db := repotest.DB(t)
	if err := NewDependentRegistry().Verify(db); err != nil {
		t.Fatalf("Verify on migrated schema: %v", err)
	}
}

func TestDependentRegistryVerifyReportsUnknownColumn(t *testing.T) {
	db := repotest.DB(t)
	if err := db.Exec("CREATE TABLE memorial_page (id TEXT PRIMARY KEY, honoree_person_id TEXT)").Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	err := NewDependentRegistry().Verify(db)
	if err == nil {
		t.Fatalf("expected verify failure")
	}
	if !strings.Contains(err.Error(), "memorial_page.honoree_person_id") {
		t.Fatalf("error should name the column: %v", err)
	}
	if mapped := MapError("test", err); !domainagg.IsCode(mapped, domainagg.CodeIntegrity) {
		t.Fatalf("want integrity code, got %v", mapped)
	}
}

func TestDependentRegistryExemptions(t *testing.T) {
	got := NewDependentRegistry().Exemptions()
	want := []string{"merge_history.loser_person_id", "merge_history.winner_person_id"}
	if len(got) != len(want) {
		t.Fatalf("exemptions: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("exemptions: want=%v got=%v", want, got)
		}
	}
}

func TestEdgeKeyNormalization(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	if edgeKey(a, b, people.RelationshipParent) != edgeKey(b, a, people.RelationshipChild) {
		t.Fatalf("child edge should read as the inverse parent edge")
	}
	if edgeKey(a, b, people.RelationshipSpouse) != edgeKey(b, a, people.RelationshipSpouse) {
		t.Fatalf("spouse edges should ignore direction")
	}
	if edgeKey(a, b, people.RelationshipParent) == edgeKey(b, a, people.RelationshipParent) {
		t.Fatalf("parent edges are directed")
	}
}

func TestRelationshipRepointDropsSelfAndDuplicateEdges(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	family := uuid.New()
	winner := repotest.SeedPerson(t, ctx, db, family, "John", "Smith")
	loser := repotest.SeedPerson(t, ctx, db, family, "Jon", "Smith")
	mother := repotest.SeedPerson(t, ctx, db, family, "Ellen", "Smith")
	child := repotest.SeedPerson(t, ctx, db, family, "Tom", "Smith")

	repotest.SeedRelationship(t, ctx, db, family, mother.ID, winner.ID, people.RelationshipParent)
	// same fact stated from the child side
	repotest.SeedRelationship(t, ctx, db, family, loser.ID, mother.ID, people.RelationshipChild)
	// would become winner sibling of winner
	repotest.SeedRelationship(t, ctx, db, family, winner.ID, loser.ID, people.RelationshipSibling)
	repotest.SeedRelationship(t, ctx, db, family, loser.ID, child.ID, people.RelationshipParent)

	var res types.RepointResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = relationshipHandler{}.Repoint(dbctx.Context{Ctx: ctx, Tx: tx}, loser.ID, winner.ID)
		return err
	})
	if err != nil {
		t.Fatalf("Repoint: %v", err)
	}
	if res.Repointed != 1 || res.Dropped != 2 {
		t.Fatalf("want repointed=1 dropped=2 got=%+v", res)
	}
	n, err := relationshipHandler{}.CountReferences(dbctx.Context{Ctx: ctx, Tx: db}, loser.ID)
	if err != nil {
		t.Fatalf("CountReferences: %v", err)
	}
	if n != 0 {
		t.Fatalf("loser references remain: %d", n)
	}
}

func TestLinkHandlerKeepsOneRowPerKey(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	family := uuid.New()
	winner := repotest.SeedPerson(t, ctx, db, family, "Ada", "Lowe")
	loser := repotest.SeedPerson(t, ctx, db, family, "Ada", "Low")
	story1, story2 := uuid.New(), uuid.New()
	repotest.SeedStoryPerson(t, ctx, db, story1, winner.ID)
	repotest.SeedStoryPerson(t, ctx, db, story1, loser.ID)
	repotest.SeedStoryPerson(t, ctx, db, story2, loser.ID)

	h := linkHandler{table: "story_person", dedupeCols: []string{"story_id"}}
	dbc := dbctx.Context{Ctx: ctx, Tx: db}
	snap, err := h.Snapshot(dbc, loser.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot rows: want=2 got=%d", len(snap))
	}
	res, err := h.Repoint(dbc, loser.ID, winner.ID)
	if err != nil {
		t.Fatalf("Repoint: %v", err)
	}
	if res.Repointed != 1 || res.Dropped != 1 {
		t.Fatalf("want repointed=1 dropped=1 got=%+v", res)
	}
	var n int64
	if err := db.Model(&types.StoryPerson{}).Where("person_id = ?", winner.ID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("winner story links: want=2 got=%d", n)
	}
}

func TestRowID(t *testing.T) {
	id := uuid.New()
	for _, v := range []any{id, [16]byte(id), id[:], []byte(id.String()), id.String()} {
		got, err := rowID(v)
		if err != nil {
			t.Fatalf("rowID(%T): %v", v, err)
		}
		if got != id {
			t.Fatalf("rowID(%T): want=%s got=%s", v, id, got)
		}
	}
}
