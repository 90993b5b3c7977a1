package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/heirloom-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PersonOpt customizes a seeded person.
type PersonOpt func(p *types.Person)

func WithBirth(date, place string) PersonOpt {
	return func(p *types.Person) {
		p.BirthDate = date
		p.BirthPlace = place
	}
}

func WithDeath(date, place string) PersonOpt {
	return func(p *types.Person) {
		p.DeathDate = date
		p.DeathPlace = place
	}
}

func WithBio(bio string) PersonOpt {
	return func(p *types.Person) { p.Bio = bio }
}

func WithNickname(nick string) PersonOpt {
	return func(p *types.Person) { p.Nickname = nick }
}

func WithAlternateNames(names ...string) PersonOpt {
	return func(p *types.Person) { p.AlternateNames = datatypes.JSONSlice[string](names) }
}

func WithTags(tags ...string) PersonOpt {
	return func(p *types.Person) { p.Tags = datatypes.JSONSlice[string](tags) }
}

func WithUpdatedAt(at time.Time) PersonOpt {
	return func(p *types.Person) {
		p.CreatedAt = at
		p.UpdatedAt = at
	}
}

func SeedPerson(tb testing.TB, ctx context.Context, tx *gorm.DB, familyID uuid.UUID, given, surname string, opts ...PersonOpt) *types.Person {
	tb.Helper()
	p := &types.Person{
		ID:        uuid.New(),
		FamilyID:  familyID,
		GivenName: given,
		Surname:   surname,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed person: %v", err)
	}
	return p
}

func SeedRelationship(tb testing.TB, ctx context.Context, tx *gorm.DB, familyID, personID, relatedID uuid.UUID, kind string) *types.PersonRelationship {
	tb.Helper()
	r := &types.PersonRelationship{
		ID:              uuid.New(),
		FamilyID:        familyID,
		PersonID:        personID,
		RelatedPersonID: relatedID,
		Kind:            kind,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed relationship: %v", err)
	}
	return r
}

func SeedStoryPerson(tb testing.TB, ctx context.Context, tx *gorm.DB, storyID, personID uuid.UUID) *types.StoryPerson {
	tb.Helper()
	s := &types.StoryPerson{ID: uuid.New(), StoryID: storyID, PersonID: personID, Role: "subject"}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed story person: %v", err)
	}
	return s
}

func SeedMediaTag(tb testing.TB, ctx context.Context, tx *gorm.DB, mediaID, personID uuid.UUID) *types.MediaTag {
	tb.Helper()
	m := &types.MediaTag{ID: uuid.New(), MediaID: mediaID, PersonID: personID, TaggedByID: "tester"}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed media tag: %v", err)
	}
	return m
}

func SeedClaim(tb testing.TB, ctx context.Context, tx *gorm.DB, personID uuid.UUID, userID string) *types.PersonClaim {
	tb.Helper()
	c := &types.PersonClaim{ID: uuid.New(), PersonID: personID, UserID: userID, Status: "approved"}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed claim: %v", err)
	}
	return c
}

func SeedTimelineEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, personID uuid.UUID, kind, date, title string) *types.TimelineEvent {
	tb.Helper()
	e := &types.TimelineEvent{ID: uuid.New(), PersonID: personID, Kind: kind, Date: date, Title: title}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed timeline event: %v", err)
	}
	return e
}

func SeedCandidate(tb testing.TB, ctx context.Context, tx *gorm.DB, familyID, x, y uuid.UUID, score float64, status string) *types.DuplicateCandidate {
	tb.Helper()
	a, b := x, y
	if a.String() > b.String() {
		a, b = b, a
	}
	c := &types.DuplicateCandidate{
		ID:        uuid.New(),
		FamilyID:  familyID,
		PersonAID: a,
		PersonBID: b,
		Score:     score,
		Status:    status,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed candidate: %v", err)
	}
	return c
}
