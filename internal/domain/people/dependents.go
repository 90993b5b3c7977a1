package people

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RelationshipParent  = "parent"
	RelationshipChild   = "child"
	RelationshipSpouse  = "spouse"
	RelationshipSibling = "sibling"
)

// IsSymmetricRelationship reports kinds where (a,b) and (b,a) state the same fact.
func IsSymmetricRelationship(kind string) bool {
	return kind == RelationshipSpouse || kind == RelationshipSibling
}

// PersonRelationship is a directed tree edge: PersonID is Kind of RelatedPersonID.
// A parent edge (A parent B) reads "A is a parent of B".
type PersonRelationship struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FamilyID        uuid.UUID `gorm:"type:uuid;not null;index" json:"family_id"`
	PersonID        uuid.UUID `gorm:"type:uuid;not null;index" json:"person_id"`
	RelatedPersonID uuid.UUID `gorm:"type:uuid;not null;index" json:"related_person_id"`
	// parent|child|spouse|sibling
	Kind      string    `gorm:"column:kind;not null;index" json:"kind"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PersonRelationship) TableName() string { return "person_relationship" }

func (r *PersonRelationship) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// StoryPerson links a story to a person who appears in it.
type StoryPerson struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StoryID   uuid.UUID `gorm:"type:uuid;not null;index" json:"story_id"`
	PersonID  uuid.UUID `gorm:"type:uuid;not null;index" json:"person_id"`
	Role      string    `gorm:"column:role;not null;default:''" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (StoryPerson) TableName() string { return "story_person" }

func (s *StoryPerson) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// MediaTag marks a person as tagged in a media item.
type MediaTag struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MediaID    uuid.UUID `gorm:"type:uuid;not null;index" json:"media_id"`
	PersonID   uuid.UUID `gorm:"type:uuid;not null;index" json:"person_id"`
	TaggedByID string    `gorm:"column:tagged_by;not null;default:''" json:"tagged_by"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (MediaTag) TableName() string { return "media_tag" }

func (m *MediaTag) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// PersonClaim records a platform user claiming to be (or to steward) a person.
type PersonClaim struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID  uuid.UUID `gorm:"type:uuid;not null;index" json:"person_id"`
	UserID    string    `gorm:"column:user_id;not null;index" json:"user_id"`
	// pending|approved|rejected
	Status    string    `gorm:"column:status;not null;default:'pending'" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PersonClaim) TableName() string { return "person_claim" }

func (c *PersonClaim) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TimelineEvent is a dated life event attached to a person.
type TimelineEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID  uuid.UUID `gorm:"type:uuid;not null;index" json:"person_id"`
	Kind      string    `gorm:"column:kind;not null" json:"kind"`
	Date      string    `gorm:"column:date;not null;default:''" json:"date"`
	Place     string    `gorm:"column:place;not null;default:''" json:"place"`
	Title     string    `gorm:"column:title;not null;default:''" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (TimelineEvent) TableName() string { return "timeline_event" }

func (e *TimelineEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
