package people

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PersonStatusActive = "active"
	// PersonStatusMerged marks a tombstone: the row stays resolvable and points at its winner.
	PersonStatusMerged = "merged"
)

// Person is one individual in a family's tree.
//
// Dates are partial ISO strings: "YYYY", "YYYY-MM" or "YYYY-MM-DD". Empty means unknown.
type Person struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FamilyID uuid.UUID `gorm:"type:uuid;not null;index" json:"family_id"`

	GivenName  string `gorm:"column:given_name;not null;default:''" json:"given_name"`
	MiddleName string `gorm:"column:middle_name;not null;default:''" json:"middle_name"`
	Surname    string `gorm:"column:surname;not null;default:''" json:"surname"`
	Nickname   string `gorm:"column:nickname;not null;default:''" json:"nickname"`
	Sex        string `gorm:"column:sex;not null;default:''" json:"sex"`

	BirthDate  string `gorm:"column:birth_date;not null;default:''" json:"birth_date"`
	BirthPlace string `gorm:"column:birth_place;not null;default:''" json:"birth_place"`
	DeathDate  string `gorm:"column:death_date;not null;default:''" json:"death_date"`
	DeathPlace string `gorm:"column:death_place;not null;default:''" json:"death_place"`

	Bio            string                      `gorm:"column:bio;type:text;not null;default:''" json:"bio"`
	AlternateNames datatypes.JSONSlice[string] `gorm:"column:alternate_names" json:"alternate_names"`
	Tags           datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`

	// active|merged
	Status             string     `gorm:"column:status;not null;index" json:"status"`
	MergedIntoPersonID *uuid.UUID `gorm:"type:uuid;column:merged_into_person_id;index" json:"merged_into_person_id,omitempty"`
	MergedAt           *time.Time `gorm:"column:merged_at" json:"merged_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Person) TableName() string { return "person" }

func (p *Person) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if strings.TrimSpace(p.Status) == "" {
		p.Status = PersonStatusActive
	}
	if p.AlternateNames == nil {
		p.AlternateNames = datatypes.JSONSlice[string]{}
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}

// IsTombstone reports whether the person has been merged into another.
func (p *Person) IsTombstone() bool {
	return p != nil && (p.Status == PersonStatusMerged || (p.MergedIntoPersonID != nil && *p.MergedIntoPersonID != uuid.Nil))
}

// DisplayName joins the non-empty name parts.
func (p *Person) DisplayName() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, s := range []string{p.GivenName, p.MiddleName, p.Surname} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
