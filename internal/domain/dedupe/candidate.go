package dedupe

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CandidateStatusPending   = "pending"
	CandidateStatusDismissed = "dismissed"
	CandidateStatusMerged    = "merged"
)

// IsTerminalCandidateStatus reports whether no further transition is allowed.
func IsTerminalCandidateStatus(status string) bool {
	return status == CandidateStatusDismissed || status == CandidateStatusMerged
}

// Reason is a symbolic match explanation attached to a candidate.
type Reason string

const (
	ReasonNameSimilarity    Reason = "name_similarity"
	ReasonExactName         Reason = "exact_name"
	ReasonExactBirthDate    Reason = "exact_birthdate"
	ReasonSimilarBirthDate  Reason = "similar_birthdate"
	ReasonExactDeathDate    Reason = "exact_deathdate"
	ReasonSimilarDeathDate  Reason = "similar_deathdate"
	ReasonExactBirthPlace   Reason = "exact_birthplace"
	ReasonSimilarBirthPlace Reason = "similar_birthplace"
	ReasonSharedRelatives   Reason = "shared_relatives"
)

// Dimension is one similarity sub-score. Known=false means at least one side
// lacked the attribute; such dimensions are excluded from scoring.
type Dimension struct {
	Score float64 `json:"score"`
	Known bool    `json:"known"`
	Exact bool    `json:"exact,omitempty"`
}

// Breakdown is the fixed per-dimension record persisted with every candidate.
type Breakdown struct {
	Name          Dimension `json:"name"`
	BirthDate     Dimension `json:"birth_date"`
	DeathDate     Dimension `json:"death_date"`
	Place         Dimension `json:"place"`
	Relationships Dimension `json:"relationships"`
}

// DuplicateCandidate is an unordered person pair stored canonically with PersonAID < PersonBID.
type DuplicateCandidate struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FamilyID uuid.UUID `gorm:"type:uuid;not null;index" json:"family_id"`

	PersonAID uuid.UUID `gorm:"type:uuid;column:person_a_id;not null;index" json:"person_a_id"`
	PersonBID uuid.UUID `gorm:"type:uuid;column:person_b_id;not null;index" json:"person_b_id"`

	Score     float64                       `gorm:"column:score;not null" json:"score"`
	Band      string                        `gorm:"column:band;not null;default:''" json:"band"`
	Reasons   datatypes.JSONSlice[Reason]   `gorm:"column:reasons" json:"reasons"`
	Breakdown datatypes.JSONType[Breakdown] `gorm:"column:breakdown" json:"breakdown"`

	// pending|dismissed|merged
	Status         string     `gorm:"column:status;not null;index" json:"status"`
	MergeHistoryID *uuid.UUID `gorm:"type:uuid;column:merge_history_id" json:"merge_history_id,omitempty"`
	DismissedBy    string     `gorm:"column:dismissed_by;not null;default:''" json:"dismissed_by,omitempty"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`

	// Seq increases per family in insertion order and breaks score ties.
	Seq int64 `gorm:"column:seq;not null;default:0" json:"seq"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DuplicateCandidate) TableName() string { return "duplicate_candidate" }

func (c *DuplicateCandidate) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Reasons == nil {
		c.Reasons = datatypes.JSONSlice[Reason]{}
	}
	if c.Status == "" {
		c.Status = CandidateStatusPending
	}
	return nil
}

// Involves reports whether id is one side of the pair.
func (c *DuplicateCandidate) Involves(id uuid.UUID) bool {
	return c != nil && (c.PersonAID == id || c.PersonBID == id)
}

// CanonicalPair orders two ids so that an unordered pair has one representation.
func CanonicalPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if x.String() > y.String() {
		return y, x
	}
	return x, y
}
