package dedupe

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/heirloom-backend/internal/domain/people"
)

const (
	ResolutionKeepWinner = "keep_winner"
	ResolutionKeepLoser  = "keep_loser"
	ResolutionUnion      = "union"
)

// FieldDecision records how one person field was resolved during a merge.
type FieldDecision struct {
	Field    string `json:"field"`
	Strategy string `json:"strategy"`
	Winner   any    `json:"winner"`
	Loser    any    `json:"loser"`
	Result   any    `json:"result"`
}

// RepointResult counts what a dependent-table handler did for one merge.
type RepointResult struct {
	Table     string `json:"table"`
	Repointed int64  `json:"repointed"`
	Dropped   int64  `json:"dropped"`
}

// DependentSnapshot holds, per table, every row that referenced the loser before the merge.
type DependentSnapshot map[string][]map[string]any

// MergeHistoryEntry is the append-only audit row written by every successful merge.
type MergeHistoryEntry struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FamilyID uuid.UUID `gorm:"type:uuid;not null;index" json:"family_id"`

	WinnerPersonID uuid.UUID  `gorm:"type:uuid;column:winner_person_id;not null;index" json:"winner_person_id"`
	LoserPersonID  uuid.UUID  `gorm:"type:uuid;column:loser_person_id;not null;uniqueIndex" json:"loser_person_id"`
	CandidateID    *uuid.UUID `gorm:"type:uuid;column:candidate_id;index" json:"candidate_id,omitempty"`
	ActorID        string     `gorm:"column:actor_id;not null" json:"actor_id"`
	MergedAt       time.Time  `gorm:"column:merged_at;not null;index" json:"merged_at"`

	Decisions     datatypes.JSONSlice[FieldDecision]    `gorm:"column:decisions" json:"decisions"`
	WinnerBefore  datatypes.JSONType[people.Person]     `gorm:"column:winner_before" json:"winner_before"`
	WinnerAfter   datatypes.JSONType[people.Person]     `gorm:"column:winner_after" json:"winner_after"`
	LoserSnapshot datatypes.JSONType[people.Person]     `gorm:"column:loser_snapshot" json:"loser_snapshot"`
	Dependents    datatypes.JSONType[DependentSnapshot] `gorm:"column:dependents" json:"dependents"`
	Repoints      datatypes.JSONSlice[RepointResult]    `gorm:"column:repoints" json:"repoints"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (MergeHistoryEntry) TableName() string { return "merge_history" }

func (m *MergeHistoryEntry) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Decisions == nil {
		m.Decisions = datatypes.JSONSlice[FieldDecision]{}
	}
	if m.Repoints == nil {
		m.Repoints = datatypes.JSONSlice[RepointResult]{}
	}
	return nil
}

// ScanState is the per-family incremental scan watermark.
type ScanState struct {
	FamilyID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"family_id"`
	LastScannedAt time.Time `gorm:"column:last_scanned_at;not null" json:"last_scanned_at"`
	PairsScored   int       `gorm:"column:pairs_scored;not null;default:0" json:"pairs_scored"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (ScanState) TableName() string { return "scan_state" }
