package domain

import (
	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/domain/people"
)

type Person = people.Person
type PersonRelationship = people.PersonRelationship
type StoryPerson = people.StoryPerson
type MediaTag = people.MediaTag
type PersonClaim = people.PersonClaim
type TimelineEvent = people.TimelineEvent

type DuplicateCandidate = dedupe.DuplicateCandidate
type MergeHistoryEntry = dedupe.MergeHistoryEntry
type ScanState = dedupe.ScanState
type Breakdown = dedupe.Breakdown
type Dimension = dedupe.Dimension
type Reason = dedupe.Reason
type FieldDecision = dedupe.FieldDecision
type RepointResult = dedupe.RepointResult
type DependentSnapshot = dedupe.DependentSnapshot

const (
	PersonStatusActive = people.PersonStatusActive
	PersonStatusMerged = people.PersonStatusMerged

	CandidateStatusPending   = dedupe.CandidateStatusPending
	CandidateStatusDismissed = dedupe.CandidateStatusDismissed
	CandidateStatusMerged    = dedupe.CandidateStatusMerged
)
