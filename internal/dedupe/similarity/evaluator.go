// Package similarity computes per-dimension sub-scores between two person records.
//
// Every function here is pure and symmetric: Evaluate(a, b) and Evaluate(b, a)
// return the same Breakdown.
package similarity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/domain/people"
)

type dimension = dedupe.Dimension

// Record is the comparable projection of a person.
type Record struct {
	ID             uuid.UUID
	GivenName      string
	MiddleName     string
	Surname        string
	Nickname       string
	AlternateNames []string
	BirthDate      string
	BirthPlace     string
	DeathDate      string
	DeathPlace     string
	Relations      []Edge
}

// FromPerson builds a Record from a stored person and the relationship rows touching it.
func FromPerson(p *people.Person, rels []*people.PersonRelationship) Record {
	if p == nil {
		return Record{}
	}
	return Record{
		ID:             p.ID,
		GivenName:      p.GivenName,
		MiddleName:     p.MiddleName,
		Surname:        p.Surname,
		Nickname:       p.Nickname,
		AlternateNames: []string(p.AlternateNames),
		BirthDate:      p.BirthDate,
		BirthPlace:     p.BirthPlace,
		DeathDate:      p.DeathDate,
		DeathPlace:     p.DeathPlace,
		Relations:      EdgesFor(p.ID, rels),
	}
}

// Evaluate compares two records across name, dates, place and relationships.
// It fails only on malformed input such as an unparseable date.
func Evaluate(a, b Record) (dedupe.Breakdown, error) {
	var out dedupe.Breakdown
	out.Name = compareNames(a, b)

	birth, err := compareDates(a.BirthDate, b.BirthDate)
	if err != nil {
		return dedupe.Breakdown{}, fmt.Errorf("birth date: %w", err)
	}
	out.BirthDate = birth

	death, err := compareDates(a.DeathDate, b.DeathDate)
	if err != nil {
		return dedupe.Breakdown{}, fmt.Errorf("death date: %w", err)
	}
	out.DeathDate = death

	out.Place = comparePlaces(a.BirthPlace, b.BirthPlace)
	if !out.Place.Known {
		// death place stands in when birth place is missing, but never counts as exact
		if dp := comparePlaces(a.DeathPlace, b.DeathPlace); dp.Known {
			out.Place = dedupe.Dimension{Known: true, Score: min(dp.Score, 0.9)}
		}
	}

	out.Relationships = compareRelationships(a, b)
	return out, nil
}
