package similarity

import (
	"github.com/google/uuid"

	"github.com/yungbote/heirloom-backend/internal/domain/people"
)

// Edge is a relationship seen from the record's own side: the record is Kind of Other.
type Edge struct {
	Kind  string
	Other uuid.UUID
}

// EdgesFor projects stored relationship rows onto person id's point of view.
func EdgesFor(id uuid.UUID, rows []*people.PersonRelationship) []Edge {
	out := make([]Edge, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		switch id {
		case r.PersonID:
			out = append(out, Edge{Kind: r.Kind, Other: r.RelatedPersonID})
		case r.RelatedPersonID:
			out = append(out, Edge{Kind: inverseKind(r.Kind), Other: r.PersonID})
		}
	}
	return out
}

func inverseKind(kind string) string {
	switch kind {
	case people.RelationshipParent:
		return people.RelationshipChild
	case people.RelationshipChild:
		return people.RelationshipParent
	default:
		return kind
	}
}

// compareRelationships is the Jaccard overlap of (kind, third party) edges.
// Edges between the two records themselves are ignored.
func compareRelationships(a, b Record) dimension {
	ea := edgeSet(a.Relations, a.ID, b.ID)
	eb := edgeSet(b.Relations, a.ID, b.ID)
	if len(ea) == 0 || len(eb) == 0 {
		return dimension{}
	}
	s := jaccard(ea, eb)
	return dimension{Known: true, Score: s, Exact: s == 1}
}

func edgeSet(edges []Edge, exclude ...uuid.UUID) map[Edge]struct{} {
	out := make(map[Edge]struct{}, len(edges))
outer:
	for _, e := range edges {
		if e.Other == uuid.Nil {
			continue
		}
		for _, x := range exclude {
			if e.Other == x {
				continue outer
			}
		}
		out[e] = struct{}{}
	}
	return out
}
