package aggregates

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"gorm.io/datatypes"

	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/domain/people"
)

// defaultStrategy labels decisions for fields the caller did not name.
const defaultStrategy = "default"

type scalarField struct {
	name string
	get  func(p *people.Person) string
	set  func(p *people.Person, v string)
	// unionSep joins both values under the union strategy; empty means union is not allowed.
	unionSep string
}

type listField struct {
	name string
	get  func(p *people.Person) []string
	set  func(p *people.Person, v []string)
}

var scalarFields = []scalarField{
	{name: "given_name", get: func(p *people.Person) string { return p.GivenName }, set: func(p *people.Person, v string) { p.GivenName = v }},
	{name: "middle_name", get: func(p *people.Person) string { return p.MiddleName }, set: func(p *people.Person, v string) { p.MiddleName = v }},
	{name: "surname", get: func(p *people.Person) string { return p.Surname }, set: func(p *people.Person, v string) { p.Surname = v }},
	{name: "nickname", get: func(p *people.Person) string { return p.Nickname }, set: func(p *people.Person, v string) { p.Nickname = v }},
	{name: "sex", get: func(p *people.Person) string { return p.Sex }, set: func(p *people.Person, v string) { p.Sex = v }},
	{name: "birth_date", get: func(p *people.Person) string { return p.BirthDate }, set: func(p *people.Person, v string) { p.BirthDate = v }},
	{name: "birth_place", get: func(p *people.Person) string { return p.BirthPlace }, set: func(p *people.Person, v string) { p.BirthPlace = v }},
	{name: "death_date", get: func(p *people.Person) string { return p.DeathDate }, set: func(p *people.Person, v string) { p.DeathDate = v }},
	{name: "death_place", get: func(p *people.Person) string { return p.DeathPlace }, set: func(p *people.Person, v string) { p.DeathPlace = v }},
	{name: "bio", get: func(p *people.Person) string { return p.Bio }, set: func(p *people.Person, v string) { p.Bio = v }, unionSep: "\n\n"},
}

var listFields = []listField{
	{name: "alternate_names", get: func(p *people.Person) []string { return p.AlternateNames }, set: func(p *people.Person, v []string) { p.AlternateNames = datatypes.JSONSlice[string](v) }},
	{name: "tags", get: func(p *people.Person) []string { return p.Tags }, set: func(p *people.Person, v []string) { p.Tags = datatypes.JSONSlice[string](v) }},
}

// ResolvableFields lists every field a merge request may name, sorted.
func ResolvableFields() []string {
	out := make([]string, 0, len(scalarFields)+len(listFields))
	for _, f := range scalarFields {
		out = append(out, f.name)
	}
	for _, f := range listFields {
		out = append(out, f.name)
	}
	sort.Strings(out)
	return out
}

// validateResolutions rejects unknown fields, unknown strategies and union on
// single-valued fields that cannot be joined.
func validateResolutions(res map[string]string) error {
	scalars := map[string]scalarField{}
	for _, f := range scalarFields {
		scalars[f.name] = f
	}
	lists := map[string]bool{}
	for _, f := range listFields {
		lists[f.name] = true
	}
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, field := range keys {
		strategy := strings.TrimSpace(res[field])
		switch strategy {
		case dedupe.ResolutionKeepWinner, dedupe.ResolutionKeepLoser, dedupe.ResolutionUnion:
		default:
			return ValidationError(fmt.Sprintf("field %q: unknown strategy %q", field, strategy))
		}
		if f, ok := scalars[field]; ok {
			if strategy == dedupe.ResolutionUnion && f.unionSep == "" {
				return ValidationError(fmt.Sprintf("field %q: union is only valid for bio and list fields", field))
			}
			continue
		}
		if !lists[field] {
			return ValidationError(fmt.Sprintf("unknown field %q", field))
		}
	}
	return nil
}

// resolveFields builds the surviving record. The inputs are never mutated.
//
// Unnamed scalar fields keep the winner's value and fill blanks from the loser.
// Unnamed list fields take the union. A former display name that differs from the
// surviving one joins the alternate names.
func resolveFields(winner, loser *people.Person, res map[string]string) (*people.Person, []dedupe.FieldDecision, error) {
	if err := validateResolutions(res); err != nil {
		return nil, nil, err
	}
	out := *winner
	out.AlternateNames = datatypes.JSONSlice[string](cloneStrings(winner.AlternateNames))
	out.Tags = datatypes.JSONSlice[string](cloneStrings(winner.Tags))

	var decisions []dedupe.FieldDecision
	for _, f := range scalarFields {
		w, l := f.get(winner), f.get(loser)
		strategy, named := res[f.name]
		strategy = strings.TrimSpace(strategy)
		result := w
		switch {
		case !named:
			strategy = defaultStrategy
			if strings.TrimSpace(w) == "" {
				result = l
			}
		case strategy == dedupe.ResolutionKeepLoser:
			result = l
		case strategy == dedupe.ResolutionUnion:
			result = joinDistinct(w, l, f.unionSep)
		}
		f.set(&out, result)
		if named || w != l {
			decisions = append(decisions, dedupe.FieldDecision{Field: f.name, Strategy: strategy, Winner: w, Loser: l, Result: result})
		}
	}

	for _, f := range listFields {
		w, l := cloneStrings(f.get(winner)), cloneStrings(f.get(loser))
		strategy, named := res[f.name]
		strategy = strings.TrimSpace(strategy)
		var result []string
		switch {
		case !named:
			strategy = defaultStrategy
			result = unionStrings(w, l)
		case strategy == dedupe.ResolutionKeepWinner:
			result = w
		case strategy == dedupe.ResolutionKeepLoser:
			result = l
		default:
			result = unionStrings(w, l)
		}
		if f.name == "alternate_names" {
			// both former display names stay searchable when the surviving name differs
			for _, dn := range []string{winner.DisplayName(), loser.DisplayName()} {
				if dn != "" && !sameFolded(dn, out.DisplayName()) {
					result = unionStrings(result, []string{dn})
				}
			}
		}
		f.set(&out, result)
		if named || !equalStrings(w, result) || !equalStrings(l, result) {
			decisions = append(decisions, dedupe.FieldDecision{Field: f.name, Strategy: strategy, Winner: w, Loser: l, Result: result})
		}
	}
	return &out, decisions, nil
}

// fold builds a fresh Caser per call; a Caser must not be shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func sameFolded(a, b string) bool {
	return fold(a) == fold(b)
}

func joinDistinct(a, b, sep string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "", sameFolded(a, b):
		return a
	default:
		return a + sep + b
	}
}

// unionStrings keeps a's order, appends unseen values of b and drops blanks.
// Values that differ only by case are the same.
func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := map[string]bool{}
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			k := fold(s)
			if s == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
