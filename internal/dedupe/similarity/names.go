package similarity

import (
	"strings"

	"github.com/xrash/smetrics"
)

// nameForm is one way a person may be written: given name and surname, folded.
type nameForm struct {
	given   string
	surname string
}

func makeForm(given, surname string) nameForm {
	g := tokens(given)
	f := nameForm{surname: fold(surname)}
	if len(g) > 0 {
		f.given = g[0]
	}
	return f
}

// parseFullName splits a free-form alternate name: first token is the given
// name, last token the surname.
func parseFullName(full string) nameForm {
	t := tokens(full)
	switch len(t) {
	case 0:
		return nameForm{}
	case 1:
		return nameForm{given: t[0]}
	default:
		return nameForm{given: t[0], surname: t[len(t)-1]}
	}
}

func (f nameForm) empty() bool { return f.given == "" && f.surname == "" }

func nameForms(r Record) []nameForm {
	out := make([]nameForm, 0, 2+len(r.AlternateNames))
	add := func(f nameForm) {
		if f.empty() {
			return
		}
		for _, e := range out {
			if e == f {
				return
			}
		}
		out = append(out, f)
	}
	primary := makeForm(r.GivenName, r.Surname)
	add(primary)
	if nick := fold(r.Nickname); nick != "" {
		add(nameForm{given: strings.Fields(nick)[0], surname: primary.surname})
	}
	for _, alt := range r.AlternateNames {
		add(parseFullName(alt))
	}
	return out
}

const (
	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

func jaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	a, b = ordered(a, b)
	return smetrics.JaroWinkler(a, b, jwBoostThreshold, jwPrefixSize)
}

func soundexEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return smetrics.Soundex(a) == smetrics.Soundex(b)
}

func givenSimilarity(a, b string) float64 {
	switch {
	case a == b:
		return 1
	case canonicalGiven(a) == canonicalGiven(b):
		return 0.95
	case len(a) == 1 || len(b) == 1:
		if a[0] == b[0] {
			return 0.8
		}
		return 0
	}
	s := jaroWinkler(a, b)
	if soundexEqual(a, b) && s < 0.85 {
		s = 0.85
	}
	return s
}

func surnameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	// compare surnames token-wise so "van der berg" and "berg" still meet
	at, bt := strings.Fields(a), strings.Fields(b)
	best := jaroWinkler(strings.ReplaceAll(a, " ", ""), strings.ReplaceAll(b, " ", ""))
	for _, x := range at {
		for _, y := range bt {
			if x == y && len(x) > 2 {
				best = max(best, 0.9)
			}
		}
	}
	if soundexEqual(strings.ReplaceAll(a, " ", ""), strings.ReplaceAll(b, " ", "")) && best < 0.9 {
		best = 0.9
	}
	return best
}

// formSimilarity averages the name parts both forms carry. ok is false when
// the forms share no comparable part.
func formSimilarity(x, y nameForm) (score float64, ok bool) {
	var sum float64
	var n int
	if x.given != "" && y.given != "" {
		sum += givenSimilarity(x.given, y.given)
		n++
	}
	if x.surname != "" && y.surname != "" {
		sum += surnameSimilarity(x.surname, y.surname)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func compareNames(a, b Record) dimension {
	fa, fb := nameForms(a), nameForms(b)
	var d dimension
	for _, x := range fa {
		for _, y := range fb {
			s, ok := formSimilarity(x, y)
			if !ok {
				continue
			}
			d.Known = true
			if s > d.Score {
				d.Score = s
			}
		}
	}
	if len(fa) > 0 && len(fb) > 0 {
		pa, pb := fa[0], fb[0]
		d.Exact = pa.given != "" && pa.surname != "" && pa == pb
	}
	return d
}
