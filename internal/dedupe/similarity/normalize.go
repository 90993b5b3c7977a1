package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold strips diacritics, case-folds and reduces s to space-separated
// letter/digit tokens. "Zoë O'Brien-Smith" becomes "zoe obrien smith".
func fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = cases.Fold().String(out)

	var b strings.Builder
	b.Grow(len(out))
	space := false
	for _, r := range out {
		switch {
		case r == '\'' || r == '’' || r == '.':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

func tokens(s string) []string {
	return strings.Fields(fold(s))
}

// ordered returns its arguments in lexical order so that order-sensitive
// metrics produce the same value for (a,b) and (b,a).
func ordered(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}
