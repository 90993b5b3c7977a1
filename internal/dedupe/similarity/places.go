package similarity

import "strings"

// placeComponents splits "Springfield, Sangamon County, Illinois" into folded components.
func placeComponents(s string) []string {
	raw := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if f := fold(c); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func comparePlaces(a, b string) dimension {
	ca, cb := placeComponents(a), placeComponents(b)
	if len(ca) == 0 || len(cb) == 0 {
		return dimension{}
	}
	d := dimension{Known: true}
	if strings.Join(ca, ",") == strings.Join(cb, ",") {
		d.Score, d.Exact = 1, true
		return d
	}
	short, long := ca, cb
	if len(short) > len(long) || (len(short) == len(long) && strings.Join(short, ",") > strings.Join(long, ",")) {
		short, long = long, short
	}
	if containsAll(long, short) {
		d.Score = 0.9
		return d
	}
	d.Score = max(tokenJaccard(ca, cb), 0.9*jaroWinkler(ca[0], cb[0]))
	return d
}

func containsAll(set, sub []string) bool {
	have := make(map[string]struct{}, len(set))
	for _, s := range set {
		have[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

func tokenJaccard(a, b []string) float64 {
	ta := map[string]struct{}{}
	tb := map[string]struct{}{}
	for _, c := range a {
		for _, t := range strings.Fields(c) {
			ta[t] = struct{}{}
		}
	}
	for _, c := range b {
		for _, t := range strings.Fields(c) {
			tb[t] = struct{}{}
		}
	}
	return jaccard(ta, tb)
}

func jaccard[K comparable](a, b map[K]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
