package similarity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedDate is returned for a date string that is not YYYY, YYYY-MM or YYYY-MM-DD.
var ErrMalformedDate = errors.New("malformed date")

const (
	precisionYear  = 1
	precisionMonth = 2
	precisionDay   = 3

	dateDecayYears = 5
)

type partialDate struct {
	year, month, day int
	precision        int
}

func parseDate(s string) (partialDate, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return partialDate{}, false, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) == 0 || len(parts) > 3 {
		return partialDate{}, false, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	vals := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return partialDate{}, false, fmt.Errorf("%w: %q", ErrMalformedDate, s)
		}
		vals[i] = v
	}
	d := partialDate{year: vals[0], precision: len(vals)}
	if d.year < 1 || d.year > 9999 {
		return partialDate{}, false, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	if len(vals) > 1 {
		d.month = vals[1]
		if d.month < 1 || d.month > 12 {
			return partialDate{}, false, fmt.Errorf("%w: %q", ErrMalformedDate, s)
		}
	}
	if len(vals) > 2 {
		d.day = vals[2]
		if d.day < 1 || d.day > daysIn(d.year, d.month) {
			return partialDate{}, false, fmt.Errorf("%w: %q", ErrMalformedDate, s)
		}
	}
	return d, true, nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d partialDate) time() time.Time {
	return time.Date(d.year, time.Month(d.month), d.day, 0, 0, 0, 0, time.UTC)
}

// compareDates scores two partial dates at their shared precision. Exact is only
// reported for a full day match.
func compareDates(a, b string) (dimension, error) {
	da, okA, err := parseDate(a)
	if err != nil {
		return dimension{}, err
	}
	db, okB, err := parseDate(b)
	if err != nil {
		return dimension{}, err
	}
	if !okA || !okB {
		return dimension{}, nil
	}

	d := dimension{Known: true}
	switch min(da.precision, db.precision) {
	case precisionDay:
		if da == db {
			d.Score, d.Exact = 1, true
			return d, nil
		}
		if da.year == db.year && da.month == db.day && da.day == db.month {
			d.Score = 0.8
			return d, nil
		}
		days := math.Abs(da.time().Sub(db.time()).Hours() / 24)
		d.Score = decay(days, dateDecayYears*365.25, 0.95)
	case precisionMonth:
		months := math.Abs(float64((da.year*12 + da.month) - (db.year*12 + db.month)))
		if months == 0 {
			d.Score = 0.9
		} else {
			d.Score = decay(months, dateDecayYears*12, 0.9)
		}
	default:
		years := math.Abs(float64(da.year - db.year))
		if years == 0 {
			d.Score = 0.75
		} else {
			d.Score = decay(years, dateDecayYears, 0.75)
		}
	}
	return d, nil
}

// decay falls linearly from ceiling at distance 0 to 0 at horizon.
func decay(distance, horizon, ceiling float64) float64 {
	v := ceiling * (1 - distance/horizon)
	if v < 0 {
		return 0
	}
	return v
}
