// Package scoring turns a similarity breakdown into one confidence score, a
// fixed-order reason list and a display band.
package scoring

import (
	"math"

	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
)

const (
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"
	BandNone   = ""
)

type Result struct {
	Score   float64         `json:"score"`
	Reasons []dedupe.Reason `json:"reasons"`
	Band    string          `json:"band"`
	// Surfaced is false when Score is under the policy floor.
	Surfaced bool `json:"surfaced"`
}

type Scorer struct {
	policy Policy
}

func NewScorer(p Policy) (*Scorer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{policy: p}, nil
}

func (s *Scorer) Policy() Policy { return s.policy }

// Score is a weighted mean over known dimensions; unknown dimensions are
// excluded and the remaining weights renormalized.
func (s *Scorer) Score(b dedupe.Breakdown) Result {
	p := s.policy
	dims := []struct {
		d dedupe.Dimension
		w float64
	}{
		{b.Name, p.Weights.Name},
		{b.BirthDate, p.Weights.BirthDate},
		{b.DeathDate, p.Weights.DeathDate},
		{b.Place, p.Weights.Place},
		{b.Relationships, p.Weights.Relationships},
	}
	var sum, weight float64
	known := 0
	for _, x := range dims {
		if !x.d.Known || x.w == 0 {
			continue
		}
		sum += clamp01(x.d.Score) * x.w
		weight += x.w
		known++
	}
	var score float64
	if weight > 0 {
		score = sum / weight
	}
	if known < p.MinKnownDimensions {
		score *= p.SparsePenalty
	}
	if b.Name.Known && b.Name.Score < p.NameGate && score > b.Name.Score {
		score = b.Name.Score
	}
	score = round6(clamp01(score))

	return Result{
		Score:    score,
		Reasons:  s.reasons(b),
		Band:     s.band(score),
		Surfaced: score >= p.Bands.Floor && score > 0,
	}
}

func (s *Scorer) reasons(b dedupe.Breakdown) []dedupe.Reason {
	th := s.policy.Thresholds
	out := []dedupe.Reason{}
	if b.Name.Known && b.Name.Score >= th.Name {
		out = append(out, dedupe.ReasonNameSimilarity)
	}
	if b.Name.Exact {
		out = append(out, dedupe.ReasonExactName)
	}
	out = appendExactOrSimilar(out, b.BirthDate, th.Date, dedupe.ReasonExactBirthDate, dedupe.ReasonSimilarBirthDate)
	out = appendExactOrSimilar(out, b.DeathDate, th.Date, dedupe.ReasonExactDeathDate, dedupe.ReasonSimilarDeathDate)
	out = appendExactOrSimilar(out, b.Place, th.Place, dedupe.ReasonExactBirthPlace, dedupe.ReasonSimilarBirthPlace)
	if b.Relationships.Known && b.Relationships.Score > 0 && b.Relationships.Score >= th.Relationships {
		out = append(out, dedupe.ReasonSharedRelatives)
	}
	return out
}

func appendExactOrSimilar(out []dedupe.Reason, d dedupe.Dimension, threshold float64, exact, similar dedupe.Reason) []dedupe.Reason {
	switch {
	case !d.Known:
	case d.Exact:
		out = append(out, exact)
	case d.Score >= threshold:
		out = append(out, similar)
	}
	return out
}

func (s *Scorer) band(score float64) string {
	b := s.policy.Bands
	switch {
	case score >= b.High:
		return BandHigh
	case score >= b.Medium:
		return BandMedium
	case score >= b.Floor && score > 0:
		return BandLow
	default:
		return BandNone
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
