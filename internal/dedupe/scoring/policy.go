package scoring

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

const PolicyFileEnv = "DEDUPE_POLICY_FILE"

type Weights struct {
	Name          float64 `yaml:"name" json:"name"`
	BirthDate     float64 `yaml:"birth_date" json:"birth_date"`
	DeathDate     float64 `yaml:"death_date" json:"death_date"`
	Place         float64 `yaml:"place" json:"place"`
	Relationships float64 `yaml:"relationships" json:"relationships"`
}

// Thresholds are the per-dimension significance levels at which a reason is emitted.
type Thresholds struct {
	Name          float64 `yaml:"name" json:"name"`
	Date          float64 `yaml:"date" json:"date"`
	Place         float64 `yaml:"place" json:"place"`
	Relationships float64 `yaml:"relationships" json:"relationships"`
}

// Bands are display-only cut points. Pairs under Floor are not surfaced.
type Bands struct {
	High   float64 `yaml:"high" json:"high"`
	Medium float64 `yaml:"medium" json:"medium"`
	Floor  float64 `yaml:"floor" json:"floor"`
}

type Policy struct {
	Version            int        `yaml:"version" json:"version"`
	Weights            Weights    `yaml:"weights" json:"weights"`
	Thresholds         Thresholds `yaml:"thresholds" json:"thresholds"`
	Bands              Bands      `yaml:"bands" json:"bands"`
	MinKnownDimensions int        `yaml:"min_known_dimensions" json:"min_known_dimensions"`
	SparsePenalty      float64    `yaml:"sparse_penalty" json:"sparse_penalty"`
	NameGate           float64    `yaml:"name_gate" json:"name_gate"`
}

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded scoring policy invalid: %v", err))
	}
	return p
}

// LoadPolicy reads the file named by DEDUPE_POLICY_FILE, or the embedded default.
func LoadPolicy() (Policy, error) {
	path := strings.TrimSpace(os.Getenv(PolicyFileEnv))
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read scoring policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes YAML over the zero policy and validates it.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("decode scoring policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// namedValue pairs a policy field with its yaml path so validation reports
// the first bad field in declaration order.
type namedValue struct {
	name  string
	value float64
}

func (p Policy) Validate() error {
	w := p.Weights
	for _, f := range []namedValue{
		{"weights.name", w.Name},
		{"weights.birth_date", w.BirthDate},
		{"weights.death_date", w.DeathDate},
		{"weights.place", w.Place},
		{"weights.relationships", w.Relationships},
	} {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("scoring policy: %s must be a finite value >= 0", f.name)
		}
	}
	t := p.Thresholds
	for _, f := range []namedValue{
		{"thresholds.name", t.Name},
		{"thresholds.date", t.Date},
		{"thresholds.place", t.Place},
		{"thresholds.relationships", t.Relationships},
	} {
		if !(f.value >= 0 && f.value <= 1) {
			return fmt.Errorf("scoring policy: %s must be within [0,1]", f.name)
		}
	}
	if w.Name+w.BirthDate+w.DeathDate+w.Place+w.Relationships <= 0 {
		return fmt.Errorf("scoring policy: weights must not all be zero")
	}
	b := p.Bands
	if !(b.Floor >= 0 && b.Floor <= b.Medium && b.Medium <= b.High && b.High <= 1) {
		return fmt.Errorf("scoring policy: bands must satisfy 0 <= floor <= medium <= high <= 1")
	}
	if p.SparsePenalty < 0 || p.SparsePenalty > 1 {
		return fmt.Errorf("scoring policy: sparse_penalty must be within [0,1]")
	}
	if p.NameGate < 0 || p.NameGate > 1 {
		return fmt.Errorf("scoring policy: name_gate must be within [0,1]")
	}
	return nil
}
