package entity

import (
	"fmt"
	"math"
)

// Category is one of the five user-facing scoring dimensions.
type Category string

const (
	CategoryScalability      Category = "Scalability"
	CategorySecurity         Category = "Security"
	CategoryDecentralization Category = "Decentralization"
	CategoryCostEfficiency   Category = "Cost Efficiency"
	CategoryDevExperience    Category = "Dev Experience"
)

// Categories lists every category in presentation order.
var Categories = []Category{
	CategoryScalability,
	CategorySecurity,
	CategoryDecentralization,
	CategoryCostEfficiency,
	CategoryDevExperience,
}

// Accepted range for a single importance weight.
const (
	MinWeight     = 1.0
	MaxWeight     = 10.0
	DefaultWeight = 5.0
)

// UserWeights holds the importance a user gives to each category.
type UserWeights struct {
	Scalability      float64 `json:"Scalability"`
	Security         float64 `json:"Security"`
	Decentralization float64 `json:"Decentralization"`
	CostEfficiency   float64 `json:"Cost Efficiency"`
	DevExperience    float64 `json:"Dev Experience"`
}

// DefaultUserWeights returns every category at the neutral midpoint.
func DefaultUserWeights() UserWeights {
	return UserWeights{
		Scalability:      DefaultWeight,
		Security:         DefaultWeight,
		Decentralization: DefaultWeight,
		CostEfficiency:   DefaultWeight,
		DevExperience:    DefaultWeight,
	}
}

// Get returns the weight for a category.
func (w UserWeights) Get(c Category) float64 {
	switch c {
	case CategoryScalability:
		return w.Scalability
	case CategorySecurity:
		return w.Security
	case CategoryDecentralization:
		return w.Decentralization
	case CategoryCostEfficiency:
		return w.CostEfficiency
	case CategoryDevExperience:
		return w.DevExperience
	}
	return math.NaN()
}

// Validate checks every weight is a finite number inside [MinWeight, MaxWeight].
func (w UserWeights) Validate() error {
	for _, c := range Categories {
		v := w.Get(c)
		if math.IsNaN(v) || v < MinWeight || v > MaxWeight {
			return fmt.Errorf("%w: %q must be within [%g, %g], got %g", ErrInvalidWeights, c, MinWeight, MaxWeight, v)
		}
	}
	return nil
}

// ParseUserWeights builds weights from a category-keyed map. Every category must be present.
func ParseUserWeights(raw map[string]float64) (UserWeights, error) {
	var w UserWeights
	for _, c := range Categories {
		v, ok := raw[string(c)]
		if !ok {
			return UserWeights{}, fmt.Errorf("%w: missing weight for %q", ErrInvalidWeights, c)
		}
		switch c {
		case CategoryScalability:
			w.Scalability = v
		case CategorySecurity:
			w.Security = v
		case CategoryDecentralization:
			w.Decentralization = v
		case CategoryCostEfficiency:
			w.CostEfficiency = v
		case CategoryDevExperience:
			w.DevExperience = v
		}
	}
	for k := range raw {
		if !isCategory(k) {
			return UserWeights{}, fmt.Errorf("%w: unknown category %q", ErrInvalidWeights, k)
		}
	}
	return w, w.Validate()
}

func isCategory(name string) bool {
	for _, c := range Categories {
		if string(c) == name {
			return true
		}
	}
	return false
}

// ProtocolMetric is the static, normalized metric record of a candidate chain.
// JSON keys follow the published metric table.
type ProtocolMetric struct {
	Throughput         float64 `json:"TPS"`
	Liveness           float64 `json:"Liveness"`
	Risk               float64 `json:"Risk"`
	ValueLocked        float64 `json:"TVL"`
	Finality           float64 `json:"Finality"`
	Stage              int     `json:"Stage"` // Rollup maturity stage: 0, 1 or 2
	Cost               float64 `json:"Cost"`
	ExecutionEnvCompat float64 `json:"EVM"`
	ToolingLangCompat  float64 `json:"Language"`
}

// Validate checks sub-scores are inside [0,1] and the stage is 0, 1 or 2.
func (m ProtocolMetric) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"TPS", m.Throughput},
		{"Liveness", m.Liveness},
		{"Risk", m.Risk},
		{"TVL", m.ValueLocked},
		{"Finality", m.Finality},
		{"Cost", m.Cost},
		{"EVM", m.ExecutionEnvCompat},
		{"Language", m.ToolingLangCompat},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
			return fmt.Errorf("%w: %s must be within [0, 1], got %g", ErrInvalidMetric, f.name, f.value)
		}
	}
	if m.Stage < 0 || m.Stage > 2 {
		return fmt.Errorf("%w: Stage must be 0, 1 or 2, got %d", ErrInvalidMetric, m.Stage)
	}
	return nil
}

// ScoreResult maps a candidate chain name to its weighted score.
type ScoreResult map[string]float64

// RankedScore is one row of an ordered recommendation.
type RankedScore struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	NetworkKey string  `json:"networkKey,omitempty"`
	Deployable bool    `json:"deployable"`
}

// metricKeys are the JSON keys every metric record must carry.
var metricKeys = []string{"TPS", "Liveness", "Risk", "TVL", "Finality", "Stage", "Cost", "EVM", "Language"}

// ParseProtocolMetric builds a metric record from a key/value map, rejecting missing or unknown keys.
func ParseProtocolMetric(raw map[string]float64) (ProtocolMetric, error) {
	for _, k := range metricKeys {
		if _, ok := raw[k]; !ok {
			return ProtocolMetric{}, fmt.Errorf("%w: missing field %q", ErrInvalidMetric, k)
		}
	}
	if len(raw) != len(metricKeys) {
		for k := range raw {
			if !isMetricKey(k) {
				return ProtocolMetric{}, fmt.Errorf("%w: unknown field %q", ErrInvalidMetric, k)
			}
		}
	}
	stage := raw["Stage"]
	if stage != math.Trunc(stage) {
		return ProtocolMetric{}, fmt.Errorf("%w: Stage must be an integer, got %g", ErrInvalidMetric, stage)
	}

	m := ProtocolMetric{
		Throughput:         raw["TPS"],
		Liveness:           raw["Liveness"],
		Risk:               raw["Risk"],
		ValueLocked:        raw["TVL"],
		Finality:           raw["Finality"],
		Stage:              int(stage),
		Cost:               raw["Cost"],
		ExecutionEnvCompat: raw["EVM"],
		ToolingLangCompat:  raw["Language"],
	}
	return m, m.Validate()
}

func isMetricKey(name string) bool {
	for _, k := range metricKeys {
		if k == name {
			return true
		}
	}
	return false
}
