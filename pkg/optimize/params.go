// Package optimize searches a bounded numeric parameter space against a
// black-box objective. The objective is typically a full backtest run, so
// every searcher treats evaluations as expensive and works within a fixed
// budget.
package optimize

import (
	"math"
	"math/rand"
)

// Param is one tunable dimension of the search space.
type Param struct {
	Name    string  `json:"name"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Integer bool    `json:"integer"`
}

// Clamp forces v into the parameter's bounds, rounding integer params.
func (p Param) Clamp(v float64) float64 {
	if v < p.Min {
		v = p.Min
	}
	if v > p.Max {
		v = p.Max
	}
	if p.Integer {
		v = math.Round(v)
		// Rounding can step past a fractional bound.
		if v < p.Min {
			v = math.Ceil(p.Min)
		}
		if v > p.Max {
			v = math.Floor(p.Max)
		}
	}
	return v
}

// Random draws a uniform value inside the bounds.
func (p Param) Random(rng *rand.Rand) float64 {
	return p.Clamp(p.Min + rng.Float64()*(p.Max-p.Min))
}

// ParamSet is a concrete point in the search space.
type ParamSet map[string]float64

// Clone creates a deep copy of the parameter set.
func (ps ParamSet) Clone() ParamSet {
	clone := make(ParamSet, len(ps))
	for k, v := range ps {
		clone[k] = v
	}
	return clone
}

// Int reads a parameter as an int. Integer params are stored rounded, so
// the truncation here is exact.
func (ps ParamSet) Int(name string) int {
	return int(ps[name])
}

func clampSet(space []Param, ps ParamSet) ParamSet {
	out := make(ParamSet, len(space))
	for _, p := range space {
		out[p.Name] = p.Clamp(ps[p.Name])
	}
	return out
}

func randomSet(space []Param, rng *rand.Rand) ParamSet {
	out := make(ParamSet, len(space))
	for _, p := range space {
		out[p.Name] = p.Random(rng)
	}
	return out
}
