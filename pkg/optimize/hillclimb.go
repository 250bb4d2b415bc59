package optimize

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog/log"
)

// HillClimb perturbs the current best point one dimension at a time and
// keeps improvements. When a neighborhood stops paying off it restarts
// from a fresh random point, so the budget is split across several climbs
// instead of being sunk into one local optimum.
type HillClimb struct {
	rng *rand.Rand

	// StepFrac sizes the neighborhood as a fraction of each parameter's
	// range.
	StepFrac float64
	// RestartAfter is the number of consecutive rejected neighbors before
	// restarting from a random point.
	RestartAfter int
	Patience     int
}

func NewHillClimb(seed int64) *HillClimb {
	// #nosec G404 -- reproducible search, not cryptographic randomness
	return &HillClimb{
		rng:          rand.New(rand.NewSource(seed)),
		StepFrac:     0.1,
		RestartAfter: 10,
	}
}

func (s *HillClimb) Name() string { return "hillclimb" }

func (s *HillClimb) Search(ctx context.Context, obj Objective, space []Param, budget int) (*Trial, error) {
	ev := newEvaluator(obj, space)

	current := clampSet(space, randomSet(space, s.rng))
	currentScore := 0.0
	rejected := 0
	started := false

	for i := 0; i < budget; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var candidate ParamSet
		if !started {
			candidate = current
		} else {
			candidate = s.neighbor(space, current)
		}

		score := ev.eval(ctx, candidate)
		switch {
		case !started:
			started = true
			currentScore = score
		case score > currentScore:
			current = candidate
			currentScore = score
			rejected = 0
		default:
			rejected++
			if rejected >= s.RestartAfter {
				log.Debug().Int("eval", i+1).Msg("Hill climb restarting from random point")
				current = clampSet(space, randomSet(space, s.rng))
				started = false
				rejected = 0
			}
		}

		if ev.converged(s.Patience) {
			break
		}
	}

	return ev.trial(s.Name()), nil
}

// neighbor shifts one random dimension by a gaussian step scaled to the
// parameter's range. Integer params move at least one step.
func (s *HillClimb) neighbor(space []Param, ps ParamSet) ParamSet {
	next := ps.Clone()
	p := space[s.rng.Intn(len(space))]

	step := s.rng.NormFloat64() * s.StepFrac * (p.Max - p.Min)
	if p.Integer && step > -1 && step < 1 {
		if step < 0 {
			step = -1
		} else {
			step = 1
		}
	}
	next[p.Name] = p.Clamp(ps[p.Name] + step)
	return next
}
