package optimize

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Objective scores one parameter set. Higher is better. An error marks the
// point as worthless, not the search as failed.
type Objective func(ctx context.Context, params ParamSet) (float64, error)

// Trial is the outcome the caller keeps: the best-scoring parameter set
// seen within the budget.
type Trial struct {
	ID     uuid.UUID `json:"id"`
	Params ParamSet  `json:"params"`
	Score  float64   `json:"score"`
	Evals  int       `json:"evals"`
}

// Searcher runs a bounded search over space and returns the best trial.
// Implementations never return an error for a poorly scoring space; budget
// exhaustion yields the best trial found with a warning instead.
type Searcher interface {
	Search(ctx context.Context, obj Objective, space []Param, budget int) (*Trial, error)
	Name() string
}

// New selects a searcher by algorithm name. Seed fixes the random stream
// for reproducible runs.
func New(algorithm string, seed int64) (Searcher, error) {
	switch algorithm {
	case "random":
		return NewRandomSearch(seed), nil
	case "hillclimb":
		return NewHillClimb(seed), nil
	case "swarm":
		return NewParticleSwarm(seed), nil
	case "genetic":
		return NewGenetic(seed), nil
	default:
		return nil, fmt.Errorf("unknown optimizer algorithm %q", algorithm)
	}
}

// evaluator wraps the raw objective with the adapter contract: proposals
// are clamped into bounds before scoring, errors and panics become score 0,
// and the running best is tracked alongside a staleness counter for the
// optional convergence stop.
type evaluator struct {
	obj   Objective
	space []Param

	best   ParamSet
	score  float64
	evals  int
	stale  int
	hasAny bool
}

func newEvaluator(obj Objective, space []Param) *evaluator {
	return &evaluator{obj: obj, space: space, score: math.Inf(-1)}
}

// eval scores one candidate. The returned score is what searchers steer
// by; bookkeeping of the best point happens here so every algorithm shares
// the same trial accounting.
func (e *evaluator) eval(ctx context.Context, ps ParamSet) float64 {
	clamped := clampSet(e.space, ps)
	score := e.score1(ctx, clamped)
	e.record(clamped, score)
	return score
}

// score1 calls the objective with panic and error containment. Safe for
// concurrent use; it touches no evaluator state.
func (e *evaluator) score1(ctx context.Context, ps ParamSet) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Interface("params", ps).
				Msg("Objective panicked, scoring 0")
			score = 0
		}
	}()

	s, err := e.obj(ctx, ps)
	if err != nil {
		log.Debug().Err(err).Interface("params", ps).Msg("Objective failed, scoring 0")
		return 0
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

func (e *evaluator) record(ps ParamSet, score float64) {
	e.evals++
	if !e.hasAny || score > e.score {
		e.best = ps.Clone()
		e.score = score
		e.hasAny = true
		e.stale = 0
		return
	}
	e.stale++
}

// converged reports whether patience consecutive evaluations went by
// without improvement. Zero patience disables the stop.
func (e *evaluator) converged(patience int) bool {
	return patience > 0 && e.stale >= patience
}

func (e *evaluator) trial(method string) *Trial {
	if !e.hasAny {
		return &Trial{ID: uuid.New(), Params: ParamSet{}, Evals: e.evals}
	}
	if e.score <= 0 {
		log.Warn().
			Str("method", method).
			Int("evals", e.evals).
			Float64("best_score", e.score).
			Msg("Search budget exhausted without a viable candidate, returning best anyway")
	}
	return &Trial{
		ID:     uuid.New(),
		Params: e.best.Clone(),
		Score:  e.score,
		Evals:  e.evals,
	}
}
