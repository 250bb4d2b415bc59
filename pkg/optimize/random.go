package optimize

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog/log"
)

// RandomSearch draws uniform samples from the space. It is the baseline
// the smarter searchers are judged against, and with noisy backtest
// objectives it is hard to beat.
type RandomSearch struct {
	rng *rand.Rand

	// Patience stops the search after this many evaluations without
	// improvement. Zero runs the full budget.
	Patience int
}

func NewRandomSearch(seed int64) *RandomSearch {
	// #nosec G404 -- reproducible search, not cryptographic randomness
	return &RandomSearch{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSearch) Name() string { return "random" }

func (s *RandomSearch) Search(ctx context.Context, obj Objective, space []Param, budget int) (*Trial, error) {
	ev := newEvaluator(obj, space)

	for i := 0; i < budget; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev.eval(ctx, randomSet(space, s.rng))
		if ev.converged(s.Patience) {
			log.Debug().Int("evals", ev.evals).Msg("Random search converged early")
			break
		}
	}

	return ev.trial(s.Name()), nil
}
