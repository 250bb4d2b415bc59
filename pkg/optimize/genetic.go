package optimize

import (
	"context"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Genetic evolves a population with tournament selection, uniform
// crossover and per-gene mutation, keeping an elite slice across
// generations. Population size adapts to the evaluation budget.
type Genetic struct {
	rng *rand.Rand

	PopulationSize int
	MutationRate   float64
	EliteRatio     float64
	Parallel       int
	Patience       int
}

func NewGenetic(seed int64) *Genetic {
	// #nosec G404 -- reproducible search, not cryptographic randomness
	return &Genetic{
		rng:            rand.New(rand.NewSource(seed)),
		PopulationSize: 20,
		MutationRate:   0.1,
		EliteRatio:     0.2,
		Parallel:       4,
	}
}

func (s *Genetic) Name() string { return "genetic" }

type scored struct {
	params ParamSet
	score  float64
}

func (s *Genetic) Search(ctx context.Context, obj Objective, space []Param, budget int) (*Trial, error) {
	ev := newEvaluator(obj, space)

	popSize := s.PopulationSize
	if popSize > budget {
		popSize = budget
	}
	if popSize < 2 {
		popSize = 2
	}

	population := make([]ParamSet, popSize)
	for i := range population {
		population[i] = randomSet(space, s.rng)
	}

	for gen := 0; ev.evals < budget; gen++ {
		remaining := budget - ev.evals
		batch := population
		if len(batch) > remaining {
			batch = batch[:remaining]
		}

		evaluated, err := s.evaluate(ctx, ev, batch)
		if err != nil {
			return nil, err
		}
		if ev.converged(s.Patience) {
			log.Debug().Int("generation", gen+1).Msg("Genetic search converged early")
			break
		}
		if ev.evals >= budget || len(evaluated) < 2 {
			break
		}

		sort.SliceStable(evaluated, func(i, j int) bool {
			return evaluated[i].score > evaluated[j].score
		})
		log.Debug().
			Int("generation", gen+1).
			Float64("best", evaluated[0].score).
			Float64("worst", evaluated[len(evaluated)-1].score).
			Msg("Generation evaluated")

		eliteCount := int(float64(popSize) * s.EliteRatio)
		if eliteCount < 1 {
			eliteCount = 1
		}
		if eliteCount > len(evaluated) {
			eliteCount = len(evaluated)
		}

		next := make([]ParamSet, 0, popSize)
		for _, e := range evaluated[:eliteCount] {
			next = append(next, e.params.Clone())
		}
		for len(next) < popSize {
			p1 := s.tournament(evaluated)
			p2 := s.tournament(evaluated)
			child := s.crossover(space, p1.params, p2.params)
			next = append(next, s.mutate(space, child))
		}
		population = next
	}

	return ev.trial(s.Name()), nil
}

// evaluate scores one generation, fanning the objective calls out across
// Parallel workers. Scores land in a fixed slot per individual, then feed
// the shared accounting in index order so the running best is independent
// of goroutine scheduling.
func (s *Genetic) evaluate(ctx context.Context, ev *evaluator, population []ParamSet) ([]scored, error) {
	results := make([]scored, len(population))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Parallel)
	for i, ps := range population {
		clamped := clampSet(ev.space, ps)
		results[i] = scored{params: clamped}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].score = ev.score1(gctx, clamped)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		ev.record(r.params, r.score)
	}
	return results, nil
}

// tournament selection, size 3.
func (s *Genetic) tournament(population []scored) scored {
	best := population[s.rng.Intn(len(population))]
	for i := 1; i < 3; i++ {
		c := population[s.rng.Intn(len(population))]
		if c.score > best.score {
			best = c
		}
	}
	return best
}

// crossover picks each gene uniformly from one of the parents.
func (s *Genetic) crossover(space []Param, p1, p2 ParamSet) ParamSet {
	child := make(ParamSet, len(space))
	for _, p := range space {
		if s.rng.Float64() < 0.5 {
			child[p.Name] = p1[p.Name]
		} else {
			child[p.Name] = p2[p.Name]
		}
	}
	return child
}

func (s *Genetic) mutate(space []Param, individual ParamSet) ParamSet {
	mutated := individual.Clone()
	for _, p := range space {
		if s.rng.Float64() < s.MutationRate {
			mutated[p.Name] = p.Random(s.rng)
		}
	}
	return mutated
}
