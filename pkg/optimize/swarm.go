package optimize

import (
	"context"
	"math/rand"
)

// ParticleSwarm moves a small swarm through the space, each particle pulled
// toward its own best point and the swarm's best. Velocities are clamped by
// the bounds on every step.
type ParticleSwarm struct {
	rng *rand.Rand

	Particles int
	Inertia   float64
	Cognitive float64
	Social    float64
	Patience  int
}

func NewParticleSwarm(seed int64) *ParticleSwarm {
	// #nosec G404 -- reproducible search, not cryptographic randomness
	return &ParticleSwarm{
		rng:       rand.New(rand.NewSource(seed)),
		Particles: 10,
		Inertia:   0.7,
		Cognitive: 1.4,
		Social:    1.4,
	}
}

func (s *ParticleSwarm) Name() string { return "swarm" }

type particle struct {
	pos       ParamSet
	vel       map[string]float64
	best      ParamSet
	bestScore float64
	scored    bool
}

func (s *ParticleSwarm) Search(ctx context.Context, obj Objective, space []Param, budget int) (*Trial, error) {
	ev := newEvaluator(obj, space)

	n := s.Particles
	if n > budget {
		n = budget
	}
	if n < 1 {
		n = 1
	}

	swarm := make([]*particle, n)
	for i := range swarm {
		p := &particle{pos: randomSet(space, s.rng), vel: make(map[string]float64, len(space))}
		for _, dim := range space {
			span := dim.Max - dim.Min
			p.vel[dim.Name] = (s.rng.Float64()*2 - 1) * 0.1 * span
		}
		swarm[i] = p
	}

	var globalBest ParamSet
	globalScore := 0.0
	haveGlobal := false

	for ev.evals < budget {
		for _, p := range swarm {
			if ev.evals >= budget {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			score := ev.eval(ctx, p.pos)
			if !p.scored || score > p.bestScore {
				p.best = p.pos.Clone()
				p.bestScore = score
				p.scored = true
			}
			if !haveGlobal || score > globalScore {
				globalBest = p.pos.Clone()
				globalScore = score
				haveGlobal = true
			}
		}
		if ev.converged(s.Patience) {
			break
		}

		for _, p := range swarm {
			next := make(ParamSet, len(space))
			for _, dim := range space {
				r1, r2 := s.rng.Float64(), s.rng.Float64()
				v := s.Inertia * p.vel[dim.Name]
				if p.scored {
					v += s.Cognitive * r1 * (p.best[dim.Name] - p.pos[dim.Name])
				}
				if haveGlobal {
					v += s.Social * r2 * (globalBest[dim.Name] - p.pos[dim.Name])
				}
				p.vel[dim.Name] = v
				next[dim.Name] = dim.Clamp(p.pos[dim.Name] + v)
			}
			p.pos = next
		}
	}

	return ev.trial(s.Name()), nil
}
