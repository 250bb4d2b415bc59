package optimize

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quadraticSpace = []Param{{Name: "x", Min: 0, Max: 10}}

// quadratic peaks at x=3 with value 10.
func quadratic(_ context.Context, ps ParamSet) (float64, error) {
	d := ps["x"] - 3
	return 10 - d*d, nil
}

func allSearchers(seed int64) []Searcher {
	return []Searcher{
		NewRandomSearch(seed),
		NewHillClimb(seed),
		NewParticleSwarm(seed),
		NewGenetic(seed),
	}
}

func TestSearchersFindQuadraticPeak(t *testing.T) {
	for _, s := range allSearchers(7) {
		best, err := s.Search(context.Background(), quadratic, quadraticSpace, 200)
		require.NoError(t, err, s.Name())
		require.NotNil(t, best, s.Name())
		assert.InDelta(t, 3.0, best.Params["x"], 0.5, s.Name())
		assert.Greater(t, best.Score, 9.0, s.Name())
		assert.LessOrEqual(t, best.Evals, 200, s.Name())
	}
}

func TestSearchersRespectBounds(t *testing.T) {
	space := []Param{
		{Name: "f", Min: -2, Max: 2},
		{Name: "n", Min: 3, Max: 9, Integer: true},
	}

	var mu sync.Mutex
	var seen []ParamSet
	obj := func(_ context.Context, ps ParamSet) (float64, error) {
		mu.Lock()
		seen = append(seen, ps.Clone())
		mu.Unlock()
		return ps["f"], nil
	}

	for _, s := range allSearchers(11) {
		seen = nil
		_, err := s.Search(context.Background(), obj, space, 60)
		require.NoError(t, err, s.Name())
		require.NotEmpty(t, seen, s.Name())

		for _, ps := range seen {
			assert.GreaterOrEqual(t, ps["f"], -2.0, s.Name())
			assert.LessOrEqual(t, ps["f"], 2.0, s.Name())
			assert.GreaterOrEqual(t, ps["n"], 3.0, s.Name())
			assert.LessOrEqual(t, ps["n"], 9.0, s.Name())
			assert.Equal(t, math.Round(ps["n"]), ps["n"], "integer param must be whole, %s", s.Name())
		}
	}
}

func TestSearchSeedDeterminism(t *testing.T) {
	run := func() *Trial {
		s := NewRandomSearch(99)
		best, err := s.Search(context.Background(), quadratic, quadraticSpace, 50)
		require.NoError(t, err)
		return best
	}

	a, b := run(), run()
	assert.Equal(t, a.Params, b.Params)
	assert.Equal(t, a.Score, b.Score)
}

func TestObjectiveErrorScoresZero(t *testing.T) {
	calls := 0
	obj := func(_ context.Context, ps ParamSet) (float64, error) {
		calls++
		if ps["x"] < 5 {
			return 0, errors.New("window too thin")
		}
		return ps["x"], nil
	}

	s := NewRandomSearch(3)
	best, err := s.Search(context.Background(), obj, quadraticSpace, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, calls)
	assert.GreaterOrEqual(t, best.Params["x"], 5.0)
}

func TestObjectivePanicContained(t *testing.T) {
	obj := func(_ context.Context, ps ParamSet) (float64, error) {
		if ps["x"] > 5 {
			panic("exploded")
		}
		return ps["x"], nil
	}

	s := NewRandomSearch(5)
	var best *Trial
	var err error
	assert.NotPanics(t, func() {
		best, err = s.Search(context.Background(), obj, quadraticSpace, 40)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, best.Params["x"], 5.0)
}

func TestAllFailuresStillReturnBestTrial(t *testing.T) {
	obj := func(context.Context, ParamSet) (float64, error) {
		return 0, errors.New("nothing works")
	}

	s := NewRandomSearch(1)
	best, err := s.Search(context.Background(), obj, quadraticSpace, 10)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Zero(t, best.Score)
	assert.Equal(t, 10, best.Evals)
}

func TestPatienceStopsEarly(t *testing.T) {
	flat := func(context.Context, ParamSet) (float64, error) { return 1, nil }

	s := NewRandomSearch(2)
	s.Patience = 5
	best, err := s.Search(context.Background(), flat, quadraticSpace, 1000)
	require.NoError(t, err)
	assert.Equal(t, 6, best.Evals)
}

func TestSearchContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, s := range allSearchers(1) {
		_, err := s.Search(ctx, quadratic, quadraticSpace, 10)
		assert.Error(t, err, s.Name())
	}
}

func TestNewSelectsAlgorithm(t *testing.T) {
	for _, name := range []string{"random", "hillclimb", "swarm", "genetic"} {
		s, err := New(name, 1)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	_, err := New("annealing", 1)
	assert.Error(t, err)
}

func TestParamClamp(t *testing.T) {
	p := Param{Name: "n", Min: 2, Max: 8, Integer: true}
	assert.Equal(t, 2.0, p.Clamp(-5))
	assert.Equal(t, 8.0, p.Clamp(99))
	assert.Equal(t, 4.0, p.Clamp(4.4))
	assert.Equal(t, 5.0, p.Clamp(4.6))

	f := Param{Name: "f", Min: -1.5, Max: 1.5}
	assert.Equal(t, 1.25, f.Clamp(1.25))
	assert.Equal(t, -1.5, f.Clamp(-3))
}

func TestParamSetClone(t *testing.T) {
	ps := ParamSet{"a": 1, "b": 2}
	clone := ps.Clone()
	clone["a"] = 99
	assert.Equal(t, 1.0, ps["a"])
}
