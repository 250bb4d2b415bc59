// Package strategy holds the built-in signal functions and the registry
// the CLI selects them from. A strategy is a pure function of bar history;
// all order and position mechanics live in the engine.
package strategy

import (
	"fmt"
	"sort"

	"github.com/ajitpratap0/walkforward/pkg/backtest"
	"github.com/ajitpratap0/walkforward/pkg/bars"
	"github.com/ajitpratap0/walkforward/pkg/optimize"
)

// Spec describes one optimizable strategy: its tunable space and a builder
// that freezes a parameter set into a decision function.
type Spec struct {
	Name  string
	Space []optimize.Param
	Build func(params optimize.ParamSet) backtest.DecisionFunc
}

var registry = map[string]Spec{}

func register(s Spec) {
	registry[s.Name] = s
}

// Lookup finds a registered strategy by name.
func Lookup(name string) (Spec, error) {
	s, ok := registry[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown strategy %q (have %v)", name, Names())
	}
	return s, nil
}

// Names lists the registered strategies, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func closes(history []bars.Bar) []float64 {
	out := make([]float64, len(history))
	for i, b := range history {
		out[i] = b.Close
	}
	return out
}

// toChan feeds a price slice into the channel form the indicator library
// computes over.
func toChan(values []float64) chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

// last drains an indicator output channel and returns the final value.
func last(ch <-chan float64) (float64, bool) {
	var v float64
	ok := false
	for x := range ch {
		v = x
		ok = true
	}
	return v, ok
}

func hold() backtest.Decision {
	return backtest.Decision{Side: backtest.SideHold}
}
