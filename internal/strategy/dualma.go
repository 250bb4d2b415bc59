package strategy

import (
	"github.com/cinar/indicator/v2/trend"

	"github.com/ajitpratap0/walkforward/pkg/backtest"
	"github.com/ajitpratap0/walkforward/pkg/bars"
	"github.com/ajitpratap0/walkforward/pkg/optimize"
)

func init() {
	register(Spec{
		Name: "dualma",
		Space: []optimize.Param{
			{Name: "fast", Min: 2, Max: 50, Integer: true},
			{Name: "slow", Min: 10, Max: 200, Integer: true},
		},
		Build: buildDualMA,
	})
}

// buildDualMA is the classic two-moving-average regime filter: long while
// the fast SMA sits above the slow one, flat otherwise. A fast period at
// or above the slow period collapses the signal, so those sets simply
// never trade and score themselves out of the search.
func buildDualMA(params optimize.ParamSet) backtest.DecisionFunc {
	fast := params.Int("fast")
	slow := params.Int("slow")

	return func(history []bars.Bar) backtest.Decision {
		if fast >= slow || len(history) < slow {
			return hold()
		}

		prices := closes(history)
		fastVal, ok := last(trend.NewSmaWithPeriod[float64](fast).Compute(toChan(prices)))
		if !ok {
			return hold()
		}
		slowVal, ok := last(trend.NewSmaWithPeriod[float64](slow).Compute(toChan(prices)))
		if !ok {
			return hold()
		}

		if fastVal > slowVal {
			return backtest.Decision{Side: backtest.SideBuy}
		}
		if fastVal < slowVal {
			return backtest.Decision{Side: backtest.SideSell}
		}
		return hold()
	}
}
