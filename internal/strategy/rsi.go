package strategy

import (
	"github.com/cinar/indicator/v2/momentum"

	"github.com/ajitpratap0/walkforward/pkg/backtest"
	"github.com/ajitpratap0/walkforward/pkg/bars"
	"github.com/ajitpratap0/walkforward/pkg/optimize"
)

func init() {
	register(Spec{
		Name: "rsi",
		Space: []optimize.Param{
			{Name: "period", Min: 2, Max: 30, Integer: true},
			{Name: "lower", Min: 10, Max: 45, Integer: true},
			{Name: "upper", Min: 55, Max: 90, Integer: true},
		},
		Build: buildRSI,
	})
}

// buildRSI buys oversold and sells overbought. Between the bounds the
// signal holds whatever position is on.
func buildRSI(params optimize.ParamSet) backtest.DecisionFunc {
	period := params.Int("period")
	lower := params["lower"]
	upper := params["upper"]

	return func(history []bars.Bar) backtest.Decision {
		if period < 1 || len(history) <= period {
			return hold()
		}

		rsi, ok := last(momentum.NewRsiWithPeriod[float64](period).Compute(toChan(closes(history))))
		if !ok {
			return hold()
		}

		if rsi < lower {
			return backtest.Decision{Side: backtest.SideBuy}
		}
		if rsi > upper {
			return backtest.Decision{Side: backtest.SideSell}
		}
		return hold()
	}
}
