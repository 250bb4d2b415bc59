package strategy

import (
	"github.com/cinar/indicator/v2/volatility"

	"github.com/ajitpratap0/walkforward/pkg/backtest"
	"github.com/ajitpratap0/walkforward/pkg/bars"
	"github.com/ajitpratap0/walkforward/pkg/optimize"
)

func init() {
	register(Spec{
		Name: "bollinger",
		Space: []optimize.Param{
			{Name: "window", Min: 5, Max: 60, Integer: true},
			{Name: "shift", Min: -0.02, Max: 0.02},
		},
		Build: buildBollinger,
	})
}

// buildBollinger is a mean-reversion signal: buy when the close tags the
// lower band, sell when it tags the upper band. The bands come out of the
// indicator library at a fixed two standard deviations; shift scales both
// thresholds toward or away from the middle so the optimizer can tune entry
// aggressiveness anyway.
func buildBollinger(params optimize.ParamSet) backtest.DecisionFunc {
	window := params.Int("window")
	shift := params["shift"]

	return func(history []bars.Bar) backtest.Decision {
		if window < 2 || len(history) < window {
			return hold()
		}

		prices := closes(history)
		lowerCh, middleCh, upperCh := volatility.NewBollingerBandsWithPeriod[float64](window).Compute(toChan(prices))

		// All three outputs advance in lockstep, so the middle band must be
		// drained even though only the outer bands drive the signal.
		var lower, upper float64
		ok := false
		for {
			l, lok := <-lowerCh
			_, mok := <-middleCh
			u, uok := <-upperCh
			if !lok || !mok || !uok {
				break
			}
			lower, upper = l, u
			ok = true
		}
		if !ok {
			return hold()
		}

		price := prices[len(prices)-1]
		if price <= lower*(1+shift) {
			return backtest.Decision{Side: backtest.SideBuy}
		}
		if price >= upper*(1-shift) {
			return backtest.Decision{Side: backtest.SideSell}
		}
		return hold()
	}
}
