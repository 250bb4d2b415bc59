package backtest

import (
	"math"
	"time"
)

// Score is the scored outcome of one run. Composite is what an optimizer
// maximizes; the raw statistics ride along for diagnosis since the
// composite mixes units.
type Score struct {
	Composite      float64 `json:"composite"`
	Viable         bool    `json:"viable"`
	SQN            float64 `json:"sqn"`
	Sharpe         float64 `json:"sharpe"`
	Sortino        float64 `json:"sortino"`
	Exposure       float64 `json:"exposure"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TradeCount     int     `json:"trade_count"`
}

const hoursPerYear = 365 * 24

// Analyze derives the composite fitness from an equity curve and trade log.
//
//	composite = SQN + Sharpe + Sortino + sqrt(10 * exposure)
//
// The run is Viable when SQN > 1, Sharpe > 1, Sortino > 1 and the total
// return is positive. Any undefined statistic (fewer than 2 trades, zero
// variance, empty curve) degrades the composite to 0 instead of failing:
// the function is total and never panics, a worthless trial scores 0
// rather than crashing the optimizer above it.
func Analyze(equity []EquityPoint, trades []Trade) Score {
	s := Score{TradeCount: len(trades)}
	if len(equity) == 0 {
		return s
	}

	first, last := equity[0], equity[len(equity)-1]
	if first.Equity > 0 {
		s.TotalReturnPct = (last.Equity/first.Equity - 1) * 100
	}
	s.MaxDrawdownPct = maxDrawdownPct(equity)
	s.Exposure = exposure(equity)

	sqn, sqnOK := tradeQuality(trades)
	s.SQN = sqn

	returns := barReturns(equity)
	annual := math.Sqrt(periodsPerYear(equity))
	sharpe, sharpeOK := sharpeRatio(returns, annual)
	s.Sharpe = sharpe
	sortino, sortinoOK := sortinoRatio(returns, annual)
	s.Sortino = sortino

	if !sqnOK || !sharpeOK || !sortinoOK {
		return s
	}

	s.Composite = s.SQN + s.Sharpe + s.Sortino + math.Sqrt(10*s.Exposure)
	s.Viable = s.SQN > 1 && s.Sharpe > 1 && s.Sortino > 1 && s.TotalReturnPct > 0
	return s
}

// AnalyzeResult is Analyze over a full engine result.
func AnalyzeResult(res *Result) Score {
	if res == nil {
		return Score{}
	}
	return Analyze(res.EquityCurve, res.Trades)
}

// tradeQuality is the SQN-style statistic: mean per-trade net P&L over its
// standard deviation, scaled by sqrt(trade count). Undefined below two
// trades or at zero variance.
func tradeQuality(trades []Trade) (float64, bool) {
	if len(trades) < 2 {
		return 0, false
	}

	var sum float64
	for _, t := range trades {
		sum += t.NetPnL
	}
	mean := sum / float64(len(trades))

	var ss float64
	for _, t := range trades {
		d := t.NetPnL - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(trades)))
	if std == 0 {
		return 0, false
	}
	return mean / std * math.Sqrt(float64(len(trades))), true
}

func barReturns(equity []EquityPoint) []float64 {
	var out []float64
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		out = append(out, equity[i].Equity/prev-1)
	}
	return out
}

// periodsPerYear derives the annualization factor from the bar spacing so
// minute and daily series score on the same scale.
func periodsPerYear(equity []EquityPoint) float64 {
	if len(equity) < 2 {
		return 365
	}
	span := equity[len(equity)-1].Timestamp.Sub(equity[0].Timestamp)
	step := span / time.Duration(len(equity)-1)
	if step <= 0 {
		return 365
	}
	return float64(hoursPerYear) * float64(time.Hour) / float64(step)
}

func sharpeRatio(returns []float64, annual float64) (float64, bool) {
	mean, std, ok := meanStd(returns)
	if !ok || std == 0 {
		return 0, false
	}
	return mean / std * annual, true
}

// sortinoRatio penalizes only downside deviation. A run with no negative
// return bars has no defined downside risk and degrades the composite.
func sortinoRatio(returns []float64, annual float64) (float64, bool) {
	mean, _, ok := meanStd(returns)
	if !ok {
		return 0, false
	}

	var ss float64
	neg := 0
	for _, r := range returns {
		if r < 0 {
			ss += r * r
			neg++
		}
	}
	if neg == 0 {
		return 0, false
	}
	downside := math.Sqrt(ss / float64(len(returns)))
	if downside == 0 {
		return 0, false
	}
	return mean / downside * annual, true
}

func meanStd(values []float64) (mean, std float64, ok bool) {
	if len(values) < 2 {
		return 0, 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	std = math.Sqrt(ss / float64(len(values)))
	return mean, std, true
}

// exposure is the fraction of bars holding a non-flat position.
func exposure(equity []EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	held := 0
	for _, p := range equity {
		if p.Holdings != 0 {
			held++
		}
	}
	return float64(held) / float64(len(equity))
}

func maxDrawdownPct(equity []EquityPoint) float64 {
	peak := equity[0].Equity
	var maxDD float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
