package backtest

import "math"

// FractionalCommission sizes positions in fractional units from available
// cash and charges a commission proportional to traded notional value.
type FractionalCommission struct {
	// Rate is the proportional commission, e.g. 0.0004 for 0.04%.
	Rate float64
	// Leverage multiplies the cash available for sizing. 1.0 means no
	// leverage; the filled notional never exceeds cash * Leverage.
	Leverage float64
}

// DefaultCommission mirrors the broker setup the strategies were tuned
// against: 0.04% taker fee, no leverage.
func DefaultCommission() FractionalCommission {
	return FractionalCommission{Rate: 0.0004, Leverage: 1.0}
}

// SizeFor returns the fractional quantity tradable at price with the given
// cash. No rounding to lots: 0.3127 units is a valid size.
func (c FractionalCommission) SizeFor(price, cash float64) float64 {
	if price <= 0 || cash <= 0 {
		return 0
	}
	return c.Leverage * cash / price
}

// Commission returns the cost of trading qty at price. The absolute value
// guards against sign errors on short exits: commission is never negative.
func (c FractionalCommission) Commission(qty, price float64) float64 {
	return math.Abs(qty) * price * c.Rate
}
