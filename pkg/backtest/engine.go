// Package backtest simulates strategy execution over historical bars:
// order lifecycle, fractional position sizing, the portfolio ledger, and
// the performance scoring that turns a run into a fitness number.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/walkforward/pkg/bars"
)

// Decision is what a strategy wants done after seeing a bar. Size 0 lets
// the engine auto-size: buys from available cash through the commission
// model, sells close the whole position.
type Decision struct {
	Side Side
	Size float64
}

// DecisionFunc is the strategy boundary. It is called once per bar with
// every bar seen so far, most recent last; it must not retain the slice.
type DecisionFunc func(history []bars.Bar) Decision

// FillPolicy fixes when a decision's order fills.
type FillPolicy string

const (
	// FillNextOpen fills at the next bar's open. Decisions on bar t see
	// data up to and including t and trade at t+1; there is no way to act
	// on a price before it exists. This is the default and the policy the
	// reported results assume.
	FillNextOpen FillPolicy = "next_open"
	// FillSameClose fills at the deciding bar's close. Kept for
	// comparison runs; it lets the decision and the fill share a price.
	FillSameClose FillPolicy = "same_close"
)

// Config holds the per-run engine configuration.
type Config struct {
	InitialCash float64
	Commission  FractionalCommission
	FillPolicy  FillPolicy
}

// Trade is a closed round trip. A position closed across several partial
// sells records one Trade: Size is the total quantity closed, ExitPrice
// the volume-weighted exit, and the P&L fields cover every fill.
// Immutable once recorded.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Size       float64   `json:"size"`
	GrossPnL   float64   `json:"gross_pnl"`
	Commission float64   `json:"commission"`
	NetPnL     float64   `json:"net_pnl"`
}

// EquityPoint is the mark-to-market portfolio value at one bar.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	Cash      float64   `json:"cash"`
	Holdings  float64   `json:"holdings"`
}

// Result is the complete output of one engine run.
type Result struct {
	RunID       uuid.UUID     `json:"run_id"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Trades      []Trade       `json:"trades"`
	Orders      []*Order      `json:"orders"`
	FinalEquity float64       `json:"final_equity"`
	EndingCash  float64       `json:"ending_cash"`
}

// Engine replays a bar series through a decision function. One engine per
// run: construct, Run once, read the Result. Never share an engine across
// concurrent trials.
type Engine struct {
	cfg Config

	cash      float64
	position  float64
	avgEntry  float64
	entryTime time.Time
	entryComm float64

	// Exit accumulators. A position may close across several partial
	// sells; the Trade recorded at flat must carry the whole round trip,
	// not just the final fill.
	realized     float64
	exitComm     float64
	closedQty    float64
	exitNotional float64

	pending   *Order
	nextOrder int
	orders    []*Order
	trades    []Trade
	equity    []EquityPoint
}

// NewEngine creates an engine with a fresh portfolio.
func NewEngine(cfg Config) *Engine {
	if cfg.FillPolicy == "" {
		cfg.FillPolicy = FillNextOpen
	}
	return &Engine{cfg: cfg, cash: cfg.InitialCash, nextOrder: 1}
}

// Run replays the series. Deterministic: identical bars, decision function,
// and commission model produce bit-identical equity curves and trade logs.
func (e *Engine) Run(ctx context.Context, series []bars.Bar, decide DecisionFunc) (*Result, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("backtest: empty bar series")
	}
	if decide == nil {
		return nil, fmt.Errorf("backtest: nil decision function")
	}

	for i := range series {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bar := series[i]

		// A pending order from the previous bar fills at this bar's open.
		if e.pending != nil {
			e.fill(e.pending, bar.Open, bar.Timestamp)
			e.pending = nil
		}

		d := decide(series[:i+1])
		if order := e.place(d, bar.Timestamp); order != nil {
			if e.cfg.FillPolicy == FillSameClose {
				e.fill(order, bar.Close, bar.Timestamp)
			} else {
				e.pending = order
			}
		}

		e.mark(bar.Timestamp, bar.Close)
	}

	e.finish(series[len(series)-1])

	res := &Result{
		RunID:       uuid.New(),
		EquityCurve: e.equity,
		Trades:      e.trades,
		Orders:      e.orders,
		EndingCash:  e.cash,
	}
	res.FinalEquity = res.EquityCurve[len(res.EquityCurve)-1].Equity

	log.Debug().
		Str("run_id", res.RunID.String()).
		Int("bars", len(series)).
		Int("trades", len(res.Trades)).
		Float64("final_equity", res.FinalEquity).
		Msg("Backtest run complete")

	return res, nil
}

// place turns an actionable decision into a submitted order. Exactly one
// outstanding order at a time: while one is pending, new decisions are
// suppressed. Buys while long and sells while flat are ignored.
func (e *Engine) place(d Decision, now time.Time) *Order {
	if e.pending != nil {
		return nil
	}

	switch d.Side {
	case SideBuy:
		if e.position != 0 {
			return nil
		}
	case SideSell:
		if e.position == 0 {
			return nil
		}
	default:
		return nil
	}

	order := &Order{
		ID:          e.nextOrder,
		Side:        d.Side,
		Size:        d.Size,
		State:       OrderCreated,
		SubmittedAt: now,
	}
	e.nextOrder++
	order.State = OrderSubmitted
	e.orders = append(e.orders, order)
	return order
}

// fill executes an order at the given price. Buys that would exceed
// cash * leverage are margin-rejected and recorded, never retried.
func (e *Engine) fill(order *Order, price float64, ts time.Time) {
	order.State = OrderAccepted

	switch order.Side {
	case SideBuy:
		qty := order.Size
		if qty == 0 {
			// Auto-size with commission headroom so a full-cash fill
			// plus its fee still clears the margin check.
			qty = e.cfg.Commission.SizeFor(price, e.cash/(1+e.cfg.Commission.Rate))
		}
		if qty <= 0 {
			order.State = OrderCanceled
			return
		}
		cost := qty * price
		comm := e.cfg.Commission.Commission(qty, price)
		// The relative tolerance absorbs float rounding when an
		// auto-sized order spends the full bankroll.
		margin := e.cash * e.cfg.Commission.Leverage
		if cost+comm > margin*(1+1e-9) {
			order.State = OrderMarginRejected
			log.Debug().
				Int("order", order.ID).
				Float64("cost", cost+comm).
				Float64("cash", e.cash).
				Msg("Order margin-rejected")
			return
		}
		if e.position == 0 {
			e.avgEntry = price
			e.entryTime = ts
			e.entryComm = 0
			e.realized = 0
			e.exitComm = 0
			e.closedQty = 0
			e.exitNotional = 0
		} else {
			e.avgEntry = (e.avgEntry*e.position + price*qty) / (e.position + qty)
		}
		e.position += qty
		e.cash -= cost + comm
		e.entryComm += comm
		e.completeFill(order, price, qty, comm, ts)

	case SideSell:
		qty := order.Size
		if qty == 0 || qty > e.position {
			qty = e.position
		}
		if qty <= 0 {
			order.State = OrderCanceled
			return
		}
		proceeds := qty * price
		comm := e.cfg.Commission.Commission(qty, price)
		e.position -= qty
		e.cash += proceeds - comm
		e.realized += (price - e.avgEntry) * qty
		e.exitComm += comm
		e.closedQty += qty
		e.exitNotional += proceeds
		e.completeFill(order, price, qty, comm, ts)

		if e.position == 0 {
			total := e.entryComm + e.exitComm
			e.trades = append(e.trades, Trade{
				EntryTime:  e.entryTime,
				ExitTime:   ts,
				EntryPrice: e.avgEntry,
				ExitPrice:  e.exitNotional / e.closedQty,
				Size:       e.closedQty,
				GrossPnL:   e.realized,
				Commission: total,
				NetPnL:     e.realized - total,
			})
			e.avgEntry = 0
			e.entryComm = 0
			e.realized = 0
			e.exitComm = 0
			e.closedQty = 0
			e.exitNotional = 0
		}
	}
}

func (e *Engine) completeFill(order *Order, price, qty, comm float64, ts time.Time) {
	order.State = OrderCompleted
	order.FilledAt = ts
	order.FillPrice = price
	order.FillSize = qty
	order.Commission = comm
}

// mark records the mark-to-market equity for one bar.
func (e *Engine) mark(ts time.Time, close float64) {
	holdings := e.position * close
	e.equity = append(e.equity, EquityPoint{
		Timestamp: ts,
		Equity:    e.cash + holdings,
		Cash:      e.cash,
		Holdings:  holdings,
	})
}

// finish cancels any still-pending order and liquidates the open position
// at the final bar's close so every run ends flat.
func (e *Engine) finish(last bars.Bar) {
	if e.pending != nil {
		e.pending.State = OrderCanceled
		e.pending = nil
	}
	if e.position == 0 {
		return
	}

	order := &Order{
		ID:          e.nextOrder,
		Side:        SideSell,
		State:       OrderSubmitted,
		SubmittedAt: last.Timestamp,
	}
	e.nextOrder++
	e.orders = append(e.orders, order)
	e.fill(order, last.Close, last.Timestamp)

	// Rewrite the final equity point to reflect the liquidation.
	e.equity[len(e.equity)-1] = EquityPoint{
		Timestamp: last.Timestamp,
		Equity:    e.cash,
		Cash:      e.cash,
	}
}
