package backtest

import "time"

// Side is the direction of a decision or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideHold Side = "HOLD"
)

// OrderState is the lifecycle state of an order.
//
//	Created -> Submitted -> Accepted -> Completed
//	                     -> Canceled
//	                     -> MarginRejected
//
// MarginRejected is a first-class terminal state, not an error: the order
// is recorded and the simulation continues.
type OrderState string

const (
	OrderCreated        OrderState = "created"
	OrderSubmitted      OrderState = "submitted"
	OrderAccepted       OrderState = "accepted"
	OrderCompleted      OrderState = "completed"
	OrderCanceled       OrderState = "canceled"
	OrderMarginRejected OrderState = "margin_rejected"
)

// Order is a single market order emitted by a strategy decision.
type Order struct {
	ID          int        `json:"id"`
	Side        Side       `json:"side"`
	Size        float64    `json:"size"` // requested; 0 means auto-size
	State       OrderState `json:"state"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FilledAt    time.Time  `json:"filled_at,omitempty"`
	FillPrice   float64    `json:"fill_price,omitempty"`
	FillSize    float64    `json:"fill_size,omitempty"`
	Commission  float64    `json:"commission,omitempty"`
}

// Terminal reports whether the order has reached a terminal state.
func (o *Order) Terminal() bool {
	switch o.State {
	case OrderCompleted, OrderCanceled, OrderMarginRejected:
		return true
	}
	return false
}
