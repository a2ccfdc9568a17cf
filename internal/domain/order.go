package domain

import "time"

// OrderSide indicates whether an order is a bid (buy) or ask (sell).
type OrderSide string

const (
	OrderSideBid OrderSide = "bid"
	OrderSideAsk OrderSide = "ask"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Order is a party's offer to buy or sell Size units of an instrument at
// Price. Sizes are continuous.
type Order struct {
	OrderID       string
	PartyID       string
	Side          OrderSide
	Symbol        string
	Price         float64
	Size          float64
	FilledSize    float64
	OpenSize      float64
	CancelledSize float64
	Status        OrderStatus
	CreatedAt     time.Time
	CancelledAt   *time.Time
	Trades        []*Trade
}

// IsOpen reports whether the order can still trade.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPartiallyFilled
}

// Fill books volume against the order and advances its status.
func (o *Order) Fill(t *Trade) {
	o.FilledSize += t.Volume
	o.OpenSize -= t.Volume
	if o.OpenSize <= SizeTolerance {
		o.OpenSize = 0
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
	o.Trades = append(o.Trades, t)
}

// Cancel moves whatever is still open to CancelledSize.
func (o *Order) Cancel(at time.Time) {
	o.CancelledSize += o.OpenSize
	o.OpenSize = 0
	o.Status = OrderStatusCancelled
	o.CancelledAt = &at
}

// Snapshot returns a copy of the order that shares no mutable state with it.
func (o *Order) Snapshot() *Order {
	c := *o
	c.Trades = append([]*Trade(nil), o.Trades...)
	if o.CancelledAt != nil {
		at := *o.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

// AveragePrice computes the volume-weighted average execution price.
// Returns (price, true) when trades exist, or (0, false) otherwise.
func (o *Order) AveragePrice() (float64, bool) {
	if len(o.Trades) == 0 || o.FilledSize == 0 {
		return 0, false
	}
	var total float64
	for _, t := range o.Trades {
		total += t.Price * t.Volume
	}
	return total / o.FilledSize, true
}

// SizeTolerance is the open size below which an order counts as filled.
const SizeTolerance = 1e-9
