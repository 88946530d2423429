// Package engine implements the deterministic event-driven backtesting
// kernel: an L2 order book reconstructor, a dual-processor (local vs.
// exchange) simulation loop coupled by a latency-aware order bus, and the
// queue-position fill model that determines when a resting order fills.
package engine

import "github.com/shopspring/decimal"

// Side represents the direction of an order or a trade's aggressor.
type Side string

const (
	// Buy is an order to purchase the asset (a bid).
	Buy Side = "buy"
	// Sell is an order to sell the asset (an ask).
	Sell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// TimeInForce controls how an order behaves on arrival at the exchange.
type TimeInForce string

const (
	// GTC (Good-Til-Canceled) rests on the book until filled or canceled.
	GTC TimeInForce = "GTC"
	// GTX (Good-Til-Crossing / post-only) is rejected if it would cross.
	GTX TimeInForce = "GTX"
	// FOK (Fill-Or-Kill) fills completely and immediately, or not at all.
	FOK TimeInForce = "FOK"
	// IOC (Immediate-Or-Cancel) fills what it can immediately; the rest expires.
	IOC TimeInForce = "IOC"
)

// OrderStatus is the lifecycle state of an Order.
type OrderStatus string

const (
	// StatusNone marks an order the local processor has submitted but the
	// exchange has not yet acknowledged.
	StatusNone OrderStatus = "NONE"
	// StatusNew means the order is resting on the exchange book.
	StatusNew OrderStatus = "NEW"
	// StatusExpired means the order terminated without resting (GTX cross,
	// IOC/FOK non-fill).
	StatusExpired OrderStatus = "EXPIRED"
	// StatusFilled means the order's remaining quantity reached zero.
	StatusFilled OrderStatus = "FILLED"
	// StatusCanceled means the order was explicitly canceled while resting.
	StatusCanceled OrderStatus = "CANCELED"
)

// PriceTick is an integer price expressed as a multiple of AssetType's
// tick size. All book keys and order identities at a price level use
// ticks rather than floating point or decimal prices.
type PriceTick int64

// EventKind enumerates the market-data record types the kernel consumes.
type EventKind int

const (
	// EventDepth is an incremental L2 depth update at a single price.
	EventDepth EventKind = iota
	// EventTrade is a public trade print.
	EventTrade
	// EventDepthClear removes levels on one side up to a bound.
	EventDepthClear
	// EventDepthSnapshot atomically replaces both ladders.
	EventDepthSnapshot
)

// Event is a single market-data record. Depth and trade events use
// Price/Qty/Side as their single-level payload; clear events use Side and
// ClearUpTo; snapshot events instead populate Bids/Asks and ignore
// Price/Qty/Side.
type Event struct {
	Kind EventKind

	// ExchangeTS is the timestamp at which the exchange itself observed
	// or generated the event. LocalTS is the timestamp at which the
	// strategy's feed handler received it (LocalTS >= ExchangeTS is the
	// common case, not a requirement).
	ExchangeTS int64
	LocalTS    int64

	Side  Side
	Price PriceTick
	Qty   decimal.Decimal

	// Snapshot payload, only meaningful when Kind == EventDepthSnapshot.
	Bids []DepthLevel
	Asks []DepthLevel

	// ClearUpTo bounds a DepthClear event; only meaningful when
	// Kind == EventDepthClear.
	ClearUpTo PriceTick
}

// DepthLevel is a single price/quantity pair used by snapshot events and
// by depth() queries.
type DepthLevel struct {
	Price PriceTick
	Qty   decimal.Decimal
}

// Order is the fundamental unit of trading in the kernel. IDs are
// caller-assigned; the kernel never generates them.
//
// Invariant: Remaining <= Original. A FILLED order has Remaining == 0.
// A CANCELED/EXPIRED order has Remaining frozen at the moment of
// termination.
type Order struct {
	ID       string
	Side     Side
	Price    PriceTick
	Original decimal.Decimal
	Remaining decimal.Decimal
	TIF      TimeInForce
	Status   OrderStatus

	// CreatedTS is stamped with the submission time by the local
	// processor and overwritten with the exchange timestamp at which the
	// exchange processor accepted the order.
	CreatedTS int64

	// QueuePosition is the estimated tick-volume resting ahead of this
	// order at its price level. The order is fillable once this reaches
	// zero and residual trade/price-cross supply exists.
	QueuePosition decimal.Decimal

	// Maker is true once the order has rested on the book; an order
	// that fills immediately on arrival (FOK/IOC/crossing GTC) is a
	// taker and Maker stays false.
	Maker bool

	// LocalUnseen is true when the exchange-side status of this order
	// has changed in a way the local processor has not yet reflected to
	// the strategy (i.e. an ack/fill is still in flight on the bus, or
	// has arrived but orders() has not been called since).
	LocalUnseen bool
}

// Clone returns a deep-enough copy of the order suitable for passing
// across the order bus (value fields only; Order has no pointer/slice
// fields that would alias across copies).
func (o Order) Clone() Order {
	return o
}

// IsFilled reports whether the order is in the terminal FILLED state.
func (o *Order) IsFilled() bool {
	return o.Status == StatusFilled
}

// IsTerminal reports whether the order can no longer receive fills.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case StatusFilled, StatusCanceled, StatusExpired:
		return true
	default:
		return false
	}
}
