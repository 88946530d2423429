package engine

import "github.com/shopspring/decimal"

// QueueModel estimates the volume resting ahead of an order at its price
// level and decides when that position has been exhausted (the order is
// fillable). Implementations are pure functions of the order and the
// observed book/trade activity; they hold no reference to other orders.
type QueueModel interface {
	// NewOrder seeds the queue position of an order that just arrived
	// and rested at depth (the resting qty at order.Price, excluding
	// the order itself).
	NewOrder(order *Order, aheadQty decimal.Decimal)

	// Trade advances the queue position in response to a trade print of
	// tradeQty at the order's price.
	Trade(order *Order, tradeQty decimal.Decimal)

	// Depth advances the queue position in response to a depth update
	// that changed the resting quantity at the order's price from
	// prevQty to newQty (excluding the order's own remaining quantity in
	// both).
	Depth(order *Order, prevQty, newQty decimal.Decimal)

	// IsFilled reports whether the order's estimated queue position has
	// been exhausted (<= 0).
	IsFilled(order *Order) bool
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}

// RiskAverseQueue is the conservative queue model: position decreases
// only by trade volume at the order's price. Depth decreases (implied
// cancellations) never advance the order's position, which makes fills
// the hardest to achieve of the available models.
type RiskAverseQueue struct{}

func (RiskAverseQueue) NewOrder(order *Order, aheadQty decimal.Decimal) {
	order.QueuePosition = clampNonNegative(aheadQty)
}

func (RiskAverseQueue) Trade(order *Order, tradeQty decimal.Decimal) {
	order.QueuePosition = clampNonNegative(order.QueuePosition.Sub(tradeQty))
}

func (RiskAverseQueue) Depth(order *Order, prevQty, newQty decimal.Decimal) {
	// Depth changes do not advance position under the risk-averse model.
}

func (RiskAverseQueue) IsFilled(order *Order) bool {
	return order.QueuePosition.Sign() <= 0
}

// CancelAttribution computes the fraction f(front, back) in [0, 1] of an
// unexplained size reduction attributed to cancellations ahead of an
// order, given the estimated volume front (ahead) and back (behind) of
// it at the same price level.
type CancelAttribution func(front, back decimal.Decimal) decimal.Decimal

// LogAttribution: log(1+front) / (log(1+front) + log(1+back)).
func LogAttribution(front, back decimal.Decimal) decimal.Decimal {
	lf := logDec(front)
	lb := logDec(back)
	denom := lf.Add(lb)
	if denom.IsZero() {
		return decimal.NewFromFloat(0.5)
	}
	return lf.Div(denom)
}

// SquareAttribution: front^2 / (front^2 + back^2).
func SquareAttribution(front, back decimal.Decimal) decimal.Decimal {
	return PowerAttribution(2)(front, back)
}

// PowerAttribution returns a CancelAttribution computing
// front^n / (front^n + back^n).
func PowerAttribution(n float64) CancelAttribution {
	return func(front, back decimal.Decimal) decimal.Decimal {
		ff := powDec(front, n)
		bf := powDec(back, n)
		denom := ff.Add(bf)
		if denom.IsZero() {
			return decimal.NewFromFloat(0.5)
		}
		return ff.Div(denom)
	}
}

func logDec(d decimal.Decimal) decimal.Decimal {
	f := d.InexactFloat64()
	return decimal.NewFromFloat(log1p(f))
}

func powDec(d decimal.Decimal, n float64) decimal.Decimal {
	f := d.InexactFloat64()
	return decimal.NewFromFloat(powFloat(f, n))
}

// ProbabilityQueue models the queue position probabilistically: on
// arrival the position seeds to the full resting volume at the order's
// price; on a depth decrease, an f-weighted share of the unexplained
// reduction is attributed to cancellations ahead (advancing the order)
// versus behind (not advancing it); on a trade, the full traded quantity
// advances the position; depth increases never advance position.
type ProbabilityQueue struct {
	F CancelAttribution
}

func NewProbabilityQueue(f CancelAttribution) ProbabilityQueue {
	return ProbabilityQueue{F: f}
}

func (p ProbabilityQueue) NewOrder(order *Order, aheadQty decimal.Decimal) {
	order.QueuePosition = clampNonNegative(aheadQty)
}

func (p ProbabilityQueue) Trade(order *Order, tradeQty decimal.Decimal) {
	order.QueuePosition = clampNonNegative(order.QueuePosition.Sub(tradeQty))
}

func (p ProbabilityQueue) Depth(order *Order, prevQty, newQty decimal.Decimal) {
	if newQty.GreaterThanOrEqual(prevQty) {
		return // increase: position unchanged
	}
	reduction := prevQty.Sub(newQty)
	front := order.QueuePosition
	back := clampNonNegative(prevQty.Sub(front))
	frac := p.F(front, back)
	advance := reduction.Mul(frac)
	order.QueuePosition = clampNonNegative(order.QueuePosition.Sub(advance))
}

func (p ProbabilityQueue) IsFilled(order *Order) bool {
	return order.QueuePosition.Sign() <= 0
}
