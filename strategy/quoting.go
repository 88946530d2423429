// Package strategy holds sample strategies exercising the kernel's
// strategy-facing API, used by cmd/backtestcli's demo subcommand.
package strategy

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mkhoshkam/hftbacktest/engine"
)

// PassiveQuoter is a symmetric market-making strategy: it keeps at most
// one resting GTX (post-only) buy and one resting GTX sell, each
// offsetSpread below and above the local mid price, re-quoting whenever
// the mid moves by at least requoteThreshold ticks since its last quote.
type PassiveQuoter struct {
	kernel *engine.SimulationKernel
	log    *zap.Logger

	qty             decimal.Decimal
	offsetSpread    engine.PriceTick
	requoteThreshold engine.PriceTick

	buyID       string
	sellID      string
	lastMid     engine.PriceTick
	haveLastMid bool
}

// NewPassiveQuoter builds a quoter that trades qty per side, offsetting
// its quotes offsetSpread ticks away from the local mid and re-quoting
// once the mid has moved requoteThreshold ticks.
func NewPassiveQuoter(kernel *engine.SimulationKernel, qty decimal.Decimal, offsetSpread, requoteThreshold engine.PriceTick, log *zap.Logger) *PassiveQuoter {
	if log == nil {
		log = zap.NewNop()
	}
	return &PassiveQuoter{
		kernel:           kernel,
		log:              log,
		qty:              qty,
		offsetSpread:     offsetSpread,
		requoteThreshold: requoteThreshold,
	}
}

// Tick runs one decision step: it elapses the kernel by stepNS, then
// re-quotes if the local mid has moved far enough or either side's
// quote is no longer resting. Returns false once the event stream is
// exhausted (mirrors engine.SimulationKernel.Elapse).
func (q *PassiveQuoter) Tick(stepNS int64) bool {
	more := q.kernel.Elapse(stepNS)

	depth := q.kernel.Depth()
	bid, hasBid := depth.BestBidTick()
	ask, hasAsk := depth.BestAskTick()
	if !hasBid || !hasAsk {
		return more
	}
	mid := (bid + ask) / 2

	moved := !q.haveLastMid || absTick(mid-q.lastMid) >= q.requoteThreshold
	if !moved && q.ordersResting() {
		return more
	}

	q.cancelResting()

	asset := q.kernel.Asset()
	buyPrice := asset.PriceOf(mid - q.offsetSpread)
	sellPrice := asset.PriceOf(mid + q.offsetSpread)

	q.buyID = uuid.NewString()
	if err := q.kernel.SubmitBuyOrder(q.buyID, buyPrice, q.qty, engine.GTX); err != nil {
		q.log.Warn("quote submit failed", zap.Error(err), zap.String("side", "buy"))
		q.buyID = ""
	}
	q.sellID = uuid.NewString()
	if err := q.kernel.SubmitSellOrder(q.sellID, sellPrice, q.qty, engine.GTX); err != nil {
		q.log.Warn("quote submit failed", zap.Error(err), zap.String("side", "sell"))
		q.sellID = ""
	}

	q.lastMid = mid
	q.haveLastMid = true
	return more
}

func (q *PassiveQuoter) ordersResting() bool {
	buyResting, sellResting := false, false
	for _, o := range q.kernel.Orders() {
		if o.IsTerminal() {
			continue
		}
		if o.ID == q.buyID {
			buyResting = true
		}
		if o.ID == q.sellID {
			sellResting = true
		}
	}
	return buyResting && sellResting
}

func (q *PassiveQuoter) cancelResting() {
	if q.buyID != "" {
		_ = q.kernel.Cancel(q.buyID)
	}
	if q.sellID != "" {
		_ = q.kernel.Cancel(q.sellID)
	}
}

func absTick(t engine.PriceTick) engine.PriceTick {
	if t < 0 {
		return -t
	}
	return t
}
