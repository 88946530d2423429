package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LocalProcessor holds the strategy-visible depth and a read-mostly
// mirror of outstanding orders. It accepts strategy orders, stamps them
// with entry latency, and forwards them to the exchange via the
// local->exchange bus; it applies exchange->local bus entries (acks and
// fills) to keep the mirror current.
type LocalProcessor struct {
	Depth *MarketDepth

	Asset   AssetType
	Latency LatencyModel

	outBus *OrderBus[BusMessage]

	mirror map[string]*Order

	log *zap.Logger
}

// NewLocalProcessor wires a LocalProcessor to the bus it submits
// orders/cancels on. log may be nil, in which case a no-op logger is used.
func NewLocalProcessor(asset AssetType, latency LatencyModel, outBus *OrderBus[BusMessage], log *zap.Logger) *LocalProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalProcessor{
		Depth:   NewMarketDepth(),
		Asset:   asset,
		Latency: latency,
		outBus:  outBus,
		mirror:  make(map[string]*Order),
		log:     log,
	}
}

// OnEvent applies a single local-timestamped market-data event to the
// strategy-visible depth. Callers must only invoke this with events
// whose LocalTS == now.
func (lp *LocalProcessor) OnEvent(ev Event, now int64) error {
	switch ev.Kind {
	case EventDepth:
		if ev.Side == Buy {
			lp.Depth.UpdateBid(ev.Price, ev.Qty, now)
		} else {
			lp.Depth.UpdateAsk(ev.Price, ev.Qty, now)
		}
	case EventDepthSnapshot:
		if err := lp.Depth.Snapshot(ev.Bids, ev.Asks, now); err != nil {
			return err
		}
	case EventDepthClear:
		lp.Depth.Clear(ev.Side, ev.ClearUpTo)
	case EventTrade:
		// Trade prints carry no local depth mutation in this model;
		// aggregated trade statistics are an external collaborator's
		// concern.
	}
	return nil
}

// SubmitOrder validates and queues a new order for the exchange,
// returning ErrInvalidInput for a non-positive quantity or a quantity not
// aligned to the lot size, and ErrDuplicateOrderID if id is already
// pending or resting locally.
func (lp *LocalProcessor) SubmitOrder(order Order, now int64) error {
	if order.Original.Sign() <= 0 {
		return ErrInvalidInput
	}
	if !lp.LotAligned(order.Original) {
		return ErrInvalidInput
	}
	if _, exists := lp.mirror[order.ID]; exists {
		return ErrDuplicateOrderID
	}

	order.Remaining = order.Original
	order.Status = StatusNone
	order.CreatedTS = now
	order.LocalUnseen = false

	mirrored := order
	lp.mirror[order.ID] = &mirrored

	release := now + clampLatency(lp.Latency.EntryLatency(now, &order))
	lp.outBus.Append(BusMessage{Kind: MsgSubmit, Order: order}, release)
	return nil
}

// CancelOrder queues a cancel request for a known order id. Returns
// ErrOrderNotFound if the id is not tracked locally.
func (lp *LocalProcessor) CancelOrder(orderID string, now int64) error {
	order, ok := lp.mirror[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	release := now + clampLatency(lp.Latency.EntryLatency(now, order))
	lp.outBus.Append(BusMessage{Kind: MsgCancel, CancelID: orderID}, release)
	return nil
}

// DrainInbound applies every exchange->local bus entry releasable at or
// before now, updating the local mirror.
func (lp *LocalProcessor) DrainInbound(inBus *OrderBus[Order], now int64) {
	for _, ack := range inBus.ReserveUntil(now) {
		ack.LocalUnseen = true
		cp := ack
		lp.mirror[ack.ID] = &cp
	}
}

// Orders returns a snapshot of every order the local processor knows
// about, clearing each one's LocalUnseen flag.
func (lp *LocalProcessor) Orders() []Order {
	out := make([]Order, 0, len(lp.mirror))
	for _, o := range lp.mirror {
		out = append(out, *o)
		o.LocalUnseen = false
	}
	return out
}

// OrderByID returns the locally mirrored state of an order, if tracked.
func (lp *LocalProcessor) OrderByID(id string) (*Order, bool) {
	o, ok := lp.mirror[id]
	return o, ok
}

// TickAligned reports whether price is an exact multiple of the asset's
// tick size.
func (lp *LocalProcessor) TickAligned(price decimal.Decimal) bool {
	if lp.Asset.TickSize.IsZero() {
		return false
	}
	return price.Mod(lp.Asset.TickSize).IsZero()
}

// LotAligned reports whether qty is an exact multiple of the asset's lot size.
func (lp *LocalProcessor) LotAligned(qty decimal.Decimal) bool {
	if lp.Asset.LotSize.IsZero() {
		return false
	}
	return qty.Mod(lp.Asset.LotSize).IsZero()
}
