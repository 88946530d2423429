package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventStream supplies Events sorted by min(exch_ts, local_ts) per
// source. Next returns (Event{}, false) once exhausted.
type EventStream interface {
	Next() (Event, bool)
}

// SimConfig collects the kernel's enumerated configuration keys.
type SimConfig struct {
	TickSize  decimal.Decimal
	LotSize   decimal.Decimal
	AssetKind AssetKind
	MakerFee  decimal.Decimal
	TakerFee  decimal.Decimal
	Queue     QueueModel
	Latency   LatencyModel
	Exchange  ExchangeModel
}

// SimulationKernel is the driver: it maintains the single logical clock
// T, and exposes a blocking Elapse to the strategy that advances T,
// interleaving market-data routing and order-bus servicing in a
// single-threaded, cooperative execution model.
type SimulationKernel struct {
	now int64

	stream EventStream

	exchange *ExchangeProcessor
	local    *LocalProcessor

	localToExchange *OrderBus[BusMessage]
	exchangeToLocal *OrderBus[Order]

	feedLatency *FeedLatency // non-nil only when cfg.Latency is a *FeedLatency

	pending         *Event
	doneExchange    bool
	doneLocal       bool
	streamExhausted bool

	log *zap.Logger
}

// NewSimulationKernel wires a fresh kernel around an event stream and
// configuration. log may be nil, in which case a no-op logger is used.
func NewSimulationKernel(stream EventStream, cfg SimConfig, log *zap.Logger) *SimulationKernel {
	if log == nil {
		log = zap.NewNop()
	}
	asset := AssetType{Kind: cfg.AssetKind, TickSize: cfg.TickSize, LotSize: cfg.LotSize}

	l2e := NewOrderBus[BusMessage]()
	e2l := NewOrderBus[Order]()

	k := &SimulationKernel{
		stream:          stream,
		localToExchange: l2e,
		exchangeToLocal: e2l,
		log:             log,
	}
	k.exchange = NewExchangeProcessor(asset, cfg.Queue, cfg.Latency, cfg.Exchange, cfg.MakerFee, cfg.TakerFee, e2l, log)
	k.local = NewLocalProcessor(asset, cfg.Latency, l2e, log)
	if fl, ok := cfg.Latency.(*FeedLatency); ok {
		k.feedLatency = fl
	}
	return k
}

const tsInfinite = int64(1) << 62

// Elapse advances the kernel's clock by durationNS, draining event
// routing and both bus directions. It returns false once the event
// stream is exhausted and both buses have drained (end of data is not
// an error); a call that reaches target with more data or in-flight bus
// entries still pending returns true even if the stream has no more
// events available past target.
func (k *SimulationKernel) Elapse(durationNS int64) bool {
	target := k.now + durationNS

	for {
		if k.pending == nil && !k.streamExhausted {
			ev, has := k.stream.Next()
			if !has {
				k.streamExhausted = true
			} else {
				k.pending = &ev
				k.doneExchange = false
				k.doneLocal = false
			}
		}

		aActive := k.pending != nil && !k.doneExchange
		bActive := k.pending != nil && !k.doneLocal
		cTS := k.localToExchange.Frontier()
		dTS := k.exchangeToLocal.Frontier()

		min := tsInfinite
		if aActive && k.pending.ExchangeTS < min {
			min = k.pending.ExchangeTS
		}
		if cTS < min {
			min = cTS
		}
		if bActive && k.pending.LocalTS < min {
			min = k.pending.LocalTS
		}
		if dTS < min {
			min = dTS
		}

		if min == tsInfinite {
			// Nothing left to do: stream exhausted and both buses drained.
			break
		}
		if min > target {
			break
		}

		// Tie-break order: (a) exchange event, (c) local->exchange bus,
		// (b) local event, (d) exchange->local bus.
		switch {
		case aActive && k.pending.ExchangeTS == min:
			k.exchange.OnEvent(*k.pending, min)
			k.doneExchange = true
		case cTS == min:
			k.serviceLocalToExchange(min)
		case bActive && k.pending.LocalTS == min:
			if k.feedLatency != nil {
				k.feedLatency.Observe(k.pending.ExchangeTS, k.pending.LocalTS)
			}
			k.local.OnEvent(*k.pending, min)
			k.doneLocal = true
		case dTS == min:
			k.local.DrainInbound(k.exchangeToLocal, min)
		}

		k.now = min
		if k.pending != nil && k.doneExchange && k.doneLocal {
			k.pending = nil
		}
	}

	if target > k.now {
		k.now = target
	}
	return !(k.streamExhausted && k.pending == nil && k.localToExchange.Len() == 0 && k.exchangeToLocal.Len() == 0)
}

func (k *SimulationKernel) serviceLocalToExchange(now int64) {
	for _, msg := range k.localToExchange.ReserveUntil(now) {
		switch msg.Kind {
		case MsgSubmit:
			k.exchange.OnOrder(msg.Order, now)
		case MsgCancel:
			if err := k.exchange.OnCancel(msg.CancelID, now); err != nil {
				k.log.Debug("cancel of unknown order", zap.String("order_id", msg.CancelID))
			}
		}
	}
}

// SubmitBuyOrder validates and submits a GTC/GTX/FOK/IOC buy order at
// price for qty, returning ErrInvalidInput if price is not tick-aligned
// or qty is not lot-aligned, or ErrDuplicateOrderID if id is in use.
func (k *SimulationKernel) SubmitBuyOrder(id string, price, qty decimal.Decimal, tif TimeInForce) error {
	return k.submit(id, Buy, price, qty, tif)
}

// SubmitSellOrder is SubmitBuyOrder's mirror for the sell side.
func (k *SimulationKernel) SubmitSellOrder(id string, price, qty decimal.Decimal, tif TimeInForce) error {
	return k.submit(id, Sell, price, qty, tif)
}

func (k *SimulationKernel) submit(id string, side Side, price, qty decimal.Decimal, tif TimeInForce) error {
	if !k.local.TickAligned(price) {
		return ErrInvalidInput
	}
	tick := k.exchange.Asset.TickOf(price)
	order := Order{
		ID:       id,
		Side:     side,
		Price:    tick,
		Original: qty,
		TIF:      tif,
	}
	return k.local.SubmitOrder(order, k.now)
}

// Cancel requests cancellation of a previously submitted order.
func (k *SimulationKernel) Cancel(id string) error {
	return k.local.CancelOrder(id, k.now)
}

// Position returns the current signed position.
func (k *SimulationKernel) Position() decimal.Decimal {
	return k.exchange.State.Position
}

// Balance returns the current cash balance.
func (k *SimulationKernel) Balance() decimal.Decimal {
	return k.exchange.State.Balance
}

// Orders returns a snapshot of every order the strategy has submitted,
// as last observed by the local processor.
func (k *SimulationKernel) Orders() []Order {
	return k.local.Orders()
}

// Depth returns the strategy-visible local market depth.
func (k *SimulationKernel) Depth() *MarketDepth {
	return k.local.Depth
}

// CurrentTimestamp returns the kernel's current logical clock value.
func (k *SimulationKernel) CurrentTimestamp() int64 {
	return k.now
}

// Asset exposes the kernel's configured AssetType (tick/lot size
// conversions) for strategies that need to translate between ticks and
// decimal prices.
func (k *SimulationKernel) Asset() AssetType {
	return k.exchange.Asset
}
