package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

type sliceEventStream struct {
	events []Event
	pos    int
}

func (s *sliceEventStream) Next() (Event, bool) {
	if s.pos >= len(s.events) {
		return Event{}, false
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true
}

func depthEv(side Side, priceTicks PriceTick, qty decimal.Decimal, ts int64) Event {
	return Event{Kind: EventDepth, Side: side, Price: priceTicks, Qty: qty, ExchangeTS: ts, LocalTS: ts}
}

func tradeEv(side Side, priceTicks PriceTick, qty decimal.Decimal, ts int64) Event {
	return Event{Kind: EventTrade, Side: side, Price: priceTicks, Qty: qty, ExchangeTS: ts, LocalTS: ts}
}

func baseConfig() SimConfig {
	return SimConfig{
		TickSize:  decimal.NewFromFloat(0.1),
		LotSize:   decimal.NewFromInt(1),
		AssetKind: Linear,
		MakerFee:  decimal.Zero,
		TakerFee:  decimal.Zero,
		Queue:     RiskAverseQueue{},
		Latency:   NewConstantLatency(0, 0),
		Exchange:  PartialFill,
	}
}

func TestKernelEmptyStreamFirstElapseFalse(t *testing.T) {
	stream := &sliceEventStream{}
	k := NewSimulationKernel(stream, baseConfig(), nil)

	if ok := k.Elapse(1000); ok {
		t.Errorf("expected Elapse to return false on an empty stream")
	}
	if !k.Position().IsZero() {
		t.Errorf("expected no state change on an empty stream, position=%s", k.Position())
	}
}

func TestKernelSingleMakerFillScenario(t *testing.T) {
	stream := &sliceEventStream{events: []Event{
		depthEv(Buy, 1000, decimal.NewFromInt(5), 0),
		depthEv(Sell, 1001, decimal.NewFromInt(5), 0),
		tradeEv(Sell, 1000, decimal.NewFromInt(6), 10),
	}}
	k := NewSimulationKernel(stream, baseConfig(), nil)

	k.Elapse(5)
	if err := k.SubmitBuyOrder("o1", decimal.NewFromFloat(100.0), decimal.NewFromInt(1), GTC); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	k.Elapse(20)

	if !k.Position().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected position 1, got %s", k.Position())
	}
	if !k.Balance().Equal(decimal.NewFromFloat(-100.0)) {
		t.Errorf("expected balance -100.0, got %s", k.Balance())
	}
}

func TestKernelPostOnlyRejection(t *testing.T) {
	stream := &sliceEventStream{events: []Event{
		depthEv(Sell, 1001, decimal.NewFromInt(5), 0),
	}}
	k := NewSimulationKernel(stream, baseConfig(), nil)

	k.Elapse(5)
	if err := k.SubmitBuyOrder("o1", decimal.NewFromFloat(100.2), decimal.NewFromInt(1), GTX); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	k.Elapse(5)

	orders := k.Orders()
	if len(orders) != 1 || orders[0].Status != StatusExpired {
		t.Fatalf("expected GTX crossing order EXPIRED, got %+v", orders)
	}
	if !k.Position().IsZero() {
		t.Errorf("expected no position effect, got %s", k.Position())
	}
}

func TestKernelLatencyDelayedAck(t *testing.T) {
	cfg := baseConfig()
	cfg.Latency = NewConstantLatency(1_000_000, 1_000_000)
	stream := &sliceEventStream{}
	k := NewSimulationKernel(stream, cfg, nil)

	if err := k.SubmitBuyOrder("o1", decimal.NewFromFloat(100.0), decimal.NewFromInt(1), GTC); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	k.Elapse(500_000)
	orders := k.Orders()
	if len(orders) != 1 || orders[0].Status != StatusNone {
		t.Fatalf("expected order still pending locally before the entry latency elapses, got %+v", orders)
	}

	k.Elapse(2_000_000)
	orders = k.Orders()
	if len(orders) != 1 || orders[0].Status != StatusNew {
		t.Fatalf("expected order NEW once entry+response latency has elapsed, got %+v", orders)
	}
}

func TestKernelIOCExpiresWithNoLiquidity(t *testing.T) {
	stream := &sliceEventStream{}
	k := NewSimulationKernel(stream, baseConfig(), nil)

	if err := k.SubmitBuyOrder("o1", decimal.NewFromFloat(100.0), decimal.NewFromInt(1), IOC); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	k.Elapse(10)

	orders := k.Orders()
	if len(orders) != 1 || orders[0].Status != StatusExpired {
		t.Fatalf("expected IOC with no liquidity to expire, got %+v", orders)
	}
	if !k.Position().IsZero() {
		t.Errorf("expected no position effect, got %s", k.Position())
	}
}

func TestKernelSubmitThenImmediateCancelNetsToNoEffect(t *testing.T) {
	stream := &sliceEventStream{}
	k := NewSimulationKernel(stream, baseConfig(), nil)

	if err := k.SubmitBuyOrder("o1", decimal.NewFromFloat(100.0), decimal.NewFromInt(1), GTC); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if err := k.Cancel("o1"); err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}
	k.Elapse(0)

	if !k.Position().IsZero() || !k.Balance().IsZero() {
		t.Errorf("expected no position/balance change from submit+cancel, position=%s balance=%s", k.Position(), k.Balance())
	}
}

func TestKernelInverseAssetPnL(t *testing.T) {
	cfg := baseConfig()
	cfg.AssetKind = Inverse
	cfg.TickSize = decimal.NewFromInt(1)
	cfg.LotSize = decimal.NewFromInt(1)
	stream := &sliceEventStream{events: []Event{
		depthEv(Sell, 50000, decimal.NewFromInt(100), 0),
		depthEv(Buy, 55000, decimal.NewFromInt(100), 3),
	}}
	k := NewSimulationKernel(stream, cfg, nil)

	k.Elapse(2)
	if err := k.SubmitBuyOrder("o1", decimal.NewFromInt(50000), decimal.NewFromInt(100), IOC); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	k.Elapse(2)
	if err := k.SubmitSellOrder("o2", decimal.NewFromInt(55000), decimal.NewFromInt(100), IOC); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	k.Elapse(2)

	// Balance is the sum of each fill's signed Amount (qty/price for
	// Inverse), not the textbook qty*(1/entry-1/exit) PnL formula: buying
	// 100 @ 50000 debits 100/50000, selling 100 @ 55000 credits 100/55000,
	// so balance is 100/55000 - 100/50000 (note the order, inverted
	// relative to the Linear qty*(exit-entry) convention since 1/price is
	// decreasing in price).
	want := decimal.NewFromInt(100).Mul(
		decimal.NewFromInt(1).Div(decimal.NewFromInt(55000)).Sub(decimal.NewFromInt(1).Div(decimal.NewFromInt(50000))),
	)
	got := k.Balance()
	diff := got.Sub(want).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(0.00001)) {
		t.Errorf("expected balance close to %s, got %s", want, got)
	}
}
