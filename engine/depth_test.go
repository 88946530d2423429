package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMarketDepthBestOfSide(t *testing.T) {
	d := NewMarketDepth()
	d.UpdateBid(100, decimal.NewFromInt(5), 0)
	d.UpdateBid(99, decimal.NewFromInt(3), 0)
	d.UpdateAsk(101, decimal.NewFromInt(4), 0)
	d.UpdateAsk(102, decimal.NewFromInt(6), 0)

	bid, ok := d.BestBidTick()
	if !ok || bid != 100 {
		t.Errorf("expected best bid 100, got %d (ok=%v)", bid, ok)
	}
	ask, ok := d.BestAskTick()
	if !ok || ask != 101 {
		t.Errorf("expected best ask 101, got %d (ok=%v)", ask, ok)
	}
}

func TestMarketDepthRemovesZeroQtyLevel(t *testing.T) {
	d := NewMarketDepth()
	d.UpdateBid(100, decimal.NewFromInt(5), 0)
	d.UpdateBid(100, decimal.Zero, 0)

	if qty := d.BidQtyAt(100); !qty.IsZero() {
		t.Errorf("expected level removed, qty %s", qty)
	}
	if _, ok := d.BestBidTick(); ok {
		t.Errorf("expected no best bid after removing only level")
	}
}

func TestMarketDepthTrimsCrossedLevelsOnUpdate(t *testing.T) {
	d := NewMarketDepth()
	d.UpdateBid(100, decimal.NewFromInt(5), 0)
	d.UpdateAsk(101, decimal.NewFromInt(5), 0)

	// A bid update crossing the best ask trims the crossed ask levels.
	d.UpdateBid(101, decimal.NewFromInt(2), 0)

	if qty := d.AskQtyAt(101); !qty.IsZero() {
		t.Errorf("expected crossed ask level trimmed, qty %s", qty)
	}
}

func TestMarketDepthSnapshotRejectsCrossedInput(t *testing.T) {
	d := NewMarketDepth()
	err := d.Snapshot(
		[]DepthLevel{{Price: 105, Qty: decimal.NewFromInt(1)}},
		[]DepthLevel{{Price: 100, Qty: decimal.NewFromInt(1)}},
		0,
	)
	if err != ErrCorruptSnapshot {
		t.Errorf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestMarketDepthSnapshotIdempotent(t *testing.T) {
	d := NewMarketDepth()
	bids := []DepthLevel{{Price: 100, Qty: decimal.NewFromInt(5)}}
	asks := []DepthLevel{{Price: 101, Qty: decimal.NewFromInt(5)}}

	if err := d.Snapshot(bids, asks, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := d.BidLevels(10)

	if err := d.Snapshot(bids, asks, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := d.BidLevels(10)

	if len(before) != len(after) || before[0].Qty.Cmp(after[0].Qty) != 0 {
		t.Errorf("expected identical snapshot to leave book unchanged")
	}
}

func TestMarketDepthLevelsOrdering(t *testing.T) {
	d := NewMarketDepth()
	d.UpdateBid(100, decimal.NewFromInt(1), 0)
	d.UpdateBid(98, decimal.NewFromInt(1), 0)
	d.UpdateBid(99, decimal.NewFromInt(1), 0)

	levels := d.BidLevels(3)
	want := []PriceTick{100, 99, 98}
	for i, lvl := range levels {
		if lvl.Price != want[i] {
			t.Errorf("expected bid levels best-first %v, got %v", want, levels)
			break
		}
	}
}
