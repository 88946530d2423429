package engine

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const depthBtreeDegree = 32

// priceLevelItem is the btree.Item stored per price level. The ascending
// key is always Price; MarketDepth iterates bids in descending order by
// walking the tree backwards (see BidLevels/trimCrossedBids).
type priceLevelItem struct {
	Price PriceTick
	Qty   decimal.Decimal
}

func (a *priceLevelItem) Less(than btree.Item) bool {
	return a.Price < than.(*priceLevelItem).Price
}

// MarketDepth is an L2 order book: two price-keyed ladders (bid_depth,
// ask_depth) backed by balanced trees for O(log n) best-of-side
// maintenance and in-order range scans for crossing/clearing. Invariant:
// best_bid_tick < best_ask_tick, or at least one side is empty.
type MarketDepth struct {
	bids *btree.BTree
	asks *btree.BTree

	bestBid PriceTick
	bestAsk PriceTick
	hasBid  bool
	hasAsk  bool
}

// NewMarketDepth returns an empty order book.
func NewMarketDepth() *MarketDepth {
	return &MarketDepth{
		bids: btree.New(depthBtreeDegree),
		asks: btree.New(depthBtreeDegree),
	}
}

// UpdateBid sets the resting quantity at px on the bid side. qty == 0
// removes the level. If the new level would cross the ask side (px >=
// best ask), the crossed ask levels are removed — standard L2 semantics
// for feeds that reorder updates relative to trades. Returns the
// quantity that was resting at px before this update (zero if none).
func (d *MarketDepth) UpdateBid(px PriceTick, qty decimal.Decimal, ts int64) decimal.Decimal {
	prev := d.BidQtyAt(px)
	if qty.Sign() <= 0 {
		d.bids.Delete(&priceLevelItem{Price: px})
	} else {
		d.bids.ReplaceOrInsert(&priceLevelItem{Price: px, Qty: qty})
	}
	d.recomputeBestBid()
	if d.hasBid && d.hasAsk && d.bestBid >= d.bestAsk {
		d.trimCrossedAsks(d.bestBid)
	}
	return prev
}

// UpdateAsk is UpdateBid's mirror image for the ask side.
func (d *MarketDepth) UpdateAsk(px PriceTick, qty decimal.Decimal, ts int64) decimal.Decimal {
	prev := d.AskQtyAt(px)
	if qty.Sign() <= 0 {
		d.asks.Delete(&priceLevelItem{Price: px})
	} else {
		d.asks.ReplaceOrInsert(&priceLevelItem{Price: px, Qty: qty})
	}
	d.recomputeBestAsk()
	if d.hasBid && d.hasAsk && d.bestBid >= d.bestAsk {
		d.trimCrossedBids(d.bestAsk)
	}
	return prev
}

func (d *MarketDepth) trimCrossedAsks(bestBid PriceTick) {
	var toRemove []PriceTick
	d.asks.Ascend(func(it btree.Item) bool {
		lvl := it.(*priceLevelItem)
		if lvl.Price <= bestBid {
			toRemove = append(toRemove, lvl.Price)
			return true
		}
		return false
	})
	for _, px := range toRemove {
		d.asks.Delete(&priceLevelItem{Price: px})
	}
	d.recomputeBestAsk()
}

func (d *MarketDepth) trimCrossedBids(bestAsk PriceTick) {
	var toRemove []PriceTick
	d.bids.Descend(func(it btree.Item) bool {
		lvl := it.(*priceLevelItem)
		if lvl.Price >= bestAsk {
			toRemove = append(toRemove, lvl.Price)
			return true
		}
		return false
	})
	for _, px := range toRemove {
		d.bids.Delete(&priceLevelItem{Price: px})
	}
	d.recomputeBestBid()
}

func (d *MarketDepth) recomputeBestBid() {
	if max := d.bids.Max(); max != nil {
		d.bestBid = max.(*priceLevelItem).Price
		d.hasBid = true
	} else {
		d.hasBid = false
	}
}

func (d *MarketDepth) recomputeBestAsk() {
	if min := d.asks.Min(); min != nil {
		d.bestAsk = min.(*priceLevelItem).Price
		d.hasAsk = true
	} else {
		d.hasAsk = false
	}
}

// Clear removes levels on side up to (and including) uptoPx. For Buy it
// clears bids with price <= uptoPx (the low end of the bid ladder); for
// Sell it clears asks with price >= uptoPx (the high end of the ask
// ladder).
func (d *MarketDepth) Clear(side Side, uptoPx PriceTick) {
	if side == Buy {
		var toRemove []PriceTick
		d.bids.Ascend(func(it btree.Item) bool {
			lvl := it.(*priceLevelItem)
			if lvl.Price <= uptoPx {
				toRemove = append(toRemove, lvl.Price)
				return true
			}
			return false
		})
		for _, px := range toRemove {
			d.bids.Delete(&priceLevelItem{Price: px})
		}
		d.recomputeBestBid()
	} else {
		var toRemove []PriceTick
		d.asks.Descend(func(it btree.Item) bool {
			lvl := it.(*priceLevelItem)
			if lvl.Price >= uptoPx {
				toRemove = append(toRemove, lvl.Price)
				return true
			}
			return false
		})
		for _, px := range toRemove {
			d.asks.Delete(&priceLevelItem{Price: px})
		}
		d.recomputeBestAsk()
	}
}

// Snapshot atomically replaces both ladders. Returns ErrCorruptSnapshot
// if the snapshot itself is internally crossed (best bid >= best ask
// among the supplied levels), leaving the book unchanged.
func (d *MarketDepth) Snapshot(bids, asks []DepthLevel, ts int64) error {
	var bestBid PriceTick
	var bestAsk PriceTick
	hasBid, hasAsk := false, false
	for _, l := range bids {
		if !hasBid || l.Price > bestBid {
			bestBid = l.Price
			hasBid = true
		}
	}
	for _, l := range asks {
		if !hasAsk || l.Price < bestAsk {
			bestAsk = l.Price
			hasAsk = true
		}
	}
	if hasBid && hasAsk && bestBid >= bestAsk {
		return ErrCorruptSnapshot
	}

	newBids := btree.New(depthBtreeDegree)
	newAsks := btree.New(depthBtreeDegree)
	for _, l := range bids {
		if l.Qty.Sign() > 0 {
			newBids.ReplaceOrInsert(&priceLevelItem{Price: l.Price, Qty: l.Qty})
		}
	}
	for _, l := range asks {
		if l.Qty.Sign() > 0 {
			newAsks.ReplaceOrInsert(&priceLevelItem{Price: l.Price, Qty: l.Qty})
		}
	}
	d.bids = newBids
	d.asks = newAsks
	d.recomputeBestBid()
	d.recomputeBestAsk()
	return nil
}

// BestBidTick returns the best (highest) bid price tick and whether one exists.
func (d *MarketDepth) BestBidTick() (PriceTick, bool) { return d.bestBid, d.hasBid }

// BestAskTick returns the best (lowest) ask price tick and whether one exists.
func (d *MarketDepth) BestAskTick() (PriceTick, bool) { return d.bestAsk, d.hasAsk }

// BidQtyAt returns the resting quantity at px on the bid side (zero if none).
func (d *MarketDepth) BidQtyAt(px PriceTick) decimal.Decimal {
	if it := d.bids.Get(&priceLevelItem{Price: px}); it != nil {
		return it.(*priceLevelItem).Qty
	}
	return decimal.Zero
}

// AskQtyAt returns the resting quantity at px on the ask side (zero if none).
func (d *MarketDepth) AskQtyAt(px PriceTick) decimal.Decimal {
	if it := d.asks.Get(&priceLevelItem{Price: px}); it != nil {
		return it.(*priceLevelItem).Qty
	}
	return decimal.Zero
}

// BidLevels returns up to n bid levels, best (highest) first.
func (d *MarketDepth) BidLevels(n int) []DepthLevel {
	levels := make([]DepthLevel, 0, n)
	d.bids.Descend(func(it btree.Item) bool {
		if len(levels) >= n {
			return false
		}
		lvl := it.(*priceLevelItem)
		levels = append(levels, DepthLevel{Price: lvl.Price, Qty: lvl.Qty})
		return true
	})
	return levels
}

// AskLevels returns up to n ask levels, best (lowest) first.
func (d *MarketDepth) AskLevels(n int) []DepthLevel {
	levels := make([]DepthLevel, 0, n)
	d.asks.Ascend(func(it btree.Item) bool {
		if len(levels) >= n {
			return false
		}
		lvl := it.(*priceLevelItem)
		levels = append(levels, DepthLevel{Price: lvl.Price, Qty: lvl.Qty})
		return true
	})
	return levels
}
