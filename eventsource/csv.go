// Package eventsource is a minimal CSV reader for the kernel's market
// data format: event_flags, exch_ts, local_ts, price, qty — side is
// folded into event_flags as a bit flag, per spec. It exists only to
// drive the cmd/backtestcli demo; the kernel itself depends on
// engine.EventStream, never on this package.
package eventsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mkhoshkam/hftbacktest/engine"
	"github.com/shopspring/decimal"
)

// Bit layout for the event_flags column. The low bits select the event
// kind; BuySide/SellSide are carried as separate high bits so a single
// int column doubles as a side-as-bit-flags encoding for compatibility
// with wire formats that pack side into the same word as other flags.
const (
	kindDepth      = 0
	kindTrade      = 1
	kindDepthClear = 2

	// BuySide and SellSide: BUY=1<<29, SELL=1<<28.
	BuySide  = 1 << 29
	SellSide = 1 << 28

	kindMask = 0x0F
)

// CSVEventSource reads engine.Event records from a CSV stream, one
// record per row, in the column order event_flags,exch_ts,local_ts,
// price,qty. It implements engine.EventStream. DEPTH_SNAPSHOT is not
// representable in this flat row format (it carries a full ladder) and
// is never emitted by this reader — snapshot replay requires a richer
// ingester external collaborator, out of scope for this demo reader.
type CSVEventSource struct {
	r       *csv.Reader
	asset   engine.AssetType
	lineNum int
}

// NewCSVEventSource wraps r as a CSV event source. Prices are converted
// to ticks via asset's tick size, matching how the kernel itself stores
// price. The first row is always treated as a header and discarded.
func NewCSVEventSource(r io.Reader, asset engine.AssetType) (*CSVEventSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return &CSVEventSource{r: cr, asset: asset}, nil
		}
		return nil, fmt.Errorf("eventsource: reading header: %w", err)
	}
	return &CSVEventSource{r: cr, asset: asset}, nil
}

// Next returns the next Event, or (Event{}, false) at end of stream.
func (s *CSVEventSource) Next() (engine.Event, bool) {
	record, err := s.r.Read()
	if err != nil {
		return engine.Event{}, false
	}
	s.lineNum++

	flags, err := strconv.Atoi(record[0])
	if err != nil {
		return engine.Event{}, false
	}
	exchTS, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return engine.Event{}, false
	}
	localTS, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return engine.Event{}, false
	}
	price, err := decimal.NewFromString(record[3])
	if err != nil {
		return engine.Event{}, false
	}
	qty, err := decimal.NewFromString(record[4])
	if err != nil {
		return engine.Event{}, false
	}

	ev := engine.Event{
		ExchangeTS: exchTS,
		LocalTS:    localTS,
		Qty:        qty,
	}
	if flags&BuySide != 0 {
		ev.Side = engine.Buy
	} else {
		ev.Side = engine.Sell
	}

	switch flags & kindMask {
	case kindTrade:
		ev.Kind = engine.EventTrade
		ev.Price = s.asset.TickOf(price)
	case kindDepthClear:
		ev.Kind = engine.EventDepthClear
		ev.ClearUpTo = s.asset.TickOf(price)
	default:
		ev.Kind = engine.EventDepth
		ev.Price = s.asset.TickOf(price)
	}
	return ev, true
}
