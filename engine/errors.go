package engine

import "errors"

// Error taxonomy. InvalidInput, OrderNotFound and DuplicateOrderId are
// synchronous errors surfaced to the submission call. CorruptSnapshot
// aborts the current elapse() with a fatal return. Crossed is not an
// error value — it is reported via order status EXPIRED — and EndOfData
// is not an error either — elapse() returns false.
var (
	// ErrInvalidInput covers non-positive tick/lot, price not
	// tick-aligned, or quantity not lot-aligned.
	ErrInvalidInput = errors.New("engine: invalid input")

	// ErrOrderNotFound is returned by cancel/modify for an unknown id.
	ErrOrderNotFound = errors.New("engine: order not found")

	// ErrDuplicateOrderID is returned when submitting an id already in use.
	ErrDuplicateOrderID = errors.New("engine: duplicate order id")

	// ErrCorruptSnapshot is returned when a DEPTH_SNAPSHOT event is
	// internally crossed (best bid >= best ask within the snapshot
	// itself). Fatal for the run.
	ErrCorruptSnapshot = errors.New("engine: corrupt snapshot")

	// ErrInvalidPrice is returned by AssetType operations when price <= 0
	// for the inverse asset type.
	ErrInvalidPrice = errors.New("engine: invalid price")
)
