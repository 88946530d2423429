package engine

import "github.com/shopspring/decimal"

// AssetKind selects the P&L/fee-basis arithmetic used by an AssetType.
type AssetKind int

const (
	// Linear contracts settle P&L as qty * (exit - entry), denominated
	// in the quote currency.
	Linear AssetKind = iota
	// Inverse contracts (e.g. BTC-margined perpetuals) settle P&L as
	// qty * (1/entry - 1/exit), denominated in the base currency.
	Inverse
)

// AssetType converts between ticks and decimal prices and computes the
// cash-equivalent amount and fee basis for a fill. Operations are pure.
type AssetType struct {
	Kind     AssetKind
	TickSize decimal.Decimal
	LotSize  decimal.Decimal
}

// NewLinearAsset returns a Linear AssetType with the given tick and lot size.
func NewLinearAsset(tickSize, lotSize decimal.Decimal) AssetType {
	return AssetType{Kind: Linear, TickSize: tickSize, LotSize: lotSize}
}

// NewInverseAsset returns an Inverse AssetType with the given tick and lot size.
func NewInverseAsset(tickSize, lotSize decimal.Decimal) AssetType {
	return AssetType{Kind: Inverse, TickSize: tickSize, LotSize: lotSize}
}

// PriceOf converts a price tick into its decimal price.
func (a AssetType) PriceOf(t PriceTick) decimal.Decimal {
	return decimal.NewFromInt(int64(t)).Mul(a.TickSize)
}

// TickOf converts a decimal price into its nearest price tick.
func (a AssetType) TickOf(price decimal.Decimal) PriceTick {
	return PriceTick(price.Div(a.TickSize).Round(0).IntPart())
}

// Amount returns the cash-equivalent value of qty units traded at price.
//
// Linear:  qty * price
// Inverse: qty / price
//
// Returns ErrInvalidPrice if price <= 0 under the Inverse kind.
func (a AssetType) Amount(price, qty decimal.Decimal) (decimal.Decimal, error) {
	if a.Kind == Inverse {
		if price.Sign() <= 0 {
			return decimal.Zero, ErrInvalidPrice
		}
		return qty.Div(price), nil
	}
	return qty.Mul(price), nil
}

// PnL returns the realized profit or loss of closing a position of qty
// units (signed: positive for a long, negative for a short) opened at
// entryPrice and closed at exitPrice.
//
// Linear:  qty * (exit - entry)
// Inverse: qty * (1/entry - 1/exit)
func (a AssetType) PnL(qty, entryPrice, exitPrice decimal.Decimal) (decimal.Decimal, error) {
	if a.Kind == Inverse {
		if entryPrice.Sign() <= 0 || exitPrice.Sign() <= 0 {
			return decimal.Zero, ErrInvalidPrice
		}
		invEntry := decimal.NewFromInt(1).Div(entryPrice)
		invExit := decimal.NewFromInt(1).Div(exitPrice)
		return qty.Mul(invEntry.Sub(invExit)), nil
	}
	return qty.Mul(exitPrice.Sub(entryPrice)), nil
}

// Equity returns the mark-to-market account value: balance plus the
// cash-equivalent value of the open position marked at midPrice. Since
// Balance already carries the cash-equivalent cost of every fill (see
// State.ApplyFill), marking the position at midPrice via the same
// Amount function is what makes a round-trip's Equity collapse back to
// the sum of its fills' cash flows once the position is flat.
func (a AssetType) Equity(position, balance, midPrice decimal.Decimal) (decimal.Decimal, error) {
	if position.IsZero() {
		return balance, nil
	}
	mtm, err := a.Amount(midPrice, position)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Add(mtm), nil
}
