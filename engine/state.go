package engine

import "github.com/shopspring/decimal"

// State holds a single asset's trading state: position, balance, fees
// paid, and the volume-weighted entry price of the open position. It
// has no knowledge of orders or the book; ExchangeProcessor
// feeds it fills.
type State struct {
	Asset AssetType

	Position   decimal.Decimal // signed: positive long, negative short
	EntryPrice decimal.Decimal // volume-weighted entry price of Position
	Balance    decimal.Decimal
	FeesPaid   decimal.Decimal
}

// NewState returns a flat State (zero position/balance) for the given asset.
func NewState(asset AssetType) *State {
	return &State{
		Asset:      asset,
		Position:   decimal.Zero,
		EntryPrice: decimal.Zero,
		Balance:    decimal.Zero,
		FeesPaid:   decimal.Zero,
	}
}

// fillSigned returns qty signed by side (positive for Buy, negative for Sell).
func fillSigned(side Side, qty decimal.Decimal) decimal.Decimal {
	if side == Sell {
		return qty.Neg()
	}
	return qty
}

// ApplyFill updates position, balance and fees for a fill of qty units
// at price on the given side, charging fee (negative fee == rebate).
// Every fill — opening, adding, closing, or flipping — debits
// Asset.Amount(price, signedQty) and fee from Balance in this same
// call, matching spec.md §3 invariant 3 literally
// (balance change == -asset_type.amount(price, qty) - fee) for each
// individual fill rather than only at position close.
func (s *State) ApplyFill(side Side, price decimal.Decimal, qty, fee decimal.Decimal) error {
	signedQty := fillSigned(side, qty)

	amount, err := s.Asset.Amount(price, signedQty)
	if err != nil {
		return err
	}
	s.Balance = s.Balance.Sub(amount).Sub(fee)
	s.FeesPaid = s.FeesPaid.Add(fee)

	switch {
	case s.Position.IsZero():
		s.EntryPrice = price
	case sameSign(s.Position, signedQty):
		// Adding to the position: roll the entry price forward as a
		// volume-weighted average.
		totalQty := s.Position.Abs().Add(qty)
		weighted := s.EntryPrice.Mul(s.Position.Abs()).Add(price.Mul(qty))
		s.EntryPrice = weighted.Div(totalQty)
	default:
		// Closing or flipping the position.
		closingQty := decimal.Min(qty, s.Position.Abs())
		remaining := qty.Sub(closingQty)
		if remaining.Sign() > 0 {
			// Flipped through zero: the remainder opens a new position
			// at this fill's price.
			s.EntryPrice = price
		}
	}

	s.Position = s.Position.Add(signedQty)
	if s.Position.IsZero() {
		s.EntryPrice = decimal.Zero
	}
	return nil
}

func sameSign(a, b decimal.Decimal) bool {
	return (a.Sign() >= 0) == (b.Sign() >= 0)
}

// Equity returns the mark-to-market account value at midPrice.
func (s *State) Equity(midPrice decimal.Decimal) (decimal.Decimal, error) {
	return s.Asset.Equity(s.Position, s.Balance, midPrice)
}
