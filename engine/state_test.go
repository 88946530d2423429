package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func newTestState() *State {
	return NewState(NewLinearAsset(decimal.NewFromFloat(0.1), decimal.NewFromInt(1)))
}

func TestApplyFillOpensPosition(t *testing.T) {
	s := newTestState()
	if err := s.ApplyFill(Buy, decimal.NewFromFloat(100.0), decimal.NewFromInt(1), decimal.Zero); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Position.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected position 1, got %s", s.Position)
	}
	if !s.EntryPrice.Equal(decimal.NewFromFloat(100.0)) {
		t.Errorf("expected entry price 100.0, got %s", s.EntryPrice)
	}
	if !s.Balance.Equal(decimal.NewFromFloat(-100.0)) {
		t.Errorf("expected balance -100.0 (cash paid to open, zero fee), got %s", s.Balance)
	}
}

func TestApplyFillAddsWeightedAverage(t *testing.T) {
	s := newTestState()
	s.ApplyFill(Buy, decimal.NewFromFloat(100.0), decimal.NewFromInt(1), decimal.Zero)
	s.ApplyFill(Buy, decimal.NewFromFloat(110.0), decimal.NewFromInt(1), decimal.Zero)

	if !s.Position.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected position 2, got %s", s.Position)
	}
	if !s.EntryPrice.Equal(decimal.NewFromFloat(105.0)) {
		t.Errorf("expected volume-weighted entry 105.0, got %s", s.EntryPrice)
	}
}

func TestApplyFillClosesAndRealizesPnL(t *testing.T) {
	s := newTestState()
	s.ApplyFill(Buy, decimal.NewFromFloat(100.0), decimal.NewFromInt(2), decimal.Zero)
	s.ApplyFill(Sell, decimal.NewFromFloat(105.0), decimal.NewFromInt(2), decimal.Zero)

	if !s.Position.IsZero() {
		t.Errorf("expected flat position after full close, got %s", s.Position)
	}
	if !s.Balance.Equal(decimal.NewFromFloat(10.0)) {
		t.Errorf("expected realized pnl 10.0, got %s", s.Balance)
	}
}

func TestApplyFillFlipsThroughZero(t *testing.T) {
	s := newTestState()
	s.ApplyFill(Buy, decimal.NewFromFloat(100.0), decimal.NewFromInt(1), decimal.Zero)
	s.ApplyFill(Sell, decimal.NewFromFloat(110.0), decimal.NewFromInt(3), decimal.Zero)

	if !s.Position.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("expected short position -2 after flip, got %s", s.Position)
	}
	if !s.EntryPrice.Equal(decimal.NewFromFloat(110.0)) {
		t.Errorf("expected new entry price 110.0 for the flipped remainder, got %s", s.EntryPrice)
	}
	// Cash paid to open (-100) plus cash received selling 3 @ 110 (+330).
	if !s.Balance.Equal(decimal.NewFromFloat(230.0)) {
		t.Errorf("expected balance 230.0 (-100 open + 330 sell), got %s", s.Balance)
	}
}

func TestApplyFillDeductsFeeFromBalance(t *testing.T) {
	s := newTestState()
	s.ApplyFill(Buy, decimal.NewFromFloat(100.0), decimal.NewFromInt(1), decimal.NewFromFloat(0.5))

	if !s.Balance.Equal(decimal.NewFromFloat(-100.5)) {
		t.Errorf("expected balance -100.5 (cash paid to open, plus fee), got %s", s.Balance)
	}
	if !s.FeesPaid.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("expected fees paid 0.5, got %s", s.FeesPaid)
	}
}

func TestEquityMarksUnrealizedPnL(t *testing.T) {
	s := newTestState()
	s.ApplyFill(Buy, decimal.NewFromFloat(100.0), decimal.NewFromInt(1), decimal.Zero)

	eq, err := s.Equity(decimal.NewFromFloat(110.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eq.Equal(decimal.NewFromFloat(10.0)) {
		t.Errorf("expected equity 10.0, got %s", eq)
	}
}
