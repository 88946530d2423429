package engine

import (
	"math"
	"testing"
)

func TestOrderBusReleasesInTimestampOrder(t *testing.T) {
	b := NewOrderBus[string]()
	b.Append("third", 300)
	b.Append("first", 100)
	b.Append("second", 200)

	out := b.ReserveUntil(250)
	want := []string{"first", "second"}
	if len(out) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(out))
	}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("expected entry %d to be %q, got %q", i, w, out[i])
		}
	}
	if b.Len() != 1 {
		t.Errorf("expected 1 remaining entry, got %d", b.Len())
	}
}

func TestOrderBusFIFOTiebreak(t *testing.T) {
	b := NewOrderBus[int]()
	b.Append(1, 100)
	b.Append(2, 100)
	b.Append(3, 100)

	out := b.ReserveUntil(100)
	want := []int{1, 2, 3}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("expected FIFO order %v, got %v", want, out)
			break
		}
	}
}

func TestOrderBusFrontierEmpty(t *testing.T) {
	b := NewOrderBus[int]()
	if f := b.Frontier(); f != math.MaxInt64 {
		t.Errorf("expected MaxInt64 frontier on empty bus, got %d", f)
	}
}

func TestOrderBusFrontierTracksHead(t *testing.T) {
	b := NewOrderBus[int]()
	b.Append(1, 500)
	b.Append(2, 200)
	if f := b.Frontier(); f != 200 {
		t.Errorf("expected frontier 200, got %d", f)
	}
}
