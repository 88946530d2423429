package engine

// LatencyModel governs when each side observes each event: the entry
// latency delays an order traveling local -> exchange; the response
// latency delays the ack/fill traveling exchange -> local. Latencies
// must never be negative; implementations clamp to zero.
type LatencyModel interface {
	EntryLatency(currentTS int64, order *Order) int64
	ResponseLatency(currentTS int64, order *Order) int64
}

func clampLatency(ns int64) int64 {
	if ns < 0 {
		return 0
	}
	return ns
}

// ConstantLatency returns the same entry/response latency for every order.
type ConstantLatency struct {
	Entry    int64
	Response int64
}

func NewConstantLatency(entry, response int64) ConstantLatency {
	return ConstantLatency{Entry: clampLatency(entry), Response: clampLatency(response)}
}

func (c ConstantLatency) EntryLatency(int64, *Order) int64    { return c.Entry }
func (c ConstantLatency) ResponseLatency(int64, *Order) int64 { return c.Response }

// FeedLatency derives entry/response latency from the most recently
// observed feed latency (local_ts - exchange_ts of the last market-data
// event), scaled by a configurable multiplier. It is updated by the
// kernel each time it routes an event to the local processor.
type FeedLatency struct {
	Multiplier float64

	lastFeedLatency int64
}

func NewFeedLatency(multiplier float64) *FeedLatency {
	return &FeedLatency{Multiplier: multiplier}
}

// Observe records the feed latency of the most recently seen event.
// exchangeTS and localTS are the event's two timestamps; feed latency is
// localTS - exchangeTS, clamped to zero.
func (f *FeedLatency) Observe(exchangeTS, localTS int64) {
	f.lastFeedLatency = clampLatency(localTS - exchangeTS)
}

func (f *FeedLatency) scaled() int64 {
	return clampLatency(int64(float64(f.lastFeedLatency) * f.Multiplier))
}

func (f *FeedLatency) EntryLatency(int64, *Order) int64    { return f.scaled() }
func (f *FeedLatency) ResponseLatency(int64, *Order) int64 { return f.scaled() }

// LatencySample is one pre-recorded (request, exchange, response)
// timestamp triple used by InterpolatedOrderLatency.
type LatencySample struct {
	RequestTS  int64
	ExchangeTS int64
	ResponseTS int64
}

// InterpolatedOrderLatency reads pre-recorded latency samples and
// linearly interpolates the entry/response latency applicable at
// currentTS between the two bracketing samples. Samples must be sorted
// by RequestTS. Out-of-range currentTS values clamp to the nearest
// sample.
type InterpolatedOrderLatency struct {
	samples []LatencySample
}

func NewInterpolatedOrderLatency(samples []LatencySample) *InterpolatedOrderLatency {
	cp := make([]LatencySample, len(samples))
	copy(cp, samples)
	return &InterpolatedOrderLatency{samples: cp}
}

func (il *InterpolatedOrderLatency) bracket(currentTS int64) (lo, hi LatencySample, haveBoth bool) {
	n := len(il.samples)
	if n == 0 {
		return LatencySample{}, LatencySample{}, false
	}
	if currentTS <= il.samples[0].RequestTS {
		return il.samples[0], il.samples[0], false
	}
	if currentTS >= il.samples[n-1].RequestTS {
		return il.samples[n-1], il.samples[n-1], false
	}
	// Binary search for the bracketing pair.
	i, j := 0, n-1
	for i+1 < j {
		mid := (i + j) / 2
		if il.samples[mid].RequestTS <= currentTS {
			i = mid
		} else {
			j = mid
		}
	}
	return il.samples[i], il.samples[j], true
}

func interpolate(t, t0, t1 int64, v0, v1 int64) int64 {
	if t1 == t0 {
		return v0
	}
	frac := float64(t-t0) / float64(t1-t0)
	return v0 + int64(frac*float64(v1-v0))
}

func (il *InterpolatedOrderLatency) EntryLatency(currentTS int64, _ *Order) int64 {
	lo, hi, both := il.bracket(currentTS)
	if !both {
		return clampLatency(lo.ExchangeTS - lo.RequestTS)
	}
	entry0 := lo.ExchangeTS - lo.RequestTS
	entry1 := hi.ExchangeTS - hi.RequestTS
	return clampLatency(interpolate(currentTS, lo.RequestTS, hi.RequestTS, entry0, entry1))
}

func (il *InterpolatedOrderLatency) ResponseLatency(currentTS int64, _ *Order) int64 {
	lo, hi, both := il.bracket(currentTS)
	if !both {
		return clampLatency(lo.ResponseTS - lo.ExchangeTS)
	}
	resp0 := lo.ResponseTS - lo.ExchangeTS
	resp1 := hi.ResponseTS - hi.ExchangeTS
	return clampLatency(interpolate(currentTS, lo.RequestTS, hi.RequestTS, resp0, resp1))
}
