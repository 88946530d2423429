package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConfigValues is the flat, viper-friendly representation of a
// SimConfig: every field is a primitive or string so it can be bound
// directly to a config file, environment variables, or CLI flags (see
// cmd/backtestcli). BuildSimConfig resolves it into the engine's
// SimConfig, constructing the concrete QueueModel/LatencyModel named by
// QueueModelName/LatencyModelName.
type ConfigValues struct {
	TickSize  string `mapstructure:"tick_size"`
	LotSize   string `mapstructure:"lot_size"`
	AssetKind string `mapstructure:"asset_type"` // "linear" | "inverse"
	MakerFee  string `mapstructure:"maker_fee"`
	TakerFee  string `mapstructure:"taker_fee"`

	QueueModelName       string  `mapstructure:"queue_model"`       // "risk_averse" | "probability"
	QueueAttribution     string  `mapstructure:"queue_attribution"` // "log" | "square" | "power"
	QueueAttributionPow  float64 `mapstructure:"queue_attribution_power"`

	LatencyModelName  string `mapstructure:"latency_model"`  // "constant" | "feed"
	LatencyEntryNS    int64  `mapstructure:"latency_entry_ns"`
	LatencyResponseNS int64  `mapstructure:"latency_response_ns"`
	LatencyMultiplier float64 `mapstructure:"latency_multiplier"`

	ExchangeModelName string `mapstructure:"exchange_model"` // "partial_fill" | "no_partial_fill"
}

// BuildSimConfig parses a ConfigValues into a runnable SimConfig,
// returning ErrInvalidInput if any decimal field fails to parse or any
// named model is unrecognized.
func BuildSimConfig(v ConfigValues) (SimConfig, error) {
	tickSize, err := decimal.NewFromString(v.TickSize)
	if err != nil {
		return SimConfig{}, fmt.Errorf("%w: tick_size %q", ErrInvalidInput, v.TickSize)
	}
	lotSize, err := decimal.NewFromString(v.LotSize)
	if err != nil {
		return SimConfig{}, fmt.Errorf("%w: lot_size %q", ErrInvalidInput, v.LotSize)
	}
	makerFee, err := decimal.NewFromString(orDefault(v.MakerFee, "0"))
	if err != nil {
		return SimConfig{}, fmt.Errorf("%w: maker_fee %q", ErrInvalidInput, v.MakerFee)
	}
	takerFee, err := decimal.NewFromString(orDefault(v.TakerFee, "0"))
	if err != nil {
		return SimConfig{}, fmt.Errorf("%w: taker_fee %q", ErrInvalidInput, v.TakerFee)
	}

	var kind AssetKind
	switch v.AssetKind {
	case "", "linear":
		kind = Linear
	case "inverse":
		kind = Inverse
	default:
		return SimConfig{}, fmt.Errorf("%w: asset_type %q", ErrInvalidInput, v.AssetKind)
	}

	queue, err := buildQueueModel(v)
	if err != nil {
		return SimConfig{}, err
	}

	latency, err := buildLatencyModel(v)
	if err != nil {
		return SimConfig{}, err
	}

	var exModel ExchangeModel
	switch v.ExchangeModelName {
	case "", "partial_fill":
		exModel = PartialFill
	case "no_partial_fill":
		exModel = NoPartialFill
	default:
		return SimConfig{}, fmt.Errorf("%w: exchange_model %q", ErrInvalidInput, v.ExchangeModelName)
	}

	return SimConfig{
		TickSize:  tickSize,
		LotSize:   lotSize,
		AssetKind: kind,
		MakerFee:  makerFee,
		TakerFee:  takerFee,
		Queue:     queue,
		Latency:   latency,
		Exchange:  exModel,
	}, nil
}

func buildQueueModel(v ConfigValues) (QueueModel, error) {
	switch v.QueueModelName {
	case "", "risk_averse":
		return RiskAverseQueue{}, nil
	case "probability":
		attrib, err := buildAttribution(v)
		if err != nil {
			return nil, err
		}
		return NewProbabilityQueue(attrib), nil
	default:
		return nil, fmt.Errorf("%w: queue_model %q", ErrInvalidInput, v.QueueModelName)
	}
}

func buildAttribution(v ConfigValues) (CancelAttribution, error) {
	switch v.QueueAttribution {
	case "", "log":
		return LogAttribution, nil
	case "square":
		return SquareAttribution, nil
	case "power":
		n := v.QueueAttributionPow
		if n == 0 {
			n = 2
		}
		return PowerAttribution(n), nil
	default:
		return nil, fmt.Errorf("%w: queue_attribution %q", ErrInvalidInput, v.QueueAttribution)
	}
}

func buildLatencyModel(v ConfigValues) (LatencyModel, error) {
	switch v.LatencyModelName {
	case "", "constant":
		return NewConstantLatency(v.LatencyEntryNS, v.LatencyResponseNS), nil
	case "feed":
		mult := v.LatencyMultiplier
		if mult == 0 {
			mult = 1
		}
		return NewFeedLatency(mult), nil
	default:
		return nil, fmt.Errorf("%w: latency_model %q", ErrInvalidInput, v.LatencyModelName)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
