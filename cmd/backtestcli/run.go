package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mkhoshkam/hftbacktest/engine"
	"github.com/mkhoshkam/hftbacktest/eventsource"
	"github.com/mkhoshkam/hftbacktest/strategy"
)

func newRunCmd() *cobra.Command {
	var eventsPath string
	var stepNS int64
	var qtyStr string
	var offsetTicks int64
	var requoteTicks int64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a CSV event stream through a sample passive-quoting strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cv engine.ConfigValues
			if err := viper.Unmarshal(&cv); err != nil {
				return fmt.Errorf("parsing config: %w", err)
			}
			simCfg, err := engine.BuildSimConfig(cv)
			if err != nil {
				return fmt.Errorf("building sim config: %w", err)
			}

			f, err := os.Open(eventsPath)
			if err != nil {
				return fmt.Errorf("opening events file: %w", err)
			}
			defer f.Close()

			asset := engine.AssetType{Kind: simCfg.AssetKind, TickSize: simCfg.TickSize, LotSize: simCfg.LotSize}
			src, err := eventsource.NewCSVEventSource(f, asset)
			if err != nil {
				return fmt.Errorf("reading events: %w", err)
			}

			kernel := engine.NewSimulationKernel(src, simCfg, logger)

			qty, err := decimal.NewFromString(qtyStr)
			if err != nil {
				return fmt.Errorf("parsing --qty: %w", err)
			}
			quoter := strategy.NewPassiveQuoter(kernel, qty, engine.PriceTick(offsetTicks), engine.PriceTick(requoteTicks), logger)

			for quoter.Tick(stepNS) {
			}

			logger.Info("run complete",
				zap.String("position", kernel.Position().String()),
				zap.String("balance", kernel.Balance().String()),
				zap.Int64("final_ts", kernel.CurrentTimestamp()),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventsPath, "events", "", "path to the CSV event stream")
	cmd.Flags().Int64Var(&stepNS, "step-ns", 1_000_000, "duration in nanoseconds to elapse per strategy tick")
	cmd.Flags().StringVar(&qtyStr, "qty", "1", "quantity quoted per side")
	cmd.Flags().Int64Var(&offsetTicks, "offset-ticks", 10, "quote offset from mid, in ticks")
	cmd.Flags().Int64Var(&requoteTicks, "requote-ticks", 5, "mid movement, in ticks, that triggers a re-quote")
	cmd.MarkFlagRequired("events")

	return cmd
}
