package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/signal"
	"github.com/rustyeddy/quant/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay CSV candles through the strategy blend",
	Long: `Backtest evaluates the configured strategies bar by bar over a
candle file and reports returns, Sharpe, drawdown, and win rate.

The candle CSV needs columns time,open,high,low,close,volume with bars
ordered oldest first.

Example:
  quant backtest -candles data/doge_1h.csv -config quant.yaml -org report.org`,
	RunE: runBacktest,
}

var (
	btCandlesPath string
	btConfigPath  string
	btCapital     float64
	btDBPath      string
	btOrgPath     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btCandlesPath, "candles", "c", "", "path to candle CSV (time,open,high,low,close,volume) (required)")
	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "f", "", "path to config file (YAML or JSON), defaults when omitted")
	backtestCmd.Flags().Float64VarP(&btCapital, "capital", "b", 0, "starting capital (overrides config)")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "record trades and equity to this SQLite journal")
	backtestCmd.Flags().StringVarP(&btOrgPath, "org", "o", "", "write an org-mode run summary to this path")

	backtestCmd.MarkFlagRequired("candles")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadOrDefault(btConfigPath)
	if err != nil {
		return err
	}

	candles, err := market.LoadCSV(btCandlesPath)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}

	capital := cfg.Backtest.InitialCapital
	if btCapital > 0 {
		capital = btCapital
	}

	// Backtests size against simulated equity only; a flat book means
	// the hold-state strategies vote from the entry side.
	producers, err := strategies.FromConfig(cfg, strategies.Deps{})
	if err != nil {
		return fmt.Errorf("build strategies: %w", err)
	}
	aggregator := signal.NewAggregator(cfg.Weights, cfg.System.SignalThreshold)

	opts := []backtest.Option{
		backtest.WithCommission(cfg.Backtest.CommissionRate),
		backtest.WithTimeframe(cfg.Backtest.Timeframe),
	}
	if btDBPath != "" {
		j, err := journal.NewSQLite(btDBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		opts = append(opts, backtest.WithJournal(j))
	}

	engine := backtest.NewEngine(producers, aggregator, opts...)

	fmt.Printf("Running backtest: %s\n", cfg.System.Symbol)
	fmt.Printf("  Candles: %s (%d bars)\n", btCandlesPath, len(candles))
	fmt.Printf("  Capital: %.2f %s\n\n", capital, cfg.System.QuoteAsset)

	res, err := engine.Run(context.Background(), candles, capital)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	printReport(res, cfg)

	if btOrgPath != "" {
		summary := runSummary(res, cfg, btCandlesPath)
		if err := summary.WriteOrg(btOrgPath); err != nil {
			return fmt.Errorf("write org summary: %w", err)
		}
		fmt.Printf("\nOrg summary written to %s\n", btOrgPath)
	}
	return nil
}

func loadOrDefault(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func printReport(res *backtest.Result, cfg *config.Config) {
	r := res.Report
	fmt.Printf("Backtest Complete (run %s)\n", res.RunID)
	fmt.Printf("  Final Value:      %.2f %s\n", res.FinalValue, cfg.System.QuoteAsset)
	fmt.Printf("  Total Return:     %.2f%%\n", r.TotalReturnPct)
	fmt.Printf("  Annualized:       %.2f%%\n", r.AnnualizedReturnPct)
	fmt.Printf("  Sharpe Ratio:     %.2f\n", r.SharpeRatio)
	fmt.Printf("  Max Drawdown:     %.2f%%\n", r.MaxDrawdownPct)
	fmt.Printf("  Fills:            %d\n", r.TotalTrades)
	fmt.Printf("  Round Trips:      %d (%d wins, %.1f%%)\n", r.RoundTrips, r.WinningTrips, r.WinRatePct)
	fmt.Printf("  Avg Trip Return:  %.2f%%\n", r.AvgTripReturnPct)
}

func runSummary(res *backtest.Result, cfg *config.Config, dataset string) *journal.RunSummary {
	var start, end time.Time
	if len(res.States) > 0 {
		start = res.States[0].Time
		end = res.States[len(res.States)-1].Time
	}
	r := res.Report
	return &journal.RunSummary{
		RunID:               res.RunID,
		Created:             time.Now(),
		Symbol:              cfg.System.Symbol,
		Timeframe:           cfg.Backtest.Timeframe,
		Dataset:             dataset,
		Start:               start,
		End:                 end,
		InitialCapital:      res.InitialCapital,
		FinalValue:          res.FinalValue,
		TotalReturnPct:      r.TotalReturnPct,
		AnnualizedReturnPct: r.AnnualizedReturnPct,
		SharpeRatio:         r.SharpeRatio,
		MaxDrawdownPct:      r.MaxDrawdownPct,
		Trades:              r.TotalTrades,
		RoundTrips:          r.RoundTrips,
		WinningTrips:        r.WinningTrips,
		WinRatePct:          r.WinRatePct,
		AvgTripPct:          r.AvgTripReturnPct,
	}
}
