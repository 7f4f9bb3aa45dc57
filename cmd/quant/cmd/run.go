package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/exec"
	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/live"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/risk"
	qsignal "github.com/rustyeddy/quant/signal"
	"github.com/rustyeddy/quant/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Paper-trade the live decision loop over a replay feed",
	Long: `Run drives the full decide-and-execute pipeline: risk governor,
guarded market data, strategy blend, sizing, and gated order
submission. Orders fill against a simulated book at replay prices.

Example:
  quant run -candles data/doge_1h.csv -config quant.yaml`,
	RunE: runRun,
}

var (
	runCandlesPath string
	runConfigPath  string
	runMetricsAddr string
	runRealtime    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runCandlesPath, "candles", "c", "", "path to candle CSV replay feed (required)")
	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON), defaults when omitted")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().BoolVar(&runRealtime, "realtime", false, "pace cycles by the configured check interval instead of replaying as fast as possible")

	runCmd.MarkFlagRequired("candles")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadOrDefault(runConfigPath)
	if err != nil {
		return err
	}

	candles, err := market.LoadCSV(runCandlesPath)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}

	j, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	book := live.NewPaperBook(candles,
		cfg.System.BaseAsset, cfg.System.QuoteAsset, cfg.Backtest.InitialCapital)

	guarded := market.NewGuarded(book, market.DefaultGuardConfig())
	account := market.Account{
		Guard:      guarded,
		BaseAsset:  cfg.System.BaseAsset,
		QuoteAsset: cfg.System.QuoteAsset,
	}
	governor := risk.NewGovernor(cfg.Risk, account)

	minInterval, err := cfg.Execution.Interval()
	if err != nil {
		return fmt.Errorf("min order interval: %w", err)
	}
	gateway := exec.NewGateway(book, governor, minInterval, j)

	producers, err := strategies.FromConfig(cfg, strategies.Deps{Positions: book})
	if err != nil {
		return fmt.Errorf("build strategies: %w", err)
	}
	aggregator := qsignal.NewAggregator(cfg.Weights, cfg.System.SignalThreshold)

	runner, err := live.NewRunner(cfg, guarded, producers, aggregator, governor, gateway)
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	if runMetricsAddr != "" {
		go serveMetrics(runMetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Paper trading %s over %s (%d bars)\n\n", cfg.System.Symbol, runCandlesPath, len(candles))

	if runRealtime {
		err = runner.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	} else {
		err = replay(ctx, runner, book)
	}
	if err != nil {
		return err
	}

	printSession(ctx, cfg, book, gateway, runner)
	return nil
}

// replay advances the book one bar per cycle until the feed runs out or
// the context is canceled.
func replay(ctx context.Context, runner *live.Runner, book *live.PaperBook) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		runner.Cycle(ctx)
		if !book.Advance() {
			return nil
		}
	}
}

func printSession(ctx context.Context, cfg *config.Config, book *live.PaperBook, gateway *exec.Gateway, runner *live.Runner) {
	base, _ := book.Balance(ctx, cfg.System.BaseAsset)
	quote, _ := book.Balance(ctx, cfg.System.QuoteAsset)
	price, _ := book.CurrentPrice(ctx)

	orders := gateway.Ledger().Snapshot()
	var filled int
	for _, o := range orders {
		if o.Status == exec.StatusSuccess {
			filled++
		}
	}

	fmt.Printf("\nSession Complete\n")
	fmt.Printf("  Cycles:     %d\n", runner.Cycles())
	fmt.Printf("  Orders:     %d (%d filled)\n", len(orders), filled)
	fmt.Printf("  Position:   %.4f %s\n", base, cfg.System.BaseAsset)
	fmt.Printf("  Cash:       %.2f %s\n", quote, cfg.System.QuoteAsset)
	fmt.Printf("  Book Value: %.2f %s\n", quote+base*price, cfg.System.QuoteAsset)
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.OrdersFile, cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	default:
		return journal.Nop{}, nil
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
