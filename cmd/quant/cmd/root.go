package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "A multi-strategy crypto trading decision and evaluation pipeline",
	Long: `Quant blends independent strategy signals into weighted trading
decisions, sizes them by conviction, gates them through risk controls,
and evaluates the whole pipeline against historical candles.

It provides tools for:
  - Backtesting the strategy blend over CSV candle data
  - Paper-trading the live decision loop against a replay feed
  - Journaling orders, trades, and equity curves (CSV or SQLite)
  - Daily-loss circuit breaking and position size limits`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var logLevel string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
}

func setupLogging() {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}
