// Command backtestengine runs backtests and parameter sweeps over intraday
// OHLCV bar data, either standalone from a CSV file or as a thin HTTP
// service. Grounded on the teacher's cmd/cryptorun/main.go cobra root
// command plus its cprotocol/main.go zerolog console-writer setup.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/backtestengine/internal/apierr"
	"github.com/sawpanic/backtestengine/internal/backtest"
	"github.com/sawpanic/backtestengine/internal/bars"
	"github.com/sawpanic/backtestengine/internal/config"
	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/sawpanic/backtestengine/internal/httpapi"
	"github.com/sawpanic/backtestengine/internal/indicators"
	"github.com/sawpanic/backtestengine/internal/ingest"
	"github.com/sawpanic/backtestengine/internal/metrics"
	"github.com/sawpanic/backtestengine/internal/optimize"
	"github.com/sawpanic/backtestengine/internal/strategy"
)

var (
	barsPath     string
	strategyPath string
	rangesPath   string
	configPath   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "backtestengine",
	Short: "Intraday OHLCV backtesting and parameter-optimization engine",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = time.RFC3339
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a single backtest against a bar CSV and a strategy JSON file",
	RunE:  runBacktest,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run a parameter sweep against a bar CSV, strategy, and range JSON files",
	RunE:  runOptimize,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP front-end (POST /bars, /backtest, /optimize)",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to engine config YAML (optional)")

	backtestCmd.Flags().StringVar(&barsPath, "bars", "", "path to bar CSV")
	backtestCmd.Flags().StringVar(&strategyPath, "strategy", "", "path to strategy JSON")
	_ = backtestCmd.MarkFlagRequired("bars")
	_ = backtestCmd.MarkFlagRequired("strategy")

	optimizeCmd.Flags().StringVar(&barsPath, "bars", "", "path to bar CSV")
	optimizeCmd.Flags().StringVar(&strategyPath, "strategy", "", "path to base strategy JSON")
	optimizeCmd.Flags().StringVar(&rangesPath, "ranges", "", "path to optimization ranges JSON")
	_ = optimizeCmd.MarkFlagRequired("bars")
	_ = optimizeCmd.MarkFlagRequired("strategy")
	_ = optimizeCmd.MarkFlagRequired("ranges")

	rootCmd.AddCommand(backtestCmd, optimizeCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadEngineConfig() config.EngineConfig {
	if configPath == "" {
		return config.Default()
	}
	c, err := config.Load(configPath)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
		return config.Default()
	}
	return *c
}

func loadBars(path string) (*bars.Store, *indicators.Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.CodeMalformedRequest, "opening bar file", err)
	}
	defer f.Close()
	series, err := ingest.FromCSV(f)
	if err != nil {
		return nil, nil, err
	}
	store := bars.NewStore(series)
	return store, indicators.NewBank(store), nil
}

func loadStrategy(path string) (domain.Strategy, error) {
	var s domain.Strategy
	b, err := os.ReadFile(path)
	if err != nil {
		return s, apierr.Wrap(apierr.CodeMalformedRequest, "reading strategy file", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, apierr.Wrap(apierr.CodeMalformedRequest, "parsing strategy JSON", err)
	}
	return s, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	store, bank, err := loadBars(barsPath)
	if err != nil {
		return err
	}
	strat, err := loadStrategy(strategyPath)
	if err != nil {
		return err
	}
	if err := bank.Warm(strat); err != nil {
		return fmt.Errorf("warming indicator bank: %w", err)
	}

	ctx := &strategy.Ctx{Primary: store.Primary(), Store: store, Bank: bank}
	entry, err := strategy.EntrySignal(ctx, strat)
	if err != nil {
		return fmt.Errorf("evaluating entry conditions: %w", err)
	}
	exit, err := strategy.ExitSignal(ctx, strat)
	if err != nil {
		return fmt.Errorf("evaluating exit conditions: %w", err)
	}
	slTicks, hasSL, tpTicks, hasTP := strategy.SLTPTicks(strat)

	res := backtest.Run(backtest.Inputs{
		Primary:      store.Primary(),
		EntrySignals: entry,
		ExitSignals:  exit,
		SLTicks:      slTicks,
		HasSL:        hasSL,
		TPTicks:      tpTicks,
		HasTP:        hasTP,
	})
	return json.NewEncoder(os.Stdout).Encode(res)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	store, bank, err := loadBars(barsPath)
	if err != nil {
		return err
	}
	strat, err := loadStrategy(strategyPath)
	if err != nil {
		return err
	}
	rangesBytes, err := os.ReadFile(rangesPath)
	if err != nil {
		return apierr.Wrap(apierr.CodeMalformedRequest, "reading ranges file", err)
	}
	var ranges map[string]optimize.ParamRange
	if err := json.Unmarshal(rangesBytes, &ranges); err != nil {
		return apierr.Wrap(apierr.CodeMalformedRequest, "parsing ranges JSON", err)
	}
	if err := bank.Warm(strat); err != nil {
		return fmt.Errorf("warming indicator bank: %w", err)
	}

	cfg := loadEngineConfig()
	results := optimize.Run(store, bank, strat, ranges, optimize.Options{
		MaxWorkers: cfg.Optimizer.MaxWorkers,
		Progress: func(processed, total int, elapsed time.Duration) {
			log.Info().Int("processed", processed).Int("total", total).Dur("elapsed", elapsed).Msg("optimize progress")
		},
	})
	kept, dropped := optimize.Truncate(results, topNResults)
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("optimize results truncated")
	}
	return json.NewEncoder(os.Stdout).Encode(kept)
}

// topNResults is the external API's ranked-result cap; the coordinator
// itself (internal/optimize) always returns every combination.
const topNResults = 50

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadEngineConfig()
	reg := metrics.New()
	srv := httpapi.NewServer(httpapi.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}, reg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
