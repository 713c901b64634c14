package optimize

import (
	"runtime"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/sawpanic/backtestengine/internal/asyncpool"
	"github.com/sawpanic/backtestengine/internal/backtest"
	"github.com/sawpanic/backtestengine/internal/bars"
	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/sawpanic/backtestengine/internal/indicators"
	"github.com/sawpanic/backtestengine/internal/strategy"
)

// progressRateLimit caps progress-tick emission to a few logs/sec
// regardless of worker count or combination-count-derived cadence.
const progressRateLimit = 5

// Result pairs one combination's applied parameters with its backtest
// result.
type Result struct {
	Params map[string]float64
	Result domain.Result
}

// ProgressFunc is invoked approximately every max(1,total/10) combinations
// or every 100, whichever fires first.
type ProgressFunc func(processed, total int, elapsed time.Duration)

// Options configures one sweep.
type Options struct {
	MaxWorkers int
	Progress   ProgressFunc
}

// Run enumerates the Cartesian product of ranges, runs C3+C4 for every
// combination against the shared, read-only bar store and indicator bank,
// and returns every result sorted by descending total profit. Truncation
// to a top-N is an external-API concern left to the caller.
func Run(store *bars.Store, bank *indicators.Bank, base domain.Strategy, ranges map[string]ParamRange, opts Options) []Result {
	combos := Enumerate(ranges)
	total := len(combos)
	if total == 0 {
		return nil
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers > 6 {
		maxWorkers = 6
	}

	tickEvery := total / 10
	if tickEvery < 1 {
		tickEvery = 1
	}
	if tickEvery > 100 {
		tickEvery = 100
	}

	start := time.Now()
	var onDone func(completed, total int)
	if opts.Progress != nil {
		limiter := rate.NewLimiter(rate.Limit(progressRateLimit), 1)
		onDone = func(completed, total int) {
			last := completed == total
			if (completed%tickEvery == 0 && limiter.Allow()) || last {
				opts.Progress(completed, total, time.Since(start))
			}
		}
	}

	primary := store.Primary()
	raw := asyncpool.Run(combos, maxWorkers, func(params map[string]float64) Result {
		return runOne(primary, store, bank, base, params)
	}, onDone)

	sort.SliceStable(raw, func(i, j int) bool {
		return raw[i].Result.TotalProfit > raw[j].Result.TotalProfit
	})
	return raw
}

func runOne(primary *domain.BarSeries, store *bars.Store, bank *indicators.Bank, base domain.Strategy, params map[string]float64) Result {
	strat := Apply(base, params)
	ctx := &strategy.Ctx{Primary: primary, Store: store, Bank: bank}

	entrySignals, err := strategy.EntrySignal(ctx, strat)
	if err != nil {
		return Result{Params: params, Result: domain.Result{}}
	}
	exitSignals, err := strategy.ExitSignal(ctx, strat)
	if err != nil {
		return Result{Params: params, Result: domain.Result{}}
	}
	slTicks, hasSL, tpTicks, hasTP := strategy.SLTPTicks(strat)

	res := backtest.Run(backtest.Inputs{
		Primary:      primary,
		EntrySignals: entrySignals,
		ExitSignals:  exitSignals,
		SLTicks:      slTicks,
		HasSL:        hasSL,
		TPTicks:      tpTicks,
		HasTP:        hasTP,
	})
	return Result{Params: params, Result: res}
}

// Truncate returns the first n results (the external API's top-N
// contract); dropped is the count of entries not returned.
func Truncate(results []Result, n int) (kept []Result, dropped int) {
	if n <= 0 || len(results) <= n {
		return results, 0
	}
	return results[:n], len(results) - n
}
