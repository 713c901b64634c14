// Package backtest implements the Trade Simulator (C4): a sequential,
// single-position state machine consuming entry/exit boolean vectors plus
// SL/TP parameters, emitting a chronologically ordered trade list and
// summary statistics.
//
// Precedence is grounded on the teacher's exit-reason-ordered evaluation
// (internal/exits/logic.go's ExitReason iota + strictly-ordered
// EvaluateExit chain), generalized from the teacher's discretionary-exit
// taxonomy to the reference platform's stop/target/signal/session-end
// taxonomy named in the spec.
package backtest

import (
	"github.com/sawpanic/backtestengine/internal/domain"
)

// Inputs bundles everything the simulator needs for one backtest run.
type Inputs struct {
	Primary       *domain.BarSeries
	EntrySignals  []bool
	ExitSignals   []bool
	SLTicks       float64
	HasSL         bool
	TPTicks       float64
	HasTP         bool
}

type position struct {
	inTrade    bool
	entryIdx   int
	entryPrice float64
	slPrice    float64
	tpPrice    float64
}

// Run executes the per-bar state machine over the whole primary series and
// returns the closed trade list plus its summary statistics.
func Run(in Inputs) domain.Result {
	n := in.Primary.Len()
	var trades []domain.Trade
	var pos position

	closeTrade := func(i int, price float64, reason domain.ExitReason) {
		t := domain.Trade{
			EntryIdx:   pos.entryIdx,
			ExitIdx:    i,
			EntryPrice: pos.entryPrice,
			ExitPrice:  price,
			EntryTime:  in.Primary.Time[pos.entryIdx],
			ExitTime:   in.Primary.Time[i],
			Profit:     price - pos.entryPrice,
			ExitReason: reason,
		}
		trades = append(trades, t)
		pos = position{}
	}

	for i := 0; i < n; i++ {
		intrabarExited := false

		if pos.inTrade {
			// 1-2. Intrabar stop/target checks only apply from the bar after
			// the fill bar: the entry itself fills at that bar's open, so
			// that same bar's high/low cannot be used to stop/target out of
			// a position that didn't exist yet when the bar's range formed.
			if i > pos.entryIdx {
				low, high, open := in.Primary.Low[i], in.Primary.High[i], in.Primary.Open[i]

				// 1. Intrabar stop check (pessimistic: stop wins over target).
				if in.HasSL && low <= pos.slPrice {
					if open <= pos.slPrice {
						closeTrade(i, open, domain.ExitStopLossGap)
					} else {
						closeTrade(i, pos.slPrice, domain.ExitStopLoss)
					}
					intrabarExited = true
				} else if in.HasTP && high > pos.tpPrice {
					// 2. Intrabar target check (strict inequality), only if
					// the stop did not already trigger this bar.
					if open >= pos.tpPrice {
						closeTrade(i, open, domain.ExitTakeProfitGap)
					} else {
						closeTrade(i, pos.tpPrice, domain.ExitTakeProfit)
					}
					intrabarExited = true
				}
			}

			// 3. Signal exit, only if still in trade after 1-2. The fill
			// bar's close happens strictly after its own open, so a signal
			// exit can legitimately fire on the entry bar itself.
			if pos.inTrade && i < len(in.ExitSignals) && in.ExitSignals[i] {
				closeTrade(i, in.Primary.Close[i], domain.ExitSignal)
			}
		}

		// 4. Entry: only when flat. Only an intrabar (stop/target) exit on
		// this same bar suppresses re-entry on the same bar; a signal or
		// session-end exit does not (the spec calls out the skip
		// explicitly only for the intrabar-exit case).
		if !pos.inTrade && !intrabarExited && i < len(in.EntrySignals) && in.EntrySignals[i] && i+1 < n {
			entryIdx := i + 1
			entryPrice := in.Primary.Open[entryIdx]
			pos = position{
				inTrade:    true,
				entryIdx:   entryIdx,
				entryPrice: entryPrice,
			}
			if in.HasSL {
				pos.slPrice = entryPrice - in.SLTicks*domain.TickSize
			}
			if in.HasTP {
				pos.tpPrice = entryPrice + in.TPTicks*domain.TickSize
			}
		}
	}

	if pos.inTrade && n > 0 {
		closeTrade(n-1, in.Primary.Close[n-1], domain.ExitSessionEnd)
	}

	return Summarize(trades)
}
