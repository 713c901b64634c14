package backtest

import (
	"testing"

	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestEmptySeriesYieldsEmptyResult(t *testing.T) {
	res := Run(Inputs{Primary: &domain.BarSeries{}})
	require.Equal(t, 0, res.TotalTrades)
	require.Equal(t, 0.0, res.WinRate)
	require.Equal(t, 0.0, res.TotalProfit)
}

func TestImmediateExitStopLoss(t *testing.T) {
	// S2: close=[100,101,99], open=[100,100,100], high=[101,101,99],
	// low=[99,99,98], entry at bar1 open=100, stop at 99 via
	// sl_ticks=4 (4*0.25=1 => 100-1=99); bar2 low=98<=99, open=100>99.
	series := &domain.BarSeries{
		Time:   []int64{0, 60, 120},
		Open:   []float64{100, 100, 100},
		High:   []float64{101, 101, 99},
		Low:    []float64{99, 99, 98},
		Close:  []float64{100, 101, 99},
		Volume: []float64{1, 1, 1},
	}
	entry := []bool{true, false, false}
	exit := []bool{false, false, false}

	res := Run(Inputs{Primary: series, EntrySignals: entry, ExitSignals: exit, SLTicks: 4, HasSL: true, TPTicks: 8, HasTP: true})
	require.Equal(t, 1, res.TotalTrades)
	tr := res.Trades[0]
	require.Equal(t, 1, tr.EntryIdx)
	require.Equal(t, 2, tr.ExitIdx)
	require.Equal(t, 100.0, tr.EntryPrice)
	require.InDelta(t, 99.0, tr.ExitPrice, 1e-9)
	require.Equal(t, domain.ExitStopLoss, tr.ExitReason)
	require.InDelta(t, -1.0, tr.Profit, 1e-9)
}

func TestGapThroughStop(t *testing.T) {
	// S3: identical to S2 but open[2]=98, so fill at 98 (gap).
	series := &domain.BarSeries{
		Time:   []int64{0, 60, 120},
		Open:   []float64{100, 100, 98},
		High:   []float64{101, 101, 99},
		Low:    []float64{99, 99, 98},
		Close:  []float64{100, 101, 99},
		Volume: []float64{1, 1, 1},
	}
	entry := []bool{true, false, false}
	exit := []bool{false, false, false}

	res := Run(Inputs{Primary: series, EntrySignals: entry, ExitSignals: exit, SLTicks: 4, HasSL: true, TPTicks: 8, HasTP: true})
	require.Equal(t, 1, res.TotalTrades)
	tr := res.Trades[0]
	require.InDelta(t, 98.0, tr.ExitPrice, 1e-9)
	require.Equal(t, domain.ExitStopLossGap, tr.ExitReason)
	require.InDelta(t, -2.0, tr.Profit, 1e-9)
}

func TestTakeProfitStrictInequality(t *testing.T) {
	// TP price 108; high=108 exactly does not fill (needs strict >);
	// high=108.25 on the next bar fills at 108.
	series := &domain.BarSeries{
		Time:   []int64{0, 60, 120, 180},
		Open:   []float64{100, 100, 100, 100},
		High:   []float64{101, 101, 108, 108.25},
		Low:    []float64{99, 99, 99, 99},
		Close:  []float64{100, 100, 100, 100},
		Volume: []float64{1, 1, 1, 1},
	}
	entry := []bool{true, false, false, false}
	exit := []bool{false, false, false, false}
	// entry_price=100 (open of bar1), tp_ticks such that tp_price=108.
	tpTicks := (108.0 - 100.0) / domain.TickSize

	res := Run(Inputs{Primary: series, EntrySignals: entry, ExitSignals: exit, TPTicks: tpTicks, HasTP: true})
	require.Equal(t, 1, res.TotalTrades)
	tr := res.Trades[0]
	require.Equal(t, 3, tr.ExitIdx)
	require.InDelta(t, 108.0, tr.ExitPrice, 1e-9)
	require.Equal(t, domain.ExitTakeProfit, tr.ExitReason)
}

func TestSessionEndClosesOpenPosition(t *testing.T) {
	series := &domain.BarSeries{
		Time:   []int64{0, 60, 120},
		Open:   []float64{100, 100, 100},
		High:   []float64{101, 101, 101},
		Low:    []float64{99, 99, 99},
		Close:  []float64{100, 100, 105},
		Volume: []float64{1, 1, 1},
	}
	entry := []bool{true, false, false}
	exit := []bool{false, false, false}

	res := Run(Inputs{Primary: series, EntrySignals: entry, ExitSignals: exit})
	require.Equal(t, 1, res.TotalTrades)
	tr := res.Trades[0]
	require.Equal(t, domain.ExitSessionEnd, tr.ExitReason)
	require.Equal(t, 2, tr.ExitIdx)
	require.InDelta(t, 5.0, tr.Profit, 1e-9)
}

func TestTradeListIsStrictlyMonotonic(t *testing.T) {
	series := &domain.BarSeries{
		Time:   []int64{0, 60, 120, 180, 240, 300},
		Open:   []float64{100, 100, 100, 100, 100, 100},
		High:   []float64{101, 101, 101, 101, 101, 101},
		Low:    []float64{99, 99, 99, 99, 99, 99},
		Close:  []float64{100, 100, 100, 100, 100, 100},
		Volume: []float64{1, 1, 1, 1, 1, 1},
	}
	entry := []bool{true, false, true, false, false, false}
	exit := []bool{false, true, false, true, false, false}

	res := Run(Inputs{Primary: series, EntrySignals: entry, ExitSignals: exit})
	for k := 0; k < len(res.Trades); k++ {
		require.LessOrEqual(t, res.Trades[k].EntryIdx, res.Trades[k].ExitIdx)
		if k+1 < len(res.Trades) {
			require.LessOrEqual(t, res.Trades[k].ExitIdx, res.Trades[k+1].EntryIdx)
		}
	}
}

func TestSumProfitsEqualsTotalProfit(t *testing.T) {
	series := &domain.BarSeries{
		Time:   []int64{0, 60, 120, 180, 240, 300},
		Open:   []float64{100, 100, 102, 100, 100, 100},
		High:   []float64{101, 101, 103, 101, 101, 101},
		Low:    []float64{99, 99, 101, 99, 99, 99},
		Close:  []float64{100, 102, 103, 100, 100, 100},
		Volume: []float64{1, 1, 1, 1, 1, 1},
	}
	entry := []bool{true, false, true, false, false, false}
	exit := []bool{false, true, false, true, false, false}

	res := Run(Inputs{Primary: series, EntrySignals: entry, ExitSignals: exit})
	var sum float64
	for _, tr := range res.Trades {
		sum += tr.Profit
	}
	require.InDelta(t, res.TotalProfit, sum, 1e-9)
}
