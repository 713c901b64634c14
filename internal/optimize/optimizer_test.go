package optimize

import (
	"testing"
	"time"

	"github.com/sawpanic/backtestengine/internal/bars"
	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/sawpanic/backtestengine/internal/indicators"
	"github.com/stretchr/testify/require"
)

func sweepSeries() *domain.BarSeries {
	n := 40
	s := &domain.BarSeries{
		Time:   make([]int64, n),
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	price := 100.0
	for i := 0; i < n; i++ {
		s.Time[i] = int64(i * 60)
		s.Open[i] = price
		s.High[i] = price + 2
		s.Low[i] = price - 2
		if i%3 == 0 {
			price += 1.5
		} else {
			price -= 0.5
		}
		s.Close[i] = price
		s.Volume[i] = 100
	}
	return s
}

func baseStrategy() domain.Strategy {
	return domain.Strategy{
		EntryConditions: []domain.Condition{
			{ID: "rsi_below", Params: map[string]float64{"period": 14, "value": 60}, Enabled: true},
		},
		ExitConditions: []domain.Condition{
			{ID: "stop_loss_ticks", Params: map[string]float64{"ticks": 4}, Enabled: true},
			{ID: "take_profit_ticks", Params: map[string]float64{"ticks": 8}, Enabled: true},
		},
	}
}

func TestEmptyRangesYieldsNoResults(t *testing.T) {
	store := bars.NewStore(sweepSeries())
	bank := indicators.NewBank(store)
	out := Run(store, bank, baseStrategy(), map[string]ParamRange{}, Options{})
	require.Empty(t, out)
}

func TestResultsAreProfitDescending(t *testing.T) {
	store := bars.NewStore(sweepSeries())
	bank := indicators.NewBank(store)
	ranges := map[string]ParamRange{
		"entry_0_value": {Min: 40, Max: 70, Step: 10},
		"exit_0_ticks":  {Min: 2, Max: 6, Step: 2},
	}
	out := Run(store, bank, baseStrategy(), ranges, Options{MaxWorkers: 4})
	require.NotEmpty(t, out)
	for i := 1; i < len(out); i++ {
		require.GreaterOrEqual(t, out[i-1].Result.TotalProfit, out[i].Result.TotalProfit)
	}
}

func TestDeterministicAcrossWorkerCounts(t *testing.T) {
	store := bars.NewStore(sweepSeries())
	bank := indicators.NewBank(store)
	ranges := map[string]ParamRange{
		"entry_0_value": {Min: 40, Max: 70, Step: 10},
		"exit_0_ticks":  {Min: 2, Max: 6, Step: 2},
	}

	one := Run(store, bank, baseStrategy(), ranges, Options{MaxWorkers: 1})
	many := Run(store, bank, baseStrategy(), ranges, Options{MaxWorkers: 6})

	require.Equal(t, len(one), len(many))
	for i := range one {
		require.Equal(t, one[i].Params, many[i].Params)
		require.InDelta(t, one[i].Result.TotalProfit, many[i].Result.TotalProfit, 1e-9)
	}
}

func TestProgressCallbackFiresAndReachesTotal(t *testing.T) {
	store := bars.NewStore(sweepSeries())
	bank := indicators.NewBank(store)
	ranges := map[string]ParamRange{
		"entry_0_value": {Min: 40, Max: 90, Step: 10},
	}

	var lastProcessed, lastTotal int
	calls := 0
	out := Run(store, bank, baseStrategy(), ranges, Options{
		MaxWorkers: 2,
		Progress: func(processed, total int, _ time.Duration) {
			calls++
			lastProcessed, lastTotal = processed, total
		},
	})

	require.NotEmpty(t, out)
	require.Positive(t, calls)
	require.Equal(t, len(out), lastTotal)
	require.Equal(t, lastTotal, lastProcessed)
}

func TestTruncateCapsResultsAndReportsDropped(t *testing.T) {
	results := make([]Result, 5)
	for i := range results {
		results[i] = Result{Params: map[string]float64{"x": float64(i)}}
	}
	kept, dropped := Truncate(results, 2)
	require.Len(t, kept, 2)
	require.Equal(t, 3, dropped)

	kept, dropped = Truncate(results, 10)
	require.Len(t, kept, 5)
	require.Equal(t, 0, dropped)
}
