package indicators

import (
	"math"
	"testing"

	"github.com/sawpanic/backtestengine/internal/bars"
	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/stretchr/testify/require"
)

func tenMinuteSeries() *domain.BarSeries {
	s := &domain.BarSeries{}
	for i := 0; i < 10; i++ {
		t := int64(i * 60)
		s.Time = append(s.Time, t)
		s.Open = append(s.Open, float64(100+i))
		s.High = append(s.High, float64(101+i))
		s.Low = append(s.Low, float64(99+i))
		s.Close = append(s.Close, float64(100+i))
		s.Volume = append(s.Volume, 10)
	}
	return s
}

func TestMTFAlignmentNoLookahead(t *testing.T) {
	// 10 one-minute bars, aggregated at 5 minutes into two buckets:
	// bars 0-4 close at t=300 (start of bar 5), bars 5-9 close at t=600.
	series := tenMinuteSeries()
	store := bars.NewStore(series)
	bank := NewBank(store)

	require.NoError(t, bank.Ensure("sma_1", "5"))
	aligned, err := bank.Get("sma_1", "5")
	require.NoError(t, err)
	require.Len(t, aligned, 10)

	// The first 5-min bucket (covering primary bars 0-4) only closes at
	// primary bar index 5's open, i.e. becomes visible from bar 5 onward.
	for i := 0; i < 5; i++ {
		require.True(t, math.IsNaN(aligned[i]), "bar %d should not see unclosed bucket", i)
	}
	for i := 5; i < 10; i++ {
		require.False(t, math.IsNaN(aligned[i]), "bar %d should see closed bucket", i)
	}
}

func TestRequiredInfersMACDTriple(t *testing.T) {
	strat := domain.Strategy{
		EntryConditions: []domain.Condition{
			{ID: "macd_cross_above", Enabled: true, Params: map[string]float64{"fast": 12, "slow": 26, "signal": 9}},
		},
	}
	req := Required(strat)
	require.Len(t, req, 3)
}

func TestRequiredSkipsDisabled(t *testing.T) {
	strat := domain.Strategy{
		EntryConditions: []domain.Condition{
			{ID: "rsi_above", Enabled: false, Params: map[string]float64{"period": 14}},
		},
	}
	require.Empty(t, Required(strat))
}

func TestGetOnPrimaryTimeframeIsIdentity(t *testing.T) {
	series := tenMinuteSeries()
	store := bars.NewStore(series)
	bank := NewBank(store)
	require.NoError(t, bank.Ensure("rsi_3", domain.DefaultTimeframe))
	raw := bank.Raw("rsi_3", domain.DefaultTimeframe)
	aligned, err := bank.Get("rsi_3", domain.DefaultTimeframe)
	require.NoError(t, err)
	require.Equal(t, raw, aligned)
}
