package strategy

import (
	"testing"

	"github.com/sawpanic/backtestengine/internal/bars"
	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/sawpanic/backtestengine/internal/indicators"
	"github.com/stretchr/testify/require"
)

func basicSeries() *domain.BarSeries {
	s := &domain.BarSeries{}
	for i := 0; i < 6; i++ {
		t := int64(i * 60)
		s.Time = append(s.Time, t)
		s.Open = append(s.Open, 100)
		s.High = append(s.High, 101)
		s.Low = append(s.Low, 99)
		s.Close = append(s.Close, 100+float64(i))
		s.Volume = append(s.Volume, 10)
	}
	return s
}

func newCtx(series *domain.BarSeries) *Ctx {
	store := bars.NewStore(series)
	bank := indicators.NewBank(store)
	return &Ctx{Primary: series, Store: store, Bank: bank}
}

func TestEmptyEntryConditionsYieldsAllFalse(t *testing.T) {
	series := basicSeries()
	ctx := newCtx(series)
	vec, err := EntrySignal(ctx, domain.Strategy{})
	require.NoError(t, err)
	for _, v := range vec {
		require.False(t, v)
	}
}

func TestGreenCandleCondition(t *testing.T) {
	series := basicSeries()
	ctx := newCtx(series)
	cond := domain.Condition{ID: "green_candle", Enabled: true}
	vec, err := Evaluate(ctx, cond)
	require.NoError(t, err)
	for i, v := range vec {
		require.Equal(t, series.Close[i] > series.Open[i], v)
	}
}

func TestUnknownConditionIDIsAllFalse(t *testing.T) {
	series := basicSeries()
	ctx := newCtx(series)
	vec, err := Evaluate(ctx, domain.Condition{ID: "not_a_real_condition", Enabled: true})
	require.NoError(t, err)
	for _, v := range vec {
		require.False(t, v)
	}
}

func TestANDCompositionIsCommutativeAndIdempotent(t *testing.T) {
	series := basicSeries()
	ctx := newCtx(series)
	a := domain.Condition{ID: "green_candle", Enabled: true}
	b := domain.Condition{ID: "time_range", Enabled: true, Params: map[string]float64{"start": 0, "end": 2359}}

	strat1 := domain.Strategy{EntryConditions: []domain.Condition{a, b}}
	strat2 := domain.Strategy{EntryConditions: []domain.Condition{b, a}}

	v1, err := EntrySignal(ctx, strat1)
	require.NoError(t, err)
	v2, err := EntrySignal(ctx, strat2)
	require.NoError(t, err)
	require.Equal(t, v1, v2)
}

func TestTimeRangeCondition(t *testing.T) {
	series := basicSeries()
	ctx := newCtx(series)
	require.NoError(t, ctx.Bank.Warm(domain.Strategy{}))
	cond := domain.Condition{ID: "time_range", Enabled: true, Params: map[string]float64{"start": 0, "end": 3}}
	vec, err := Evaluate(ctx, cond)
	require.NoError(t, err)
	require.True(t, vec[0])
}

func TestStopLossTicksContributesNothing(t *testing.T) {
	series := basicSeries()
	ctx := newCtx(series)
	strat := domain.Strategy{
		ExitConditions: []domain.Condition{
			{ID: "stop_loss_ticks", Enabled: true, Params: map[string]float64{"ticks": 4}},
		},
	}
	vec, err := ExitSignal(ctx, strat)
	require.NoError(t, err)
	for _, v := range vec {
		require.False(t, v)
	}
	sl, hasSL, _, hasTP := SLTPTicks(strat)
	require.True(t, hasSL)
	require.False(t, hasTP)
	require.Equal(t, 4.0, sl)
}
