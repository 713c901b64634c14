package strategy

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/sawpanic/backtestengine/internal/indicators"
)

func tfMinutes(tf string) (int, error) {
	if tf == "" || tf == domain.DefaultTimeframe {
		return 1, nil
	}
	m, err := strconv.Atoi(tf)
	if err != nil {
		return 0, fmt.Errorf("strategy: invalid timeframe tag %q: %w", tf, err)
	}
	return m, nil
}

// seriesAt returns the OHLCV series for a condition's own timeframe
// (aggregated on demand, memoized by the shared Store).
func seriesAt(ctx *Ctx, tf string) (*domain.BarSeries, error) {
	m, err := tfMinutes(tf)
	if err != nil {
		return nil, err
	}
	return ctx.Store.Aggregate(m)
}

// projectIfNeeded aligns a boolean vector computed on tf's own timeline
// onto the primary timeline, unless tf is already the primary.
func projectIfNeeded(ctx *Ctx, tf string, vec []bool) ([]bool, error) {
	if tf == "" || tf == domain.DefaultTimeframe {
		return vec, nil
	}
	primaryCT, err := ctx.Bank.PrimaryCloseTime()
	if err != nil {
		return nil, err
	}
	tfCT, err := ctx.Bank.TFCloseTime(tf)
	if err != nil {
		return nil, err
	}
	return indicators.AlignBool(vec, tfCT, primaryCT), nil
}

func init() {
	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.RSIKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return thresholdAbove(v, c.Param("threshold", 70)), nil
	}, "rsi_above")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.RSIKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return thresholdBelow(v, c.Param("threshold", 30)), nil
	}, "rsi_below")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.RSIKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return thresholdBelow(v, c.Param("threshold", 50)), nil
	}, "rsi_exit_below")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.RSIKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return inRange(v, c.Param("min", 30), c.Param("max", 70)), nil
	}, "rsi_in_range")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.RSIKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return crossesAbove(v, constArray(len(v), c.Param("threshold", 30))), nil
	}, "rsi_crosses_above", "rsi_cross_above")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.RSIKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return crossesBelow(v, constArray(len(v), c.Param("threshold", 70))), nil
	}, "rsi_crosses_below", "rsi_cross_below")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.ADXKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return inRange(v, c.Param("min", 20), c.Param("max", 100)), nil
	}, "adx_range", "adx_in_range")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.ADXKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return inRange(v, c.Param("min", 0), c.Param("max", 20)), nil
	}, "adx_exit_range")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.ATRKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return inRange(v, c.Param("min", 0), c.Param("max", math.MaxFloat64)), nil
	}, "atr_in_range")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 14))
		v, err := ctx.Bank.Get(indicators.ATRKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return inRange(v, c.Param("min", 0), c.Param("max", math.MaxFloat64)), nil
	}, "atr_exit_range")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		kk, _ := indicators.StochKeys(int(c.Param("k_period", 14)), int(c.Param("d_period", 3)))
		v, err := ctx.Bank.Get(kk, c.TF())
		if err != nil {
			return nil, err
		}
		return thresholdAbove(v, c.Param("threshold", 80)), nil
	}, "stoch_above")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		kk, _ := indicators.StochKeys(int(c.Param("k_period", 14)), int(c.Param("d_period", 3)))
		v, err := ctx.Bank.Get(kk, c.TF())
		if err != nil {
			return nil, err
		}
		return thresholdBelow(v, c.Param("threshold", 20)), nil
	}, "stoch_below")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		kk, dk := indicators.StochKeys(int(c.Param("k_period", 14)), int(c.Param("d_period", 3)))
		k, err := ctx.Bank.Get(kk, c.TF())
		if err != nil {
			return nil, err
		}
		d, err := ctx.Bank.Get(dk, c.TF())
		if err != nil {
			return nil, err
		}
		return crossesAbove(k, d), nil
	}, "stoch_cross_above")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		kk, dk := indicators.StochKeys(int(c.Param("k_period", 14)), int(c.Param("d_period", 3)))
		k, err := ctx.Bank.Get(kk, c.TF())
		if err != nil {
			return nil, err
		}
		d, err := ctx.Bank.Get(dk, c.TF())
		if err != nil {
			return nil, err
		}
		return crossesBelow(k, d), nil
	}, "stoch_cross_below")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		fast := int(c.Param("fast", 12))
		slow := int(c.Param("slow", 26))
		sig := int(c.Param("signal", 9))
		mk, sk, _ := indicators.MACDKeys(fast, slow, sig)
		macd, err := ctx.Bank.Get(mk, c.TF())
		if err != nil {
			return nil, err
		}
		signal, err := ctx.Bank.Get(sk, c.TF())
		if err != nil {
			return nil, err
		}
		return crossesAbove(macd, signal), nil
	}, "macd_cross_above", "macd_cross_above_signal")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		fast := int(c.Param("fast", 12))
		slow := int(c.Param("slow", 26))
		sig := int(c.Param("signal", 9))
		mk, sk, _ := indicators.MACDKeys(fast, slow, sig)
		macd, err := ctx.Bank.Get(mk, c.TF())
		if err != nil {
			return nil, err
		}
		signal, err := ctx.Bank.Get(sk, c.TF())
		if err != nil {
			return nil, err
		}
		return crossesBelow(macd, signal), nil
	}, "macd_cross_below", "macd_cross_below_signal")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		v, err := ctx.Bank.Get(indicators.SMAKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return aboveSeries(ctx.Primary.Close, v), nil
	}, "price_above_sma")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		v, err := ctx.Bank.Get(indicators.SMAKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return belowSeries(ctx.Primary.Close, v), nil
	}, "price_below_sma")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		mult := c.Param("multiple", 1.0)
		v, err := ctx.Bank.Get(indicators.SMAKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		scaled := make([]float64, len(v))
		for i, x := range v {
			scaled[i] = x * mult
		}
		return belowSeries(ctx.Primary.Close, scaled), nil
	}, "price_below_sma_multiple")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		v, err := ctx.Bank.Get(indicators.EMAKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return aboveSeries(ctx.Primary.Close, v), nil
	}, "price_above_ema")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		v, err := ctx.Bank.Get(indicators.EMAKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		return belowSeries(ctx.Primary.Close, v), nil
	}, "price_below_ema")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		mult := c.Param("multiple", 1.0)
		v, err := ctx.Bank.Get(indicators.EMAKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		scaled := make([]float64, len(v))
		for i, x := range v {
			scaled[i] = x * mult
		}
		return belowSeries(ctx.Primary.Close, scaled), nil
	}, "price_below_ema_multiple")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		uk, _, _ := indicators.BBKeys(p)
		v, err := ctx.Bank.Get(uk, c.TF())
		if err != nil {
			return nil, err
		}
		return aboveSeries(ctx.Primary.Close, v), nil
	}, "price_above_bb_upper")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		_, _, lk := indicators.BBKeys(p)
		v, err := ctx.Bank.Get(lk, c.TF())
		if err != nil {
			return nil, err
		}
		return belowSeries(ctx.Primary.Close, v), nil
	}, "price_below_bb_lower")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		mult := c.Param("multiple", 1.0)
		avg, err := ctx.Bank.Get(indicators.VolAvgKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		scaled := make([]float64, len(avg))
		for i, x := range avg {
			scaled[i] = x * mult
		}
		return aboveSeries(ctx.Primary.Volume, scaled), nil
	}, "volume_above_avg", "volume_spike")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		p := int(c.Param("period", 20))
		threshold := c.Param("threshold", 1.5)
		avg, err := ctx.Bank.Get(indicators.VolAvgKey(p), c.TF())
		if err != nil {
			return nil, err
		}
		out := make([]bool, len(avg))
		for i := range avg {
			if math.IsNaN(avg[i]) || avg[i] == 0 {
				continue
			}
			out[i] = ctx.Primary.Volume[i]/avg[i] >= threshold
		}
		return out, nil
	}, "volume_profile_ratio")

	// Stateful exit conditions need open-position context; at the vector
	// level they contribute an all-false vector. The simulator does not
	// evaluate them either.
	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		return make([]bool, ctx.Primary.Len()), nil
	}, "volume_spike_exit", "quick_profit_with_reversal")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		minTicks := c.Param("min_ticks", 0)
		out := make([]bool, ctx.Primary.Len())
		for i := range out {
			rangeTicks := (ctx.Primary.High[i] - ctx.Primary.Low[i]) / domain.TickSize
			out[i] = rangeTicks >= minTicks
		}
		return out, nil
	}, "bar_range_ticks")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		minTicks := c.Param("min_ticks", 0)
		maxTicks := c.Param("max_ticks", math.MaxFloat64)
		out := make([]bool, ctx.Primary.Len())
		for i := range out {
			rangeTicks := (ctx.Primary.High[i] - ctx.Primary.Low[i]) / domain.TickSize
			out[i] = rangeTicks >= minTicks && rangeTicks <= maxTicks
		}
		return out, nil
	}, "bar_range_ticks_range")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		minTicks := c.Param("min_ticks", 0)
		out := make([]bool, ctx.Primary.Len())
		for i := range out {
			bodyTicks := math.Abs(ctx.Primary.Close[i]-ctx.Primary.Open[i]) / domain.TickSize
			out[i] = bodyTicks >= minTicks
		}
		return out, nil
	}, "candle_body_min_ticks")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		tf := c.TF()
		series, err := seriesAt(ctx, tf)
		if err != nil {
			return nil, err
		}
		vec := make([]bool, series.Len())
		for i := range vec {
			vec[i] = isGreen(series, i)
		}
		return projectIfNeeded(ctx, tf, vec)
	}, "green_candle")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		tf := c.TF()
		series, err := seriesAt(ctx, tf)
		if err != nil {
			return nil, err
		}
		lookback := int(c.Param("lookback", 3))
		count := int(c.Param("count", lookbackDefault(lookback)))
		vec := candleCounter(series, lookback, count, func(i int) bool { return isGreen(series, i) })
		return projectIfNeeded(ctx, tf, vec)
	}, "min_green_candles")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		tf := c.TF()
		series, err := seriesAt(ctx, tf)
		if err != nil {
			return nil, err
		}
		lookback := int(c.Param("lookback", 3))
		count := int(c.Param("count", lookbackDefault(lookback)))
		vec := candleCounter(series, lookback, count, func(i int) bool { return isRed(series, i) })
		return projectIfNeeded(ctx, tf, vec)
	}, "min_red_candles")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		shortP := int(c.Param("short_period", 10))
		longP := int(c.Param("long_period", 30))
		lookback := int(c.Param("lookback", 1))
		short, err := ctx.Bank.Get(indicators.SMAKey(shortP), c.TF())
		if err != nil {
			return nil, err
		}
		long, err := ctx.Bank.Get(indicators.SMAKey(longP), c.TF())
		if err != nil {
			return nil, err
		}
		aboveEach := aboveSeries(short, long)
		n := len(aboveEach)
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			start := i - lookback + 1
			if start < 0 {
				continue
			}
			ok := true
			for j := start; j <= i; j++ {
				if !aboveEach[j] {
					ok = false
					break
				}
			}
			out[i] = ok
		}
		return out, nil
	}, "sma_short_above_long_lookback")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		value := int(c.Param("value", 0))
		out := make([]bool, ctx.Primary.Len())
		for i, t := range ctx.Primary.Time {
			out[i] = hhmm(t) == value
		}
		return out, nil
	}, "time")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		start := int(c.Param("start", 0))
		end := int(c.Param("end", 2359))
		out := make([]bool, ctx.Primary.Len())
		for i, t := range ctx.Primary.Time {
			hm := hhmm(t)
			out[i] = hm >= start && hm <= end
		}
		return out, nil
	}, "time_range")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		return dailyChangePercent(ctx.Primary, c.Param("min", -100), c.Param("max", 100)), nil
	}, "daily_change_percent", "market_change_percent_range")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		start := int(c.Param("start", 1330))
		end := int(c.Param("end", 1400))
		out := make([]bool, ctx.Primary.Len())
		for i, t := range ctx.Primary.Time {
			blocked := domain.IsFOMCDate(dateUTC(t)) && hhmm(t) >= start && hhmm(t) <= end
			out[i] = !blocked
		}
		return out, nil
	}, "fomc_hours")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		out := make([]bool, ctx.Primary.Len())
		for i := range out {
			out[i] = true
		}
		return out, nil
	}, "minutes_before_session_close", "stop_loss_ticks", "take_profit_ticks")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		minTicks := c.Param("min_ticks", 0)
		out := make([]bool, ctx.Primary.Len())
		for i := 1; i < len(out); i++ {
			rangeTicks := (ctx.Primary.High[i] - ctx.Primary.Low[i]) / domain.TickSize
			prevDir := ctx.Primary.Close[i-1] - ctx.Primary.Open[i-1]
			curDir := ctx.Primary.Close[i] - ctx.Primary.Open[i]
			reversed := (prevDir > 0 && curDir < 0) || (prevDir < 0 && curDir > 0)
			out[i] = rangeTicks >= minTicks && reversed
		}
		return out, nil
	}, "big_reverse_candle_exit")

	register(func(ctx *Ctx, c domain.Condition) ([]bool, error) {
		out := make([]bool, ctx.Primary.Len())
		for i := 1; i < len(out); i++ {
			out[i] = isGreen(ctx.Primary, i-1) && isRed(ctx.Primary, i)
		}
		return out, nil
	}, "green_red_reversal_exit")
}

func lookbackDefault(lookback int) int {
	if lookback <= 0 {
		return 0
	}
	return (lookback + 1) / 2
}

// dailyChangePercent compares each bar's close against the prior UTC day's
// last close; the first observed day is always true (no filter). Bars
// arrive in chronological order, so the previous day's closing price is
// simply the close recorded just before the UTC date changes.
func dailyChangePercent(primary *domain.BarSeries, min, max float64) []bool {
	n := primary.Len()
	out := make([]bool, n)
	if n == 0 {
		return out
	}
	curDay := dateUTC(primary.Time[0])
	prevDayClose := 0.0
	havePrevDay := false
	out[0] = true

	for i := 1; i < n; i++ {
		day := dateUTC(primary.Time[i])
		if day != curDay {
			prevDayClose = primary.Close[i-1]
			havePrevDay = true
			curDay = day
		}
		if !havePrevDay || prevDayClose == 0 {
			out[i] = true
			continue
		}
		pct := 100 * (primary.Close[i] - prevDayClose) / prevDayClose
		out[i] = pct >= min && pct <= max
	}
	return out
}
