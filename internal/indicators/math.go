// Package indicators implements the Indicator Bank (C2): array-level
// technical indicator math, a per-(key,timeframe) cache, and lookahead-free
// MTF alignment onto the primary timeline. The numerical formulas are
// generalized from the teacher's scalar, single-value functions
// (CalculateRSI, CalculateATR) into full NaN-padded arrays over the whole
// series.
package indicators

import "math"

func nanArray(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA returns the simple moving average of v over period p. Each window's
// sum is recomputed fresh rather than carried incrementally, so a NaN
// anywhere in v (e.g. another indicator's warm-up region) only poisons the
// windows that actually contain it, not every later index.
func SMA(v []float64, p int) []float64 {
	n := len(v)
	out := nanArray(n)
	if p <= 0 || n < p {
		return out
	}
	for i := p - 1; i < n; i++ {
		sum := 0.0
		for j := i - p + 1; j <= i; j++ {
			sum += v[j]
		}
		out[i] = sum / float64(p)
	}
	return out
}

// EMA returns the exponential moving average of v over period p, seeded
// with the SMA of the first p values.
func EMA(v []float64, p int) []float64 {
	n := len(v)
	out := nanArray(n)
	if p <= 0 || n < p {
		return out
	}
	sum := 0.0
	for i := 0; i < p; i++ {
		sum += v[i]
	}
	out[p-1] = sum / float64(p)
	alpha := 2.0 / float64(p+1)
	for i := p; i < n; i++ {
		out[i] = out[i-1] + alpha*(v[i]-out[i-1])
	}
	return out
}

// StdDev returns the population standard deviation of v over a trailing
// window of length p, NaN-padded like the other rolling functions.
func StdDev(v []float64, p int) []float64 {
	n := len(v)
	out := nanArray(n)
	if p <= 0 || n < p {
		return out
	}
	mean := SMA(v, p)
	for i := p - 1; i < n; i++ {
		sumSq := 0.0
		for j := i - p + 1; j <= i; j++ {
			d := v[j] - mean[i]
			sumSq += d * d
		}
		out[i] = math.Sqrt(sumSq / float64(p))
	}
	return out
}

// RSI computes Wilder-smoothed RSI over period p. Seeded at index p from
// the mean of the first p deltas; RSI=100 when the average loss is zero.
func RSI(v []float64, p int) []float64 {
	n := len(v)
	out := nanArray(n)
	if p <= 0 || n < p+1 {
		return out
	}
	gainSum, lossSum := 0.0, 0.0
	for i := 1; i <= p; i++ {
		d := v[i] - v[i-1]
		if d > 0 {
			gainSum += d
		} else {
			lossSum += -d
		}
	}
	avgGain := gainSum / float64(p)
	avgLoss := lossSum / float64(p)
	out[p] = rsiFromAvgs(avgGain, avgLoss)

	for i := p + 1; i < n; i++ {
		d := v[i] - v[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(p-1) + gain) / float64(p)
		avgLoss = (avgLoss*float64(p-1) + loss) / float64(p)
		out[i] = rsiFromAvgs(avgGain, avgLoss)
	}
	return out
}

func rsiFromAvgs(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the three derived arrays for one MACD parameterization.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes macd = EMA(fast) - EMA(slow); the signal line is the EMA of
// the MACD series computed only over its fully-defined tail (starting at
// index slow-1), then right-aligned with a NaN head to length n.
func MACD(v []float64, fast, slow, sigP int) MACDResult {
	n := len(v)
	emaFast := EMA(v, fast)
	emaSlow := EMA(v, slow)
	macd := nanArray(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(emaFast[i]) && !math.IsNaN(emaSlow[i]) {
			macd[i] = emaFast[i] - emaSlow[i]
		}
	}

	start := slow - 1
	signal := nanArray(n)
	hist := nanArray(n)
	if start >= 0 && start < n {
		tail := macd[start:]
		sigOnTail := EMA(tail, sigP)
		for i, sv := range sigOnTail {
			idx := start + i
			signal[idx] = sv
			if !math.IsNaN(sv) {
				hist[idx] = macd[idx] - sv
			}
		}
	}
	return MACDResult{MACD: macd, Signal: signal, Histogram: hist}
}

// BollingerResult holds the three Bollinger Band arrays.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes middle = SMA(v,p) and bands = middle +/- k*sigma,
// sigma the population standard deviation over the same trailing window.
func Bollinger(v []float64, p int, k float64) BollingerResult {
	n := len(v)
	middle := SMA(v, p)
	sigma := StdDev(v, p)
	upper := nanArray(n)
	lower := nanArray(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(middle[i]) && !math.IsNaN(sigma[i]) {
			upper[i] = middle[i] + k*sigma[i]
			lower[i] = middle[i] - k*sigma[i]
		}
	}
	return BollingerResult{Upper: upper, Middle: middle, Lower: lower}
}

// StochResult holds %K and %D.
type StochResult struct {
	K []float64
	D []float64
}

// Stochastic computes %K over a kp-bar window (50 on zero range) and %D as
// the SMA of %K over dp bars.
func Stochastic(high, low, close []float64, kp, dp int) StochResult {
	n := len(close)
	k := nanArray(n)
	if kp > 0 {
		for i := kp - 1; i < n; i++ {
			hh, ll := high[i-kp+1], low[i-kp+1]
			for j := i - kp + 2; j <= i; j++ {
				if high[j] > hh {
					hh = high[j]
				}
				if low[j] < ll {
					ll = low[j]
				}
			}
			rng := hh - ll
			if rng == 0 {
				k[i] = 50
			} else {
				k[i] = 100 * (close[i] - ll) / rng
			}
		}
	}
	d := SMA(k, dp)
	return StochResult{K: k, D: d}
}

// ATR computes Wilder-smoothed Average True Range over period p.
func ATR(high, low, close []float64, p int) []float64 {
	n := len(close)
	out := nanArray(n)
	if p <= 0 || n < p+1 {
		return out
	}
	tr := trueRange(high, low, close)
	sum := 0.0
	for i := 1; i <= p; i++ {
		sum += tr[i]
	}
	out[p] = sum / float64(p)
	for i := p + 1; i < n; i++ {
		out[i] = (out[i-1]*float64(p-1) + tr[i]) / float64(p)
	}
	return out
}

func trueRange(high, low, close []float64) []float64 {
	n := len(close)
	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// ADX computes the Average Directional Index over period p: +DM/-DM,
// +DI/-DI smoothed over p bars against ATR, DX, then ADX = SMA(DX,p).
func ADX(high, low, close []float64, p int) []float64 {
	n := len(close)
	out := nanArray(n)
	if p <= 0 || n < 2*p+1 {
		return out
	}
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}
	atr := ATR(high, low, close, p)
	plusDI := SMA(plusDM, p)
	minusDI := SMA(minusDM, p)
	dx := nanArray(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) || atr[i] == 0 || math.IsNaN(plusDI[i]) || math.IsNaN(minusDI[i]) {
			continue
		}
		pdi := 100 * plusDI[i] / atr[i]
		mdi := 100 * minusDI[i] / atr[i]
		sum := pdi + mdi
		if sum == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(pdi-mdi) / sum
	}
	return SMA(dx, p)
}

// CCI computes the Commodity Channel Index over period p.
func CCI(high, low, close []float64, p int) []float64 {
	n := len(close)
	out := nanArray(n)
	if p <= 0 || n < p {
		return out
	}
	tp := make([]float64, n)
	for i := 0; i < n; i++ {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	smaTP := SMA(tp, p)
	for i := p - 1; i < n; i++ {
		meanDev := 0.0
		for j := i - p + 1; j <= i; j++ {
			meanDev += math.Abs(tp[j] - smaTP[i])
		}
		meanDev /= float64(p)
		if meanDev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - smaTP[i]) / (0.015 * meanDev)
	}
	return out
}

// WilliamsR computes Williams %R over period p.
func WilliamsR(high, low, close []float64, p int) []float64 {
	n := len(close)
	out := nanArray(n)
	if p <= 0 || n < p {
		return out
	}
	for i := p - 1; i < n; i++ {
		hh, ll := high[i-p+1], low[i-p+1]
		for j := i - p + 2; j <= i; j++ {
			if high[j] > hh {
				hh = high[j]
			}
			if low[j] < ll {
				ll = low[j]
			}
		}
		rng := hh - ll
		if rng == 0 {
			out[i] = 0
			continue
		}
		out[i] = -100 * (hh - close[i]) / rng
	}
	return out
}

// VolAvg computes a moving average of volume over period p. When
// excludeCurrent is true, the average at index i covers [i-p, i-1] rather
// than [i-p+1, i]; used by exit-side volume-spike semantics.
func VolAvg(volume []float64, p int, excludeCurrent bool) []float64 {
	if !excludeCurrent {
		return SMA(volume, p)
	}
	n := len(volume)
	out := nanArray(n)
	if p <= 0 || n < p+1 {
		return out
	}
	sum := 0.0
	for i := 0; i < p; i++ {
		sum += volume[i]
	}
	for i := p; i < n; i++ {
		out[i] = sum / float64(p)
		sum += volume[i] - volume[i-p]
	}
	return out
}
