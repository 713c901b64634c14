package strategy

import (
	"math"
	"time"

	"github.com/sawpanic/backtestengine/internal/domain"
)

func thresholdAbove(v []float64, threshold float64) []bool {
	out := make([]bool, len(v))
	for i, x := range v {
		out[i] = !math.IsNaN(x) && x > threshold
	}
	return out
}

func thresholdBelow(v []float64, threshold float64) []bool {
	out := make([]bool, len(v))
	for i, x := range v {
		out[i] = !math.IsNaN(x) && x < threshold
	}
	return out
}

func inRange(v []float64, lo, hi float64) []bool {
	out := make([]bool, len(v))
	for i, x := range v {
		out[i] = !math.IsNaN(x) && x >= lo && x <= hi
	}
	return out
}

func aboveSeries(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = !math.IsNaN(a[i]) && !math.IsNaN(b[i]) && a[i] > b[i]
	}
	return out
}

func belowSeries(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = !math.IsNaN(a[i]) && !math.IsNaN(b[i]) && a[i] < b[i]
	}
	return out
}

// crossesAbove: a[i-1] <= b[i-1] && a[i] > b[i]; result[0] is always false.
func crossesAbove(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a); i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) || math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) {
			continue
		}
		out[i] = a[i-1] <= b[i-1] && a[i] > b[i]
	}
	return out
}

// crossesBelow: a[i-1] >= b[i-1] && a[i] < b[i]; result[0] is always false.
func crossesBelow(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a); i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) || math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) {
			continue
		}
		out[i] = a[i-1] >= b[i-1] && a[i] < b[i]
	}
	return out
}

func constArray(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func hhmm(t int64) int {
	tm := time.Unix(t, 0).UTC()
	return tm.Hour()*100 + tm.Minute()
}

func dateUTC(t int64) string {
	return time.Unix(t, 0).UTC().Format("2006-01-02")
}

// candleCounter reports, for each bar i, whether at least `count` of the
// last `lookback` bars (inclusive of i) satisfy pred.
func candleCounter(primary *domain.BarSeries, lookback, count int, pred func(i int) bool) []bool {
	n := primary.Len()
	out := make([]bool, n)
	if lookback <= 0 {
		return out
	}
	for i := 0; i < n; i++ {
		start := i - lookback + 1
		if start < 0 {
			continue
		}
		c := 0
		for j := start; j <= i; j++ {
			if pred(j) {
				c++
			}
		}
		out[i] = c >= count
	}
	return out
}

func isGreen(primary *domain.BarSeries, i int) bool {
	return primary.Close[i] > primary.Open[i]
}

func isRed(primary *domain.BarSeries, i int) bool {
	return primary.Close[i] < primary.Open[i]
}
