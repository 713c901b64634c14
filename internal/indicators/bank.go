package indicators

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sawpanic/backtestengine/internal/bars"
	"github.com/sawpanic/backtestengine/internal/domain"
)

type cacheKey struct {
	key string
	tf  string
}

// Bank computes and caches per-(indicator,timeframe) arrays on their own
// timeline, and aligns them back onto the primary timeline without
// lookahead. Shared read-only across optimizer workers once warmed.
type Bank struct {
	store     *bars.Store
	closeTime *bars.CloseTimeCache

	mu    sync.Mutex
	cache map[cacheKey][]float64
}

// NewBank wraps a bar Store.
func NewBank(store *bars.Store) *Bank {
	return &Bank{
		store:     store,
		closeTime: bars.NewCloseTimeCache(store),
		cache:     make(map[cacheKey][]float64),
	}
}

// Ensure computes (if absent) and caches the raw array for key on tf's own
// timeline.
func (b *Bank) Ensure(key, tf string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensureLocked(key, tf)
}

func (b *Bank) ensureLocked(key, tf string) error {
	ck := cacheKey{key: key, tf: tf}
	if _, ok := b.cache[ck]; ok {
		return nil
	}
	m, err := tfToMinutes(tf)
	if err != nil {
		return err
	}
	series, err := b.store.Aggregate(m)
	if err != nil {
		return err
	}
	arrays, err := compute(key, series)
	if err != nil {
		return err
	}
	for k, v := range arrays {
		b.cache[cacheKey{key: k, tf: tf}] = v
	}
	if _, ok := b.cache[ck]; !ok {
		return fmt.Errorf("indicators: unknown indicator key %q", key)
	}
	return nil
}

// Raw returns the cached array for (key, tf) on tf's own timeline, without
// projecting onto the primary timeline. Ensure must have been called first.
func (b *Bank) Raw(key, tf string) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache[cacheKey{key: key, tf: tf}]
}

// Get returns the (key, tf) array aligned onto the primary timeline.
// Ensure must have been called first for this (key, tf) pair.
func (b *Bank) Get(key, tf string) ([]float64, error) {
	raw := b.Raw(key, tf)
	if raw == nil {
		return nil, fmt.Errorf("indicators: %q not computed for timeframe %q", key, tf)
	}
	if tf == "" || tf == domain.DefaultTimeframe {
		return raw, nil
	}
	m, err := tfToMinutes(tf)
	if err != nil {
		return nil, err
	}
	primaryCT, err := b.closeTime.CloseTime(1)
	if err != nil {
		return nil, err
	}
	tfCT, err := b.closeTime.CloseTime(m)
	if err != nil {
		return nil, err
	}
	return alignMTF(raw, tfCT, primaryCT), nil
}

// PrimaryCloseTime returns the primary timeline's close-time vector.
func (b *Bank) PrimaryCloseTime() ([]int64, error) {
	return b.closeTime.CloseTime(1)
}

// TFCloseTime returns the close-time vector for the given timeframe tag.
func (b *Bank) TFCloseTime(tf string) ([]int64, error) {
	m, err := tfToMinutes(tf)
	if err != nil {
		return nil, err
	}
	return b.closeTime.CloseTime(m)
}

// Store returns the underlying bar Store, so callers needing a raw
// aggregated OHLCV series (not an indicator array) at a given timeframe
// can fetch one without duplicating aggregation logic.
func (b *Bank) Store() *bars.Store {
	return b.store
}

// AlignBool projects a boolean array computed on a higher timeframe onto
// the primary timeline, using the same lookahead-free tie-break as
// alignMTF for numeric arrays.
func AlignBool(src []bool, tfCloseTime, primaryCloseTime []int64) []bool {
	n := len(primaryCloseTime)
	out := make([]bool, n)
	for i, t := range primaryCloseTime {
		j := upperBoundLE(tfCloseTime, t)
		if j >= 0 {
			out[i] = src[j]
		}
	}
	return out
}

func tfToMinutes(tf string) (int, error) {
	if tf == "" || tf == domain.DefaultTimeframe {
		return 1, nil
	}
	m, err := strconv.Atoi(tf)
	if err != nil {
		return 0, fmt.Errorf("indicators: invalid timeframe tag %q: %w", tf, err)
	}
	return m, nil
}

// alignMTF projects a higher-timeframe array onto the primary timeline
// using closed-bar, lookahead-free semantics: for each primary close time
// t_i, find the largest tf-bar index whose close time is strictly < t_i
// (see upperBoundLE for the tie-break).
func alignMTF(src []float64, tfCloseTime, primaryCloseTime []int64) []float64 {
	n := len(primaryCloseTime)
	out := nanArray(n)
	for i, t := range primaryCloseTime {
		j := upperBoundLE(tfCloseTime, t)
		if j >= 0 {
			out[i] = src[j]
		}
	}
	return out
}

// upperBoundLE returns the largest index j such that sorted[j] < t, or -1.
//
// A tf bucket whose close time equals the primary bar's own close time
// closes simultaneously with that primary bar, not strictly before it, so
// it is not yet visible (see boundary scenario S5: the 5-min bucket
// covering bars 0-4 only becomes visible from bar 5, not bar 4, even
// though both close at the same instant).
func upperBoundLE(sorted []int64, t int64) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// compute dispatches an indicator key to its formula, returning every array
// produced as a side effect of that computation (e.g. macd_* produces three
// keys at once) keyed by their own canonical indicator-key strings.
func compute(key string, series *domain.BarSeries) (map[string][]float64, error) {
	parts := strings.Split(key, "_")
	if len(parts) == 0 {
		return nil, fmt.Errorf("indicators: empty indicator key")
	}
	family := parts[0]

	atoi := func(s string, def int) int {
		v, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return v
	}

	switch family {
	case "sma":
		p := atoi(nth(parts, 1), 20)
		return map[string][]float64{SMAKey(p): SMA(series.Close, p)}, nil
	case "ema":
		p := atoi(nth(parts, 1), 20)
		return map[string][]float64{EMAKey(p): EMA(series.Close, p)}, nil
	case "rsi":
		p := atoi(nth(parts, 1), 14)
		return map[string][]float64{RSIKey(p): RSI(series.Close, p)}, nil
	case "macd":
		// macd_<fast>_<slow>_<sig>
		fast := atoi(nth(parts, 1), 12)
		slow := atoi(nth(parts, 2), 26)
		sig := atoi(nth(parts, 3), 9)
		res := MACD(series.Close, fast, slow, sig)
		mk, sk, hk := MACDKeys(fast, slow, sig)
		return map[string][]float64{mk: res.MACD, sk: res.Signal, hk: res.Histogram}, nil
	case "bb":
		// bb_upper_<p> / bb_middle_<p> / bb_lower_<p>
		p := atoi(nth(parts, 2), 20)
		res := Bollinger(series.Close, p, 2)
		uk, mk, lk := BBKeys(p)
		return map[string][]float64{uk: res.Upper, mk: res.Middle, lk: res.Lower}, nil
	case "stoch":
		// stoch_k_<kp>_<dp> / stoch_d_<kp>_<dp>
		kp := atoi(nth(parts, 2), 14)
		dp := atoi(nth(parts, 3), 3)
		res := Stochastic(series.High, series.Low, series.Close, kp, dp)
		kk, dk := StochKeys(kp, dp)
		return map[string][]float64{kk: res.K, dk: res.D}, nil
	case "atr":
		p := atoi(nth(parts, 1), 14)
		return map[string][]float64{ATRKey(p): ATR(series.High, series.Low, series.Close, p)}, nil
	case "adx":
		p := atoi(nth(parts, 1), 14)
		return map[string][]float64{ADXKey(p): ADX(series.High, series.Low, series.Close, p)}, nil
	case "cci":
		p := atoi(nth(parts, 1), 20)
		return map[string][]float64{CCIKey(p): CCI(series.High, series.Low, series.Close, p)}, nil
	case "willr":
		p := atoi(nth(parts, 1), 14)
		return map[string][]float64{WillRKey(p): WilliamsR(series.High, series.Low, series.Close, p)}, nil
	case "vol":
		// vol_avg_<p>
		p := atoi(nth(parts, 2), 20)
		return map[string][]float64{VolAvgKey(p): VolAvg(series.Volume, p, false)}, nil
	default:
		return nil, fmt.Errorf("indicators: unknown indicator family %q", family)
	}
}

func nth(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// Required walks every enabled condition in a strategy and returns the set
// of (indicator_key, timeframe) pairs it will request, purely from id and
// param keyword matching. Order is deterministic (sorted) so callers can
// warm the bank in a stable sequence.
func Required(s domain.Strategy) []struct{ Key, TF string } {
	seen := map[cacheKey]bool{}
	add := func(key, tf string) {
		seen[cacheKey{key: key, tf: tf}] = true
	}

	all := append(append([]domain.Condition{}, s.EntryConditions...), s.ExitConditions...)
	for _, c := range all {
		if !c.Enabled {
			continue
		}
		tf := c.TF()
		switch {
		case strings.HasPrefix(c.ID, "rsi"):
			add(RSIKey(int(c.Param("period", 14))), tf)
		case strings.HasPrefix(c.ID, "macd"):
			fast := int(c.Param("fast", 12))
			slow := int(c.Param("slow", 26))
			sig := int(c.Param("signal", 9))
			mk, sk, hk := MACDKeys(fast, slow, sig)
			add(mk, tf)
			add(sk, tf)
			add(hk, tf)
		case strings.HasPrefix(c.ID, "price_above_bb") || strings.HasPrefix(c.ID, "price_below_bb"):
			uk, mk, lk := BBKeys(int(c.Param("period", 20)))
			add(uk, tf)
			add(mk, tf)
			add(lk, tf)
		case strings.HasPrefix(c.ID, "sma_short_above_long"):
			add(SMAKey(int(c.Param("short_period", 10))), tf)
			add(SMAKey(int(c.Param("long_period", 30))), tf)
		case strings.HasPrefix(c.ID, "price_above_sma") || strings.HasPrefix(c.ID, "price_below_sma"):
			add(SMAKey(int(c.Param("period", 20))), tf)
		case strings.HasPrefix(c.ID, "price_above_ema") || strings.HasPrefix(c.ID, "price_below_ema"):
			add(EMAKey(int(c.Param("period", 20))), tf)
		case strings.HasPrefix(c.ID, "stoch"):
			kk, dk := StochKeys(int(c.Param("k_period", 14)), int(c.Param("d_period", 3)))
			add(kk, tf)
			add(dk, tf)
		case strings.HasPrefix(c.ID, "atr"):
			add(ATRKey(int(c.Param("period", 14))), tf)
		case strings.HasPrefix(c.ID, "adx"):
			add(ADXKey(int(c.Param("period", 14))), tf)
		case strings.HasPrefix(c.ID, "volume"):
			add(VolAvgKey(int(c.Param("period", 20))), tf)
		}
	}

	out := make([]struct{ Key, TF string }, 0, len(seen))
	for ck := range seen {
		out = append(out, struct{ Key, TF string }{Key: ck.key, TF: ck.tf})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TF != out[j].TF {
			return out[i].TF < out[j].TF
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Warm computes every (key, tf) pair Required(s) identifies.
func (b *Bank) Warm(s domain.Strategy) error {
	for _, req := range Required(s) {
		if err := b.Ensure(req.Key, req.TF); err != nil {
			return fmt.Errorf("indicators: warm %s@%s: %w", req.Key, req.TF, err)
		}
	}
	return nil
}
