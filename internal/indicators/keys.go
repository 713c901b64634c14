package indicators

import "fmt"

// Key builders shared between Required()/compute() and the condition
// evaluator, so both sides name the same cache entry for the same
// parameters.

func SMAKey(p int) string  { return fmt.Sprintf("sma_%d", p) }
func EMAKey(p int) string  { return fmt.Sprintf("ema_%d", p) }
func RSIKey(p int) string  { return fmt.Sprintf("rsi_%d", p) }
func ATRKey(p int) string  { return fmt.Sprintf("atr_%d", p) }
func ADXKey(p int) string  { return fmt.Sprintf("adx_%d", p) }
func CCIKey(p int) string  { return fmt.Sprintf("cci_%d", p) }
func WillRKey(p int) string { return fmt.Sprintf("willr_%d", p) }

func VolAvgKey(p int) string { return fmt.Sprintf("vol_avg_%d", p) }

// MACDKeys returns the three derived macd array keys for one
// parameterization.
func MACDKeys(fast, slow, sig int) (macd, signal, hist string) {
	suffix := fmt.Sprintf("%d_%d_%d", fast, slow, sig)
	return "macd_" + suffix, "macd_signal_" + suffix, "macd_hist_" + suffix
}

// BBKeys returns the three Bollinger Band array keys.
func BBKeys(p int) (upper, middle, lower string) {
	return fmt.Sprintf("bb_upper_%d", p), fmt.Sprintf("bb_middle_%d", p), fmt.Sprintf("bb_lower_%d", p)
}

// StochKeys returns the %K and %D array keys.
func StochKeys(kp, dp int) (k, d string) {
	suffix := fmt.Sprintf("%d_%d", kp, dp)
	return "stoch_k_" + suffix, "stoch_d_" + suffix
}
