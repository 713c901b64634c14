package backtest

import (
	"math"

	"github.com/sawpanic/backtestengine/internal/domain"
)

const tradingDaysPerYear = 252

// Summarize aggregates a closed trade list into a Result. An empty trade
// list returns a Result with every numeric field at its zero value.
func Summarize(trades []domain.Trade) domain.Result {
	res := domain.Result{Trades: trades, TotalTrades: len(trades)}
	if len(trades) == 0 {
		return res
	}

	var grossProfit, grossLoss, cum, runningMax, maxDrawdown float64
	var largestWin, largestLoss float64
	profits := make([]float64, len(trades))

	for i, t := range trades {
		profits[i] = t.Profit
		res.TotalProfit += t.Profit
		cum += t.Profit
		if cum > runningMax {
			runningMax = cum
		}
		if dd := runningMax - cum; dd > maxDrawdown {
			maxDrawdown = dd
		}
		if t.Profit > 0 {
			res.Winning++
			grossProfit += t.Profit
			if t.Profit > largestWin {
				largestWin = t.Profit
			}
		} else if t.Profit < 0 {
			res.Losing++
			grossLoss += -t.Profit
			if t.Profit < largestLoss {
				largestLoss = t.Profit
			}
		}
	}

	res.MaxDrawdown = maxDrawdown
	res.WinRate = 100 * float64(res.Winning) / float64(res.TotalTrades)
	if grossLoss > 0 {
		res.ProfitFactor = grossProfit / grossLoss
	}
	if res.Winning > 0 {
		res.AvgWin = grossProfit / float64(res.Winning)
	}
	if res.Losing > 0 {
		res.AvgLoss = -grossLoss / float64(res.Losing)
	}
	res.LargestWin = largestWin
	res.LargestLoss = largestLoss

	if len(trades) >= 2 {
		mean, std := meanStdDev(profits)
		if std > 0 {
			res.Sharpe = (mean / std) * math.Sqrt(tradingDaysPerYear)
		}
	}

	return res
}

func meanStdDev(v []float64) (mean, std float64) {
	n := float64(len(v))
	for _, x := range v {
		mean += x
	}
	mean /= n
	var sumSq float64
	for _, x := range v {
		d := x - mean
		sumSq += d * d
	}
	std = math.Sqrt(sumSq / n)
	return
}
