package domain

import "encoding/json"

// Condition is one strategy predicate: an id, a parameter map, an enabled
// flag, and the timeframe it evaluates on.
type Condition struct {
	ID        string             `json:"id"`
	Params    map[string]float64 `json:"params,omitempty"`
	Enabled   bool               `json:"enabled"`
	Timeframe string             `json:"timeframe,omitempty"`
}

// UnmarshalJSON defaults Enabled to true when the field is absent from the
// wire payload, per §6's "enabled: bool (default true)".
func (c *Condition) UnmarshalJSON(data []byte) error {
	type alias Condition
	aux := alias{Enabled: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Condition(aux)
	return nil
}

// TF returns the condition's timeframe, defaulting to the primary tag.
func (c Condition) TF() string {
	if c.Timeframe == "" {
		return DefaultTimeframe
	}
	return c.Timeframe
}

// Param returns a named parameter value, or def if absent.
func (c Condition) Param(name string, def float64) float64 {
	if c.Params == nil {
		return def
	}
	if v, ok := c.Params[name]; ok {
		return v
	}
	return def
}

// Strategy is an ordered pair of entry and exit condition lists.
type Strategy struct {
	EntryConditions []Condition `json:"entry_conditions"`
	ExitConditions  []Condition `json:"exit_conditions"`
}

// Clone returns a deep copy of the strategy, suitable for per-worker
// mutation during a parameter sweep.
func (s Strategy) Clone() Strategy {
	out := Strategy{
		EntryConditions: make([]Condition, len(s.EntryConditions)),
		ExitConditions:  make([]Condition, len(s.ExitConditions)),
	}
	for i, c := range s.EntryConditions {
		out.EntryConditions[i] = cloneCondition(c)
	}
	for i, c := range s.ExitConditions {
		out.ExitConditions[i] = cloneCondition(c)
	}
	return out
}

func cloneCondition(c Condition) Condition {
	params := make(map[string]float64, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	c.Params = params
	return c
}

// ExitReason tags why a trade closed.
type ExitReason string

const (
	ExitStopLoss       ExitReason = "Stop Loss"
	ExitStopLossGap    ExitReason = "Stop Loss (Gap)"
	ExitTakeProfit     ExitReason = "Take Profit"
	ExitTakeProfitGap  ExitReason = "Take Profit (Gap)"
	ExitSignal         ExitReason = "Signal"
	ExitSessionEnd     ExitReason = "Session End"
)

// Trade is one closed long position.
type Trade struct {
	EntryIdx   int        `json:"entry_idx"`
	ExitIdx    int        `json:"exit_idx"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	EntryTime  int64      `json:"entry_time"`
	ExitTime   int64      `json:"exit_time"`
	Profit     float64    `json:"profit"`
	ExitReason ExitReason `json:"exit_reason"`
}

// Result aggregates a list of closed trades into summary statistics.
type Result struct {
	Trades       []Trade `json:"trades"`
	TotalTrades  int     `json:"total_trades"`
	Winning      int     `json:"winning"`
	Losing       int     `json:"losing"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	TotalProfit  float64 `json:"total_profit"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Sharpe       float64 `json:"sharpe"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`
}
