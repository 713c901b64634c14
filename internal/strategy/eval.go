// Package strategy implements the Condition Evaluator (C3): a static
// dispatch table mapping each condition id (and its aliases) to a boolean
// vector over the primary timeline, composed by elementwise AND.
//
// Re-architected per the teacher's precedence-ordered, struct-tagged
// evaluation style (internal/exits/logic.go's EvaluateExit chain) into a
// fixed dispatch table filled once at package init. Ids are not pre-parsed:
// each Evaluate call looks the condition's id string up in that table.
package strategy

import (
	"fmt"

	"github.com/sawpanic/backtestengine/internal/bars"
	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/sawpanic/backtestengine/internal/indicators"
)

// Ctx bundles the read-only state a condition handler needs: the primary
// series, the bar store (for fetching raw OHLCV at other timeframes) and
// the warmed indicator bank.
type Ctx struct {
	Primary *domain.BarSeries
	Store   *bars.Store
	Bank    *indicators.Bank
}

type handlerFunc func(ctx *Ctx, c domain.Condition) ([]bool, error)

// dispatch is the static id -> handler table; aliases point at the same
// function value.
var dispatch = map[string]handlerFunc{}

func register(fn handlerFunc, ids ...string) {
	for _, id := range ids {
		dispatch[id] = fn
	}
}

// Evaluate produces the boolean vector for one enabled condition. Unknown
// ids return an all-false vector rather than erroring (per the error
// taxonomy: an unknown id contributes nothing under AND).
func Evaluate(ctx *Ctx, c domain.Condition) ([]bool, error) {
	fn, ok := dispatch[c.ID]
	if !ok {
		return make([]bool, ctx.Primary.Len()), nil
	}
	return fn(ctx, c)
}

// EntrySignal returns the elementwise AND of every enabled entry
// condition's vector. An empty condition list yields all-false.
func EntrySignal(ctx *Ctx, s domain.Strategy) ([]bool, error) {
	return combine(ctx, s.EntryConditions)
}

// ExitSignal returns the elementwise AND of every enabled exit condition's
// vector (excluding stop_loss_ticks/take_profit_ticks, which are consumed
// by C4 as parameters rather than evaluated as predicates).
func ExitSignal(ctx *Ctx, s domain.Strategy) ([]bool, error) {
	return combine(ctx, s.ExitConditions)
}

func combine(ctx *Ctx, conds []domain.Condition) ([]bool, error) {
	n := ctx.Primary.Len()
	out := make([]bool, n)
	any := false
	for _, c := range conds {
		if !c.Enabled {
			continue
		}
		if c.ID == "stop_loss_ticks" || c.ID == "take_profit_ticks" {
			continue
		}
		vec, err := Evaluate(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("strategy: evaluate %q: %w", c.ID, err)
		}
		if len(vec) != n {
			return nil, fmt.Errorf("strategy: condition %q produced length %d, want %d", c.ID, len(vec), n)
		}
		if !any {
			copy(out, vec)
			any = true
			continue
		}
		for i := range out {
			out[i] = out[i] && vec[i]
		}
	}
	if !any {
		return make([]bool, n), nil
	}
	return out, nil
}

// SLTPTicks extracts sl_ticks/tp_ticks from the exit condition list, if
// present and enabled. Absent means the corresponding check is skipped by
// C4.
func SLTPTicks(s domain.Strategy) (slTicks float64, hasSL bool, tpTicks float64, hasTP bool) {
	for _, c := range s.ExitConditions {
		if !c.Enabled {
			continue
		}
		switch c.ID {
		case "stop_loss_ticks":
			slTicks = c.Param("ticks", 0)
			hasSL = true
		case "take_profit_ticks":
			tpTicks = c.Param("ticks", 0)
			hasTP = true
		}
	}
	return
}
