// Package optimize implements the Optimizer (C5): Cartesian parameter-grid
// enumeration, worker-pool dispatch of independent backtests over shared
// read-only bar/indicator state, and profit-ranked result collection.
//
// The coordinator shape (config/result split) is grounded on the
// teacher's CoordinateDescent optimizer (internal/tune/opt/cd.go), adapted
// from iterative gradient-free search to an exhaustive grid sweep, which
// is what the spec's C5 actually calls for.
package optimize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sawpanic/backtestengine/internal/domain"
)

// ParamRange is an inclusive [Min, Max] stepped by Step.
type ParamRange struct {
	Min  float64
	Max  float64
	Step float64
}

// Values materializes min, min+step, ..., <= max (inclusive endpoint when
// evenly divisible). A non-positive step yields just Min.
func (r ParamRange) Values() []float64 {
	if r.Step <= 0 {
		return []float64{r.Min}
	}
	var out []float64
	const epsilon = 1e-9
	for v := r.Min; v <= r.Max+epsilon; v += r.Step {
		out = append(out, v)
	}
	if len(out) == 0 {
		out = []float64{r.Min}
	}
	return out
}

// ParsePath parses a parameter path of the form entry_<i>_<name> or
// exit_<i>_<name>. Names may themselves contain underscores. Returns
// ok=false for anything that doesn't match, per the "unparseable keys are
// skipped silently" rule.
func ParsePath(path string) (section string, idx int, name string, ok bool) {
	parts := strings.SplitN(path, "_", 3)
	if len(parts) != 3 {
		return "", 0, "", false
	}
	if parts[0] != "entry" && parts[0] != "exit" {
		return "", 0, "", false
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "", false
	}
	return parts[0], i, parts[2], true
}

// Enumerate materializes the Cartesian product of every range's values, in
// sorted parameter-path order for reproducibility. Unparseable paths are
// dropped at Apply time, not here.
func Enumerate(ranges map[string]ParamRange) []map[string]float64 {
	paths := make([]string, 0, len(ranges))
	for p := range ranges {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	combos := []map[string]float64{{}}
	for _, path := range paths {
		values := ranges[path].Values()
		next := make([]map[string]float64, 0, len(combos)*len(values))
		for _, base := range combos {
			for _, v := range values {
				c := make(map[string]float64, len(base)+1)
				for k, bv := range base {
					c[k] = bv
				}
				c[path] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

// Apply clones base and overrides each condition's parameter named
// by a valid entry_<i>_<name> / exit_<i>_<name> path. Paths with an
// out-of-range index or an unparseable shape are skipped silently, per the
// spec's error-taxonomy for unknown paths.
func Apply(base domain.Strategy, params map[string]float64) domain.Strategy {
	s := base.Clone()
	for path, v := range params {
		section, idx, name, ok := ParsePath(path)
		if !ok {
			continue
		}
		var list []domain.Condition
		switch section {
		case "entry":
			list = s.EntryConditions
		case "exit":
			list = s.ExitConditions
		}
		if idx < 0 || idx >= len(list) {
			continue
		}
		if list[idx].Params == nil {
			list[idx].Params = make(map[string]float64)
		}
		list[idx].Params[name] = v
	}
	return s
}

// CleanParams renders a params map to a stable string, sorted by path for
// determinism.
func CleanParams(params map[string]float64) string {
	paths := make([]string, 0, len(params))
	for p := range params {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%g", p, params[p])
	}
	return b.String()
}
