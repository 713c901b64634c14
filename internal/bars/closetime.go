package bars

import (
	"sync"

	"github.com/sawpanic/backtestengine/internal/domain"
)

// CloseTimeCache holds lazily-derived close-time vectors per timeframe tag,
// shared read-only across optimizer workers alongside the Store. Multiple
// asyncpool workers can call CloseTime concurrently for the same timeframe
// on a cache miss, so the read-then-write below is guarded by mu.
type CloseTimeCache struct {
	store *Store

	mu        sync.Mutex
	step      map[int]int64
	closeTime map[int][]int64
}

// NewCloseTimeCache wraps a Store.
func NewCloseTimeCache(store *Store) *CloseTimeCache {
	return &CloseTimeCache{
		store:     store,
		step:      make(map[int]int64),
		closeTime: make(map[int][]int64),
	}
}

// CloseTime returns the close-time vector for the M-minute timeframe,
// computing and caching the nominal step on first access: for the primary
// timeframe (M<=1) it is inferred as the median positive time diff, for
// M>=2 it is M*60 seconds.
func (c *CloseTimeCache) CloseTime(m int) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ct, ok := c.closeTime[m]; ok {
		return ct, nil
	}
	series, err := c.store.Aggregate(m)
	if err != nil {
		return nil, err
	}
	step, ok := c.step[m]
	if !ok {
		if m <= 1 {
			step = domain.InferStep(series.Time)
		} else {
			step = int64(m) * 60
		}
		c.step[m] = step
	}
	ct := series.CloseTime(step)
	c.closeTime[m] = ct
	return ct, nil
}
