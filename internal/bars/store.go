// Package bars implements the Bar Store (C1): ownership of the primary bar
// series and memoized higher-timeframe aggregation, grounded on the
// windowed-bucketing shape of the teacher's market-data processing.
package bars

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/sawpanic/backtestengine/internal/domain"
)

const secondsPerDay = 86400

// Store owns one immutable primary bar series for the life of a request and
// memoizes aggregated views on demand. Safe for concurrent read-only use
// once aggregates have been pre-warmed; Aggregate itself takes a lock so
// concurrent optimizer workers calling it for the first time do not race.
type Store struct {
	primary *domain.BarSeries

	mu         sync.Mutex
	aggregates map[int]*domain.BarSeries
}

// NewStore wraps a primary bar series in a Store.
func NewStore(primary *domain.BarSeries) *Store {
	return &Store{
		primary:    primary,
		aggregates: make(map[int]*domain.BarSeries),
	}
}

// Primary returns the canonical primary-timeframe arrays.
func (s *Store) Primary() *domain.BarSeries {
	return s.primary
}

// Tag returns the canonical string tag for an M-minute timeframe.
func Tag(m int) string {
	if m <= 1 {
		return domain.DefaultTimeframe
	}
	return strconv.Itoa(m)
}

// Aggregate returns the M-minute aggregated series, building and memoizing
// it on first access. M=1 returns the primary series unchanged.
func (s *Store) Aggregate(m int) (*domain.BarSeries, error) {
	if m <= 1 {
		return s.primary, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.aggregates[m]; ok {
		return cached, nil
	}
	agg, err := aggregate(s.primary, m)
	if err != nil {
		return nil, fmt.Errorf("bars: aggregate(%d): %w", m, err)
	}
	s.aggregates[m] = agg
	return agg, nil
}

// aggregate buckets primary bars into fixed-width wall-clock windows of M
// minutes anchored at start-of-day (UTC), per the bucketing rules: open is
// first, high is max, low is min, close is last, volume is sum, and the
// bucket's label is its start time. Empty buckets are dropped.
func aggregate(primary *domain.BarSeries, m int) (*domain.BarSeries, error) {
	n := primary.Len()
	out := &domain.BarSeries{}
	if n == 0 {
		return out, nil
	}

	windowSecs := int64(m) * 60
	var curBucketStart int64 = -1
	var haveBucket bool

	bucketKeyOf := func(t int64) (dayStart, bucketStart int64) {
		dayStart = t - (t % secondsPerDay)
		offset := t - dayStart
		bucketStart = dayStart + (offset/windowSecs)*windowSecs
		return
	}

	var open, high, low, close, volume float64
	var timeStart int64
	haveBucket = false

	for i := 0; i < n; i++ {
		_, bucketStart := bucketKeyOf(primary.Time[i])
		if !haveBucket || bucketStart != curBucketStart {
			if haveBucket {
				out.Time = append(out.Time, timeStart)
				out.Open = append(out.Open, open)
				out.High = append(out.High, high)
				out.Low = append(out.Low, low)
				out.Close = append(out.Close, close)
				out.Volume = append(out.Volume, volume)
			}
			curBucketStart = bucketStart
			timeStart = bucketStart
			open = primary.Open[i]
			high = primary.High[i]
			low = primary.Low[i]
			close = primary.Close[i]
			volume = primary.Volume[i]
			haveBucket = true
			continue
		}
		if primary.High[i] > high {
			high = primary.High[i]
		}
		if primary.Low[i] < low {
			low = primary.Low[i]
		}
		close = primary.Close[i]
		volume += primary.Volume[i]
	}
	if haveBucket {
		out.Time = append(out.Time, timeStart)
		out.Open = append(out.Open, open)
		out.High = append(out.High, high)
		out.Low = append(out.Low, low)
		out.Close = append(out.Close, close)
		out.Volume = append(out.Volume, volume)
	}
	return out, nil
}
