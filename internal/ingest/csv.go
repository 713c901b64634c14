// Package ingest parses tabular bar data (§6 "Bar ingestion") into a
// domain.BarSeries. No CSV library appears anywhere in the example pack (the
// teacher's own data sources are JSON/mock-backed), so this is built
// directly against the standard library's encoding/csv.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/backtestengine/internal/apierr"
	"github.com/sawpanic/backtestengine/internal/domain"
)

var requiredColumns = []string{"open", "high", "low", "close", "volume"}

// FromCSV parses r into a BarSeries. Header matching is case-insensitive;
// the time column may be named "time" or "datetime". Values are converted
// to float64 (int64 for time). The time column accepts either epoch seconds
// or an RFC3339 timestamp.
func FromCSV(r io.Reader) (*domain.BarSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return &domain.BarSeries{}, nil
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeMalformedRequest, "reading CSV header", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	out := &domain.BarSeries{}
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeMalformedRequest, fmt.Sprintf("reading CSV row %d", row), err)
		}
		row++

		t, err := parseTime(rec[idx.time])
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeUnparseableTime, fmt.Sprintf("row %d: time column %q", row, rec[idx.time]), err)
		}
		o, err := parseFloat(rec, idx.open, "open", row)
		if err != nil {
			return nil, err
		}
		h, err := parseFloat(rec, idx.high, "high", row)
		if err != nil {
			return nil, err
		}
		l, err := parseFloat(rec, idx.low, "low", row)
		if err != nil {
			return nil, err
		}
		c, err := parseFloat(rec, idx.close, "close", row)
		if err != nil {
			return nil, err
		}
		v, err := parseFloat(rec, idx.volume, "volume", row)
		if err != nil {
			return nil, err
		}

		out.Time = append(out.Time, t)
		out.Open = append(out.Open, o)
		out.High = append(out.High, h)
		out.Low = append(out.Low, l)
		out.Close = append(out.Close, c)
		out.Volume = append(out.Volume, v)
	}

	if err := out.Validate(); err != nil {
		return nil, apierr.Wrap(apierr.CodeMalformedRequest, "bar series failed validation", err)
	}
	return out, nil
}

type columns struct {
	time, open, high, low, close, volume int
}

func columnIndex(header []string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idx := columns{-1, -1, -1, -1, -1, -1}
	if i, ok := pos["time"]; ok {
		idx.time = i
	} else if i, ok := pos["datetime"]; ok {
		idx.time = i
	}
	if idx.time < 0 {
		return idx, apierr.New(apierr.CodeMissingColumn, "missing required column: time (or datetime)")
	}

	lookup := map[string]*int{
		"open":   &idx.open,
		"high":   &idx.high,
		"low":    &idx.low,
		"close":  &idx.close,
		"volume": &idx.volume,
	}
	for _, name := range requiredColumns {
		i, ok := pos[name]
		if !ok {
			return idx, apierr.New(apierr.CodeMissingColumn, "missing required column: "+name)
		}
		*lookup[name] = i
	}
	return idx, nil
}

func parseFloat(rec []string, col int, name string, row int) (float64, error) {
	if col >= len(rec) {
		return 0, apierr.New(apierr.CodeMalformedRequest, fmt.Sprintf("row %d: missing value for %s", row, name))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
	if err != nil {
		return 0, apierr.Wrap(apierr.CodeMalformedRequest, fmt.Sprintf("row %d: invalid %s value %q", row, name, rec[col]), err)
	}
	return v, nil
}

func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("not epoch seconds or RFC3339: %w", err)
	}
	return t.Unix(), nil
}
