package ingest

import (
	"strings"
	"testing"

	"github.com/sawpanic/backtestengine/internal/apierr"
	"github.com/stretchr/testify/require"
)

func TestFromCSVParsesEpochSeconds(t *testing.T) {
	in := "Time,Open,High,Low,Close,Volume\n0,100,101,99,100,10\n60,100,102,99,101,12\n"
	series, err := FromCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []int64{0, 60}, series.Time)
	require.Equal(t, []float64{100, 101}, series.Close)
}

func TestFromCSVAcceptsDatetimeHeaderCaseInsensitive(t *testing.T) {
	in := "DATETIME,open,high,low,close,volume\n2021-01-01T00:00:00Z,1,2,0.5,1.5,5\n"
	series, err := FromCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	require.Equal(t, int64(1609459200), series.Time[0])
}

func TestFromCSVMissingColumnFails(t *testing.T) {
	in := "time,open,high,low,close\n0,1,2,0.5,1.5\n"
	_, err := FromCSV(strings.NewReader(in))
	require.Error(t, err)
	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apierr.CodeMissingColumn, ae.Code)
}

func TestFromCSVUnparseableTimeFails(t *testing.T) {
	in := "time,open,high,low,close,volume\nnotatime,1,2,0.5,1.5,5\n"
	_, err := FromCSV(strings.NewReader(in))
	require.Error(t, err)
	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apierr.CodeUnparseableTime, ae.Code)
}

func TestFromCSVEmptyInputYieldsEmptySeries(t *testing.T) {
	series, err := FromCSV(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, 0, series.Len())
}
