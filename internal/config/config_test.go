package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHasSaneWorkerCap(t *testing.T) {
	c := Default()
	require.Equal(t, 6, c.Optimizer.MaxWorkers)
	require.Equal(t, ":8080", c.HTTP.Addr)
}

func TestLoadOverlaysPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimizer:\n  max_workers: 3\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, c.Optimizer.MaxWorkers)
	require.Equal(t, ":8080", c.HTTP.Addr)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadClampsNonPositiveWorkerCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimizer:\n  max_workers: 0\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 6, c.Optimizer.MaxWorkers)
}

func TestProgressTickIntervalDefaultsWhenZero(t *testing.T) {
	c := EngineConfig{}
	require.Equal(t, c.ProgressTickInterval().Seconds(), 1.0)
}
