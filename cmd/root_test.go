package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pon-dba/pon-dba-sim/sim/network"
)

// newFlagCommand returns a command carrying the run flags, parsed from args.
func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	c.Flags().StringVar(&configPath, "config", "", "")
	c.Flags().Int64Var(&seed, "seed", 42, "")
	c.Flags().Float64Var(&horizonSeconds, "horizon", network.DefaultHorizonSeconds, "")
	c.Flags().StringVar(&policy, "policy", "limited", "")
	c.Flags().StringVar(&traceLevel, "trace", "none", "")
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestLoadConfig_FlagsOverrideOnlyWhenSet(t *testing.T) {
	// GIVEN a config file with its own seed and horizon
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 9\nhorizon_s: 0.5\n"), 0o644))

	// WHEN only --horizon and --policy are passed
	c := newFlagCommand(t, "--config", path, "--horizon", "0.002", "--policy", "fixed")
	cfg, err := loadConfig(c)
	require.NoError(t, err)

	// THEN the file seed survives and the set flags win
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, 0.002, cfg.HorizonSeconds)
	assert.Equal(t, "fixed", cfg.Outer.Policy)
	for _, in := range cfg.Inner {
		assert.Equal(t, "fixed", in.Policy)
	}
}

func TestLoadConfig_InvalidOverrideFails(t *testing.T) {
	c := newFlagCommand(t, "--policy", "gated")
	_, err := loadConfig(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRunSimulation_PrintsSummaryAndWritesMetrics(t *testing.T) {
	// GIVEN a short default run
	cfg := network.DefaultConfig()
	cfg.HorizonSeconds = 0.002
	metricsPath := filepath.Join(t.TempDir(), "metrics.prom")

	// WHEN it runs
	var out bytes.Buffer
	require.NoError(t, runSimulation(cfg, &out, metricsPath))

	// THEN the summary is printed and the metrics file holds the exposition
	assert.Contains(t, out.String(), "=== Simulation Summary ===")
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# TYPE pon_grant_cycles_total counter")
	assert.Contains(t, string(data), "pon_frame_latency_seconds_bucket")
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	// GIVEN the printed default config
	var buf bytes.Buffer
	require.NoError(t, writeDefaultConfig(&buf))
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	// WHEN it is loaded back with strict parsing
	cfg, err := network.LoadConfig(path)

	// THEN it reproduces the default exactly
	require.NoError(t, err)
	assert.Equal(t, network.DefaultConfig(), cfg)
}
