package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hoshi/internal/config"
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/observability"
)

func TestValidate_Default_NoError(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"max handles", func(c *config.Config) { c.Engine.MaxHandles = 0 }, config.ErrInvalidMaxHandles},
		{"tree depth", func(c *config.Config) { c.Engine.MaxTreeDepth = -1 }, config.ErrInvalidTreeDepth},
		{"tree nodes", func(c *config.Config) { c.Engine.MaxTreeNodes = 0 }, config.ErrInvalidTreeNodes},
		{"layout", func(c *config.Config) { c.Engine.TreeLayout = "sideways" }, ast.ErrUnknownLayout},
		{"debug", func(c *config.Config) { c.Engine.Debug = []string{"everything"} }, boundary.ErrUnknownDebugFlag},
		{"workers", func(c *config.Config) { c.Parse.Workers = -2 }, config.ErrInvalidWorkers},
		{"sample ratio", func(c *config.Config) { c.Observability.SampleRatio = 1.5 }, config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(&cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Observability.LogLevel = "loud"

	require.Error(t, cfg.Validate())
}

func TestEngineConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Engine.TreeLayout = "incremental"
	cfg.Engine.MaxHandles = 12

	engCfg, err := cfg.EngineConfig()
	require.NoError(t, err)

	assert.Equal(t, ast.LayoutIncremental, engCfg.Layout)
	assert.Equal(t, 12, engCfg.MaxHandles)
	assert.Equal(t, ast.DefaultMaxDepth, engCfg.MaxTreeDepth)
	assert.Nil(t, engCfg.Relay)
}

func TestDebugFlags(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Engine.Debug = []string{"progress", "scan_token"}

	flags, err := cfg.DebugFlags()
	require.NoError(t, err)
	assert.True(t, flags.Has(boundary.DebugProgress))
	assert.True(t, flags.Has(boundary.DebugScanToken))
	assert.False(t, flags.Has(boundary.DebugLalr))
}

func TestObservabilityConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Observability.LogLevel = "debug"
	cfg.Observability.LogJSON = true
	cfg.Observability.OTLPEndpoint = "collector:4317"
	cfg.Observability.MetricsAddr = ":9464"

	obs := cfg.ObservabilityConfig(observability.ModeCLI, "1.2.3")

	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, "collector:4317", obs.OTLPEndpoint)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, observability.ModeCLI, obs.Mode)
	assert.Equal(t, "hoshi", obs.ServiceName)
	assert.Equal(t, ":9464", obs.MetricsAddr)
}
