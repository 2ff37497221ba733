package config

import (
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/hoshi/internal/engine"
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/observability"
)

// DebugFlags parses engine.debug.
func (c *Config) DebugFlags() (boundary.DebugFlags, error) {
	return boundary.ParseDebugFlags(c.Engine.Debug) //nolint:wrapcheck // wrapped by Validate.
}

// LogLevel parses observability.log_level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Observability.LogLevel))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", c.Observability.LogLevel, err)
	}

	return level, nil
}

// EngineConfig converts the engine section. The relay and backends are
// left for the caller to set.
func (c *Config) EngineConfig() (engine.Config, error) {
	layout, err := ast.ParseLayout(c.Engine.TreeLayout)
	if err != nil {
		return engine.Config{}, fmt.Errorf("engine.tree_layout: %w", err)
	}

	return engine.Config{
		Layout:       layout,
		MaxTreeDepth: c.Engine.MaxTreeDepth,
		MaxTreeNodes: c.Engine.MaxTreeNodes,
		MaxHandles:   c.Engine.MaxHandles,
	}, nil
}

// ObservabilityConfig converts the observability section for mode.
func (c *Config) ObservabilityConfig(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()
	obs.Mode = mode
	obs.ServiceVersion = version
	obs.OTLPEndpoint = c.Observability.OTLPEndpoint
	obs.OTLPInsecure = c.Observability.OTLPInsecure
	obs.SampleRatio = c.Observability.SampleRatio
	obs.MetricsAddr = c.Observability.MetricsAddr
	obs.LogJSON = c.Observability.LogJSON

	if level, err := c.LogLevel(); err == nil {
		obs.LogLevel = level
	}

	return obs
}
