package config

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
)

// Config is the top-level configuration struct for hoshi.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Engine        EngineConfig        `mapstructure:"engine"`
	Parse         ParseConfig         `mapstructure:"parse"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// EngineConfig holds engine resource knobs.
type EngineConfig struct {
	MaxHandles   int      `mapstructure:"max_handles"`
	TreeLayout   string   `mapstructure:"tree_layout"`
	MaxTreeDepth int      `mapstructure:"max_tree_depth"`
	MaxTreeNodes int      `mapstructure:"max_tree_nodes"`
	Debug        []string `mapstructure:"debug"`
}

// ParseConfig holds settings for batch parsing.
type ParseConfig struct {
	// Workers is the number of cloned handles parsing in parallel.
	// Zero means one per CPU.
	Workers int `mapstructure:"workers"`
}

// ObservabilityConfig holds logging, tracing and metrics settings.
type ObservabilityConfig struct {
	LogLevel     string  `mapstructure:"log_level"`
	LogJSON      bool    `mapstructure:"log_json"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidMaxHandles indicates the handle limit is not positive.
	ErrInvalidMaxHandles = errors.New("engine.max_handles must be positive")
	// ErrInvalidTreeDepth indicates the tree depth bound is not positive.
	ErrInvalidTreeDepth = errors.New("engine.max_tree_depth must be positive")
	// ErrInvalidTreeNodes indicates the tree size bound is not positive.
	ErrInvalidTreeNodes = errors.New("engine.max_tree_nodes must be positive")
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("parse.workers must be non-negative")
	// ErrInvalidSampleRatio indicates the sampling ratio is out of range.
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	engineErr := c.validateEngine()
	if engineErr != nil {
		return engineErr
	}

	if c.Parse.Workers < 0 {
		return ErrInvalidWorkers
	}

	return c.validateObservability()
}

func (c *Config) validateEngine() error {
	if c.Engine.MaxHandles <= 0 {
		return ErrInvalidMaxHandles
	}

	if c.Engine.MaxTreeDepth <= 0 {
		return ErrInvalidTreeDepth
	}

	if c.Engine.MaxTreeNodes <= 0 {
		return ErrInvalidTreeNodes
	}

	_, err := ast.ParseLayout(c.Engine.TreeLayout)
	if err != nil {
		return fmt.Errorf("engine.tree_layout: %w", err)
	}

	_, err = c.DebugFlags()
	if err != nil {
		return fmt.Errorf("engine.debug: %w", err)
	}

	return nil
}

func (c *Config) validateObservability() error {
	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	_, err := c.LogLevel()
	if err != nil {
		return fmt.Errorf("observability.log_level: %w", err)
	}

	return nil
}
