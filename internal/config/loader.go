package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".hoshi"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for hoshi settings.
const envPrefix = "HOSHI"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			MaxHandles:   DefaultEngineMaxHandles,
			TreeLayout:   DefaultEngineTreeLayout,
			MaxTreeDepth: DefaultEngineMaxTreeDepth,
			MaxTreeNodes: DefaultEngineMaxTreeNodes,
		},
		Parse: ParseConfig{Workers: DefaultParseWorkers},
		Observability: ObservabilityConfig{
			LogLevel:     DefaultLogLevel,
			LogJSON:      DefaultLogJSON,
			OTLPEndpoint: DefaultOTLPEndpoint,
			OTLPInsecure: DefaultOTLPInsecure,
			SampleRatio:  DefaultSampleRatio,
			MetricsAddr:  DefaultMetricsAddr,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("engine.max_handles", DefaultEngineMaxHandles)
	viperCfg.SetDefault("engine.tree_layout", DefaultEngineTreeLayout)
	viperCfg.SetDefault("engine.max_tree_depth", DefaultEngineMaxTreeDepth)
	viperCfg.SetDefault("engine.max_tree_nodes", DefaultEngineMaxTreeNodes)
	viperCfg.SetDefault("engine.debug", []string{})

	viperCfg.SetDefault("parse.workers", DefaultParseWorkers)

	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.log_json", DefaultLogJSON)
	viperCfg.SetDefault("observability.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("observability.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("observability.metrics_addr", DefaultMetricsAddr)
}
