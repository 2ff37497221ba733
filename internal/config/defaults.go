package config

import (
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
)

// Engine defaults.
const (
	DefaultEngineMaxHandles   = handle.DefaultMaxSlots
	DefaultEngineTreeLayout   = "embedded"
	DefaultEngineMaxTreeDepth = ast.DefaultMaxDepth
	DefaultEngineMaxTreeNodes = ast.DefaultMaxNodes
)

// Parse defaults.
const (
	DefaultParseWorkers = 0
)

// Observability defaults.
const (
	DefaultLogLevel     = "info"
	DefaultLogJSON      = false
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
	DefaultMetricsAddr  = ""
)
