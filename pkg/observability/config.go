// Package observability provides OpenTelemetry tracing and metrics plus
// structured logging for hoshi boundary calls, in both the CLI and
// embedded library modes.
package observability

import "log/slog"

// AppMode identifies how the engine is being driven.
type AppMode string

const (
	// ModeCLI is the hoshi command line tool.
	ModeCLI AppMode = "cli"
	// ModeLibrary is an engine embedded in a host program.
	ModeLibrary AppMode = "library"
)

const (
	defaultServiceName        = "hoshi"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Mode identifies how the engine was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables OTLP
	// export of both spans and boundary metrics.
	OTLPEndpoint string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the share of boundary call traces kept (0.0 to 1.0).
	// Zero keeps every trace.
	SampleRatio float64

	// MetricsAddr, when set, adds a Prometheus reader to the meter provider
	// and makes Init return its scrape handler.
	MetricsAddr string

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
