package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/hoshi/internal/config"
	"github.com/Sumatoshi-tech/hoshi/internal/engine"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/hoshi"
	"github.com/Sumatoshi-tech/hoshi/pkg/observability"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
	"github.com/Sumatoshi-tech/hoshi/pkg/version"
)

// session is the per-invocation runtime: configuration, telemetry and one
// engine shared by every parser the command creates.
type session struct {
	cfg        *config.Config
	debug      boundary.DebugFlags
	logger     *slog.Logger
	engine     *engine.Engine
	parserOpts []hoshi.Option
	closers    []func(ctx context.Context) error
}

func openSession(opts *globalOptions) (*session, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if opts.verbose {
		cfg.Observability.LogLevel = slog.LevelDebug.String()
	}

	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}

	debug, err := cfg.DebugFlags()
	if err != nil {
		return nil, fmt.Errorf("engine.debug: %w", err)
	}

	engCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	providers, err := observability.Init(cfg.ObservabilityConfig(observability.ModeCLI, version.Version))
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	sess := &session{
		cfg:     cfg,
		debug:   debug,
		logger:  providers.Logger,
		closers: []func(ctx context.Context) error{providers.Shutdown},
	}

	engCfg.Relay = relay.New(
		relay.WithLogger(providers.Logger),
		relay.WithTracer(providers.Tracer),
		relay.WithMetrics(providers.Metrics),
	)

	sess.engine = engine.New(engCfg)
	sess.parserOpts = []hoshi.Option{
		hoshi.WithLayout(engCfg.Layout),
		hoshi.WithTreeLimits(cfg.Engine.MaxTreeDepth, cfg.Engine.MaxTreeNodes),
	}

	// Registered after the telemetry shutdown so it runs first.
	sess.closers = append(sess.closers, func(context.Context) error { return sess.engine.Close() })

	if cfg.Observability.MetricsAddr != "" {
		server, serveErr := observability.NewDiagnosticsServer(
			cfg.Observability.MetricsAddr, providers.MetricsHandler, sess.engine)
		if serveErr != nil {
			return nil, errors.Join(serveErr, sess.Close(context.Background()))
		}

		sess.logger.Info("diagnostics server listening", "addr", server.Addr())
		sess.closers = append(sess.closers, func(context.Context) error { return server.Close() })
	}

	return sess, nil
}

// newParser allocates a parser handle on the session engine.
func (s *session) newParser(ctx context.Context) (*hoshi.Parser, error) {
	parser, err := hoshi.New(ctx, s.engine, s.parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("allocate handle: %w", err)
	}

	return parser, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close(ctx context.Context) error {
	var errs []error

	for idx := len(s.closers) - 1; idx >= 0; idx-- {
		errs = append(errs, s.closers[idx](ctx))
	}

	s.closers = nil

	return errors.Join(errs...)
}
