package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

const (
	readHeaderTimeout = 5 * time.Second

	statusUnavailable = "unavailable"
)

// Probe is the engine view the diagnostics endpoints report on.
type Probe interface {
	// Ready returns nil while the engine accepts boundary calls.
	Ready(ctx context.Context) error
	// Live returns the number of handles currently allocated.
	Live() int
}

type probeReport struct {
	Status  string `json:"status"`
	Handles int    `json:"handles"`
	Error   string `json:"error,omitempty"`
}

// DiagnosticsServer exposes /healthz, /readyz and /metrics over HTTP.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewDiagnosticsServer starts serving at addr. metrics is the scrape
// handler from Providers; a nil handler leaves /metrics unregistered.
func NewDiagnosticsServer(addr string, metrics http.Handler, probe Probe) (*DiagnosticsServer, error) {
	mux := http.NewServeMux()

	mux.Handle("/healthz", probeHandler(probe, false))
	mux.Handle("/readyz", probeHandler(probe, true))

	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener}, nil
}

// probeHandler answers with the live handle count. With checkReady a
// failing Ready turns the answer into 503.
func probeHandler(probe Probe, checkReady bool) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		report := probeReport{Status: StatusOK, Handles: probe.Live()}
		code := http.StatusOK

		if checkReady {
			if err := probe.Ready(hr.Context()); err != nil {
				report.Status = statusUnavailable
				report.Error = err.Error()
				code = http.StatusServiceUnavailable
			}
		}

		body, err := json.Marshal(report)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)

			return
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(code)
		_, _ = rw.Write(body)
	})
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close shuts the server down gracefully.
func (d *DiagnosticsServer) Close() error {
	err := d.server.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}
