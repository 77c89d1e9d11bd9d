package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/config"
	"lstmcpipe/internal/logging"
	"lstmcpipe/internal/pipeline"
	"lstmcpipe/internal/telemetry"
	"lstmcpipe/internal/transport"
)

// Options override what Bootstrap would otherwise derive from settings.
type Options struct {
	Completer *complete.Completer // nil builds one from Settings.Versions
	Logger    *slog.Logger
	Stdout    io.Writer
	Listener  net.Listener // nil listens on Settings.GRPCPort
}

func Bootstrap(ctx context.Context, s config.Settings, opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = logging.L()
	}
	c := opts.Completer
	if c == nil {
		c = complete.New(s.Versions(), complete.WithLogger(log))
	}
	m := telemetry.NewMetrics()

	// 1. pipeline runner
	runner, err := pipeline.Compile(s, c, pipeline.Options{Stdout: opts.Stdout, Metrics: m, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if runner.HasSource() {
		if err := runner.Start(ctx); err != nil {
			_ = runner.Close()
			return nil, err
		}
	}

	// 2. transport server
	svc := transport.NewConfigService(runner, m, log)
	var srv *transport.Server
	if opts.Listener != nil {
		srv = transport.NewServer(opts.Listener, svc)
	} else if srv, err = transport.StartServer(s.GRPCPort, svc); err != nil {
		_ = runner.Close()
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 3. metrics
	e := &Engine{transport: srv, runner: runner, log: log}
	if s.MetricsPort > 0 {
		e.metrics = telemetry.Expose(m, s.MetricsPort)
	}
	log.Info("engine ready", "grpc", srv.Addr().String(), "metrics_port", s.MetricsPort, "sinks", s.Sinks, "source", s.Source.Kind)
	return e, nil
}
