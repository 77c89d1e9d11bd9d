package engine

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"lstmcpipe/internal/pipeline"
	"lstmcpipe/internal/transport"
)

const shutdownGrace = 5 * time.Second

type Engine struct {
	transport *transport.Server
	runner    *pipeline.Runner
	metrics   *http.Server
	log       *slog.Logger
}

// Run serves until ctx is cancelled, then stops the RPC server, the
// metrics endpoint and the runner.
func (e *Engine) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		e.log.Info("engine shutting down")
		e.transport.Stop()
		if e.metrics != nil {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			_ = e.metrics.Shutdown(sctx)
			cancel()
		}
		_ = e.runner.Close()
	}()

	return e.transport.Serve()
}
