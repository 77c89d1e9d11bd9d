package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/config"
	"lstmcpipe/internal/logging"
	"lstmcpipe/internal/telemetry"
	"lstmcpipe/internal/validate"
	"lstmcpipe/sink"
	"lstmcpipe/source/kafka"
)

// ErrRejected wraps document-level failures (decode or validation). A
// long-running source logs and skips them.
var ErrRejected = errors.New("document rejected")

type namedSink struct {
	name string
	sink sink.Adapter
}

// Runner takes raw documents through validate → complete → sinks.
type Runner struct {
	completer *complete.Completer
	metrics   *telemetry.Metrics
	log       *slog.Logger

	source kafka.Adapter
	sinks  []namedSink

	closeOnce sync.Once
}

func NewRunner(c *complete.Completer, m *telemetry.Metrics, l *slog.Logger) *Runner {
	if l == nil {
		l = logging.Discard()
	}
	return &Runner{completer: c, metrics: m, log: l}
}

func (r *Runner) AddSink(name string, s sink.Adapter) {
	r.sinks = append(r.sinks, namedSink{name: name, sink: s})
}
func (r *Runner) SetSource(s kafka.Adapter) { r.source = s }
func (r *Runner) HasSource() bool           { return r.source != nil }

// Process validates and completes raw, then pushes the result to every sink
// in order. The first sink error stops delivery; it is returned as a
// *sink.DeliveryError alongside the completed document.
func (r *Runner) Process(ctx context.Context, raw map[string]any) (complete.Completed, error) {
	v, err := validate.Validate(raw)
	r.observeValidation(err)
	if err != nil {
		return complete.Completed{}, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	r.log.Debug("configuration deemed valid", "workflow_kind", string(v.WorkflowKind()))

	out, err := r.completer.Complete(ctx, v)
	r.observeCompletion(string(v.WorkflowKind()), err)
	if err != nil {
		return complete.Completed{}, err
	}

	for _, s := range r.sinks {
		err := s.sink.Push(ctx, out)
		if r.metrics != nil {
			r.metrics.ObserveSink(s.name, err)
		}
		if err != nil {
			return out, &sink.DeliveryError{Sink: s.name, Err: err}
		}
	}
	return out, nil
}

// HandleDocument decodes a YAML document and processes it.
func (r *Runner) HandleDocument(ctx context.Context, body []byte) (complete.Completed, error) {
	raw, err := config.DecodeDocument(bytes.NewReader(body))
	if err != nil {
		r.observeValidation(err)
		return complete.Completed{}, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return r.Process(ctx, raw)
}

/*──────── source routing ───────*/
func (r *Runner) handleMessage(ctx context.Context, m kafka.Message) error {
	out, err := r.HandleDocument(ctx, m.Value)
	switch {
	case err == nil:
		r.log.Info("configuration completed", "topic", m.Topic, "offset", m.Offset, "prod_id", out.RunIdentifier())
		return nil
	case errors.Is(err, ErrRejected):
		r.log.Warn("configuration rejected", "topic", m.Topic, "offset", m.Offset, "err", err)
		return nil
	case isEnvironmentError(err):
		r.log.Error("cannot complete configuration in this environment", "topic", m.Topic, "offset", m.Offset, "err", err)
		return nil
	case errors.Is(err, sink.ErrPermanent):
		r.log.Warn("configuration not delivered", "topic", m.Topic, "offset", m.Offset, "prod_id", out.RunIdentifier(), "err", err)
		return nil
	}
	return err
}

func (r *Runner) Start(ctx context.Context) error {
	if r.source == nil {
		return errors.New("runner: no source configured")
	}
	go func() {
		if err := r.source.Run(ctx, r.handleMessage); err != nil && ctx.Err() == nil {
			r.log.Error("runner: source stopped", "err", err)
		}
	}()
	return nil
}

// Close closes the source and every sink; safe to call more than once.
func (r *Runner) Close() error {
	var errs []error
	r.closeOnce.Do(func() {
		if r.source != nil {
			errs = append(errs, r.source.Close())
		}
		for _, s := range r.sinks {
			errs = append(errs, s.sink.Close())
		}
	})
	return errors.Join(errs...)
}

func (r *Runner) observeValidation(err error) {
	if r.metrics != nil {
		r.metrics.ObserveValidation(err)
	}
}

func (r *Runner) observeCompletion(kind string, err error) {
	if r.metrics != nil {
		r.metrics.ObserveCompletion(kind, err)
	}
}

func isEnvironmentError(err error) bool {
	var ee *complete.EnvironmentResolutionError
	return errors.As(err, &ee)
}
