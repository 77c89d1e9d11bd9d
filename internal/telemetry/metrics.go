package telemetry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/logging"
	"lstmcpipe/internal/validate"
)

// Metrics counts validation, completion and sink outcomes.
type Metrics struct {
	reg         *prometheus.Registry
	validations *prometheus.CounterVec
	completions *prometheus.CounterVec
	sinkPushes  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lstmcpipe",
			Name:      "validations_total",
			Help:      "Configuration documents checked, by outcome.",
		}, []string{"result"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lstmcpipe",
			Name:      "completions_total",
			Help:      "Validated documents completed, by workflow kind and outcome.",
		}, []string{"workflow_kind", "result"}),
		sinkPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lstmcpipe",
			Name:      "sink_pushes_total",
			Help:      "Completed documents handed to sinks, by sink and outcome.",
		}, []string{"sink", "result"}),
	}
	m.reg.MustRegister(m.validations, m.completions, m.sinkPushes)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) ObserveValidation(err error) {
	m.validations.WithLabelValues(ValidationResult(err)).Inc()
}

func (m *Metrics) ObserveCompletion(kind string, err error) {
	m.completions.WithLabelValues(kind, CompletionResult(err)).Inc()
}

func (m *Metrics) ObserveSink(name string, err error) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	m.sinkPushes.WithLabelValues(name, res).Inc()
}

// ValidationResult is the label value for a validation outcome.
func ValidationResult(err error) string {
	var (
		mk *validate.MissingKeyError
		ie *validate.InvalidEnumError
		de *validate.MissingDependentKeyError
		ue *validate.UnpairedFieldError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &mk):
		return "missing_key"
	case errors.As(err, &ie):
		return "invalid_enum"
	case errors.As(err, &de):
		return "missing_dependent_key"
	case errors.As(err, &ue):
		return "unpaired_field"
	}
	return "error"
}

// CompletionResult is the label value for a completion outcome.
func CompletionResult(err error) string {
	var (
		ee *complete.EnvironmentResolutionError
		ie *complete.InternalError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ee):
		return "environment_error"
	case errors.As(err, &ie):
		return "internal_error"
	}
	return "error"
}

// Expose serves /metrics on port in the background. The returned server
// can be shut down by the caller. Listen failures are logged.
func Expose(m *Metrics, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("metrics endpoint stopped", "addr", srv.Addr, "err", err)
		}
	}()
	return srv
}
