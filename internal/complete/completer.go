// Package complete derives the fields downstream pipeline stages need from a
// validated configuration document: the run identifier written to prod_id
// and the batch_config block.
package complete

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	"lstmcpipe/internal/schema"
	"lstmcpipe/internal/validate"
)

// Completed is a validated document with its derived fields merged in.
// Consumers must treat it as read-only.
type Completed struct {
	doc    map[string]any
	runID  string
	batch  BatchSettings
	kind   schema.WorkflowKind
	stages []string
}

// Map returns the completed document.
func (c Completed) Map() map[string]any { return c.doc }

// RunIdentifier is the value stored under prod_id.
func (c Completed) RunIdentifier() string { return c.runID }

func (c Completed) Batch() BatchSettings              { return c.batch }
func (c Completed) WorkflowKind() schema.WorkflowKind { return c.kind }
func (c Completed) Stages() []string                  { return slices.Clone(c.stages) }

type Option func(*Completer)

// WithClock overrides the date source.
func WithClock(now func() time.Time) Option {
	return func(c *Completer) { c.now = now }
}

// WithLogger sets the diagnostics sink.
func WithLogger(l *slog.Logger) Option {
	return func(c *Completer) { c.log = l }
}

// Completer holds no mutable state and is safe for concurrent use.
type Completer struct {
	versions VersionProvider
	now      func() time.Time
	log      *slog.Logger
}

func New(versions VersionProvider, opts ...Option) *Completer {
	c := &Completer{
		versions: versions,
		now:      time.Now,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete derives prod_id and batch_config. The input document is copied,
// never modified. Only toolchain resolution can fail for a validated input.
func (c *Completer) Complete(ctx context.Context, v validate.Validated) (Completed, error) {
	if !v.Ok() {
		return Completed{}, &InternalError{Msg: "completion requested for an unvalidated document"}
	}
	raw := v.Raw()
	kind := v.WorkflowKind()

	tc, ok := kind.Toolchain()
	if !ok {
		return Completed{}, &InternalError{Msg: "no toolchain for workflow kind " + string(kind)}
	}
	version, err := c.versions.Version(ctx, tc)
	if err != nil {
		return Completed{}, &EnvironmentResolutionError{Toolchain: tc, Err: err}
	}

	suffix := UserSuffix(raw)
	runID, err := RunIdentifier(c.now(), kind, version, v.ProductionType(), suffix)
	if err != nil {
		return Completed{}, err
	}

	env, _ := raw[schema.KeySourceEnvironment].(map[string]any)
	for _, k := range []string{schema.KeySourceFile, schema.KeyCondaEnv} {
		if _, ok := env[k]; !ok {
			c.log.Warn("source_environment entry missing", "key", k)
		}
	}
	batch := Batch(raw)

	doc := maps.Clone(raw)
	doc[schema.KeyProdID] = runID
	doc[schema.KeyBatchConfig] = batch.Map()

	out := Completed{
		doc:    doc,
		runID:  runID,
		batch:  batch,
		kind:   kind,
		stages: v.Stages(),
	}
	LogSummary(c.log, out)
	return out, nil
}
