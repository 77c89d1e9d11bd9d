package sink

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"lstmcpipe/internal/complete"
)

// Adapter is the common behaviour every sink exposes. A sink receives each
// completed configuration once and hands it to whatever consumes it next.
type Adapter interface {
	Configure(any) error                            // driver-specific settings ⇒ struct
	Push(context.Context, complete.Completed) error // deliver one document
	Close() error                                   // idempotent
}

// ErrPermanent marks a push that cannot succeed if retried, e.g. a file sink
// refusing to overwrite an existing run.
var ErrPermanent = errors.New("permanent sink failure")

// DeliveryError reports which sink failed to take a completed document.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string { return "sink " + e.Sink + ": " + e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q (registered: %v)", name, Names())
}

// Names lists registered sinks in sorted order.
func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
