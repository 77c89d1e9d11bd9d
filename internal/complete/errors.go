package complete

import (
	"fmt"

	"lstmcpipe/internal/schema"
)

// EnvironmentResolutionError reports a toolchain whose version could not be
// introspected. It describes the execution environment, not the document,
// and does not wrap validate.ErrInvalidConfig.
type EnvironmentResolutionError struct {
	Toolchain schema.Toolchain
	Err       error
}

func (e *EnvironmentResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s version: %v", e.Toolchain, e.Err)
}

func (e *EnvironmentResolutionError) Unwrap() error { return e.Err }

// InternalError marks a state validation should have made unreachable.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal consistency fault: " + e.Msg }
