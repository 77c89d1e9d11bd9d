package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every error that rejects a document.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// MissingKeyError reports an absent compulsory top-level key.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("configuration was not generated correctly: missing %q key", e.Key)
}

func (e *MissingKeyError) Unwrap() error { return ErrInvalidConfig }

// InvalidEnumError reports a value outside its allowed set.
type InvalidEnumError struct {
	Field   string
	Value   any
	Allowed []string
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("%s %v not allowed; select one of [%s]", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *InvalidEnumError) Unwrap() error { return ErrInvalidConfig }

// MissingDependentKeyError reports a key required by a requested stage.
type MissingDependentKeyError struct {
	Stage string
	Key   string
}

func (e *MissingDependentKeyError) Error() string {
	return fmt.Sprintf("key %q has to be set in order to locate the input files for the %s stage", e.Key, e.Stage)
}

func (e *MissingDependentKeyError) Unwrap() error { return ErrInvalidConfig }

// UnpairedFieldError reports one half of a key pair set without the other.
type UnpairedFieldError struct {
	Present string
	Missing string
}

func (e *UnpairedFieldError) Error() string {
	return fmt.Sprintf("%q is set but its counterpart %q is missing", e.Present, e.Missing)
}

func (e *UnpairedFieldError) Unwrap() error { return ErrInvalidConfig }
