// Package validate checks raw pipeline configuration documents against the
// rules in package schema. Checks run in a fixed order and stop at the first
// failure.
package validate

import (
	"reflect"
	"slices"

	"lstmcpipe/internal/schema"
)

// Validated is a document that passed Validate. The zero value is not valid
// and is rejected by the completer.
type Validated struct {
	raw      map[string]any
	kind     schema.WorkflowKind
	prodType schema.ProductionType
	stages   []string
}

// Raw returns the underlying document. Callers must not mutate it.
func (v Validated) Raw() map[string]any { return v.raw }

func (v Validated) WorkflowKind() schema.WorkflowKind     { return v.kind }
func (v Validated) ProductionType() schema.ProductionType { return v.prodType }

// Stages returns the requested stages in document order.
func (v Validated) Stages() []string { return slices.Clone(v.stages) }

// Ok reports whether v was produced by a successful Validate.
func (v Validated) Ok() bool { return v.raw != nil }

// Validate checks raw and returns it wrapped as Validated. raw is never
// modified. Deeper checks of the per-stage parameter blocks are not done.
func Validate(raw map[string]any) (Validated, error) {
	for _, key := range schema.CompulsoryKeys {
		if _, ok := raw[key]; !ok {
			return Validated{}, &MissingKeyError{Key: key}
		}
	}

	kindVal := raw[schema.KeyWorkflowKind]
	kind, _ := kindVal.(string)
	if !schema.WorkflowKind(kind).Valid() {
		return Validated{}, &InvalidEnumError{
			Field:   schema.KeyWorkflowKind,
			Value:   kindVal,
			Allowed: schema.Strings(schema.WorkflowKinds),
		}
	}

	prodVal := raw[schema.KeyProdType]
	prod, _ := prodVal.(string)
	if !schema.ProductionType(prod).Valid() {
		return Validated{}, &InvalidEnumError{
			Field:   schema.KeyProdType,
			Value:   prodVal,
			Allowed: schema.Strings(schema.ProductionTypes),
		}
	}

	stages := StageList(raw[schema.KeyStagesToRun])
	for _, req := range schema.StageRequirements {
		if !slices.Contains(stages, req.Stage) {
			continue
		}
		if _, ok := raw[req.Key]; !ok {
			return Validated{}, &MissingDependentKeyError{Stage: req.Stage, Key: req.Key}
		}
	}

	for _, pair := range schema.PairedKeys {
		a, b := isSet(raw[pair.A]), isSet(raw[pair.B])
		switch {
		case a && !b:
			return Validated{}, &UnpairedFieldError{Present: pair.A, Missing: pair.B}
		case b && !a:
			return Validated{}, &UnpairedFieldError{Present: pair.B, Missing: pair.A}
		}
	}

	return Validated{
		raw:      raw,
		kind:     schema.WorkflowKind(kind),
		prodType: schema.ProductionType(prod),
		stages:   stages,
	}, nil
}

// StageList normalizes the stages_to_run value. A bare string is treated as
// a single stage; non-string entries are skipped.
func StageList(v any) []string {
	switch s := v.(type) {
	case string:
		return []string{s}
	case []string:
		return slices.Clone(s)
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// isSet treats nil, zero scalars and empty collections as unset.
func isSet(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() > 0
	}
	return !rv.IsZero()
}
