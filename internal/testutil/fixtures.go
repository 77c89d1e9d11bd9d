// Package testutil holds document fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/schema"
	"lstmcpipe/internal/validate"
)

// RunDate is the fixed completion date used by Completer.
var RunDate = time.Date(2023, time.May, 10, 12, 0, 0, 0, time.UTC)

// Versions pins toolchain versions so completion never shells out.
var Versions = complete.StaticVersions{
	schema.ToolchainLSTChain: "0.9.6",
	schema.ToolchainCTAPipe:  "0.12.0",
}

// DocYAML is a valid lstchain document; it completes to
// 20230510_v0.9.6_prod5_trans_80_v01 on RunDate.
const DocYAML = `workflow_kind: lstchain
prod_type: PathConfigProd5Trans80
prod_id: v01
source_environment:
  source_file: /opt/env.sh
  conda_env: prod
stages_to_run:
  - r0_to_dl1
stages:
  r0_to_dl1:
    - input: /data/DL0/gamma
      output: /data/DL1/gamma
`

// RunID is the identifier DocYAML completes to.
const RunID = "20230510_v0.9.6_prod5_trans_80_v01"

// Raw returns a fresh copy of the DocYAML mapping.
func Raw() map[string]any {
	return map[string]any{
		"workflow_kind": "lstchain",
		"prod_type":     "PathConfigProd5Trans80",
		"prod_id":       "v01",
		"source_environment": map[string]any{
			"source_file": "/opt/env.sh",
			"conda_env":   "prod",
		},
		"stages_to_run": []any{"r0_to_dl1"},
		"stages": map[string]any{
			"r0_to_dl1": []any{map[string]any{"input": "/data/DL0/gamma", "output": "/data/DL1/gamma"}},
		},
	}
}

// Completer returns a completer pinned to RunDate and Versions.
func Completer() *complete.Completer {
	return complete.New(Versions, complete.WithClock(func() time.Time { return RunDate }))
}

// Completed validates and completes Raw.
func Completed(t *testing.T) complete.Completed {
	t.Helper()
	v, err := validate.Validate(Raw())
	require.NoError(t, err)
	c, err := Completer().Complete(context.Background(), v)
	require.NoError(t, err)
	return c
}
