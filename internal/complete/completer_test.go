package complete

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"lstmcpipe/internal/schema"
	"lstmcpipe/internal/validate"
)

type fakeVersions struct {
	calls int
	err   error
}

func (f *fakeVersions) Version(_ context.Context, tc schema.Toolchain) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	switch tc {
	case schema.ToolchainLSTChain:
		return "0.9.6", nil
	case schema.ToolchainCTAPipe:
		return "0.12.0", nil
	}
	return "", ErrVersionUnknown
}

func fixedClock() time.Time { return time.Date(2023, time.May, 10, 15, 4, 5, 0, time.UTC) }

func rawConfig() map[string]any {
	return map[string]any{
		"workflow_kind": "lstchain",
		"prod_type":     "PathConfigProd5Trans80",
		"prod_id":       "v01",
		"source_environment": map[string]any{
			"source_file": "/opt/env.sh",
			"conda_env":   "prod",
		},
		"stages_to_run": []any{"r0_to_dl1", "merge_dl1"},
		"stages": map[string]any{
			"r0_to_dl1": []any{
				map[string]any{"input": "/data/DL0/gamma", "output": "/data/DL1/gamma"},
				map[string]any{"input": "/data/DL0/proton", "output": "/data/DL1/proton"},
			},
			"merge_dl1": map[string]any{"merging_no_image": true},
		},
		"slurm_config": map[string]any{"user_account": "aswg"},
	}
}

func mustValidate(t *testing.T, raw map[string]any) validate.Validated {
	t.Helper()
	v, err := validate.Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return v
}

func newCompleter(f VersionProvider, opts ...Option) *Completer {
	return New(f, append([]Option{WithClock(fixedClock)}, opts...)...)
}

func TestComplete_RunIdentifierScenario(t *testing.T) {
	c := newCompleter(&fakeVersions{})
	out, err := c.Complete(context.Background(), mustValidate(t, rawConfig()))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	const want = "20230510_v0.9.6_prod5_trans_80_v01"
	if out.RunIdentifier() != want {
		t.Fatalf("run id=%q, want %q", out.RunIdentifier(), want)
	}
	if out.Map()["prod_id"] != want {
		t.Fatalf("prod_id=%v, want %q", out.Map()["prod_id"], want)
	}
}

func TestComplete_VariantPerWorkflow(t *testing.T) {
	tests := []struct {
		kind string
		prod string
		want string
	}{
		{"lstchain", "PathConfigProd5", "20230510_v0.9.6_prod5_v01"},
		{"ctapipe", "PathConfigAllSky", "20230510_vctapipe0.12.0_prod_all_sky_v01"},
		{"hiperta", "PathConfigProd5Trans80Dl1ab", "20230510_vRTA420_v0.9.6_prod5_trans_80_v01"},
	}
	for _, tt := range tests {
		raw := rawConfig()
		raw["workflow_kind"] = tt.kind
		raw["prod_type"] = tt.prod
		out, err := newCompleter(&fakeVersions{}).Complete(context.Background(), mustValidate(t, raw))
		if err != nil {
			t.Fatalf("%s: %v", tt.kind, err)
		}
		if out.RunIdentifier() != tt.want {
			t.Fatalf("%s: run id=%q, want %q", tt.kind, out.RunIdentifier(), tt.want)
		}
	}
}

func TestComplete_DefaultSuffix(t *testing.T) {
	raw := rawConfig()
	delete(raw, "prod_id")
	out, err := newCompleter(&fakeVersions{}).Complete(context.Background(), mustValidate(t, raw))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.HasSuffix(out.RunIdentifier(), "_v00") {
		t.Fatalf("run id=%q, want _v00 suffix", out.RunIdentifier())
	}
}

func TestComplete_NullSuffixDefaults(t *testing.T) {
	raw := rawConfig()
	raw["prod_id"] = nil
	out, err := newCompleter(&fakeVersions{}).Complete(context.Background(), mustValidate(t, raw))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	const want = "20230510_v0.9.6_prod5_trans_80_v00"
	if out.RunIdentifier() != want {
		t.Fatalf("run id=%q, want %q", out.RunIdentifier(), want)
	}
}

func TestComplete_StagesAreCopied(t *testing.T) {
	out, err := newCompleter(&fakeVersions{}).Complete(context.Background(), mustValidate(t, rawConfig()))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	s := out.Stages()
	s[0] = "dl1ab"
	if got := out.Stages()[0]; got != "r0_to_dl1" {
		t.Fatalf("Stages()[0]=%q after caller mutation, want r0_to_dl1", got)
	}
}

func TestComplete_BatchConfig(t *testing.T) {
	raw := rawConfig()
	delete(raw, "slurm_config")
	out, err := newCompleter(&fakeVersions{}).Complete(context.Background(), mustValidate(t, raw))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	b := out.Batch()
	if b.ResourceAccount != "" {
		t.Fatalf("account=%q, want empty", b.ResourceAccount)
	}
	if b.EnvironmentActivation != "source /opt/env.sh; conda activate prod; " {
		t.Fatalf("activation=%q", b.EnvironmentActivation)
	}
	bc, ok := out.Map()["batch_config"].(map[string]any)
	if !ok {
		t.Fatalf("batch_config has type %T", out.Map()["batch_config"])
	}
	if bc["source_environment"] != b.EnvironmentActivation || bc["slurm_account"] != "" {
		t.Fatalf("batch_config=%v", bc)
	}
}

func TestComplete_Deterministic(t *testing.T) {
	c := newCompleter(&fakeVersions{})
	v := mustValidate(t, rawConfig())
	a, err := c.Complete(context.Background(), v)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := c.Complete(context.Background(), v)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.RunIdentifier() != b.RunIdentifier() {
		t.Fatalf("run ids differ: %q vs %q", a.RunIdentifier(), b.RunIdentifier())
	}
	if diff := cmp.Diff(a.Map(), b.Map()); diff != "" {
		t.Fatalf("documents differ (-first +second):\n%s", diff)
	}
}

func TestComplete_PreservesOtherKeys(t *testing.T) {
	raw := rawConfig()
	raw["dl1_reference_id"] = "20210416_v0.7.3_prod5_trans_80_local_tailcut_8_4"
	raw["extra"] = map[string]any{"nested": []any{1, 2, 3}}
	v := mustValidate(t, raw)

	out, err := newCompleter(&fakeVersions{}).Complete(context.Background(), v)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got := out.Map()
	for k, want := range raw {
		if k == "prod_id" || k == "batch_config" {
			continue
		}
		if diff := cmp.Diff(want, got[k]); diff != "" {
			t.Fatalf("key %q changed (-raw +completed):\n%s", k, diff)
		}
	}
	if raw["prod_id"] != "v01" {
		t.Fatalf("input document mutated: prod_id=%v", raw["prod_id"])
	}
	if _, ok := raw["batch_config"]; ok {
		t.Fatal("input document mutated: batch_config added")
	}
}

func TestComplete_EnvironmentError(t *testing.T) {
	cause := errors.New("No module named 'lstchain'")
	_, err := newCompleter(&fakeVersions{err: cause}).Complete(context.Background(), mustValidate(t, rawConfig()))
	var ee *EnvironmentResolutionError
	if !errors.As(err, &ee) {
		t.Fatalf("want EnvironmentResolutionError, got %v", err)
	}
	if ee.Toolchain != schema.ToolchainLSTChain {
		t.Fatalf("toolchain=%q", ee.Toolchain)
	}
	if errors.Is(err, validate.ErrInvalidConfig) {
		t.Fatal("environment error must not be reported as a validation error")
	}
	if !errors.Is(err, cause) {
		t.Fatal("environment error does not wrap its cause")
	}
}

func TestComplete_RejectsZeroValidated(t *testing.T) {
	_, err := newCompleter(&fakeVersions{}).Complete(context.Background(), validate.Validated{})
	var ie *InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("want InternalError, got %v", err)
	}
}

func TestComplete_ResolvesVersionOnce(t *testing.T) {
	f := &fakeVersions{}
	if _, err := newCompleter(f).Complete(context.Background(), mustValidate(t, rawConfig())); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("version provider called %d times, want 1", f.calls)
	}
}

func TestComplete_LogsSummary(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	_, err := newCompleter(&fakeVersions{}, WithLogger(l)).Complete(context.Background(), mustValidate(t, rawConfig()))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	logs := buf.String()
	for _, want := range []string{
		"workflow_kind=lstchain",
		"prod_id=20230510_v0.9.6_prod5_trans_80_v01",
		"no_image=true",
		"/data/DL0/proton",
		"slurm_account=aswg",
		"overwritten",
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("summary missing %q:\n%s", want, logs)
		}
	}
}
