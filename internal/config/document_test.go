package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/schema"
	"lstmcpipe/internal/validate"
)

const lstchainDoc = `workflow_kind: lstchain
prod_type: PathConfigProd5Trans80
prod_id: v01
source_environment:
  source_file: /opt/env.sh
  conda_env: prod
slurm_config:
  user_account: aswg
stages_to_run:
  - r0_to_dl1
  - merge_dl1
stages:
  r0_to_dl1:
    - input: /data/DL0/gamma
      output: /data/DL1/gamma
  merge_dl1:
    merging_no_image: true
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadDocument_NestedMappings(t *testing.T) {
	doc, err := LoadDocument(writeFile(t, "lstmcpipe_config.yml", lstchainDoc))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	env, ok := doc["source_environment"].(map[string]any)
	if !ok {
		t.Fatalf("source_environment has type %T", doc["source_environment"])
	}
	if env["conda_env"] != "prod" {
		t.Fatalf("conda_env=%v", env["conda_env"])
	}
	if _, ok := doc["stages_to_run"].([]any); !ok {
		t.Fatalf("stages_to_run has type %T", doc["stages_to_run"])
	}
}

func TestDecodeDocument_Empty(t *testing.T) {
	if _, err := DecodeDocument(strings.NewReader("")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("want ErrEmptyDocument, got %v", err)
	}
	if _, err := DecodeDocument(strings.NewReader("~\n")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("null document: want ErrEmptyDocument, got %v", err)
	}
}

func TestDecodeDocument_NotAMapping(t *testing.T) {
	if _, err := DecodeDocument(strings.NewReader("- a\n- b\n")); err == nil {
		t.Fatal("expected error for sequence document")
	}
}

func TestLoadDocument_MissingFile(t *testing.T) {
	if _, err := LoadDocument(filepath.Join(t.TempDir(), "nope.yml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist, got %v", err)
	}
}

func TestWriteDocument_RoundTrip(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(lstchainDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteDocument(&buf, doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	again, err := DecodeDocument(&buf)
	if err != nil {
		t.Fatalf("decode written: %v", err)
	}
	if again["prod_type"] != "PathConfigProd5Trans80" {
		t.Fatalf("prod_type=%v", again["prod_type"])
	}
}

func TestLoad_ValidatesThenCompletes(t *testing.T) {
	c := complete.New(
		complete.StaticVersions{schema.ToolchainLSTChain: "0.9.6"},
		complete.WithClock(func() time.Time { return time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC) }),
	)
	out, err := Load(context.Background(), writeFile(t, "ok.yml", lstchainDoc), c)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.RunIdentifier() != "20230510_v0.9.6_prod5_trans_80_v01" {
		t.Fatalf("run id=%q", out.RunIdentifier())
	}

	bad := strings.Replace(lstchainDoc, "workflow_kind: lstchain", "workflow_kind: gammapy", 1)
	_, err = Load(context.Background(), writeFile(t, "bad.yml", bad), c)
	if !errors.Is(err, validate.ErrInvalidConfig) {
		t.Fatalf("want validation error, got %v", err)
	}
}
