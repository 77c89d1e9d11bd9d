package config

import (
	"context"
	"path/filepath"
	"testing"

	"lstmcpipe/internal/schema"
)

func TestLoadSettings_FileEnvAndDefaults(t *testing.T) {
	path := writeFile(t, "lstmcpipe.yml", `schema_version: v1
toolchains:
  lstchain: 0.9.6
sinks: [stdout, file]
sink_configs:
  file:
    dir: out
source:
  kind: kafka
  driver: sarama
  config: kafka_source.yml
`)
	t.Setenv("LSTMCPIPE__LOG__LEVEL", "debug")
	t.Setenv("LSTMCPIPE__SINK_CONFIGS__KAFKA__BROKERS", "k1:9092,k2:9092")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Log.Level != "debug" {
		t.Fatalf("log level=%q, want env override", s.Log.Level)
	}
	if len(s.SinkConfigs.Kafka.Brokers) != 2 || s.SinkConfigs.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers=%v", s.SinkConfigs.Kafka.Brokers)
	}
	if len(s.Sinks) != 2 || s.Sinks[1] != "file" {
		t.Fatalf("sinks=%v", s.Sinks)
	}
	if s.GRPCPort != 7070 || s.MetricsPort != 9100 || s.Python != "python" {
		t.Fatalf("defaults not applied: %+v", s)
	}
	if !filepath.IsAbs(s.Source.Config) {
		t.Fatalf("want absolute source config, got %q", s.Source.Config)
	}
	v, err := s.Versions().Version(context.Background(), schema.ToolchainLSTChain)
	if err != nil || v != "0.9.6" {
		t.Fatalf("pinned version=%q %v", v, err)
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if len(s.Sinks) != 1 || s.Sinks[0] != "stdout" {
		t.Fatalf("sinks=%v", s.Sinks)
	}
}

func TestLoadSettings_InvalidSchema(t *testing.T) {
	path := writeFile(t, "lstmcpipe.yml", "schema_version: v999\n")
	if _, err := LoadSettings(path); err == nil {
		t.Fatal("expected error for invalid schema_version")
	}
}
