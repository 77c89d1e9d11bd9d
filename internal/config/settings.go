package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/schema"
)

// EnvPrefix selects the environment variables merged over the settings file.
// Nesting uses a double underscore: LSTMCPIPE__LOG__LEVEL=debug.
const EnvPrefix = "LSTMCPIPE__"

const SupportedSchema = "v1"

type LogSettings struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type FileSinkSettings struct {
	Dir       string `koanf:"dir"`
	Overwrite bool   `koanf:"overwrite"`
}

type KafkaSinkSettings struct {
	Brokers      []string `koanf:"brokers"`
	Topic        string   `koanf:"topic"`
	RequiredAcks int16    `koanf:"required_acks"` // 0,1,-1
}

type SinkConfigs struct {
	File  FileSinkSettings  `koanf:"file"`
	Kafka KafkaSinkSettings `koanf:"kafka"`
}

type SourceSettings struct {
	Kind   string `koanf:"kind"`
	Driver string `koanf:"driver"`
	Config string `koanf:"config"`
}

// Settings configure the tool itself, not the pipeline being described.
type Settings struct {
	SchemaVersion string            `koanf:"schema_version"`
	Log           LogSettings       `koanf:"log"`
	Python        string            `koanf:"python"`
	Toolchains    map[string]string `koanf:"toolchains"`
	GRPCPort      int               `koanf:"grpc_port"`
	MetricsPort   int               `koanf:"metrics_port"`
	Sinks         []string          `koanf:"sinks"`
	SinkConfigs   SinkConfigs       `koanf:"sink_configs"`
	Source        SourceSettings    `koanf:"source"`
}

// LoadSettings merges the YAML file at path (if present) with
// LSTMCPIPE__-prefixed environment variables and applies defaults.
// A relative source.config is resolved against the settings file.
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Settings{}, fmt.Errorf("settings schema_version %q not supported (want %q)", sv, SupportedSchema)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return s, err
	}
	applyDefaults(&s)
	if s.Source.Config != "" && path != "" && !filepath.IsAbs(s.Source.Config) {
		s.Source.Config = filepath.Join(filepath.Dir(path), s.Source.Config)
	}
	return s, nil
}

// envKey maps LSTMCPIPE__SINK_CONFIGS__KAFKA__TOPIC to sink_configs.kafka.topic.
// Comma-separated values become lists.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

func applyDefaults(s *Settings) {
	if s.SchemaVersion == "" {
		s.SchemaVersion = SupportedSchema
	}
	if s.Python == "" {
		s.Python = "python"
	}
	if s.GRPCPort == 0 {
		s.GRPCPort = 7070
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 9100
	}
	if len(s.Sinks) == 0 {
		s.Sinks = []string{"stdout"}
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
}

// Versions answers from pinned toolchain versions first and falls back to
// asking the configured Python interpreter.
func (s Settings) Versions() complete.VersionProvider {
	pinned := complete.StaticVersions{}
	for _, tc := range schema.Toolchains {
		if v := s.Toolchains[string(tc)]; v != "" {
			pinned[tc] = v
		}
	}
	return complete.ChainVersions{pinned, complete.PythonVersions{Interpreter: s.Python}}
}
