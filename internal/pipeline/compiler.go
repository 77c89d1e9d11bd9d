package pipeline

import (
	"fmt"
	"io"
	"log/slog"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/config"
	"lstmcpipe/internal/telemetry"
	"lstmcpipe/sink"
	"lstmcpipe/sink/file"
	ksink "lstmcpipe/sink/kafka"
	"lstmcpipe/sink/stdout"
	"lstmcpipe/source/kafka"
)

// Options are process-level inputs that do not come from settings.
type Options struct {
	Stdout  io.Writer // stdout sink output; nil means os.Stdout
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Compile builds a Runner from settings: every named sink is configured
// from its sink_configs block, and a Kafka source is attached when
// source.kind is kafka.
func Compile(s config.Settings, c *complete.Completer, opts Options) (*Runner, error) {
	r := NewRunner(c, opts.Metrics, opts.Logger)
	if err := addSinks(r, s, opts); err != nil {
		_ = r.Close()
		return nil, err
	}

	switch s.Source.Kind {
	case "":
	case "kafka":
		kc, err := kafka.LoadConfig(s.Source.Config)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("source: %w", err)
		}
		driver := s.Source.Driver
		if driver == "" {
			driver = "sarama"
		}
		src, err := kafka.NewAdapter(driver)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		if err := src.Configure(kc); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("source: %w", err)
		}
		r.SetSource(src)
	default:
		_ = r.Close()
		return nil, fmt.Errorf("unsupported source %q", s.Source.Kind)
	}
	return r, nil
}

func addSinks(r *Runner, s config.Settings, opts Options) error {
	for _, name := range s.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		switch name {
		case "stdout":
			err = sDrv.Configure(stdout.Config{Out: opts.Stdout, Separator: true})
		case "file":
			fc := s.SinkConfigs.File
			err = sDrv.Configure(file.Config{Dir: fc.Dir, Overwrite: fc.Overwrite})
		case "kafka":
			kc := s.SinkConfigs.Kafka
			err = sDrv.Configure(ksink.Config{Brokers: kc.Brokers, Topic: kc.Topic, Acks: kc.RequiredAcks})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(name, sDrv)
	}
	return nil
}
