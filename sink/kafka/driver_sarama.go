package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"lstmcpipe/internal/complete"
	"lstmcpipe/sink"
)

// HeaderEventID carries a unique id per published document.
const HeaderEventID = "event_id"

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
}

type driver struct {
	cfg Config
	p   sarama.SyncProducer

	// overridden in tests
	newProducer func([]string, *sarama.Config) (sarama.SyncProducer, error)
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka-sink: brokers and topic are required")
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	if d.newProducer == nil {
		d.newProducer = sarama.NewSyncProducer
	}
	var err error
	d.p, err = d.newProducer(cfg.Brokers, sc)
	return err
}

// Push publishes the document as JSON keyed by its run identifier.
func (d *driver) Push(_ context.Context, c complete.Completed) error {
	body, err := json.Marshal(c.Map())
	if err != nil {
		return fmt.Errorf("kafka-sink: encode %s: %w", c.RunIdentifier(), err)
	}
	_, _, err = d.p.SendMessage(&sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Key:   sarama.StringEncoder(c.RunIdentifier()),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventID), Value: []byte(uuid.NewString())},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka-sink: publish %s: %w", c.RunIdentifier(), err)
	}
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	p := d.p
	d.p = nil
	return p.Close()
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
