package kafka

import "context"

// Message is one raw configuration document read from a topic.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// EmitFunc handles a message. Returning an error stops consumption without
// marking the message, so it is redelivered.
type EmitFunc func(context.Context, Message) error

type Adapter interface {
	Configure(Config) error
	Run(context.Context, EmitFunc) error
	Close() error
}
