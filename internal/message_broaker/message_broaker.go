package message_broaker

import "context"

// Message is one published event. Key is the routing key; an empty key
// falls back to the broker's configured default.
type Message struct {
	ID   string
	Key  string
	Body []byte
}

type MessageBroker interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}
