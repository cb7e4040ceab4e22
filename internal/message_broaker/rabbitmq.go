package message_broaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RezaEskandarii/driveq/types/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQ struct {
	mu          sync.Mutex
	conn        *amqp.Connection
	channel     *amqp.Channel
	exchange    string
	routingKey  string
	contentType string
}

// NewRabbitMQ connects and declares the configured topology. Without an
// exchange, messages go through the default exchange straight to the queue.
func NewRabbitMQ(cfg config.RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	routingKey := cfg.RoutingKey
	if cfg.Exchange == "" {
		routingKey = cfg.Queue
	}
	return &RabbitMQ{
		conn:        conn,
		channel:     ch,
		exchange:    cfg.Exchange,
		routingKey:  routingKey,
		contentType: cfg.ContentType,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg config.RabbitMQConfig) error {
	if cfg.Exchange != "" {
		if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
		}
	}
	if cfg.Queue == "" {
		return nil
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	if cfg.Exchange != "" {
		bindKey := cfg.RoutingKey
		if bindKey == "" {
			bindKey = "#"
		}
		if err := ch.QueueBind(cfg.Queue, bindKey, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", cfg.Queue, err)
		}
	}
	return nil
}

func (r *RabbitMQ) Publish(ctx context.Context, msg Message) error {
	key := msg.Key
	if key == "" || r.exchange == "" {
		key = r.routingKey
	}

	// amqp channels are not safe for concurrent publishing
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.PublishWithContext(ctx,
		r.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  r.contentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    time.Now(),
			Body:         msg.Body,
		},
	)
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		_ = r.conn.Close()
		return err
	}
	return r.conn.Close()
}
