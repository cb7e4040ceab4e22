// Package events publishes job lifecycle events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/RezaEskandarii/driveq/internal/message_broaker"
	"github.com/RezaEskandarii/driveq/internal/observer"
	"github.com/RezaEskandarii/driveq/types"
	"github.com/google/uuid"
)

const (
	KeyJobAdded   = "job.added"
	KeyJobUpdated = "job.updated"
	KeyJobDone    = "job.done"

	defaultBufferSize = 1024
	publishTimeout    = 5 * time.Second
)

// Event is the JSON body of every published message.
type Event struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	Instance  string        `json:"instance"`
	Job       types.JobInfo `json:"job"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Publisher turns observer callbacks into broker messages. Callbacks never
// block the scheduler: events go through a bounded buffer and are dropped
// with a warning when it is full.
type Publisher struct {
	broker   message_broaker.MessageBroker
	instance string
	logger   *slog.Logger
	events   chan Event
	now      func() time.Time
}

var _ observer.Listener = (*Publisher)(nil)

func NewPublisher(broker message_broaker.MessageBroker, instance string, logger *slog.Logger) *Publisher {
	return &Publisher{
		broker:   broker,
		instance: instance,
		logger:   logger.With(slog.String("component", "events")),
		events:   make(chan Event, defaultBufferSize),
		now:      time.Now,
	}
}

func (p *Publisher) OnJobAdded(info types.JobInfo) {
	p.emit(KeyJobAdded, info, nil)
}

func (p *Publisher) OnJobUpdated(info types.JobInfo) {
	p.emit(KeyJobUpdated, info, nil)
}

func (p *Publisher) OnJobDone(info types.JobInfo, err error) {
	p.emit(KeyJobDone, info, err)
}

func (p *Publisher) emit(kind string, info types.JobInfo, err error) {
	ev := Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Instance:  p.instance,
		Job:       info,
		Timestamp: p.now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("event buffer full, dropping event", "kind", kind, "job_id", info.ID)
	}
}

// Run publishes buffered events until ctx is done. Events still buffered at
// that point are published with a short timeout.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case ev := <-p.events:
			p.publish(ctx, ev)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case ev := <-p.events:
			p.publish(ctx, ev)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("failed to encode event", "kind", ev.Kind, "error", err)
		return
	}
	msg := message_broaker.Message{ID: ev.ID, Key: ev.Kind, Body: body}
	if err := p.broker.Publish(ctx, msg); err != nil {
		p.logger.Error("failed to publish event", "kind", ev.Kind, "job_id", ev.Job.ID, "error", err)
	}
}
