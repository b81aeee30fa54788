package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	id "intake/pkg/domain"
	"intake/pkg/requestcontext"
)

// Publisher fans audit events out to the store and, when configured, a Kafka
// topic. Emission is best-effort from request paths: a failing sink logs and
// never fails the request.
type Publisher struct {
	store  Store
	logger *slog.Logger

	kafka *kgo.Client
	topic string

	buffer chan Event
	wg     sync.WaitGroup
	once   sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithKafka attaches a franz-go producer; events are additionally published
// as JSON to topic, keyed by user ID.
func WithKafka(client *kgo.Client, topic string) Option {
	return func(p *Publisher) {
		p.kafka = client
		p.topic = topic
	}
}

// WithAsyncBuffer decouples emitters from sink latency with a buffered
// channel and a single drain goroutine. A full buffer drops the event with a
// warning; audit is best-effort, requests are not.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan Event, size)
	}
}

func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event, enriching it with request correlation from ctx.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	if p.buffer != nil {
		select {
		case p.buffer <- event:
		default:
			p.logger.Warn("audit buffer full, dropping event",
				"action", event.Action,
				"user_id", event.UserID,
			)
		}
		return
	}
	p.sink(context.WithoutCancel(ctx), event)
}

// List exposes stored events, used by tests and the ops surface.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.List(ctx, userID)
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		p.sink(context.Background(), event)
	}
}

func (p *Publisher) sink(ctx context.Context, event Event) {
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.Error("audit store append failed",
			"action", event.Action,
			"error", err,
		)
	}

	if p.kafka == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("audit event encode failed", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.UserID.String()),
		Value: payload,
	}
	p.kafka.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("audit event publish failed",
				"topic", p.topic,
				"error", err,
			)
		}
	})
}

// Close drains the async buffer and flushes the Kafka producer.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
		if p.kafka != nil {
			p.kafka.Flush(context.Background())
		}
	})
}
