// Package redpanda publishes domain events to a Redpanda/Kafka topic.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// producer is the subset of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher implements domain.EventPublisher. Records are keyed by user id so
// one user's events stay ordered within a partition.
type Publisher struct {
	client producer
	topic  string
}

// NewPublisher connects an idempotent producer to brokers and ensures topic exists.
func NewPublisher(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: no seed brokers provided", domain.ErrInvalidArgument)
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: events topic required", domain.ErrInvalidArgument)
	}
	slog.Info("creating redpanda publisher", slog.Any("brokers", brokers), slog.String("topic", topic))

	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	k := kotel.NewKotel(kotel.WithTracer(tracer))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.WithHooks(k.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=events.new_client: %w", err)
	}
	if err := EnsureTopic(ctx, client, topic, 1, 1); err != nil {
		// Brokers with auto-create enabled still accept records.
		slog.Warn("failed to ensure events topic", slog.String("topic", topic), slog.Any("error", err))
	}
	return &Publisher{client: client, topic: topic}, nil
}

func newPublisher(p producer, topic string) *Publisher {
	return &Publisher{client: p, topic: topic}
}

// Publish writes e synchronously.
func (p *Publisher) Publish(ctx domain.Context, e domain.Event) error {
	rec, err := p.record(e)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("op=events.publish: %w", err)
	}
	return nil
}

func (p *Publisher) record(e domain.Event) (*kgo.Record, error) {
	if e.Type == "" {
		return nil, fmt.Errorf("%w: event type required", domain.ErrInvalidArgument)
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("op=events.marshal: %w", err)
	}
	return &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(e.UserID),
		Value:     b,
		Timestamp: e.OccurredAt,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}, nil
}

// Close releases the client.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Close()
}
