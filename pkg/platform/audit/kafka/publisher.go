// Package kafka delivers registry events to a Kafka topic. Records carry
// the versioned EVENT_JSON envelope, keyed by account ID so per-account
// ordering is preserved across partitions.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	id "bindery/pkg/domain"
	audit "bindery/pkg/platform/audit"
)

const DefaultTopic = "registry.binding-events"

// Store implements audit.Store over a Kafka producer.
type Store struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Config for the Kafka sink.
type Config struct {
	Brokers []string
	Topic   string
	// Partitions used when the topic has to be created.
	Partitions int32
}

// New connects a producer and ensures the topic exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	if err := ensureTopic(ctx, client, topic, cfg.Partitions); err != nil {
		client.Close()
		return nil, err
	}

	return &Store{client: client, topic: topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32) error {
	if partitions <= 0 {
		partitions = 1
	}
	adm := kadm.NewClient(client)
	existing, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if existing.Has(topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, partitions, 1, nil, topic); err != nil {
		return fmt.Errorf("create kafka topic %s: %w", topic, err)
	}
	return nil
}

// Append produces one record per event. Production is asynchronous; failures
// are logged, not returned, because the state transition already committed.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := audit.MarshalEnvelope(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Name, err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.AccountID),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("failed to produce binding event",
				"event", event.Name,
				"account_id", event.AccountID,
				"error", err,
			)
		}
	})
	return nil
}

// ListByAccount is unsupported on the producer side; consumers materialize
// their own views from the topic.
func (s *Store) ListByAccount(context.Context, id.AccountID) ([]audit.Event, error) {
	return nil, nil
}

// Close flushes outstanding records and releases the client.
func (s *Store) Close(ctx context.Context) error {
	defer s.client.Close()
	return s.client.Flush(ctx)
}
