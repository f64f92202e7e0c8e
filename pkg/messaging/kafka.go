package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig holds Kafka/Redpanda producer settings
type KafkaConfig struct {
	Brokers      []string
	ClientID     string
	TopicPrefix  string
	WriteTimeout time.Duration
}

// KafkaPublisher produces envelopes synchronously with franz-go
type KafkaPublisher struct {
	client  *kgo.Client
	prefix  string
	timeout time.Duration
	closed  atomic.Bool
}

// NewKafkaPublisher creates a producer client and pings the cluster
func NewKafkaPublisher(ctx context.Context, cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchMaxBytes(1 << 20),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach kafka brokers %v: %w", cfg.Brokers, err)
	}

	return &KafkaPublisher{
		client:  client,
		prefix:  cfg.TopicPrefix,
		timeout: cfg.WriteTimeout,
	}, nil
}

// Publish writes one record keyed by msg.Key and waits for the ack
func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	value, err := Encode(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	record := &kgo.Record{
		Topic: TopicName(p.prefix, msg.Topic()),
		Key:   []byte(msg.Key()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(msg.Topic())},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", record.Topic, err)
	}
	return nil
}

// Close flushes buffered records and closes the client
func (p *KafkaPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
