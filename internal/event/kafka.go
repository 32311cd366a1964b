package event

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaPublisher produces events keyed by booking id so every event of one
// booking lands on the same partition in order.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	log    *zap.Logger
}

func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, log *zap.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}

	return &KafkaPublisher{
		client: client,
		topic:  topic,
		log:    log.With(zap.String("publisher", "kafka"), zap.String("topic", topic)),
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.BookingID.String()),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.log.Error("Failed to produce event",
			zap.Error(err),
			zap.String("kind", string(ev.Kind)),
			zap.String("booking_id", ev.BookingID.String()),
		)
		return fmt.Errorf("kafka produce: %w", err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}

// KafkaConsumer reads the events topic as part of a consumer group and
// commits offsets after each polled batch has been handled.
type KafkaConsumer struct {
	client *kgo.Client
	log    *zap.Logger
}

func NewKafkaConsumer(brokers []string, topic, group string, log *zap.Logger) (*KafkaConsumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &KafkaConsumer{
		client: client,
		log:    log.With(zap.String("consumer", "kafka"), zap.String("topic", topic)),
	}, nil
}

// Run blocks until ctx is cancelled. Undecodable or failing records are
// logged and skipped.
func (c *KafkaConsumer) Run(ctx context.Context, handle Handler) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.log.Error("Fetch error", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})

		fetches.EachRecord(func(record *kgo.Record) {
			ev, err := Decode(record.Value)
			if err == nil {
				err = handle(ctx, ev)
			}
			if err != nil {
				c.log.Error("Failed to handle event",
					zap.Error(err),
					zap.Int32("partition", record.Partition),
					zap.Int64("offset", record.Offset),
				)
			}
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.log.Error("Failed to commit offsets", zap.Error(err))
		}
	}
}
