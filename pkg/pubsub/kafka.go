package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/weiawesome/wes-io-dorm/pkg/log"
)

// KafkaPublisher produces every event to one topic, keyed by Event.Key so
// events for the same conversation land on the same partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	config   KafkaConfig
	doneCh   chan struct{}
}

// NewKafkaPublisher creates a producer and makes sure the topic exists.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kp := &KafkaPublisher{
		producer: p,
		config:   cfg,
		doneCh:   make(chan struct{}),
	}

	go kp.deliveryReportHandler()

	if err := kp.ensureTopic(); err != nil {
		l := log.L()
		l.Warn().Err(err).Str("topic", cfg.Topic).Msg("failed to ensure kafka topic (may already exist)")
	}

	return kp, nil
}

func (k *KafkaPublisher) ensureTopic() error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             k.config.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError && r.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Error)
		}
	}
	return nil
}

func (k *KafkaPublisher) deliveryReportHandler() {
	l := log.L()
	for e := range k.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				l.Error().Err(ev.TopicPartition.Error).Str("key", string(ev.Key)).Msg("kafka delivery failed")
			}
		case kafka.Error:
			l.Warn().Err(ev).Bool("fatal", ev.IsFatal()).Msg("kafka producer error")
		}
	}
	close(k.doneCh)
}

// Publish enqueues event for asynchronous delivery.
func (k *KafkaPublisher) Publish(ctx context.Context, event *Event) error {
	msg, err := k.message(event)
	if err != nil {
		return err
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) message(event *Event) (*kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	topic := k.config.Topic
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.Key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// Close flushes pending messages and closes the producer.
func (k *KafkaPublisher) Close() error {
	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh
	return nil
}
