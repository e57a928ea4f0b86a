package pubsub

import (
	"context"
	"fmt"
	"time"
)

// Drivers.
const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// Config holds the configuration for the event bus.
type Config struct {
	Driver string      `mapstructure:"driver"`
	Prefix string      `mapstructure:"prefix"`
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Topic      string `mapstructure:"topic"`
	Partitions int    `mapstructure:"partitions"`
}

// DefaultConfig returns the default configuration: events disabled.
func DefaultConfig() Config {
	return Config{
		Driver: DriverNone,
		Prefix: "dorm",
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    "localhost:9092",
			Topic:      "dorm-events",
			Partitions: 4,
		},
	}
}

// NewPublisher creates the Publisher selected by cfg.Driver.
func NewPublisher(cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return NopPublisher{}, nil
	case DriverRedis:
		return NewRedisPubSub(cfg.Redis, cfg.Prefix)
	case DriverKafka:
		return NewKafkaPublisher(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported events driver: %s", cfg.Driver)
	}
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}
