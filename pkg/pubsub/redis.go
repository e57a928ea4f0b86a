package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-dorm/pkg/log"
)

// RedisPubSub publishes events on Redis channels named "<prefix>:events:<type>".
type RedisPubSub struct {
	client        *redis.Client
	prefix        string
	subscriptions []*redis.PubSub
	mu            sync.Mutex
}

// NewRedisPubSub connects to Redis and verifies the connection.
func NewRedisPubSub(cfg RedisConfig, prefix string) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{client: client, prefix: prefix}, nil
}

// Channel returns the Redis channel used for eventType.
func (r *RedisPubSub) Channel(eventType string) string {
	if r.prefix == "" {
		return "events:" + eventType
	}
	return r.prefix + ":events:" + eventType
}

// Publish publishes event on its type's channel.
func (r *RedisPubSub) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, r.Channel(event.Type), data).Err()
}

// Subscribe streams events of the given types, or of every type when none
// are named. The channel closes when ctx is cancelled.
func (r *RedisPubSub) Subscribe(ctx context.Context, eventTypes ...string) (<-chan *Event, error) {
	var sub *redis.PubSub
	if len(eventTypes) == 0 {
		sub = r.client.PSubscribe(ctx, r.Channel("*"))
	} else {
		channels := make([]string, len(eventTypes))
		for i, t := range eventTypes {
			channels[i] = r.Channel(t)
		}
		sub = r.client.Subscribe(ctx, channels...)
	}

	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	r.mu.Lock()
	r.subscriptions = append(r.subscriptions, sub)
	r.mu.Unlock()

	eventCh := make(chan *Event, 100)
	go r.processMessages(ctx, sub, eventCh)
	return eventCh, nil
}

// Close closes all subscriptions and the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	for _, sub := range r.subscriptions {
		_ = sub.Close()
	}
	r.subscriptions = nil
	r.mu.Unlock()

	return r.client.Close()
}

func (r *RedisPubSub) processMessages(ctx context.Context, sub *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l := log.L()
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				// subscriber too slow, drop
			}
		}
	}
}

// Client returns the underlying Redis client.
func (r *RedisPubSub) Client() *redis.Client {
	return r.client
}
