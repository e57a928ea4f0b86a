package pubsub

import (
	"context"

	"github.com/weiawesome/wes-io-dorm/pkg/log"
)

// Emit builds and publishes an event. Failures are logged and swallowed:
// events are a side channel and must never fail the operation that raised them.
func Emit(ctx context.Context, pub Publisher, eventType, key string, payload interface{}) {
	if pub == nil {
		return
	}
	l := log.Ctx(ctx)

	event, err := NewEvent(eventType, key, payload)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldEventType, eventType).Msg("failed to build event")
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		l.Warn().Err(err).Str(log.FieldEventType, eventType).Msg("failed to publish event")
	}
}
