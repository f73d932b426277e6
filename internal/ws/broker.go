package ws

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Broker publishes event payloads to a channel
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// LocalBroker hands events straight to an in-process hub. Used when Redis is not configured.
type LocalBroker struct {
	hub *Hub
}

// NewLocalBroker creates a broker for a single replica
func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.hub.Dispatch(channel, payload)
	return nil
}

// RedisBroker publishes through Redis pub/sub; Relay feeds every replica's hub
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBroker creates a broker on client
func NewRedisBroker(client *redis.Client, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{client: client, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Relay subscribes to every notification channel and dispatches messages to hub until ctx ends
func (b *RedisBroker) Relay(ctx context.Context, hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in notification relay", zap.Any("panic", r))
		}
	}()

	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	b.logger.Info("Notification relay subscribed", zap.String("pattern", channelPrefix+"*"))
	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			hub.Dispatch(msg.Channel, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}
