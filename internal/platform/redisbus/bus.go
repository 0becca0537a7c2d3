// Package redisbus relays establishment status events through Redis pub/sub
// so that every server replica, and any other backend consumer, sees them.
package redisbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Handler receives payloads published on the bus.
type Handler func(ctx context.Context, payload []byte) error

// Publisher is the subset of *redis.Client used for publishing.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type Bus struct {
	client  *redis.Client
	pub     Publisher
	channel string
	logger  zerolog.Logger
}

// Connect parses url, pings the server and returns a bus on channel.
func Connect(ctx context.Context, url, channel string, logger zerolog.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	b := New(client, channel, logger)
	b.client = client
	return b, nil
}

func New(pub Publisher, channel string, logger zerolog.Logger) *Bus {
	return &Bus{
		pub:     pub,
		channel: channel,
		logger:  logger.With().Str("component", "redisbus").Str("channel", channel).Logger(),
	}
}

// NotifyAll publishes payload on the bus channel.
func (b *Bus) NotifyAll(ctx context.Context, payload []byte) error {
	receivers, err := b.pub.Publish(ctx, b.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	b.logger.Debug().Int64("receivers", receivers).Msg("status published")
	return nil
}

// Listen subscribes to the bus channel and calls h for every message until
// ctx is done. It needs a bus built by Connect.
func (b *Bus) Listen(ctx context.Context, h Handler) error {
	if b.client == nil {
		return fmt.Errorf("redis listen: bus has no subscriber connection")
	}
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.logger.Info().Msg("listening for status events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(ctx, msg, h)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, msg *redis.Message, h Handler) {
	if err := h(ctx, []byte(msg.Payload)); err != nil {
		b.logger.Warn().Err(err).Msg("status event handler failed")
	}
}

func (b *Bus) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}
