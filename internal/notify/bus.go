// Package notify carries "stream changed" notices between server instances.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// RedisChannel is the pub/sub channel change notices travel on.
	RedisChannel = "space:changes"
	// NATSSubject is the subject change notices travel on.
	NATSSubject = "space.changes"
)

// Handler receives the name of a changed stream.
type Handler func(stream string)

// Bus publishes and delivers stream change notices.
type Bus interface {
	Publish(ctx context.Context, stream string) error
	// Subscribe delivers notices to fn until ctx is done. It returns once
	// the subscription is active.
	Subscribe(ctx context.Context, fn Handler) error
	Close() error
}

// RedisBus uses Redis pub/sub.
type RedisBus struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisBus creates a bus on an existing Redis client.
func NewRedisBus(client *redis.Client, logger zerolog.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

// Publish announces a change to stream.
func (b *RedisBus) Publish(ctx context.Context, stream string) error {
	if err := b.client.Publish(ctx, RedisChannel, stream).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", stream, err)
	}
	return nil
}

// Subscribe delivers notices to fn until ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, fn Handler) error {
	sub := b.client.Subscribe(ctx, RedisChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", RedisChannel, err)
	}

	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					b.logger.Warn().Msg("redis change subscription closed")
					return
				}
				fn(msg.Payload)
			}
		}
	}()
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (b *RedisBus) Close() error {
	return nil
}

// NATSBus uses core NATS subjects.
type NATSBus struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

// NewNATSBus connects to the NATS server at url.
func NewNATSBus(url string, logger zerolog.Logger) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("notespace"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSBus{nc: nc, logger: logger}, nil
}

// Publish announces a change to stream.
func (b *NATSBus) Publish(_ context.Context, stream string) error {
	if err := b.nc.Publish(NATSSubject, []byte(stream)); err != nil {
		return fmt.Errorf("failed to publish to subject '%s': %w", NATSSubject, err)
	}
	return nil
}

// Subscribe delivers notices to fn until ctx is done.
func (b *NATSBus) Subscribe(ctx context.Context, fn Handler) error {
	sub, err := b.nc.Subscribe(NATSSubject, func(m *nats.Msg) {
		fn(string(m.Data))
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject '%s': %w", NATSSubject, err)
	}
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return err
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Close drains the connection.
func (b *NATSBus) Close() error {
	return b.nc.Drain()
}

// LocalBus delivers notices inside one process. It serves single-instance
// deployments and tests.
type LocalBus struct {
	mu       sync.Mutex
	handlers map[int]Handler
	next     int
}

// NewLocalBus creates an in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]Handler)}
}

// Publish calls every subscribed handler synchronously.
func (b *LocalBus) Publish(_ context.Context, stream string) error {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, fn := range b.handlers {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(stream)
	}
	return nil
}

// Subscribe registers fn until ctx is done.
func (b *LocalBus) Subscribe(ctx context.Context, fn Handler) error {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = fn
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}()
	return nil
}

// Close is a no-op.
func (b *LocalBus) Close() error {
	return nil
}
