// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis is a broker on Redis PUBLISH/SUBSCRIBE. Each subscription holds its
// own pub/sub connection and delivery goroutine.
type Redis struct {
	client redis.UniversalClient
	owned  bool
}

// NewRedis wraps an existing client. Close does not close it.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// DialRedis creates a client for opts and verifies it with PING.
func DialRedis(ctx context.Context, opts *redis.Options) (*Redis, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("broker: redis ping %s: %w", opts.Addr, err)
	}
	return &Redis{client: client, owned: true}, nil
}

// Publish implements Broker.
func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("broker: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe implements Broker. It returns once Redis confirmed the
// subscription.
func (r *Redis) Subscribe(ctx context.Context, channel string, h Handler) (Subscription, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}
	ps := r.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("broker: subscribe %s: %w", channel, err)
	}

	sub := &redisSub{ps: ps, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range ps.Channel() {
			h(msg.Channel, []byte(msg.Payload))
		}
	}()
	return sub, nil
}

// Ping implements Broker.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements Broker.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

type redisSub struct {
	ps   *redis.PubSub
	done chan struct{}
	once sync.Once
	err  error
}

// Unsubscribe closes the pub/sub connection and waits for the delivery
// goroutine to exit.
func (s *redisSub) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
		<-s.done
	})
	return s.err
}
