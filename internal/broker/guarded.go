// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package broker

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/metrics"
)

// BreakerConfig configures the publish circuit breaker.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// DefaultBreakerConfig trips after 5 consecutive failures and probes again
// after 10 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "broker-publish",
		FailureThreshold: 5,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          10 * time.Second,
	}
}

// Guarded wraps a Broker so that publishes fail fast while the transport is
// down, and records publish metrics. Subscriptions pass through.
type Guarded struct {
	Broker
	cb *gobreaker.CircuitBreaker[struct{}]
}

// NewGuarded wraps b with a circuit breaker.
func NewGuarded(b Broker, cfg BreakerConfig) *Guarded {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	threshold := cfg.FailureThreshold

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BrokerCircuitState.Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Broker circuit breaker state changed")
		},
	}
	return &Guarded{Broker: b, cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Publish implements Broker.
func (g *Guarded) Publish(ctx context.Context, channel string, payload []byte) error {
	start := time.Now()
	_, err := g.cb.Execute(func() (struct{}, error) {
		return struct{}{}, g.Broker.Publish(ctx, channel, payload)
	})
	metrics.RecordPublish(Kind(channel), time.Since(start), err)
	return err
}

// State returns the breaker state name.
func (g *Guarded) State() string {
	return g.cb.State().String()
}
