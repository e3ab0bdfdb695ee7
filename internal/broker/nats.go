// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/anoprelay/internal/logging"
)

const flushTimeout = 5 * time.Second

// NATS is a broker on NATS core subjects. Channel names are used as subjects
// unchanged; ':' is a legal subject character. Each subscription gets its
// own delivery goroutine from the client library, so one slow channel does
// not hold up another.
type NATS struct {
	conn  *nats.Conn
	owned bool
}

// ConnectNATS dials url with reconnect enabled.
func ConnectNATS(url, name string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("broker: connect %s: %w", url, err)
	}
	return &NATS{conn: nc, owned: true}, nil
}

// NewNATS wraps an existing connection. Close does not close it.
func NewNATS(nc *nats.Conn) *NATS {
	return &NATS{conn: nc}
}

// Conn returns the underlying connection.
func (n *NATS) Conn() *nats.Conn {
	return n.conn
}

// Publish implements Broker.
func (n *NATS) Publish(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.conn.Publish(channel, payload); err != nil {
		return fmt.Errorf("broker: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe implements Broker. It returns once the server has registered
// the interest.
func (n *NATS) Subscribe(_ context.Context, channel string, h Handler) (Subscription, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}
	sub, err := n.conn.Subscribe(channel, func(m *nats.Msg) {
		h(m.Subject, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("broker: subscribe %s: %w", channel, err)
	}
	if err := n.conn.FlushTimeout(flushTimeout); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("broker: flush subscribe %s: %w", channel, err)
	}
	return sub, nil
}

// Ping implements Broker.
func (n *NATS) Ping(context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("broker: nats status %s", n.conn.Status())
	}
	return nil
}

// Close drains and closes the connection if this broker opened it.
func (n *NATS) Close() error {
	if !n.owned {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
