// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

/*
Package config loads and validates relay configuration.

Values are layered with koanf: built-in defaults, then an optional YAML
file (config.yaml, or the path in CONFIG_PATH), then environment variables.

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT: listen address (default: 0.0.0.0:8080)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT, SHUTDOWN_TIMEOUT
  - ENVIRONMENT: development or production

WebSocket:
  - WS_WRITE_WAIT, WS_PONG_WAIT: frame write deadline and liveness window
  - WS_MAX_MESSAGE_SIZE, WS_SEND_BUFFER
  - WS_INBOUND_RATE, WS_INBOUND_BURST: per-connection inbound frame limit

Presence:
  - PRESENCE_DRIVER: redis, nats, badger or memory (default: nats)
  - PRESENCE_TTL: presence key lifetime (default: 60s)
  - PRESENCE_RENEW_INTERVAL: heartbeat period, must be below the TTL (default: 30s)
  - PRESENCE_KV_BUCKET, PRESENCE_BADGER_PATH

Broker:
  - BROKER_DRIVER: nats, redis or memory (default: nats)
  - NATS_URL, NATS_EMBEDDED, NATS_EMBEDDED_HOST, NATS_EMBEDDED_PORT, NATS_STORE_DIR
  - BROKER_BREAKER_FAILURE_THRESHOLD, BROKER_BREAKER_INTERVAL, BROKER_BREAKER_TIMEOUT

Redis:
  - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB

Database:
  - DB_DRIVER: pgx or sqlite (default: sqlite)
  - DATABASE_URL: DSN or sqlite file path
  - DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS, DB_CONN_MAX_LIFETIME, DB_CONNECT_TIMEOUT
  - DB_AUTO_MIGRATE: create tables at startup (default: true)

Security:
  - AUTH_MODE: none or jwt (default: none)
  - JWT_SECRET: signing secret, at least 32 characters in jwt mode
  - TOKEN_TIMEOUT
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - CORS_ORIGINS: comma-separated allowed origins, also checked on WebSocket upgrades

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
*/
package config
