// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

/*
Package main is the entry point for the Anop relay server.

The relay carries chat messages and post reaction counts between WebSocket
clients. Any number of instances may run behind a load balancer: a chat
message or reaction snapshot is published on the shared broker and every
instance delivers it to the connections it holds.

# Application Architecture

	RootSupervisor ("anoprelay")
	├── BrokerSupervisor ("broker-layer")
	│   └── Embedded NATS server (NATS_EMBEDDED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocket Hub
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment
 2. Logging: zerolog with JSON or console output
 3. Database: PostgreSQL (pgx) or SQLite, migrated when DB_AUTO_MIGRATE=true
 4. Broker: NATS (external or embedded), Redis pub/sub, or in-memory,
    behind a circuit breaker
 5. Presence: NATS KV, Redis, Badger, or in-memory TTL keys
 6. Relays: chat, engagement and reaction fanout
 7. Supervisor Tree and HTTP Server

# Configuration

Common environment variables:

	HTTP_PORT           listen port (default 8080)
	ENVIRONMENT         development, staging or production
	BROKER_DRIVER       nats, redis or memory (default nats)
	NATS_URL            external NATS server when NATS_EMBEDDED=false
	NATS_EMBEDDED       run NATS in-process (default true)
	PRESENCE_DRIVER     nats, redis, badger or memory (default nats)
	PRESENCE_TTL        presence key lifetime (default 60s)
	REDIS_ADDR          Redis for the redis broker and presence drivers
	DB_DRIVER           pgx or sqlite (default sqlite)
	DATABASE_URL        database DSN or SQLite path
	AUTH_MODE           none or jwt (none is refused in production)
	JWT_SECRET          HS256 secret, 32+ characters, for AUTH_MODE=jwt
	CORS_ORIGINS        comma-separated allowed origins
	LOG_LEVEL           trace, debug, info, warn or error

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server stops
accepting requests, the hub closes every WebSocket connection (releasing
subscriptions and clearing presence), then the broker, presence backend
and database are closed in that order.
*/
package main
