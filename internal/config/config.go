// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all relay configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Presence  PresenceConfig  `koanf:"presence"`
	Broker    BrokerConfig    `koanf:"broker"`
	Redis     RedisConfig     `koanf:"redis"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// WebSocketConfig holds per-connection transport limits.
type WebSocketConfig struct {
	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	SendBuffer     int           `koanf:"send_buffer"`

	// InboundRate is the sustained inbound frame rate per connection, in
	// frames per second. Zero disables the limit.
	InboundRate  float64 `koanf:"inbound_rate"`
	InboundBurst int     `koanf:"inbound_burst"`
}

// PresenceConfig selects and tunes the presence backend.
type PresenceConfig struct {
	// Driver is one of redis, nats, badger or memory.
	Driver        string        `koanf:"driver"`
	TTL           time.Duration `koanf:"ttl"`
	RenewInterval time.Duration `koanf:"renew_interval"`
	KVBucket      string        `koanf:"kv_bucket"`
	BadgerPath    string        `koanf:"badger_path"`
}

// BrokerConfig selects the pub/sub transport shared between instances.
type BrokerConfig struct {
	// Driver is one of nats, redis or memory.
	Driver  string `koanf:"driver"`
	NATSURL string `koanf:"nats_url"`

	// Embedded runs a NATS server in-process and connects to it instead of
	// NATSURL.
	Embedded     bool   `koanf:"embedded"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port"`
	StoreDir     string `koanf:"store_dir"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerInterval         time.Duration `koanf:"breaker_interval"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// RedisConfig holds the Redis connection used by the redis broker and
// presence drivers.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// DatabaseConfig holds the relational collaborator settings.
type DatabaseConfig struct {
	// Driver is pgx or sqlite.
	Driver          string        `koanf:"driver"`
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// SecurityConfig holds connection identity and HTTP protection settings.
type SecurityConfig struct {
	// AuthMode is none or jwt. In none mode the user id is taken from the
	// userId query parameter, as legacy clients send it.
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTimeout      time.Duration `koanf:"token_timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes file:line in log lines.
	Caller bool `koanf:"caller"`
}
