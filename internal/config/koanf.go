// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/anoprelay/config.yaml",
	"/etc/anoprelay/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		WebSocket: WebSocketConfig{
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			MaxMessageSize: 64 * 1024,
			SendBuffer:     256,
			InboundRate:    20,
			InboundBurst:   40,
		},
		Presence: PresenceConfig{
			Driver:        "nats",
			TTL:           60 * time.Second,
			RenewInterval: 30 * time.Second,
			KVBucket:      "presence",
			BadgerPath:    "/data/presence",
		},
		Broker: BrokerConfig{
			Driver:                  "nats",
			NATSURL:                 "nats://127.0.0.1:4222",
			Embedded:                true,
			EmbeddedHost:            "127.0.0.1",
			EmbeddedPort:            4222,
			StoreDir:                "/data/nats",
			BreakerFailureThreshold: 5,
			BreakerInterval:         time.Minute,
			BreakerTimeout:          10 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "/data/anoprelay.db",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  10 * time.Second,
			AutoMigrate:     true,
		},
		Security: SecurityConfig{
			AuthMode:        "none", // legacy clients pass ?userId=
			TokenTimeout:    24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// HTTP_PORT -> server.port, PRESENCE_TTL -> presence.ttl
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names to koanf config paths.
var envMappings = map[string]string{
	// Server
	"http_port":          "server.port",
	"http_host":          "server.host",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"http_idle_timeout":  "server.idle_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",
	"environment":        "server.environment",

	// WebSocket
	"ws_write_wait":       "websocket.write_wait",
	"ws_pong_wait":        "websocket.pong_wait",
	"ws_max_message_size": "websocket.max_message_size",
	"ws_send_buffer":      "websocket.send_buffer",
	"ws_inbound_rate":     "websocket.inbound_rate",
	"ws_inbound_burst":    "websocket.inbound_burst",

	// Presence
	"presence_driver":         "presence.driver",
	"presence_ttl":            "presence.ttl",
	"presence_renew_interval": "presence.renew_interval",
	"presence_kv_bucket":      "presence.kv_bucket",
	"presence_badger_path":    "presence.badger_path",

	// Broker
	"broker_driver":                    "broker.driver",
	"nats_url":                         "broker.nats_url",
	"nats_embedded":                    "broker.embedded",
	"nats_embedded_host":               "broker.embedded_host",
	"nats_embedded_port":               "broker.embedded_port",
	"nats_store_dir":                   "broker.store_dir",
	"broker_breaker_failure_threshold": "broker.breaker_failure_threshold",
	"broker_breaker_interval":          "broker.breaker_interval",
	"broker_breaker_timeout":           "broker.breaker_timeout",

	// Redis
	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	// Database
	"db_driver":            "database.driver",
	"database_url":         "database.dsn",
	"db_max_open_conns":    "database.max_open_conns",
	"db_max_idle_conns":    "database.max_idle_conns",
	"db_conn_max_lifetime": "database.conn_max_lifetime",
	"db_connect_timeout":   "database.connect_timeout",
	"db_auto_migrate":      "database.auto_migrate",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"token_timeout":       "security.token_timeout",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - PRESENCE_TTL -> presence.ttl
//   - DATABASE_URL -> database.dsn
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables do not
	// pollute the config.
	return ""
}
