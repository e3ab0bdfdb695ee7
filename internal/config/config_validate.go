// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package config

import (
	"fmt"
	"strings"
	"time"
)

// Auth modes.
const (
	AuthModeNone = "none"
	AuthModeJWT  = "jwt"
)

// Driver names.
const (
	DriverNATS   = "nats"
	DriverRedis  = "redis"
	DriverBadger = "badger"
	DriverMemory = "memory"
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

var (
	validPresenceDrivers = map[string]bool{DriverRedis: true, DriverNATS: true, DriverBadger: true, DriverMemory: true}
	validBrokerDrivers   = map[string]bool{DriverNATS: true, DriverRedis: true, DriverMemory: true}
	validDatabaseDrivers = map[string]bool{DriverPgx: true, DriverSQLite: true}
	validAuthModes       = map[string]bool{AuthModeNone: true, AuthModeJWT: true}
	validLogLevels       = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validLogFormats      = map[string]bool{"json": true, "console": true}
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateWebSocket(); err != nil {
		return err
	}

	if err := c.validateBroker(); err != nil {
		return err
	}

	if err := c.validatePresence(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	ws := c.WebSocket
	if ws.WriteWait <= 0 || ws.PongWait <= 0 {
		return fmt.Errorf("WS_WRITE_WAIT and WS_PONG_WAIT must be positive")
	}
	if ws.MaxMessageSize <= 0 {
		return fmt.Errorf("WS_MAX_MESSAGE_SIZE must be positive")
	}
	if ws.SendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	if ws.InboundRate < 0 {
		return fmt.Errorf("WS_INBOUND_RATE must not be negative")
	}
	if ws.InboundRate > 0 && ws.InboundBurst < 1 {
		return fmt.Errorf("WS_INBOUND_BURST must be at least 1 when WS_INBOUND_RATE is set")
	}
	return nil
}

func (c *Config) validateBroker() error {
	b := c.Broker
	if !validBrokerDrivers[b.Driver] {
		return fmt.Errorf("BROKER_DRIVER must be one of: nats, redis, memory")
	}
	if b.Driver == DriverNATS && !b.Embedded && b.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when BROKER_DRIVER=nats and NATS_EMBEDDED=false")
	}
	if b.Driver == DriverRedis && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when BROKER_DRIVER=redis")
	}
	return nil
}

// validatePresence enforces a renew interval strictly below the TTL, so a
// live connection never lets its presence key lapse.
func (c *Config) validatePresence() error {
	p := c.Presence
	if !validPresenceDrivers[p.Driver] {
		return fmt.Errorf("PRESENCE_DRIVER must be one of: redis, nats, badger, memory")
	}
	if p.TTL <= 0 {
		return fmt.Errorf("PRESENCE_TTL must be positive")
	}
	if p.RenewInterval <= 0 || p.RenewInterval >= p.TTL {
		return fmt.Errorf("PRESENCE_RENEW_INTERVAL (%v) must be positive and less than PRESENCE_TTL (%v)", p.RenewInterval, p.TTL)
	}
	switch p.Driver {
	case DriverNATS:
		// The KV bucket rides on the broker's NATS connection.
		if c.Broker.Driver != DriverNATS {
			return fmt.Errorf("PRESENCE_DRIVER=nats requires BROKER_DRIVER=nats")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when PRESENCE_DRIVER=redis")
		}
	case DriverBadger:
		if p.BadgerPath == "" {
			return fmt.Errorf("PRESENCE_BADGER_PATH is required when PRESENCE_DRIVER=badger")
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	d := c.Database
	if !validDatabaseDrivers[d.Driver] {
		return fmt.Errorf("DB_DRIVER must be one of: pgx, sqlite")
	}
	if d.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if d.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must not be negative")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	minJWTSecretLength   = 32
)

func (c *Config) validateSecurity() error {
	s := c.Security
	if !validAuthModes[s.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}

	// Identity from a query parameter is spoofable.
	if s.AuthMode == AuthModeNone && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}

	if s.AuthMode == AuthModeJWT {
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
	}

	if !s.RateLimitDisabled {
		if s.RateLimitReqs < minRateLimitRequests || s.RateLimitReqs > maxRateLimitRequests {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
		}
		if s.RateLimitWindow < minRateLimitWindow || s.RateLimitWindow > maxRateLimitWindow {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
		}
	}

	if s.AuthMode != AuthModeNone && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled")
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	secret := c.Security.JWTSecret
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
	}
	if len(secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if containsPlaceholder(secret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value; set a real secret")
	}
	if c.Security.TokenTimeout <= 0 {
		return fmt.Errorf("TOKEN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != AuthModeNone && c.hasWildcardCORS()
}

// IsProduction returns true if the relay is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// placeholderPatterns catch secrets that were never replaced.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
