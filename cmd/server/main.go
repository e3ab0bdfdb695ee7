// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/anoprelay/internal/api"
	"github.com/tomtom215/anoprelay/internal/auth"
	"github.com/tomtom215/anoprelay/internal/broker"
	"github.com/tomtom215/anoprelay/internal/config"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/relay"
	"github.com/tomtom215/anoprelay/internal/supervisor"
	"github.com/tomtom215/anoprelay/internal/supervisor/services"
	ws "github.com/tomtom215/anoprelay/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Relay stopped with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("broker", cfg.Broker.Driver).
		Bool("broker_embedded", cfg.Broker.Embedded).
		Str("presence", cfg.Presence.Driver).
		Str("database", cfg.Database.Driver).
		Msg("Starting Anop relay")
	logSecurityWarnings(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	bk, err := initBroker(ctx, cfg)
	if err != nil {
		return err
	}
	defer bk.Close()

	pres, err := initPresence(ctx, cfg, bk.natsConn)
	if err != nil {
		return err
	}
	defer func() {
		if err := pres.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing presence backend")
		}
	}()

	dispatcher := broker.NewDispatcher(bk.broker)
	engagement := relay.NewEngagement(db, bk.broker)
	chat := relay.NewChatRelay(db, bk.broker, dispatcher, pres, relay.ChatConfig{
		PresenceTTL:   cfg.Presence.TTL,
		RenewInterval: cfg.Presence.RenewInterval,
	})
	reactions := relay.NewReactionRelay(dispatcher, engagement)

	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == config.AuthModeJWT {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return fmt.Errorf("initialize JWT manager: %w", err)
		}
		logging.Info().Msg("JWT authentication enabled")
	}

	hub := ws.NewHub()
	handler := api.NewHandler(cfg, api.Dependencies{
		Identity:   auth.NewIdentifier(cfg.Security.AuthMode, jwtManager),
		Hub:        hub,
		WebSocket:  webSocketConfig(cfg.WebSocket),
		Chat:       chat,
		Reactions:  reactions,
		Engagement: engagement,
		Messages:   db,
		Presence:   pres,
		Database:   db,
		Broker:     bk.broker,
	})
	router := api.NewRouter(handler, api.NewChiMiddlewareFromSecurity(&cfg.Security))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// sutureslog logs through slog, bridged to zerolog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	if bk.embedded != nil {
		tree.AddBrokerService(services.NewEmbeddedBrokerService(bk.embedded, 0))
	}
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Relay ready")

	err = tree.Serve(ctx)
	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	logging.Info().Msg("Relay stopped")
	return nil
}

// webSocketConfig maps the transport settings onto the client config. The
// ping period stays below the pong wait so a healthy peer never times out.
func webSocketConfig(c config.WebSocketConfig) ws.Config {
	return ws.Config{
		WriteWait:      c.WriteWait,
		PongWait:       c.PongWait,
		PingPeriod:     c.PongWait * 9 / 10,
		MaxMessageSize: c.MaxMessageSize,
		SendBuffer:     c.SendBuffer,
		InboundRate:    c.InboundRate,
		InboundBurst:   c.InboundBurst,
	}
}

func logSecurityWarnings(cfg *config.Config) {
	if cfg.Security.AuthMode == config.AuthModeNone {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Clients name their own user with ?userId= and any caller can")
		logging.Warn().Msg("  read another user's chat history or act on their behalf.")
		logging.Warn().Msg("  Use AUTH_MODE=jwt outside local development.")
		logging.Warn().Msg("============================================================")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS_ORIGINS=* allows any website to call the API and open WebSockets; set explicit origins in production")
	}
}
