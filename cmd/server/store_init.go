// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/anoprelay/internal/config"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/store"
)

// initStore opens the relational collaborator and applies the schema when
// auto-migration is on.
func initStore(ctx context.Context, cfg *config.Config) (*store.SQLStore, error) {
	db, err := store.Open(ctx, store.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logging.Info().Str("driver", cfg.Database.Driver).Msg("Database schema up to date")
	}

	logging.Info().Str("driver", cfg.Database.Driver).Msg("Database initialized successfully")
	return db, nil
}
