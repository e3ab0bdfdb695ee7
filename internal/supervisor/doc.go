// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

/*
Package supervisor provides process supervision for the relay using suture v4.

The supervisor tree organizes long-running services into three layers so a
failure in one layer restarts only that layer:

	RootSupervisor ("anoprelay")
	├── BrokerSupervisor ("broker-layer")
	│   └── EmbeddedBrokerService (if broker.embedded)
	├── MessagingSupervisor ("messaging-layer")
	│   └── HubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (service failures, backoff, restarts) are logged through
sutureslog, whose slog output is bridged to zerolog by logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

A service returning an error wrapping suture.ErrTerminateSupervisorTree stops
the whole tree, which main treats as a fatal exit.
*/
package supervisor
