// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

/*
Package services provides suture.Service wrappers for relay components.

Each wrapper translates a component's lifecycle into suture's Serve(ctx)
pattern and names itself through fmt.Stringer for supervisor events:

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancel
  - HubService: websocket.Hub.RunWithContext
  - EmbeddedBrokerService: shutdown of the in-process NATS server, and tree
    termination if it dies

The wrappers take small interfaces rather than concrete types so they can be
tested without a network.
*/
package services
