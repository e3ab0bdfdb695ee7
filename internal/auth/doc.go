// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

/*
Package auth resolves the user identity behind a connection or request.

Two modes are supported (configured via AUTH_MODE):

 1. none: the user id is read from the userId query parameter. This is what
    existing mobile clients send and is only allowed outside production.

 2. jwt: the user id comes from an HS256 token issued by the account
    service. The token is read from the Authorization bearer header, the
    token cookie, or the token query parameter. Browsers cannot set headers
    on a WebSocket handshake, so the query parameter exists for them.

Usage:

	id := auth.NewIdentifier(cfg.Security.AuthMode, jwtManager)
	userID, err := id.Identify(r)
*/
package auth
