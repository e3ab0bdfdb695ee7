// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

/*
Package websocket supervises client connections for the relay endpoints.

A Client moves through Connecting, Open, Closing and Closed, in that order
only. Run executes the read loop on the caller's goroutine and starts a write
loop that drains a bounded send queue:

	Run ──► Handler.OnOpen ──► Open
	         │
	         ├── readPump: frame ──► Handler.OnFrame (arrival order)
	         └── writePump: send queue, pings, close frame
	         │
	peer close / write error / Close / ctx done
	         │
	         ▼
	Closing ──► Handler.OnClose ──► Closed

Send never blocks. A full queue returns ErrSendBufferFull and a closing
connection returns ErrClosed, so a slow peer cannot stall fanout to others.

The Hub tracks every live client so shutdown can close them together. It
does not route; routing lives in the registry package.
*/
package websocket
