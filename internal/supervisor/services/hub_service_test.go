// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	ws "github.com/tomtom215/anoprelay/internal/websocket"
)

var _ suture.Service = (*HubService)(nil)

func TestHubService_RunsHubUntilCanceled(t *testing.T) {
	hub := ws.NewHub()
	svc := NewHubService(hub)
	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
}

type failingHub struct{ runs atomic.Int32 }

func (h *failingHub) RunWithContext(ctx context.Context) error {
	if h.runs.Add(1) == 1 {
		return errors.New("hub crashed")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHubService_RestartedBySupervisor(t *testing.T) {
	hub := &failingHub{}
	sup := suture.New("test", suture.Spec{FailureBackoff: 10 * time.Millisecond, Timeout: time.Second})
	sup.Add(NewHubService(hub))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	<-sup.ServeBackground(ctx)

	if got := hub.runs.Load(); got < 2 {
		t.Errorf("hub ran %d times, want a restart", got)
	}
}
