// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("new hub has %d clients", hub.GetClientCount())
	}
}

func TestHub_AddRemove(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil, "chat", Config{})
	b := NewClient(hub, nil, "watch", Config{})

	if err := hub.add(a); err != nil {
		t.Fatal(err)
	}
	if err := hub.add(b); err != nil {
		t.Fatal(err)
	}
	if got := hub.CountByEndpoint(); got["chat"] != 1 || got["watch"] != 1 {
		t.Errorf("CountByEndpoint = %v", got)
	}

	hub.remove(a)
	hub.remove(a)
	if hub.GetClientCount() != 1 {
		t.Errorf("count = %d, want 1", hub.GetClientCount())
	}
}

func TestHub_RunWithContext(t *testing.T) {
	tests := []struct {
		name        string
		makeCtx     func() (context.Context, context.CancelFunc)
		cancelEarly bool
		wantErr     error
		wantReason  ShutdownReason
	}{
		{
			name: "cancel",
			makeCtx: func() (context.Context, context.CancelFunc) {
				return context.WithCancel(context.Background())
			},
			cancelEarly: true,
			wantErr:     context.Canceled,
			wantReason:  ShutdownReasonContextCanceled,
		},
		{
			name: "deadline",
			makeCtx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			wantErr:    context.DeadlineExceeded,
			wantReason: ShutdownReasonContextDeadline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub()
			clients := []*Client{
				NewClient(hub, nil, "chat", Config{}),
				NewClient(hub, nil, "watch", Config{}),
			}
			for _, c := range clients {
				if err := hub.add(c); err != nil {
					t.Fatal(err)
				}
			}

			ctx, cancel := tt.makeCtx()
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- hub.RunWithContext(ctx) }()
			if tt.cancelEarly {
				cancel()
			}

			select {
			case err := <-done:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("RunWithContext = %v, want %v", err, tt.wantErr)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("RunWithContext did not return")
			}
			if got := getShutdownReason(ctx); got != tt.wantReason {
				t.Errorf("reason = %q, want %q", got, tt.wantReason)
			}

			for _, c := range clients {
				select {
				case <-c.Done():
				default:
					t.Errorf("client %d not closed on shutdown", c.ID())
				}
			}

			if err := hub.add(NewClient(hub, nil, "chat", Config{})); !errors.Is(err, ErrHubClosed) {
				t.Errorf("add after shutdown = %v, want ErrHubClosed", err)
			}
		})
	}
}

func TestGetShutdownReason(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel2 := context.WithTimeout(context.Background(), -time.Second)
	defer cancel2()

	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled reason = %q", got)
	}
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("expired reason = %q", got)
	}
}

func TestHub_RestartAcceptsClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = hub.RunWithContext(ctx)

	ctx2, cancel2 := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx2)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		if err = hub.add(NewClient(hub, nil, "chat", Config{})); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != nil {
		t.Errorf("restarted hub rejects clients: %v", err)
	}
	cancel2()
	<-done
}
