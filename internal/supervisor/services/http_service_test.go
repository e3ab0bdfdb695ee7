// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/anoprelay/internal/logging"
)

func init() { //nolint:gochecknoinits
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

var _ suture.Service = (*HTTPServerService)(nil)

// stubServer blocks in ListenAndServe until Shutdown unless listenErr is set.
type stubServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stopped     chan struct{}
	listens     atomic.Int32
	shutdowns   atomic.Int32
}

func newStubServer() *stubServer {
	return &stubServer{started: make(chan struct{}, 1), stopped: make(chan struct{})}
}

func (s *stubServer) ListenAndServe() error {
	s.listens.Add(1)
	select {
	case s.started <- struct{}{}:
	default:
	}
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(context.Context) error {
	s.shutdowns.Add(1)
	close(s.stopped)
	return s.shutdownErr
}

func serveUntilStarted(t *testing.T, svc *HTTPServerService, srv *stubServer) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	select {
	case <-srv.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
	return cancel, errCh
}

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -5 * time.Second} {
		if got := NewHTTPServerService(newStubServer(), d).shutdownTimeout; got != 10*time.Second {
			t.Errorf("shutdownTimeout(%v) = %v, want 10s", d, got)
		}
	}
	if got := NewHTTPServerService(newStubServer(), time.Second).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("graceful shutdown on cancel", func(t *testing.T) {
		srv := newStubServer()
		cancel, errCh := serveUntilStarted(t, NewHTTPServerService(srv, time.Second), srv)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
		if srv.listens.Load() != 1 || srv.shutdowns.Load() != 1 {
			t.Errorf("listens = %d, shutdowns = %d; want 1 each", srv.listens.Load(), srv.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		bindErr := errors.New("bind: address already in use")
		srv := newStubServer()
		srv.listenErr = bindErr

		if err := NewHTTPServerService(srv, time.Second).Serve(context.Background()); !errors.Is(err, bindErr) {
			t.Errorf("Serve() = %v, want %v", err, bindErr)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		shutdownErr := errors.New("shutdown timeout")
		srv := newStubServer()
		srv.shutdownErr = shutdownErr
		cancel, errCh := serveUntilStarted(t, NewHTTPServerService(srv, time.Second), srv)
		cancel()

		if err := <-errCh; !errors.Is(err, shutdownErr) {
			t.Errorf("Serve() = %v, want %v", err, shutdownErr)
		}
	})
}

// A real listener serves requests until the service is canceled.
func TestHTTPServerService_RealServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: time.Second}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get("http://" + addr)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestHTTPServerService_WithSupervisor(t *testing.T) {
	srv := newStubServer()
	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	select {
	case <-srv.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
	cancel()
	<-errCh

	if srv.shutdowns.Load() != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns.Load())
	}
}
