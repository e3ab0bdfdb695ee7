// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package presence

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/anoprelay/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestKey(t *testing.T) {
	if got := Key(42); got != "user:42:online" {
		t.Errorf("Key(42) = %q", got)
	}
	if got := kvKey(42); got != "user.42.online" {
		t.Errorf("kvKey(42) = %q", got)
	}
}

// backendContract runs the behaviour every backend must share.
func backendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if online, err := b.IsOnline(ctx, 1); err != nil || online {
		t.Fatalf("IsOnline before SetOnline = %v, %v", online, err)
	}
	if err := b.SetOnline(ctx, 1, DefaultTTL); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	if online, err := b.IsOnline(ctx, 1); err != nil || !online {
		t.Fatalf("IsOnline after SetOnline = %v, %v", online, err)
	}
	if err := b.Renew(ctx, 1, DefaultTTL); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if err := b.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if online, err := b.IsOnline(ctx, 1); err != nil || online {
		t.Fatalf("IsOnline after Clear = %v, %v", online, err)
	}

	// Renew restores a key that is gone.
	if err := b.Renew(ctx, 1, DefaultTTL); err != nil {
		t.Fatalf("Renew after Clear: %v", err)
	}
	if online, _ := b.IsOnline(ctx, 1); !online {
		t.Error("Renew did not restore a missing key")
	}

	if err := b.Clear(ctx, 2); err != nil {
		t.Errorf("Clear of absent key: %v", err)
	}
	if err := b.SetOnline(ctx, 3, 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("SetOnline(ttl=0) error = %v, want ErrInvalidTTL", err)
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	s := NewMemoryStore(nil)
	defer s.Close()
	backendContract(t, s)
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStore(clock.Now)
	defer s.Close()
	ctx := context.Background()

	if err := s.SetOnline(ctx, 7, DefaultTTL); err != nil {
		t.Fatal(err)
	}

	// Renewed every T/2, the key never lapses.
	for i := 0; i < 5; i++ {
		clock.Advance(DefaultRenewInterval)
		if online, _ := s.IsOnline(ctx, 7); !online {
			t.Fatalf("user offline after %d renew intervals", i+1)
		}
		if err := s.Renew(ctx, 7, DefaultTTL); err != nil {
			t.Fatal(err)
		}
		if s.TTL(7) != DefaultTTL {
			t.Errorf("TTL after renew = %v, want %v", s.TTL(7), DefaultTTL)
		}
	}

	// Without renewal it lapses after one TTL.
	clock.Advance(DefaultTTL)
	if online, _ := s.IsOnline(ctx, 7); online {
		t.Error("user still online one TTL after the last renew")
	}
}

func TestBadgerStore_Contract(t *testing.T) {
	s, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer s.Close()
	backendContract(t, s)
}

func TestBadgerStore_Expiry(t *testing.T) {
	s, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.SetOnline(ctx, 9, time.Second); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2100 * time.Millisecond)
	if online, _ := s.IsOnline(ctx, 9); online {
		t.Error("badger key outlived its TTL")
	}
}

// recordingStore records calls and can be made to fail.
type recordingStore struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (r *recordingStore) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op)
	if op == r.failOn {
		return errors.New("store unavailable")
	}
	return nil
}

func (r *recordingStore) SetOnline(context.Context, int64, time.Duration) error {
	return r.record("set_online")
}

func (r *recordingStore) Renew(context.Context, int64, time.Duration) error {
	return r.record("renew")
}

func (r *recordingStore) Clear(context.Context, int64) error {
	return r.record("clear")
}

func (r *recordingStore) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (r *recordingStore) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return ""
	}
	return r.calls[len(r.calls)-1]
}

func TestHeartbeat_RenewsUntilStopped(t *testing.T) {
	store := &recordingStore{}
	h := StartHeartbeat(context.Background(), store, 1, 100*time.Millisecond, 20*time.Millisecond)

	if store.count("set_online") != 1 {
		t.Fatalf("set_online calls = %d, want 1 before StartHeartbeat returns", store.count("set_online"))
	}

	time.Sleep(110 * time.Millisecond)
	h.Stop()
	renews := store.count("renew")
	if renews < 3 {
		t.Errorf("renew calls = %d, want at least 3", renews)
	}

	// No renew lands after Stop returns.
	time.Sleep(60 * time.Millisecond)
	if store.count("renew") != renews {
		t.Error("renew called after Stop")
	}
	h.Stop()
}

func TestHeartbeat_StopsWithContext(t *testing.T) {
	store := &recordingStore{}
	ctx, cancel := context.WithCancel(context.Background())
	h := StartHeartbeat(ctx, store, 1, 100*time.Millisecond, 10*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		h.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked after context cancel")
	}
}

func TestHeartbeat_FailuresDoNotStopRenewal(t *testing.T) {
	store := &recordingStore{failOn: "renew"}
	h := StartHeartbeat(context.Background(), store, 1, 50*time.Millisecond, 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	h.Stop()

	if store.count("renew") < 2 {
		t.Errorf("renew calls = %d, want renewal to continue after failures", store.count("renew"))
	}
}

func TestHeartbeat_IntervalClamp(t *testing.T) {
	tests := []struct {
		name     string
		ttl      time.Duration
		interval time.Duration
		want     time.Duration
	}{
		{"valid", 60 * time.Second, 30 * time.Second, 30 * time.Second},
		{"equal to ttl", 60 * time.Second, 60 * time.Second, 30 * time.Second},
		{"above ttl", 60 * time.Second, 90 * time.Second, 30 * time.Second},
		{"zero", 60 * time.Second, 0, 30 * time.Second},
		{"zero ttl", 0, 0, DefaultTTL / 2},
		{"negative ttl", -time.Second, 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := StartHeartbeat(context.Background(), &recordingStore{}, 1, tt.ttl, tt.interval)
			defer h.Stop()
			if h.Interval() != tt.want {
				t.Errorf("Interval() = %v, want %v", h.Interval(), tt.want)
			}
		})
	}
}

func TestClearPresence_AfterCancel(t *testing.T) {
	store := &recordingStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := ClearPresence(ctx, store, 1); err != nil {
		t.Fatalf("ClearPresence: %v", err)
	}
	if store.last() != "clear" {
		t.Errorf("last call = %q, want clear", store.last())
	}
}
