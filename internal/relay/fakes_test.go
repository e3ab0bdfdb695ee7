// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/anoprelay/internal/broker"
	"github.com/tomtom215/anoprelay/internal/envelope"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/store"
	"github.com/tomtom215/anoprelay/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

var connIDs atomic.Uint64

// fakeConn records frames sent to it.
type fakeConn struct {
	id uint64

	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: connIDs.Add(1)}
}

func (c *fakeConn) ID() uint64 { return c.id }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

func (c *fakeConn) last() []byte {
	f := c.received()
	if len(f) == 0 {
		return nil
	}
	return f[len(f)-1]
}

var _ websocket.Conn = (*fakeConn)(nil)

// fakeStore is an in-memory data-access collaborator.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	messages  map[int64]store.Message
	likes     map[[2]int64]bool
	bookmarks map[[2]int64]bool
	comments  map[int64]int64
	reposts   map[int64]int64
	views     map[int64]int64

	persistErr error
	countsErr  error
	countCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages:  make(map[int64]store.Message),
		likes:     make(map[[2]int64]bool),
		bookmarks: make(map[[2]int64]bool),
		comments:  make(map[int64]int64),
		reposts:   make(map[int64]int64),
		views:     make(map[int64]int64),
	}
}

func (s *fakeStore) PersistChatMessage(_ context.Context, from, to int64, content string, media *string) (store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return store.Message{}, s.persistErr
	}
	content = store.SanitizeContent(content)
	if content == "" && media == nil {
		return store.Message{}, store.ErrEmptyContent
	}
	s.nextID++
	m := store.Message{
		ID: s.nextID, FromUserID: from, ToUserID: to, Content: content,
		MediaPath: media, Status: envelope.StatusSent, Timestamp: time.Now(),
	}
	s.messages[m.ID] = m
	return m, nil
}

func (s *fakeStore) UpdateChatMessageStatus(_ context.Context, id int64, status envelope.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return s.persistErr
	}
	m, ok := s.messages[id]
	if !ok {
		return store.ErrMessageNotFound
	}
	m.Status = status
	s.messages[id] = m
	return nil
}

func (s *fakeStore) message(id int64) (store.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	return m, ok
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeStore) FetchReactionCounts(_ context.Context, postID int64) (store.ReactionCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	if s.countsErr != nil {
		return store.ReactionCounts{}, s.countsErr
	}
	var likes int64
	for k := range s.likes {
		if k[0] == postID {
			likes++
		}
	}
	return store.ReactionCounts{
		Likes:    likes,
		Comments: s.comments[postID],
		Reposts:  s.reposts[postID],
		Views:    s.views[postID],
	}, nil
}

func (s *fakeStore) toggle(set map[[2]int64]bool, postID, userID int64, on bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return false, s.persistErr
	}
	k := [2]int64{postID, userID}
	if set[k] == on {
		return false, nil
	}
	if on {
		set[k] = true
	} else {
		delete(set, k)
	}
	return true, nil
}

func (s *fakeStore) AddLike(_ context.Context, postID, userID int64) (bool, error) {
	return s.toggle(s.likes, postID, userID, true)
}

func (s *fakeStore) RemoveLike(_ context.Context, postID, userID int64) (bool, error) {
	return s.toggle(s.likes, postID, userID, false)
}

func (s *fakeStore) AddBookmark(_ context.Context, postID, userID int64) (bool, error) {
	return s.toggle(s.bookmarks, postID, userID, true)
}

func (s *fakeStore) RemoveBookmark(_ context.Context, postID, userID int64) (bool, error) {
	return s.toggle(s.bookmarks, postID, userID, false)
}

func (s *fakeStore) bump(m map[int64]int64, postID, by int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return false, s.persistErr
	}
	if m[postID]+by < 0 {
		return false, nil
	}
	m[postID] += by
	return true, nil
}

func (s *fakeStore) AddComment(_ context.Context, postID, _ int64, text string) (bool, error) {
	if store.SanitizeContent(text) == "" {
		return false, store.ErrEmptyContent
	}
	return s.bump(s.comments, postID, 1)
}

func (s *fakeStore) AddRepost(_ context.Context, postID, _ int64, _ *string) (bool, error) {
	return s.bump(s.reposts, postID, 1)
}

func (s *fakeStore) RemoveRepost(_ context.Context, postID, _ int64) (bool, error) {
	return s.bump(s.reposts, postID, -1)
}

func (s *fakeStore) AddView(_ context.Context, postID int64, _ *int64) (bool, error) {
	return s.bump(s.views, postID, 1)
}

func (s *fakeStore) setPersistErr(err error) {
	s.mu.Lock()
	s.persistErr = err
	s.mu.Unlock()
}

// failingBroker rejects every publish but subscribes normally.
type failingBroker struct {
	broker.Broker
	publishes atomic.Int32
}

var errBrokerDown = errors.New("broker down")

func (f *failingBroker) Publish(context.Context, string, []byte) error {
	f.publishes.Add(1)
	return errBrokerDown
}

// tap records every payload published on a channel of a memory broker.
type tap struct {
	mu       sync.Mutex
	payloads [][]byte
}

func tapChannel(b broker.Broker, channel string) *tap {
	t := &tap{}
	_, _ = b.Subscribe(context.Background(), channel, func(_ string, p []byte) {
		t.mu.Lock()
		t.payloads = append(t.payloads, append([]byte(nil), p...))
		t.mu.Unlock()
	})
	return t
}

func (t *tap) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.payloads)
}
