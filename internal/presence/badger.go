// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps presence in an embedded Badger database. Badger expires
// entries with one second resolution.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens a Badger database at path. An empty path opens an
// in-memory database.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("presence: open badger %q: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// SetOnline implements Store.
func (b *BadgerStore) SetOnline(_ context.Context, userID int64, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(Key(userID)), []byte("1")).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("presence: badger set %s: %w", Key(userID), err)
	}
	return nil
}

// Renew implements Store.
func (b *BadgerStore) Renew(ctx context.Context, userID int64, ttl time.Duration) error {
	return b.SetOnline(ctx, userID, ttl)
}

// Clear implements Store.
func (b *BadgerStore) Clear(_ context.Context, userID int64) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(Key(userID)))
	})
	if err != nil {
		return fmt.Errorf("presence: badger delete %s: %w", Key(userID), err)
	}
	return nil
}

// IsOnline implements Reader.
func (b *BadgerStore) IsOnline(_ context.Context, userID int64) (bool, error) {
	online := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(Key(userID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		online = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("presence: badger get %s: %w", Key(userID), err)
	}
	return online, nil
}

// Close closes the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
