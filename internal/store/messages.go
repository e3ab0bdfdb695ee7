// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/anoprelay/internal/envelope"
)

// Message is a persisted chat message as returned by history queries.
type Message struct {
	ID         int64                  `json:"id"`
	FromUserID int64                  `json:"fromUserId"`
	ToUserID   int64                  `json:"toUserId"`
	Content    string                 `json:"content"`
	MediaPath  *string                `json:"mediaPath"`
	Status     envelope.MessageStatus `json:"status"`
	Timestamp  time.Time              `json:"timeStamp"`
}

// PersistChatMessage stores a new message with status SENT and returns it
// with its assigned ID. Content is sanitized before it is stored.
func (s *SQLStore) PersistChatMessage(ctx context.Context, senderID, receiverID int64, content string, mediaPath *string) (Message, error) {
	content = SanitizeContent(content)
	if content == "" && mediaPath == nil {
		return Message{}, ErrEmptyContent
	}

	msg := Message{
		FromUserID: senderID,
		ToUserID:   receiverID,
		Content:    content,
		MediaPath:  mediaPath,
		Status:     envelope.StatusSent,
		Timestamp:  s.timestamp(),
	}
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO messages (sender_id, receiver_id, content, media_path, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		senderID, receiverID, content, nullableString(mediaPath), string(envelope.StatusSent), msg.Timestamp,
	).Scan(&msg.ID)
	if err != nil {
		return Message{}, fmt.Errorf("store: insert message: %w", err)
	}
	return msg, nil
}

// UpdateChatMessageStatus sets the status of a message. Transitions are not
// checked, so a status can move backwards.
func (s *SQLStore) UpdateChatMessageStatus(ctx context.Context, messageID int64, status envelope.MessageStatus) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE messages SET status = ? WHERE id = ?`), string(status), messageID)
	if err != nil {
		return fmt.Errorf("store: update message status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update message status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrMessageNotFound, messageID)
	}
	return nil
}

// MessagesForUser returns every message the user sent or received, oldest first.
func (s *SQLStore) MessagesForUser(ctx context.Context, userID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, sender_id, receiver_id, content, media_path, status, created_at
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at ASC, id ASC`), userID, userID)
	if err != nil {
		return nil, fmt.Errorf("store: query messages: %w", err)
	}
	return scanMessages(rows)
}

// MessagesSince returns the user's messages with an ID above lastMessageID,
// in ID order. Clients use it to backfill after a reconnect.
func (s *SQLStore) MessagesSince(ctx context.Context, userID, lastMessageID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, sender_id, receiver_id, content, media_path, status, created_at
		FROM messages
		WHERE (sender_id = ? OR receiver_id = ?) AND id > ?
		ORDER BY id ASC`), userID, userID, lastMessageID)
	if err != nil {
		return nil, fmt.Errorf("store: query messages since %d: %w", lastMessageID, err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var (
			m      Message
			media  sql.NullString
			status string
		)
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &media, &status, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		if media.Valid {
			m.MediaPath = &media.String
		}
		m.Status = envelope.MessageStatus(status)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate messages: %w", err)
	}
	return messages, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
