// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package envelope encodes and decodes the JSON frames exchanged with clients
// and carried over the broker.
//
// Every frame except the reaction snapshot is wrapped as
//
//	{"type": "<discriminant>", "data": { ... }}
//
// Unknown fields inside data are ignored. An unknown discriminant is a decode
// error; callers drop the frame and keep the connection open.
package envelope

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/anoprelay/internal/validation"
)

// Type is the frame discriminant.
type Type string

const (
	TypeChat     Type = "chat"
	TypeStatus   Type = "status"
	TypeTyping   Type = "typing"
	TypeReaction Type = "reaction"
	TypeBookmark Type = "bookmark"
	TypeError    Type = "error"
)

var (
	// ErrMalformed is returned for frames that are not a valid envelope or
	// whose payload fails validation.
	ErrMalformed = errors.New("malformed frame")

	// ErrUnknownType is returned for a discriminant the endpoint does not accept.
	ErrUnknownType = errors.New("unknown frame type")
)

// Message is a decoded frame payload.
type Message interface {
	Kind() Type
}

// MessageStatus is the delivery status of a chat message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

// Valid reports whether s is one of the known statuses.
func (s MessageStatus) Valid() bool {
	return s.rank() > 0
}

// Before reports whether s precedes other in SENT < DELIVERED < READ.
func (s MessageStatus) Before(other MessageStatus) bool {
	return s.rank() < other.rank()
}

func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Chat is a chat message. ID and FromUserID are assigned by the relay: the
// ID by persistence and the sender from the authenticated connection.
type Chat struct {
	ID          int64   `json:"id"`
	FromUserID  int64   `json:"fromUserId"`
	ToUserID    int64   `json:"toUserId" validate:"gt=0"`
	Content     string  `json:"content" validate:"required_without=MediaPath"`
	MediaPath   *string `json:"mediaPath"`
	MessageType *string `json:"messageType"`
}

// Kind implements Message.
func (*Chat) Kind() Type { return TypeChat }

// StatusUpdate reports a delivery status change for a persisted message.
type StatusUpdate struct {
	MessageID int64         `json:"messageId" validate:"gt=0"`
	Status    MessageStatus `json:"status" validate:"oneof=SENT DELIVERED READ"`
}

// Kind implements Message.
func (*StatusUpdate) Kind() Type { return TypeStatus }

// TypingSignal is an ephemeral "user is typing" hint. It is never persisted.
type TypingSignal struct {
	ToUserID int64 `json:"toUserId" validate:"gt=0"`
}

// Kind implements Message.
func (*TypingSignal) Kind() Type { return TypeTyping }

// Reaction is an inbound like or unlike sent by a post watcher.
type Reaction struct {
	PostID int64 `json:"postId" validate:"gt=0"`
	UserID int64 `json:"userId" validate:"gt=0"`
	IsLike bool  `json:"isLike"`
}

// Kind implements Message.
func (*Reaction) Kind() Type { return TypeReaction }

// Bookmark is an inbound bookmark toggle sent by a post watcher.
type Bookmark struct {
	PostID       int64 `json:"postId" validate:"gt=0"`
	UserID       int64 `json:"userId" validate:"gt=0"`
	IsBookmarked bool  `json:"isBookmarked"`
}

// Kind implements Message.
func (*Bookmark) Kind() Type { return TypeBookmark }

// ErrorFrame is sent to a client whose frame could not be handled.
type ErrorFrame struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Kind implements Message.
func (*ErrorFrame) Kind() Type { return TypeError }

// Snapshot is the authoritative engagement counts for one post. Each snapshot
// fully replaces the previous one, so it is sent bare without an envelope.
type Snapshot struct {
	PostID   int64 `json:"postId"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Reposts  int64 `json:"reposts"`
	Views    int64 `json:"views"`
}

// Error codes carried in ErrorFrame.Code.
const (
	CodePersistence = "PERSISTENCE_ERROR"
	CodeBadFrame    = "BAD_FRAME"
)

type wire struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

var (
	chatTypes = map[Type]func() Message{
		TypeChat:   func() Message { return &Chat{} },
		TypeStatus: func() Message { return &StatusUpdate{} },
		TypeTyping: func() Message { return &TypingSignal{} },
	}
	watchTypes = map[Type]func() Message{
		TypeReaction: func() Message { return &Reaction{} },
		TypeBookmark: func() Message { return &Bookmark{} },
	}
)

// DecodeChat decodes a frame received on the chat endpoint: chat, status or typing.
func DecodeChat(frame []byte) (Message, error) {
	return decode(frame, chatTypes)
}

// DecodeWatch decodes a frame received on the post watch endpoint: reaction or bookmark.
func DecodeWatch(frame []byte) (Message, error) {
	return decode(frame, watchTypes)
}

func decode(frame []byte, accepted map[Type]func() Message) (Message, error) {
	var w wire
	if err := json.Unmarshal(frame, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	newMsg, ok := accepted[w.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}
	if len(w.Data) == 0 || string(w.Data) == "null" {
		return nil, fmt.Errorf("%w: %s frame without data", ErrMalformed, w.Type)
	}

	msg := newMsg()
	if err := json.Unmarshal(w.Data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, w.Type, err)
	}
	if err := validation.ValidateStruct(msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, w.Type, err)
	}
	return msg, nil
}

// Encode wraps msg in a typed envelope.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return json.Marshal(wire{Type: msg.Kind(), Data: data})
}

// EncodeSnapshot encodes a reaction snapshot without an envelope.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot decodes a bare reaction snapshot.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}

// EncodeError builds an error frame. It cannot fail for string inputs.
func EncodeError(code, message string) []byte {
	b, err := Encode(&ErrorFrame{Code: code, Message: message})
	if err != nil {
		return []byte(`{"type":"error","data":{"code":"` + CodeBadFrame + `","message":"internal error"}}`)
	}
	return b
}
