// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package envelope

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeChat(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Type
		wantErr error
	}{
		{
			name:  "chat",
			frame: `{"type":"chat","data":{"id":0,"fromUserId":0,"toUserId":2,"content":"hi"}}`,
			want:  TypeChat,
		},
		{
			name:  "chat with media only",
			frame: `{"type":"chat","data":{"toUserId":2,"content":"","mediaPath":"/uploads/a.png","messageType":"image"}}`,
			want:  TypeChat,
		},
		{
			name:  "status",
			frame: `{"type":"status","data":{"messageId":7,"status":"READ"}}`,
			want:  TypeStatus,
		},
		{
			name:  "typing",
			frame: `{"type":"typing","data":{"toUserId":9}}`,
			want:  TypeTyping,
		},
		{
			name:  "unknown fields ignored",
			frame: `{"type":"typing","extra":true,"data":{"toUserId":9,"color":"blue"}}`,
			want:  TypeTyping,
		},
		{
			name:    "unknown type",
			frame:   `{"type":"sticker","data":{}}`,
			wantErr: ErrUnknownType,
		},
		{
			name:    "watch type on chat endpoint",
			frame:   `{"type":"reaction","data":{"postId":1,"userId":1,"isLike":true}}`,
			wantErr: ErrUnknownType,
		},
		{
			name:    "not json",
			frame:   `hello`,
			wantErr: ErrMalformed,
		},
		{
			name:    "missing type",
			frame:   `{"data":{"toUserId":2}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "missing data",
			frame:   `{"type":"chat"}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "chat without recipient",
			frame:   `{"type":"chat","data":{"content":"hi"}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "chat without content or media",
			frame:   `{"type":"chat","data":{"toUserId":2}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "status outside the known set",
			frame:   `{"type":"status","data":{"messageId":7,"status":"SEEN"}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "wrong field type",
			frame:   `{"type":"typing","data":{"toUserId":"nine"}}`,
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeChat([]byte(tt.frame))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeChat() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeChat() unexpected error: %v", err)
			}
			if msg.Kind() != tt.want {
				t.Errorf("Kind() = %s, want %s", msg.Kind(), tt.want)
			}
		})
	}
}

func TestDecodeChat_Fields(t *testing.T) {
	msg, err := DecodeChat([]byte(`{"type":"chat","data":{"toUserId":2,"content":"hi","mediaPath":"/m/1.jpg","messageType":"image"}}`))
	if err != nil {
		t.Fatalf("DecodeChat() error: %v", err)
	}
	chat, ok := msg.(*Chat)
	if !ok {
		t.Fatalf("got %T, want *Chat", msg)
	}
	if chat.ToUserID != 2 || chat.Content != "hi" {
		t.Errorf("chat = %+v", chat)
	}
	if chat.MediaPath == nil || *chat.MediaPath != "/m/1.jpg" {
		t.Errorf("MediaPath = %v", chat.MediaPath)
	}
	if chat.MessageType == nil || *chat.MessageType != "image" {
		t.Errorf("MessageType = %v", chat.MessageType)
	}
}

func TestDecodeWatch(t *testing.T) {
	msg, err := DecodeWatch([]byte(`{"type":"reaction","data":{"postId":5,"userId":3,"isLike":false}}`))
	if err != nil {
		t.Fatalf("DecodeWatch(reaction) error: %v", err)
	}
	r, ok := msg.(*Reaction)
	if !ok || r.PostID != 5 || r.UserID != 3 || r.IsLike {
		t.Errorf("reaction = %#v", msg)
	}

	msg, err = DecodeWatch([]byte(`{"type":"bookmark","data":{"postId":5,"userId":3,"isBookmarked":true}}`))
	if err != nil {
		t.Fatalf("DecodeWatch(bookmark) error: %v", err)
	}
	if b, ok := msg.(*Bookmark); !ok || !b.IsBookmarked {
		t.Errorf("bookmark = %#v", msg)
	}

	if _, err := DecodeWatch([]byte(`{"type":"chat","data":{"toUserId":2,"content":"x"}}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("chat on watch endpoint error = %v, want ErrUnknownType", err)
	}
}

func TestEncode_RoundTripChat(t *testing.T) {
	media := "/m/1.jpg"
	in := &Chat{ID: 11, FromUserID: 1, ToUserID: 2, Content: "hi", MediaPath: &media}

	b, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !strings.HasPrefix(string(b), `{"type":"chat","data":{`) {
		t.Errorf("Encode() = %s, want chat envelope", b)
	}

	out, err := DecodeChat(b)
	if err != nil {
		t.Fatalf("DecodeChat(Encode()) error: %v", err)
	}
	got := out.(*Chat)
	if got.ID != 11 || got.FromUserID != 1 || got.ToUserID != 2 || got.Content != "hi" || *got.MediaPath != media {
		t.Errorf("round trip = %+v", got)
	}
	if got.MessageType != nil {
		t.Errorf("MessageType = %v, want nil", got.MessageType)
	}
}

func TestEncodeSnapshot_Bare(t *testing.T) {
	b, err := EncodeSnapshot(Snapshot{PostID: 5, Likes: 3, Comments: 1, Reposts: 0, Views: 10})
	if err != nil {
		t.Fatalf("EncodeSnapshot() error: %v", err)
	}

	var fields map[string]int64
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("snapshot is not a flat object: %v", err)
	}
	want := map[string]int64{"postId": 5, "likes": 3, "comments": 1, "reposts": 0, "views": 10}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("%s = %d, want %d", k, fields[k], v)
		}
	}
	if _, ok := fields["type"]; ok {
		t.Error("snapshot carries an envelope type")
	}

	s, err := DecodeSnapshot(b)
	if err != nil || s.Likes != 3 {
		t.Errorf("DecodeSnapshot() = %+v, %v", s, err)
	}
}

func TestEncodeError(t *testing.T) {
	b := EncodeError(CodePersistence, "message could not be stored")

	var frame struct {
		Type Type       `json:"type"`
		Data ErrorFrame `json:"data"`
	}
	if err := json.Unmarshal(b, &frame); err != nil {
		t.Fatalf("error frame is not JSON: %v", err)
	}
	if frame.Type != TypeError || frame.Data.Code != CodePersistence {
		t.Errorf("error frame = %+v", frame)
	}
}

func TestMessageStatus(t *testing.T) {
	if !StatusSent.Before(StatusDelivered) || !StatusDelivered.Before(StatusRead) {
		t.Error("status order broken")
	}
	if StatusRead.Before(StatusSent) {
		t.Error("READ before SENT")
	}
	if MessageStatus("SEEN").Valid() {
		t.Error("SEEN reported valid")
	}
}
