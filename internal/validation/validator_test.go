// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type repostRequest struct {
	PostID  int64   `json:"postId" validate:"gt=0"`
	UserID  int64   `json:"userId" validate:"gt=0"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=10"`
	Status  string  `json:"status" validate:"omitempty,oneof=SENT DELIVERED READ"`
	Secret  string  `json:"-" validate:"omitempty,min=3"`
	Plain   string  `validate:"omitempty,min=2"`
}

func TestValidateStruct(t *testing.T) {
	long := strings.Repeat("x", 11)

	tests := []struct {
		name       string
		input      repostRequest
		wantFields []string
	}{
		{
			name:  "valid",
			input: repostRequest{PostID: 1, UserID: 2, Status: "READ"},
		},
		{
			name:       "missing ids",
			input:      repostRequest{},
			wantFields: []string{"postId", "userId"},
		},
		{
			name:       "long comment",
			input:      repostRequest{PostID: 1, UserID: 1, Comment: &long},
			wantFields: []string{"comment"},
		},
		{
			name:       "unknown status",
			input:      repostRequest{PostID: 1, UserID: 1, Status: "LOST"},
			wantFields: []string{"status"},
		},
		{
			name:       "untagged field keeps go name",
			input:      repostRequest{PostID: 1, UserID: 1, Plain: "x"},
			wantFields: []string{"Plain"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want errors")
			}
			got := err.Errors()
			if len(got) != len(tt.wantFields) {
				t.Fatalf("got %d errors (%v), want %d", len(got), err, len(tt.wantFields))
			}
			for i, f := range tt.wantFields {
				if got[i].Field() != f {
					t.Errorf("error %d field = %q, want %q", i, got[i].Field(), f)
				}
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&repostRequest{PostID: 1})
	apiErr := single.ToAPIError()
	if apiErr.Code != CodeValidation {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.Message != "userId must be greater than 0" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "userId" {
		t.Errorf("Details = %v", apiErr.Details)
	}

	multi := ValidateStruct(&repostRequest{}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details = %v, want two fields", multi.Details)
	}
	if !strings.Contains(multi.Message, "postId") || !strings.Contains(multi.Message, "userId") {
		t.Errorf("Message = %q", multi.Message)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty Message = %q", empty.Message)
	}
}

func TestMessage_MinMax(t *testing.T) {
	type sized struct {
		Name  string `json:"name" validate:"min=3"`
		Count int    `json:"count" validate:"max=2"`
	}
	err := ValidateStruct(&sized{Name: "ab", Count: 5})
	if err == nil {
		t.Fatal("expected errors")
	}
	msgs := err.Error()
	if !strings.Contains(msgs, "name must be at least 3 characters") {
		t.Errorf("missing string min message in %q", msgs)
	}
	if !strings.Contains(msgs, "count must be at most 2") {
		t.Errorf("missing numeric max message in %q", msgs)
	}
}
