// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package store

import (
	"regexp"
	"strings"
)

// MaxContentLength is the maximum stored length of user text, in runes.
const MaxContentLength = 2048

var tagPattern = regexp.MustCompile(`<.*?>`)

// SanitizeContent strips markup tags, trims surrounding space and caps the
// result at MaxContentLength runes.
func SanitizeContent(s string) string {
	s = strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
	if r := []rune(s); len(r) > MaxContentLength {
		s = string(r[:MaxContentLength])
	}
	return s
}
