// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mknursery/internal/backend"
)

/*
TestSession_Accepts covers the current token and the refresh grace window.
*/
func TestSession_Accepts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &backend.Session{
		ID:                 "sess-1",
		AccessToken:        "token-2",
		ExpiresAt:          now.Add(time.Hour),
		PreviousToken:      "token-1",
		PreviousValidUntil: now.Add(30 * time.Second),
	}

	tests := []struct {
		name  string
		token string
		at    time.Time
		want  bool
	}{
		{"current", "token-2", now, true},
		{"previous_in_grace", "token-1", now, true},
		{"previous_after_grace", "token-1", now.Add(time.Minute), false},
		{"unknown", "token-0", now, false},
		{"empty", "", now, false},
		{"expired_session", "token-2", now.Add(2 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, session.Accepts(tt.token, tt.at))
		})
	}

	assert.False(t, (&backend.Session{}).Accepts("", now))
}
