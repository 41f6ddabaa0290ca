// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mknursery/internal/contact"
)

/*
TestSubmit covers the validation rules and the cleared confirmation.
*/
func TestSubmit(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]string
		submitted bool
		failed    []string
	}{
		{
			name:      "valid",
			values:    map[string]string{"name": "Jane", "email": "jane@example.com", "message": "Do you ship?"},
			submitted: true,
		},
		{
			name:   "missing_all",
			values: map[string]string{"phone": "555"},
			failed: []string{"name", "email", "message"},
		},
		{
			name:   "bad_email",
			values: map[string]string{"name": "Jane", "email": "jane", "message": "Hi"},
			failed: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := contact.Submit(context.Background(), contact.FromValues(tt.values))

			assert.Equal(t, tt.submitted, state.Submitted)
			for _, field := range tt.failed {
				assert.Contains(t, state.FieldErrors, field)
			}
			assert.Len(t, state.FieldErrors, len(tt.failed))

			if tt.submitted {
				assert.Equal(t, contact.Empty().Values, state.Values)
			} else {
				assert.Equal(t, tt.values["phone"], state.Values["phone"])
			}
		})
	}
}
