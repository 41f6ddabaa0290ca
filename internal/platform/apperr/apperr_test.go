// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/platform/apperr"
)

/*
TestNotFound_Message verifies the resource name is folded into the message.
*/
func TestNotFound_Message(t *testing.T) {
	err := apperr.NotFound("Plant")

	assert.Equal(t, "Plant not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
	assert.True(t, apperr.IsNotFound(fmt.Errorf("wrapped: %w", err)))
}

/*
TestRemote_KeepsMessageVerbatim checks that backend messages reach admin forms unchanged.
*/
func TestRemote_KeepsMessageVerbatim(t *testing.T) {
	cause := errors.New(`duplicate key value violates unique constraint "plants_pkey"`)
	err := apperr.Remote(cause)

	assert.Equal(t, cause.Error(), apperr.Message(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
}

/*
TestPublicMessage_HidesRemoteDetails ensures storefront pages never print backend messages.
*/
func TestPublicMessage_HidesRemoteDetails(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not_found", apperr.NotFound("Article"), "Article not found"},
		{"remote", apperr.Remote(errors.New("connection refused")), "Something went wrong. Please try again later."},
		{"plain", errors.New("boom"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.PublicMessage(tt.err))
		})
	}
}

/*
TestAppError_Is compares AppErrors by code and message through wrapping.
*/
func TestAppError_Is(t *testing.T) {
	wrapped := fmt.Errorf("repository: %w", apperr.NotFound("Plant"))

	require.ErrorIs(t, wrapped, apperr.NotFound("Plant"))
	assert.NotErrorIs(t, wrapped, apperr.NotFound("Article"))
	assert.Empty(t, apperr.Message(nil))
}
