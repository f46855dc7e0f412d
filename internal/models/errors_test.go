package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_UnwrapAndCode(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("saving podcast: %w", NewInternalError(cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, ErrorCode(err))
	assert.Equal(t, CodeNotFound, ErrorCode(NewNotFoundError("Podcast", "abc")))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("plain")))
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		err         error
		wantError   string
		wantCode    string
		wantDetails string
	}{
		{"validation", fiber.StatusBadRequest, NewValidationError("Title is required"), "Title is required", CodeValidation, ""},
		{"internal hides cause", fiber.StatusInternalServerError, NewInternalError(errors.New("pq: boom")), "Internal server error", CodeInternal, ""},
		{"plain 500 is masked", fiber.StatusInternalServerError, errors.New("pq: boom"), "Internal server error", CodeInternal, ""},
		{"plain 400 passes through", fiber.StatusBadRequest, errors.New("bad input"), "bad input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return RespondWithError(c, tt.status, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var got ErrorResponse
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.wantError, got.Error)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantDetails, got.Details)
		})
	}
}

func TestUser_BeforeCreateDefaults(t *testing.T) {
	u := &User{Username: "ada"}
	require.NoError(t, u.BeforeCreate(nil))
	assert.Len(t, u.ID, 36)
	assert.Equal(t, DefaultProfileImage, u.ProfileImage)

	kept := &User{ID: "fixed", ProfileImage: "me.jpg"}
	require.NoError(t, kept.BeforeCreate(nil))
	assert.Equal(t, "fixed", kept.ID)
	assert.Equal(t, "me.jpg", kept.ProfileImage)
}
