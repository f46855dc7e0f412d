package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podium/internal/auth"
	"podium/internal/models"
	"podium/internal/relationship"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("bad"), fiber.StatusBadRequest},
		{"invalid action", relationship.ErrInvalidAction, fiber.StatusBadRequest},
		{"unauthorized", models.NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{"expired token", &models.AppError{Code: auth.CodeTokenExpired}, fiber.StatusUnauthorized},
		{"malformed token", &models.AppError{Code: auth.CodeTokenMalformed}, fiber.StatusUnauthorized},
		{"forbidden", models.NewForbiddenError("no"), fiber.StatusForbidden},
		{"self reference", relationship.ErrSelfReference, fiber.StatusForbidden},
		{"not found", models.NewNotFoundError("User", "x"), fiber.StatusNotFound},
		{"missing target", relationship.ErrUserNotFound, fiber.StatusNotFound},
		{"conflict", models.NewConflictError("taken"), fiber.StatusConflict},
		{"invalid transition", relationship.ErrInvalidTransition, fiber.StatusConflict},
		{"wrapped", fmt.Errorf("toggle: %w", relationship.ErrInvalidTransition), fiber.StatusConflict},
		{"internal", models.NewInternalError(assert.AnError), fiber.StatusInternalServerError},
		{"plain error", assert.AnError, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

// --- parsePagination ---

func paginationApp(defaultLimit int) *fiber.App {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, defaultLimit)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})
	return app
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  float64
		wantOffset float64
	}{
		{"", 25, 0},
		{"?limit=10&offset=30", 10, 30},
		{"?limit=0", 25, 0},
		{"?limit=-5&offset=-1", 25, 0},
		{"?limit=1000", maxPaginationLimit, 0},
		{"?limit=abc", 25, 0},
	}
	app := paginationApp(25)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

			assert.Equal(t, tt.wantLimit, body["limit"])
			assert.Equal(t, tt.wantOffset, body["offset"])
		})
	}
}

func TestRouteParam_Missing(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:id?", func(c *fiber.Ctx) error {
		id, ok := routeParam(c, "id")
		if !ok {
			return nil
		}
		return c.SendString(id)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing id", body.Error)
	assert.Equal(t, models.CodeValidation, body.Code)
}

func TestParseBody_InvalidJSON(t *testing.T) {
	app := fiber.New()
	app.Post("/items", func(c *fiber.Ctx) error {
		var dst struct{ Name string }
		if !parseBody(c, &dst) {
			return nil
		}
		return c.SendString(dst.Name)
	})

	bad := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader("{not json"))
	bad.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(bad)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
