package server

import (
	"log/slog"
	"strings"

	"podium/internal/auth"
	"podium/internal/middleware"
	"podium/internal/models"
	"podium/internal/relationship"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultFeedLimit   = 20
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// statusFor maps an error code to the HTTP status it is served with.
func statusFor(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation, relationship.CodeInvalidAction:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized, auth.CodeTokenExpired, auth.CodeTokenMalformed, auth.CodeTokenMissing:
		return fiber.StatusUnauthorized
	case models.CodeForbidden, relationship.CodeSelfReference:
		return fiber.StatusForbidden
	case models.CodeNotFound, relationship.CodeTargetNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict, relationship.CodeInvalidTransition:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes err with the status its code maps to. Server errors are logged
// since their cause is hidden from the client.
func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

func badRequest(c *fiber.Ctx, message string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(message))
}

// parseBody decodes the request body into dst, writing a 400 on failure.
// ok is false when the response has been written.
func parseBody(c *fiber.Ctx, dst any) (ok bool) {
	if err := c.BodyParser(dst); err != nil {
		_ = badRequest(c, "Invalid request body")
		return false
	}
	return true
}

// routeParam returns a trimmed, non-empty route parameter or writes a 400.
func routeParam(c *fiber.Ctx, name string) (string, bool) {
	v := strings.TrimSpace(c.Params(name))
	if v == "" {
		_ = badRequest(c, "Missing "+name)
		return "", false
	}
	return v, true
}
