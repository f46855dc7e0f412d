package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"podium/internal/middleware"
	"podium/internal/models"
	"podium/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// HeaderAccessToken is the request header carrying a session token.
const HeaderAccessToken = "x-access-token"

// Fiber locals populated by the guard middleware.
const (
	LocalUserID      = "userID"
	LocalUser        = "user"
	LocalTokenID     = "tokenID"
	LocalTokenExpiry = "tokenExpiry"
)

// Error codes carried by rejected outcomes.
const (
	CodeTokenMissing   = "TOKEN_MISSING"
	CodeTokenMalformed = "TOKEN_MALFORMED"
	CodeTokenExpired   = "TOKEN_EXPIRED"
	// CodeUserNotFound is returned when a valid token names a user that no longer exists or is deactivated.
	CodeUserNotFound = "USER_NOT_FOUND"
)

// State is the result kind of a session evaluation.
type State int

const (
	StateMissing State = iota
	StateVerified
	StateMalformed
	StateExpired
	// StateFault means the guard could not decide, e.g. the revocation store is down.
	StateFault
)

func (s State) String() string {
	switch s {
	case StateVerified:
		return "verified"
	case StateMalformed:
		return "malformed"
	case StateExpired:
		return "expired"
	case StateFault:
		return "fault"
	default:
		return "missing"
	}
}

// Outcome is what SessionGuard.Evaluate decided about a request credential.
// SubjectID, TokenID and ExpiresAt are only set when State is StateVerified.
type Outcome struct {
	State     State
	SubjectID string
	TokenID   string
	ExpiresAt time.Time
	Err       error
}

// Verified reports whether the outcome admits the request.
func (o Outcome) Verified() bool { return o.State == StateVerified }

// Message is the user-facing text for the outcome.
func (o Outcome) Message() string {
	switch o.State {
	case StateVerified:
		return "Verification successful."
	case StateExpired:
		return "This token has expired."
	case StateMalformed:
		return "Decoding error."
	case StateFault:
		return "Something went wrong."
	default:
		return "Authentication token required."
	}
}

// Code is the stable machine-readable code for the outcome.
func (o Outcome) Code() string {
	switch o.State {
	case StateVerified:
		return "VERIFIED"
	case StateExpired:
		return CodeTokenExpired
	case StateMalformed:
		return CodeTokenMalformed
	case StateFault:
		return models.CodeInternal
	default:
		return CodeTokenMissing
	}
}

// Status is the HTTP status a rejected request receives.
func (o Outcome) Status() int {
	switch o.State {
	case StateVerified:
		return fiber.StatusOK
	case StateFault:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusUnauthorized
	}
}

// SessionGuard decides whether a presented session token admits a request.
type SessionGuard struct {
	tokens  *TokenService
	revoked RevocationStore
}

// NewSessionGuard builds a guard; revoked may be nil when logout revocation is not used.
func NewSessionGuard(tokens *TokenService, revoked RevocationStore) *SessionGuard {
	return &SessionGuard{tokens: tokens, revoked: revoked}
}

// Evaluate classifies raw, the token as presented by the client.
func (g *SessionGuard) Evaluate(ctx context.Context, raw string) Outcome {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Outcome{State: StateMissing}
	}

	claims, err := g.tokens.VerifySession(raw)
	if err != nil {
		return OutcomeFromError(err)
	}

	if g.revoked != nil {
		revoked, err := g.revoked.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return Outcome{State: StateFault, Err: err}
		}
		if revoked {
			return Outcome{State: StateExpired, Err: ErrTokenExpired}
		}
	}

	return Outcome{
		State:     StateVerified,
		SubjectID: claims.UserID,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}
}

// OutcomeFromError classifies a token verification error. Tampered tokens
// are reported as malformed.
func OutcomeFromError(err error) Outcome {
	switch {
	case err == nil:
		return Outcome{State: StateVerified}
	case errors.Is(err, ErrTokenExpired):
		return Outcome{State: StateExpired, Err: err}
	case errors.Is(err, ErrTokenMalformed), errors.Is(err, ErrTokenTampered):
		return Outcome{State: StateMalformed, Err: err}
	default:
		return Outcome{State: StateFault, Err: err}
	}
}

// TokenFromRequest returns the x-access-token header, falling back to an
// Authorization bearer token.
func TokenFromRequest(c *fiber.Ctx) string {
	if tok := strings.TrimSpace(c.Get(HeaderAccessToken)); tok != "" {
		return tok
	}
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// SubjectResolver loads the user a verified token names. It returns (nil, nil) when no such user exists.
type SubjectResolver func(ctx context.Context, userID string) (*models.User, error)

// Middleware rejects every request whose outcome is not Verified before the
// handler runs, then resolves the subject into an active user.
func (g *SessionGuard) Middleware(resolve SubjectResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outcome := g.Evaluate(c.UserContext(), TokenFromRequest(c))
		observability.AuthOutcomes.WithLabelValues(outcome.State.String()).Inc()

		if !outcome.Verified() {
			if outcome.State == StateFault {
				middleware.Logger.ErrorContext(c.UserContext(), "session guard fault", "error", outcome.Err)
			}
			return models.RespondWithError(c, outcome.Status(), &models.AppError{
				Code:    outcome.Code(),
				Message: outcome.Message(),
			})
		}

		user, err := resolve(c.UserContext(), outcome.SubjectID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if user == nil || user.Deactivated {
			return models.RespondWithError(c, fiber.StatusUnauthorized, &models.AppError{
				Code:    CodeUserNotFound,
				Message: "User not found.",
			})
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalUser, user)
		c.Locals(LocalTokenID, outcome.TokenID)
		c.Locals(LocalTokenExpiry, outcome.ExpiresAt)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))

		return c.Next()
	}
}

// UserID returns the authenticated user id set by Middleware, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// CurrentUser returns the authenticated user set by Middleware, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalUser).(*models.User)
	return u
}

// CurrentToken returns the id and expiry of the token that admitted the request.
func CurrentToken(c *fiber.Ctx) (string, time.Time) {
	id, _ := c.Locals(LocalTokenID).(string)
	exp, _ := c.Locals(LocalTokenExpiry).(time.Time)
	return id, exp
}
