// Package auth issues and verifies signed tokens, guards sessions and hashes
// credentials.
package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failures. Every error returned by Verify wraps exactly one of these.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenTampered  = errors.New("token signature mismatch")
)

// Claim names carried by issued tokens.
const (
	ClaimUserID  = "id"
	ClaimEmail   = "email"
	ClaimPurpose = "purpose"
	ClaimTokenID = "jti"
	ClaimExpiry  = "exp"
	ClaimIssued  = "iat"
)

// Purpose separates session tokens from password-reset tokens so one can never stand in for the other.
type Purpose string

const (
	PurposeSession       Purpose = "session"
	PurposePasswordReset Purpose = "password_reset"
)

// Default lifetimes.
const (
	DefaultSessionTTL = 48 * time.Hour
	DefaultResetTTL   = 15 * time.Minute
)

// Claims is the decoded claim set of a verified token.
type Claims map[string]any

// Get returns the claim as a string, or "" when absent or not a string.
func (c Claims) Get(name string) string {
	v, _ := c[name].(string)
	return v
}

// ExpiresAt returns the exp claim as a time.
func (c Claims) ExpiresAt() time.Time {
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// SessionClaims is what a verified session token asserts.
type SessionClaims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService signs and verifies HS256 tokens with a single shared secret.
type TokenService struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock replaces the wall clock used for exp/iat and for verification.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// WithSessionTTL overrides the session token lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *TokenService) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithResetTTL overrides the password-reset token lifetime.
func WithResetTTL(ttl time.Duration) Option {
	return func(s *TokenService) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// NewTokenService returns a TokenService signing with secret.
func NewTokenService(secret string, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	s := &TokenService{
		secret:     []byte(secret),
		sessionTTL: DefaultSessionTTL,
		resetTTL:   DefaultResetTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionTTL reports the configured session lifetime.
func (s *TokenService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Issue signs claims with an expiry ttl from now. The caller's map is not modified.
func (s *TokenService) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := s.now()
	mc := jwt.MapClaims(maps.Clone(claims))
	if mc == nil {
		mc = jwt.MapClaims{}
	}
	// exp is whole seconds; round up so the token never expires before now+ttl.
	expiresAt := now.Add(ttl)
	exp := expiresAt.Unix()
	if expiresAt.Nanosecond() > 0 {
		exp++
	}
	mc[ClaimIssued] = now.Unix()
	mc[ClaimExpiry] = exp
	if _, ok := mc[ClaimTokenID]; !ok {
		mc[ClaimTokenID] = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature first and expiry second, returning the claim set.
func (s *TokenService) Verify(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, mc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		// reject non-canonical base64url so altered padding bits in the last character fail
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	return Claims(mc), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenTampered, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

// IssueSession issues a session token for userID with the configured session TTL.
func (s *TokenService) IssueSession(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("session subject must not be empty")
	}
	return s.Issue(Claims{ClaimUserID: userID, ClaimPurpose: string(PurposeSession)}, s.sessionTTL)
}

// IssuePasswordReset issues a short-lived token asserting control of email.
func (s *TokenService) IssuePasswordReset(email string) (string, error) {
	if email == "" {
		return "", errors.New("reset subject must not be empty")
	}
	return s.Issue(Claims{ClaimEmail: email, ClaimPurpose: string(PurposePasswordReset)}, s.resetTTL)
}

// VerifyPurpose verifies token and rejects it as malformed when its purpose differs.
func (s *TokenService) VerifyPurpose(token string, purpose Purpose) (Claims, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Get(ClaimPurpose) != string(purpose) {
		return nil, fmt.Errorf("%w: expected %s token", ErrTokenMalformed, purpose)
	}
	return claims, nil
}

// VerifySession verifies a session token and extracts its subject.
func (s *TokenService) VerifySession(token string) (SessionClaims, error) {
	claims, err := s.VerifyPurpose(token, PurposeSession)
	if err != nil {
		return SessionClaims{}, err
	}
	userID := claims.Get(ClaimUserID)
	if userID == "" {
		return SessionClaims{}, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	return SessionClaims{
		UserID:    userID,
		TokenID:   claims.Get(ClaimTokenID),
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

// VerifyPasswordReset verifies a reset token and returns the email it was issued for.
func (s *TokenService) VerifyPasswordReset(token string) (string, error) {
	claims, err := s.VerifyPurpose(token, PurposePasswordReset)
	if err != nil {
		return "", err
	}
	email := claims.Get(ClaimEmail)
	if email == "" {
		return "", fmt.Errorf("%w: missing email", ErrTokenMalformed)
	}
	return email, nil
}
