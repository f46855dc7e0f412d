package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podium/internal/auth"
	"podium/internal/mail"
	"podium/internal/middleware"
	"podium/internal/models"
	"podium/internal/repository"
	"podium/internal/validation"
)

// Login failures surfaced to the client verbatim.
var (
	ErrUnknownUser     = &models.AppError{Code: models.CodeNotFound, Message: "User does not exist."}
	ErrInvalidPassword = &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid password."}
)

// AuthService registers accounts, issues and revokes sessions and runs the
// password change and reset flows.
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenService
	credentials *auth.CredentialStore
	revocations auth.RevocationStore
	mailer      mail.Mailer
	now         func() time.Time
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	credentials *auth.CredentialStore,
	revocations auth.RevocationStore,
	mailer mail.Mailer,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		credentials: credentials,
		revocations: revocations,
		mailer:      mailer,
		now:         time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validateAccountFields(in.FirstName, in.LastName, in.Username, in.Email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	digest, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Username:  in.Username,
		Email:     in.Email,
		Password:  digest,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Login checks the password and issues a session token. Logging into a
// deactivated account reactivates it.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownUser
	}

	digest, err := s.users.PasswordDigest(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !s.credentials.Verify(password, digest) {
		return nil, ErrInvalidPassword
	}

	if user.Deactivated {
		if err := s.users.SetDeactivated(ctx, user.ID, false); err != nil {
			return nil, err
		}
		user.Deactivated = false
		middleware.Logger.InfoContext(ctx, "account reactivated by login", slog.String("user_id", user.ID))
	}

	token, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user.Password = ""
	return &LoginResult{Token: token, User: user}, nil
}

// Logout revokes the session token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return models.NewValidationError("Token has no identifier")
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, tokenID, ttl); err != nil {
		return models.NewInternalError(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

// ChangePassword replaces the password when current matches. updated is
// false, with a nil error, when it does not.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) (updated bool, err error) {
	digest, err := s.users.PasswordDigest(ctx, userID)
	if err != nil {
		return false, err
	}
	if !s.credentials.Verify(current, digest) {
		return false, nil
	}
	if err := s.setPassword(ctx, userID, next); err != nil {
		return false, err
	}
	return true, nil
}

// ForgotPassword mails a reset link when email belongs to an account. Unknown
// addresses succeed silently so the endpoint cannot be used to probe accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email, frontendURL string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError(err.Error())
	}
	base := strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return models.NewValidationError("frontend_url must be an http(s) URL")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		middleware.Logger.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}

	token, err := s.tokens.IssuePasswordReset(user.Email)
	if err != nil {
		return models.NewInternalError(err)
	}
	msg := mail.Message{
		To:      user.Email,
		Subject: "Password Reset Request",
		Body: fmt.Sprintf("Hi %s,\n\nTo reset your password, visit the following link:\n%s/reset-password/%s\n\n"+
			"The link expires in 15 minutes. If you did not make this request, ignore this email.\n",
			user.FirstName, base, token),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// CheckResetToken returns the email a reset token was issued for.
func (s *AuthService) CheckResetToken(token string) (string, error) {
	email, err := s.tokens.VerifyPasswordReset(token)
	if err != nil {
		return "", resetTokenError(err)
	}
	return email, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, next string) error {
	email, err := s.CheckResetToken(token)
	if err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUnknownUser
	}
	return s.setPassword(ctx, user.ID, next)
}

func (s *AuthService) setPassword(ctx context.Context, userID, plaintext string) error {
	if err := validation.ValidatePassword(plaintext); err != nil {
		return models.NewValidationError(err.Error())
	}
	digest, err := s.credentials.Hash(plaintext)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdatePassword(ctx, userID, digest)
}

// resetTokenError reuses the session guard wording for reset tokens.
func resetTokenError(err error) error {
	outcome := auth.OutcomeFromError(err)
	return &models.AppError{Code: outcome.Code(), Message: outcome.Message(), Err: err}
}

func validateAccountFields(firstName, lastName, username, email string) error {
	checks := []error{
		validation.ValidateName("first name", firstName),
		validation.ValidateName("last name", lastName),
		validation.ValidateUsername(username),
		validation.ValidateEmail(email),
	}
	for _, err := range checks {
		if err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	return nil
}
