package server

import (
	"podium/internal/auth"
	"podium/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type forgotPasswordRequest struct {
	Email       string `json:"email"`
	FrontendURL string `json:"frontend_url"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// Register handles POST /api/register
// @Summary Register
// @Description Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "New account"
// @Success 201 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful.",
		"user":    user,
	})
}

// Login handles POST /api/login
// @Summary Login
// @Description Exchange username and password for a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} service.LoginResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if !parseBody(c, &req) {
		return nil
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	result, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

// Logout handles POST /api/logout
// @Summary Logout
// @Description Revoke the presented session token
// @Tags auth
// @Produce json
// @Security AccessToken
// @Success 200 {object} object{message=string}
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	tokenID, expiresAt := auth.CurrentToken(c)
	if err := s.authService.Logout(c.UserContext(), tokenID, expiresAt); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out."})
}

// ChangePassword handles POST /api/change-password
// @Summary Change password
// @Description Replace the password when the current one matches. password_updated is false otherwise.
// @Tags account
// @Accept json
// @Produce json
// @Security AccessToken
// @Param request body changePasswordRequest true "Passwords"
// @Success 200 {object} object{password_updated=bool}
// @Failure 400 {object} models.ErrorResponse
// @Router /change-password [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if !parseBody(c, &req) {
		return nil
	}

	updated, err := s.authService.ChangePassword(c.UserContext(), auth.UserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"password_updated": updated})
}

// ForgotPassword handles POST /api/forgot-password
// @Summary Request a password reset link
// @Description Always succeeds for a well-formed email, whether or not an account uses it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body forgotPasswordRequest true "Email and the frontend base URL"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if !parseBody(c, &req) {
		return nil
	}
	if err := s.authService.ForgotPassword(c.UserContext(), req.Email, req.FrontendURL); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "If the address belongs to an account, a reset link has been sent."})
}

// CheckResetToken handles GET /api/reset-password/:token
// @Summary Validate a reset token
// @Tags auth
// @Produce json
// @Param token path string true "Reset token"
// @Success 200 {object} object{email=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /reset-password/{token} [get]
func (s *Server) CheckResetToken(c *fiber.Ctx) error {
	token, ok := routeParam(c, "token")
	if !ok {
		return nil
	}
	email, err := s.authService.CheckResetToken(token)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"email": email})
}

// ResetPassword handles POST /api/reset-password/:token
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body resetPasswordRequest true "New password"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /reset-password/{token} [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	token, ok := routeParam(c, "token")
	if !ok {
		return nil
	}
	var req resetPasswordRequest
	if !parseBody(c, &req) {
		return nil
	}
	if err := s.authService.ResetPassword(c.UserContext(), token, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated."})
}
