package server

import (
	"podium/internal/auth"
	"podium/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateAccountRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// GetDashboard handles GET /api/dashboard
// @Summary Dashboard
// @Description Username plus the newest podcasts of followed users
// @Tags account
// @Produce json
// @Security AccessToken
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {object} service.Dashboard
// @Router /dashboard [get]
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	page := parsePagination(c, defaultFeedLimit)
	dash, err := s.accountService.Dashboard(c.UserContext(), auth.UserID(c), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dash)
}

// GetAccount handles GET /api/account
// @Summary Current account
// @Tags account
// @Produce json
// @Security AccessToken
// @Success 200 {object} models.User
// @Router /account [get]
func (s *Server) GetAccount(c *fiber.Ctx) error {
	user, err := s.accountService.Get(c.UserContext(), auth.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

// UpdateAccount handles POST /api/account
// @Summary Edit account
// @Tags account
// @Accept json
// @Produce json
// @Security AccessToken
// @Param request body updateAccountRequest true "Account fields"
// @Success 200 {object} object{account_updated=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /account [post]
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	var req updateAccountRequest
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.accountService.Update(c.UserContext(), service.UpdateAccountInput{
		UserID:    auth.UserID(c),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"account_updated": true, "user": user})
}

// DeactivateAccount handles POST /api/deactivate-account
// @Summary Deactivate account
// @Description Hide the account until the next login; the current session is revoked
// @Tags account
// @Produce json
// @Security AccessToken
// @Success 200 {object} object{message=string}
// @Router /deactivate-account [post]
func (s *Server) DeactivateAccount(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := s.accountService.Deactivate(ctx, auth.UserID(c)); err != nil {
		return fail(c, err)
	}
	tokenID, expiresAt := auth.CurrentToken(c)
	if err := s.authService.Logout(ctx, tokenID, expiresAt); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deactivated."})
}

// DeleteAccount handles POST /api/delete-account
// @Summary Delete account
// @Description Permanently remove the account with its podcasts, likes, comments and follows
// @Tags account
// @Produce json
// @Security AccessToken
// @Success 200 {object} object{message=string}
// @Router /delete-account [post]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.accountService.Delete(c.UserContext(), auth.UserID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted."})
}
