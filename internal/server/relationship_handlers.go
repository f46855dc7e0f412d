package server

import (
	"podium/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type toggleRequest struct {
	Target string `json:"target"`
}

// ToggleFollow handles POST /api/:action/user
// @Summary Follow or unfollow a user
// @Description action is follow, unfollow, connect or disconnect. target is a username or user id.
// @Tags relationships
// @Accept json
// @Produce json
// @Security AccessToken
// @Param action path string true "follow | unfollow"
// @Param request body toggleRequest true "Target user"
// @Success 200 {object} relationship.Result
// @Failure 400 {object} models.ErrorResponse "INVALID_ACTION"
// @Failure 403 {object} models.ErrorResponse "SELF_REFERENCE"
// @Failure 404 {object} models.ErrorResponse "TARGET_NOT_FOUND"
// @Failure 409 {object} models.ErrorResponse "INVALID_TRANSITION"
// @Router /{action}/user [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	var req toggleRequest
	if !parseBody(c, &req) {
		return nil
	}
	res, err := s.relationshipService.Follow(c.UserContext(), auth.UserID(c), req.Target, c.Params("action"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

// ToggleLike handles POST /api/:action/podcast
// @Summary Like or unlike a podcast
// @Description action is like, unlike, connect or disconnect. target is a podcast id.
// @Tags relationships
// @Accept json
// @Produce json
// @Security AccessToken
// @Param action path string true "like | unlike"
// @Param request body toggleRequest true "Target podcast"
// @Success 200 {object} relationship.Result
// @Failure 400 {object} models.ErrorResponse "INVALID_ACTION"
// @Failure 404 {object} models.ErrorResponse "TARGET_NOT_FOUND"
// @Failure 409 {object} models.ErrorResponse "INVALID_TRANSITION"
// @Router /{action}/podcast [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req toggleRequest
	if !parseBody(c, &req) {
		return nil
	}
	res, err := s.relationshipService.Like(c.UserContext(), auth.UserID(c), req.Target, c.Params("action"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}
