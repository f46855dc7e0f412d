package server

import (
	"podium/internal/auth"
	"podium/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Comment string `json:"comment"`
}

// CreateComment handles POST /api/comment/:podcastId
// @Summary Comment on a podcast
// @Tags comments
// @Accept json
// @Produce json
// @Security AccessToken
// @Param podcastId path string true "Podcast ID"
// @Param request body commentRequest true "Comment text"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comment/{podcastId} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	podcastID, ok := routeParam(c, "podcastId")
	if !ok {
		return nil
	}
	var req commentRequest
	if !parseBody(c, &req) {
		return nil
	}

	created, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:    auth.UserID(c),
		PodcastID: podcastID,
		Body:      req.Comment,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetComments handles GET /api/comments/:podcastId
// @Summary List comments
// @Tags comments
// @Produce json
// @Security AccessToken
// @Param podcastId path string true "Podcast ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{podcastId} [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	podcastID, ok := routeParam(c, "podcastId")
	if !ok {
		return nil
	}
	comments, err := s.commentService.ListComments(c.UserContext(), podcastID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(comments)
}

// DeleteComment handles POST /api/delete-comment/:commentId
// @Summary Delete comment
// @Tags comments
// @Produce json
// @Security AccessToken
// @Param commentId path string true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /delete-comment/{commentId} [post]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, ok := routeParam(c, "commentId")
	if !ok {
		return nil
	}
	deleted, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    auth.UserID(c),
		CommentID: commentID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(deleted)
}
