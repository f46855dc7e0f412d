package server

import (
	"strings"

	"podium/internal/auth"
	"podium/internal/models"
	"podium/internal/service"

	"github.com/gofiber/fiber/v2"
)

type editPodcastRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UploadPodcast handles POST /api/upload-podcast
// @Summary Upload podcast
// @Tags podcasts
// @Accept multipart/form-data
// @Produce json
// @Security AccessToken
// @Param audio formData file true "Audio file"
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Success 201 {object} models.Podcast
// @Failure 400 {object} models.ErrorResponse
// @Router /upload-podcast [post]
func (s *Server) UploadPodcast(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return badRequest(c, "No audio file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}
	defer func() { _ = f.Close() }()

	podcast, err := s.podcastService.Upload(c.UserContext(), service.UploadPodcastInput{
		OwnerID:     auth.UserID(c),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Filename:    fh.Filename,
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(podcast)
}

// GetPodcast handles GET /api/listen/:id
// @Summary Podcast details
// @Description Metadata with like and comment counts and whether the caller liked it
// @Tags podcasts
// @Produce json
// @Security AccessToken
// @Param id path string true "Podcast ID"
// @Success 200 {object} models.Podcast
// @Failure 404 {object} models.ErrorResponse
// @Router /listen/{id} [get]
func (s *Server) GetPodcast(c *fiber.Ctx) error {
	id, ok := routeParam(c, "id")
	if !ok {
		return nil
	}
	podcast, err := s.podcastService.Get(c.UserContext(), id, auth.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(podcast)
}

// StreamPodcastFile handles GET /api/podcast-file/:id
// @Summary Podcast audio
// @Tags podcasts
// @Produce audio/mpeg
// @Security AccessToken
// @Param id path string true "Podcast ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /podcast-file/{id} [get]
func (s *Server) StreamPodcastFile(c *fiber.Ctx) error {
	id, ok := routeParam(c, "id")
	if !ok {
		return nil
	}
	audio, err := s.podcastService.OpenAudio(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, audio.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+strings.ReplaceAll(audio.Name, `"`, "")+`"`)
	return c.SendStream(audio.Body)
}

// EditPodcast handles POST /api/edit-podcast/:id
// @Summary Edit podcast
// @Tags podcasts
// @Accept json
// @Produce json
// @Security AccessToken
// @Param id path string true "Podcast ID"
// @Param request body editPodcastRequest true "New title and description"
// @Success 200 {object} models.Podcast
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /edit-podcast/{id} [post]
func (s *Server) EditPodcast(c *fiber.Ctx) error {
	id, ok := routeParam(c, "id")
	if !ok {
		return nil
	}
	var req editPodcastRequest
	if !parseBody(c, &req) {
		return nil
	}

	podcast, err := s.podcastService.Edit(c.UserContext(), service.EditPodcastInput{
		UserID:      auth.UserID(c),
		PodcastID:   id,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(podcast)
}

// DeletePodcast handles POST /api/delete-podcast/:id
// @Summary Delete podcast
// @Tags podcasts
// @Produce json
// @Security AccessToken
// @Param id path string true "Podcast ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /delete-podcast/{id} [post]
func (s *Server) DeletePodcast(c *fiber.Ctx) error {
	id, ok := routeParam(c, "id")
	if !ok {
		return nil
	}
	if err := s.podcastService.Delete(c.UserContext(), auth.UserID(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Podcast deleted."})
}
