package server

import (
	"io"

	"podium/internal/auth"
	"podium/internal/models"

	"github.com/gofiber/fiber/v2"
)

// maxPictureUpload bounds how much of an uploaded picture is read; the
// thumbnailer rejects anything larger than its own source limit.
const maxPictureUpload = 10<<20 + 1

// GetUserProfile handles GET /api/user/:username
// @Summary User profile
// @Description Public profile with follower counts and podcasts as seen by the caller
// @Tags users
// @Produce json
// @Security AccessToken
// @Param username path string true "Username"
// @Success 200 {object} service.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	username, ok := routeParam(c, "username")
	if !ok {
		return nil
	}
	profile, err := s.profileService.Profile(c.UserContext(), auth.UserID(c), username)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfilePicture handles POST /api/update-profile-picture
// @Summary Upload profile picture
// @Description Multipart field "image"; stored downscaled
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security AccessToken
// @Param image formData file true "Picture (jpeg, png or webp)"
// @Success 200 {object} object{profile_image=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /update-profile-picture [post]
func (s *Server) UpdateProfilePicture(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "No image uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, maxPictureUpload))
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}

	name, err := s.profileService.UpdatePicture(c.UserContext(), auth.UserID(c), content, fh.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"profile_image": name})
}

// GetProfilePicture handles GET /api/profile-picture/:username
// @Summary Profile picture
// @Description Serves the picture, or a generated placeholder for users without one
// @Tags users
// @Produce image/jpeg
// @Produce image/webp
// @Param username path string true "Username"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /profile-picture/{username} [get]
func (s *Server) GetProfilePicture(c *fiber.Ctx) error {
	username, ok := routeParam(c, "username")
	if !ok {
		return nil
	}
	pic, err := s.profileService.OpenPicture(c.UserContext(), username)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, pic.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.SendStream(pic.Body)
}
