package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"podium/internal/auth"
	"podium/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard_FeedFromFollowedUsers(t *testing.T) {
	env := newTestServer(t)
	reader, _ := env.signUp(t, "reader")
	host, _ := env.signUp(t, "host")
	stranger, _ := env.signUp(t, "stranger")

	env.uploadPodcast(t, host, "Followed")
	env.uploadPodcast(t, stranger, "Unfollowed")

	resp, _ := env.do(t, http.MethodPost, "/api/follow/user", reader, fiber.Map{"target": "host"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/dashboard?limit=10", reader, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "reader", body["username"])

	feed := body["feed"].([]any)
	require.Len(t, feed, 1)
	assert.Equal(t, "Followed", feed[0].(map[string]any)["title"])
}

func TestAccount_GetAndUpdate(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.signUp(t, "jordan")
	env.signUp(t, "taken")

	resp, body := env.do(t, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jordan", body["username"])

	resp, body = env.do(t, http.MethodPost, "/api/account", token, fiber.Map{
		"first_name": "Jordan",
		"last_name":  "Lee",
		"username":   "jordan_lee",
		"email":      "jordan.lee@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["account_updated"])
	assert.Equal(t, "jordan_lee", body["user"].(map[string]any)["username"])

	resp, body = env.do(t, http.MethodPost, "/api/account", token, fiber.Map{
		"first_name": "Jordan",
		"last_name":  "Lee",
		"username":   "taken",
		"email":      "jordan.lee@example.com",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, body["code"])
}

func TestDeactivateAccount(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.signUp(t, "sleepy")
	viewer, _ := env.signUp(t, "viewer")

	resp, _ := env.do(t, http.MethodPost, "/api/deactivate-account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the deactivating session is revoked
	resp, body := env.do(t, http.MethodGet, "/api/account", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.CodeTokenExpired, body["code"])

	resp, _ = env.do(t, http.MethodGet, "/api/user/sleepy", viewer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// logging in again reactivates
	resp, body = env.do(t, http.MethodPost, "/api/login", "", fiber.Map{"username": "sleepy", "password": "password1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["user"].(map[string]any)["deactivated"])

	resp, _ = env.do(t, http.MethodGet, "/api/user/sleepy", viewer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.signUp(t, "leaving")
	viewer, _ := env.signUp(t, "viewer")
	id := env.uploadPodcast(t, token, "Farewell")

	resp, _ := env.do(t, http.MethodPost, "/api/delete-account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/account", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.CodeUserNotFound, body["code"])

	resp, _ = env.do(t, http.MethodGet, "/api/listen/"+id, viewer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProfilePicture(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.signUp(t, "painter")

	// no picture yet: a placeholder is served without a session
	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/profile-picture/painter", nil), -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "image/")

	req := multipartRequest(t, "/api/update-profile-picture", token, "image", "me.png", pngFixture(t, 300, 300), nil)
	resp, body := env.send(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Regexp(t, `\.jpg$`, body["profile_image"])

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/api/profile-picture/painter", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get(fiber.HeaderContentType))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 150, cfg.Height)

	t.Run("not an image", func(t *testing.T) {
		req := multipartRequest(t, "/api/update-profile-picture", token, "image", "me.png", []byte("plain text"), nil)
		resp, _ := env.send(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/profile-picture/nobody", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUserProfile_OwnView(t *testing.T) {
	env := newTestServer(t)
	token, userID := env.signUp(t, "selfie")
	env.uploadPodcast(t, token, "Mine")

	resp, body := env.do(t, http.MethodGet, "/api/user/selfie", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_current_user"])
	assert.Equal(t, "Test User", body["full_name"])
	assert.Equal(t, userID, body["user"].(map[string]any)["id"])
	assert.Len(t, body["podcasts"], 1)
}
