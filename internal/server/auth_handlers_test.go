package server

import (
	"net/http"
	"strings"
	"testing"

	"podium/internal/auth"
	"podium/internal/mail"
	"podium/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestServer(t)

	resp, body := env.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"username":   "ada",
		"email":      "Ada@Example.com",
		"password":   "password1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	user := body["user"].(map[string]any)
	assert.Equal(t, "ada", user["username"])
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "default.png", user["profile_image"])
	assert.NotContains(t, user, "password")

	t.Run("duplicate username", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/register", "", fiber.Map{
			"first_name": "Ada",
			"last_name":  "Other",
			"username":   "ada",
			"email":      "other@example.com",
			"password":   "password1",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, models.CodeConflict, body["code"])
	})

	t.Run("invalid input", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/register", "", fiber.Map{
			"first_name": "Ada",
			"last_name":  "Lovelace",
			"username":   "ab",
			"email":      "not-an-email",
			"password":   "short",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, models.CodeValidation, body["code"])
	})
}

func TestLogin(t *testing.T) {
	env := newTestServer(t)
	env.signUp(t, "grace")

	tests := []struct {
		name       string
		body       fiber.Map
		wantStatus int
	}{
		{"missing fields", fiber.Map{"username": "grace"}, http.StatusBadRequest},
		{"unknown user", fiber.Map{"username": "nobody", "password": "password1"}, http.StatusNotFound},
		{"wrong password", fiber.Map{"username": "grace", "password": "password2"}, http.StatusUnauthorized},
		{"success", fiber.Map{"username": "grace", "password": "password1"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/login", "", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, body)
			if tt.wantStatus == http.StatusOK {
				assert.NotEmpty(t, body["token"])
			}
		})
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.signUp(t, "linus")

	resp, _ := env.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/account", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.CodeTokenExpired, body["code"])
}

func TestChangePassword(t *testing.T) {
	env := newTestServer(t)
	token, _ := env.signUp(t, "barbara")

	resp, body := env.do(t, http.MethodPost, "/api/change-password", token, fiber.Map{
		"current_password": "wrong-pass1",
		"new_password":     "newpassword2",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["password_updated"])

	resp, body = env.do(t, http.MethodPost, "/api/change-password", token, fiber.Map{
		"current_password": "password1",
		"new_password":     "newpassword2",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["password_updated"])

	resp, _ = env.do(t, http.MethodPost, "/api/login", "", fiber.Map{"username": "barbara", "password": "newpassword2"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPasswordReset_Flow(t *testing.T) {
	env := newTestServer(t)
	env.signUp(t, "margaret")

	var sent mail.Message
	env.mailer.On("Send", mock.Anything, mock.MatchedBy(func(m mail.Message) bool {
		return m.To == "margaret@example.com"
	})).Run(func(args mock.Arguments) {
		sent = args.Get(1).(mail.Message)
	}).Return(nil).Once()

	resp, _ := env.do(t, http.MethodPost, "/api/forgot-password", "", fiber.Map{
		"email":        "margaret@example.com",
		"frontend_url": "https://podium.example/",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.mailer.AssertExpectations(t)

	const marker = "https://podium.example/reset-password/"
	start := strings.Index(sent.Body, marker)
	require.GreaterOrEqual(t, start, 0, sent.Body)
	token := strings.Fields(sent.Body[start+len(marker):])[0]

	resp, body := env.do(t, http.MethodGet, "/api/reset-password/"+token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "margaret@example.com", body["email"])

	resp, _ = env.do(t, http.MethodPost, "/api/reset-password/"+token, "", fiber.Map{"new_password": "resetpass9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/login", "", fiber.Map{"username": "margaret", "password": "resetpass9"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPasswordReset_Rejections(t *testing.T) {
	env := newTestServer(t)
	session, _ := env.signUp(t, "katherine")

	t.Run("unknown email is silent", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/forgot-password", "", fiber.Map{
			"email":        "ghost@example.com",
			"frontend_url": "https://podium.example",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		env.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("session token is not a reset token", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/reset-password/"+session, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, auth.CodeTokenMalformed, body["code"])
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/reset-password/garbage", "", fiber.Map{"new_password": "resetpass9"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("mail failure", func(t *testing.T) {
		env.mailer.On("Send", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		resp, body := env.do(t, http.MethodPost, "/api/forgot-password", "", fiber.Map{
			"email":        "katherine@example.com",
			"frontend_url": "https://podium.example",
		})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, models.CodeInternal, body["code"])
	})
}
