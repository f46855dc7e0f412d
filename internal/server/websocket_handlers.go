package server

import (
	"log/slog"

	"podium/internal/auth"
	"podium/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// websocketToken rejects non-upgrade requests and lets browser clients, which
// cannot set headers on the handshake, pass the session token as ?token=.
func (s *Server) websocketToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if auth.TokenFromRequest(c) == "" {
			if tok := c.Query("token"); tok != "" {
				c.Request().Header.Set(auth.HeaderAccessToken, tok)
			}
		}
		return c.Next()
	}
}

// WebsocketHandler streams the caller's live notifications (new followers,
// likes and comments on their podcasts).
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(auth.LocalUserID).(string)
		if userID == "" {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.String("user_id", userID), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.TrySend([]byte(`{"type":"connected"}`))

		go client.WritePump()
		client.ReadPump()
	})
}
