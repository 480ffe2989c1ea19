package router

import (
	"context"

	"chat_server/internal/chat/app"
	"chat_server/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 註冊 realtime 與查詢用的路由
func RegisterRoutes(
	r *fiber.App,
	chatWebsocket *app.ChatWebsocketHandler,
	presenceUC *app.PresenceUseCase,
	typingUC *app.TypingUseCase,
	statusUC *app.MessageStatusUseCase,
) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	// 查詢用 REST，全部是 pure read
	r.Get("/presence/online", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"online_users": presenceUC.GetOnlineUsers()})
	})

	r.Get("/presence/:userID", func(c *fiber.Ctx) error {
		presence := presenceUC.GetPresence(c.Params("userID"))
		if presence == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not tracked"})
		}
		return c.JSON(fiber.Map{
			"user_id":       presence.UserID,
			"status":        presence.Status,
			"last_seen":     presence.LastSeen,
			"session_count": len(presence.Sessions),
		})
	})

	r.Post("/presence/bulk", func(c *fiber.Ctx) error {
		var body struct {
			UserIDs []string `json:"user_ids"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		return c.JSON(fiber.Map{"presences": presenceUC.GetBulkPresence(body.UserIDs)})
	})

	r.Get("/typing/:conversationID", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"typing_users": typingUC.GetTypingUsers(c.Params("conversationID"))})
	})

	r.Get("/messages/:messageID/status", func(c *fiber.Ctx) error {
		update, err := statusUC.GetMessageStatus(c.Context(), c.Params("messageID"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "message not found"})
		}
		return c.JSON(update)
	})
}
