package http

import (
	"net/http"

	wsDelivery "buzzline/internal/delivery/websocket"

	"github.com/go-chi/chi/v5"
)

func MapHttpRoutes(
	r *chi.Mux,
	httpHandler *HttpHandler,
	websocketHandler *wsDelivery.WebsocketHandler,
	authHandler *AuthHandler,
	authMiddleware *AuthMiddleware,
	rateLimiter *RateLimiter,
) {
	r.With(rateLimiter.Limit).Handle("/ws", http.HandlerFunc(websocketHandler.HandleWebSocket))

	// Auth routes (public, limited by remote address)
	r.Route("/auth", func(r chi.Router) {
		r.Use(rateLimiter.Limit)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/logout-all", authHandler.LogoutAllDevices)
		})
	})

	// Protected routes; the limiter runs after Authenticate so the window
	// is keyed by user id rather than remote address.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(rateLimiter.Limit)

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", httpHandler.SendMessage)
			r.Get("/with/{recipientId}", httpHandler.GetMessagesWithRecipient)
			r.Patch("/{messageId}/read", httpHandler.MarkMessageRead)
			r.Delete("/{messageId}", httpHandler.DeleteMessage)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", httpHandler.ListChats)
			r.Post("/", httpHandler.CreateChat)
			r.Get("/{chatId}/messages", httpHandler.GetMessages)
			r.Get("/{chatId}/messages/search", httpHandler.SearchMessages)
			r.Patch("/{chatId}/read", httpHandler.MarkChatRead)
			r.Delete("/{chatId}/messages", httpHandler.ClearChat)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", httpHandler.ListNotifications)
			r.Get("/search", httpHandler.SearchNotifications)
			r.Get("/unread-count", httpHandler.UnreadNotificationCount)
			r.Get("/stats", httpHandler.NotificationStats)
			r.Get("/{id}", httpHandler.GetNotification)
			r.Patch("/read-all", httpHandler.MarkAllNotificationsRead)
			r.Patch("/{id}/read", httpHandler.MarkNotificationRead)
			r.Delete("/unread", httpHandler.ClearUnreadNotifications)
			r.Delete("/{id}", httpHandler.DeleteNotification)
			r.Delete("/", httpHandler.DeleteAllNotifications)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/online", httpHandler.OnlineUsers)
			r.Patch("/status", httpHandler.SetStatus)
			r.Post("/sweep-inactive", httpHandler.SweepInactive)
			r.Get("/{id}", httpHandler.GetUser)
			r.Get("/{id}/status", httpHandler.UserStatus)
			r.Post("/{id}/follow", httpHandler.Follow)
			r.Delete("/{id}/follow", httpHandler.Unfollow)
			r.Post("/{id}/block", httpHandler.Block)
			r.Delete("/{id}/block", httpHandler.Unblock)
		})
	})
}
