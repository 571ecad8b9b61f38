package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"buzzline/internal/entity"
	"buzzline/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// InactiveSweeper demotes users whose last activity predates the inactivity
// threshold. Satisfied by worker.Sweeper.
type InactiveSweeper interface {
	Sweep(ctx context.Context) int64
}

type HttpHandler struct {
	userUc         usecase.UserUsecase
	messageUc      usecase.MessageUsecase
	notificationUc usecase.NotificationUsecase
	sweeper        InactiveSweeper
	log            *zap.SugaredLogger
}

func NewHttpHandler(
	userUc usecase.UserUsecase,
	messageUc usecase.MessageUsecase,
	notificationUc usecase.NotificationUsecase,
	sweeper InactiveSweeper,
	log *zap.SugaredLogger,
) *HttpHandler {
	return &HttpHandler{
		userUc:         userUc,
		messageUc:      messageUc,
		notificationUc: notificationUc,
		sweeper:        sweeper,
		log:            log,
	}
}

type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// errorStatus maps usecase sentinel errors onto HTTP status codes. Anything
// unmapped is an internal error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrEmptyMessage),
		errors.Is(err, usecase.ErrMessageTooLong),
		errors.Is(err, usecase.ErrSelfMessage),
		errors.Is(err, usecase.ErrSelfFollow),
		errors.Is(err, usecase.ErrSelfBlock),
		errors.Is(err, usecase.ErrInvalidStatus),
		errors.Is(err, usecase.ErrInvalidNotificationType),
		errors.Is(err, usecase.ErrEmptySearchQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrUserNotFound),
		errors.Is(err, usecase.ErrSenderNotFound),
		errors.Is(err, usecase.ErrRecipientNotFound),
		errors.Is(err, usecase.ErrChatNotFound),
		errors.Is(err, usecase.ErrMessageNotFound),
		errors.Is(err, usecase.ErrNotificationNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, usecase.ErrNotParticipant),
		errors.Is(err, usecase.ErrNotMessageSender):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, usecase.ErrAlreadyFollowing),
		errors.Is(err, usecase.ErrNotFollowing),
		errors.Is(err, usecase.ErrAlreadyBlocked),
		errors.Is(err, usecase.ErrNotBlocked):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *HttpHandler) fail(w http.ResponseWriter, op string, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Errorw(op+" failed", "error", err)
	}
	writeJSON(w, status, Response{Message: message})
}

func currentUserId(r *http.Request) string {
	claims, ok := r.Context().Value(UserContextKey).(*entity.TokenClaims)
	if !ok {
		return ""
	}
	return claims.UserId
}

// POST /messages
func (h *HttpHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientId string `json:"recipientId"`
		Text        string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	payload, err := h.messageUc.SendMessage(r.Context(), currentUserId(r), req.RecipientId, req.Text)
	if err != nil {
		h.fail(w, "send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Message: "success", Data: payload})
}

// GET /chats
func (h *HttpHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.messageUc.ListChats(r.Context(), currentUserId(r))
	if err != nil {
		h.fail(w, "list chats", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: chats})
}

// POST /chats
func (h *HttpHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParticipantId string `json:"participantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	chat, err := h.messageUc.GetOrCreateChat(r.Context(), currentUserId(r), req.ParticipantId)
	if err != nil {
		h.fail(w, "create chat", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: chat})
}

// GET /chats/{chatId}/messages
func (h *HttpHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	chatId := chi.URLParam(r, "chatId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.messageUc.GetMessages(r.Context(), chatId, currentUserId(r), limit, offset)
	if err != nil {
		h.fail(w, "get messages", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: messages})
}

// GET /messages/with/{recipientId}
func (h *HttpHandler) GetMessagesWithRecipient(w http.ResponseWriter, r *http.Request) {
	recipientId := chi.URLParam(r, "recipientId")

	chat, messages, err := h.messageUc.GetMessagesWithRecipient(r.Context(), currentUserId(r), recipientId)
	if err != nil {
		h.fail(w, "get messages with recipient", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]any{
		"chat":     chat,
		"messages": messages,
	}})
}

// PATCH /messages/{messageId}/read
func (h *HttpHandler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	messageId := chi.URLParam(r, "messageId")
	var req struct {
		ChatId string `json:"chatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	message, err := h.messageUc.MarkMessageRead(r.Context(), messageId, req.ChatId, currentUserId(r))
	if err != nil {
		h.fail(w, "mark message read", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: message})
}

// PATCH /chats/{chatId}/read
func (h *HttpHandler) MarkChatRead(w http.ResponseWriter, r *http.Request) {
	chatId := chi.URLParam(r, "chatId")

	modified, err := h.messageUc.MarkChatRead(r.Context(), chatId, currentUserId(r))
	if err != nil {
		h.fail(w, "mark chat read", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int64{"modified": modified}})
}

// DELETE /messages/{messageId}
func (h *HttpHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageId := chi.URLParam(r, "messageId")

	if err := h.messageUc.DeleteMessage(r.Context(), messageId, currentUserId(r)); err != nil {
		h.fail(w, "delete message", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success"})
}

// DELETE /chats/{chatId}/messages
func (h *HttpHandler) ClearChat(w http.ResponseWriter, r *http.Request) {
	chatId := chi.URLParam(r, "chatId")

	deleted, err := h.messageUc.ClearChat(r.Context(), chatId, currentUserId(r))
	if err != nil {
		h.fail(w, "clear chat", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int64{"deleted": deleted}})
}

// GET /chats/{chatId}/messages/search?q=
func (h *HttpHandler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	chatId := chi.URLParam(r, "chatId")
	query := r.URL.Query().Get("q")

	messages, err := h.messageUc.SearchMessages(r.Context(), chatId, currentUserId(r), query)
	if err != nil {
		h.fail(w, "search messages", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: messages})
}

// GET /notifications
func (h *HttpHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	filter := entity.NotificationListFilter{
		Receiver:   currentUserId(r),
		UnreadOnly: r.URL.Query().Get("unreadOnly") == "true",
		Type:       entity.NotificationType(r.URL.Query().Get("type")),
		Limit:      limit,
		Offset:     offset,
	}

	notifications, err := h.notificationUc.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: notifications})
}

// GET /notifications/{id}
func (h *HttpHandler) GetNotification(w http.ResponseWriter, r *http.Request) {
	notification, err := h.notificationUc.Get(r.Context(), chi.URLParam(r, "id"), currentUserId(r))
	if err != nil {
		h.fail(w, "get notification", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: notification})
}

// GET /notifications/search?q=
func (h *HttpHandler) SearchNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notificationUc.Search(r.Context(), currentUserId(r), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "search notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: notifications})
}

// GET /notifications/unread-count
func (h *HttpHandler) UnreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationUc.UnreadCount(r.Context(), currentUserId(r))
	if err != nil {
		h.fail(w, "unread notification count", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int64{"unreadCount": count}})
}

// GET /notifications/stats
func (h *HttpHandler) NotificationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.notificationUc.Stats(r.Context(), currentUserId(r))
	if err != nil {
		h.fail(w, "notification stats", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: stats})
}

// PATCH /notifications/{id}/read
func (h *HttpHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	notification, err := h.notificationUc.MarkRead(r.Context(), chi.URLParam(r, "id"), currentUserId(r))
	if err != nil {
		h.fail(w, "mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: notification})
}

// PATCH /notifications/read-all
func (h *HttpHandler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	modified, err := h.notificationUc.MarkAllRead(r.Context(), currentUserId(r))
	if err != nil {
		h.fail(w, "mark all notifications read", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int64{"modified": modified}})
}

// DELETE /notifications/{id}
func (h *HttpHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationUc.Delete(r.Context(), chi.URLParam(r, "id"), currentUserId(r)); err != nil {
		h.fail(w, "delete notification", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success"})
}

// DELETE /notifications
func (h *HttpHandler) DeleteAllNotifications(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.notificationUc.DeleteAll(r.Context(), currentUserId(r))
	if err != nil {
		h.fail(w, "delete all notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int64{"deleted": deleted}})
}

// DELETE /notifications/unread
func (h *HttpHandler) ClearUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.notificationUc.ClearUnread(r.Context(), currentUserId(r))
	if err != nil {
		h.fail(w, "clear unread notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int64{"deleted": deleted}})
}

// GET /users/{id}
func (h *HttpHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: user})
}

// GET /users/online
func (h *HttpHandler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userUc.OnlineUsers(r.Context(), currentUserId(r))
	if err != nil {
		h.fail(w, "online users", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: users})
}

// POST /users/sweep-inactive
func (h *HttpHandler) SweepInactive(w http.ResponseWriter, r *http.Request) {
	demoted := h.sweeper.Sweep(r.Context())
	writeJSON(w, http.StatusOK, Response{
		Message: "success",
		Data:    map[string]int64{"demoted": demoted},
	})
}

// GET /users/{id}/status
func (h *HttpHandler) UserStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.userUc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "user status", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: status})
}

// PATCH /users/status
func (h *HttpHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	user, err := h.userUc.SetStatus(r.Context(), currentUserId(r), req.Status)
	if err != nil {
		h.fail(w, "set status", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: user})
}

// POST /users/{id}/follow
func (h *HttpHandler) Follow(w http.ResponseWriter, r *http.Request) {
	if err := h.userUc.Follow(r.Context(), currentUserId(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "follow", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success"})
}

// DELETE /users/{id}/follow
func (h *HttpHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	if err := h.userUc.Unfollow(r.Context(), currentUserId(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "unfollow", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success"})
}

// POST /users/{id}/block
func (h *HttpHandler) Block(w http.ResponseWriter, r *http.Request) {
	if err := h.userUc.Block(r.Context(), currentUserId(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "block", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success"})
}

// DELETE /users/{id}/block
func (h *HttpHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.userUc.Unblock(r.Context(), currentUserId(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "unblock", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success"})
}
