package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"buzzline/infrastructure/ws"
	"buzzline/internal/entity"
	"buzzline/internal/usecase"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const handshakeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebsocketHandler struct {
	hub            ws.IHub
	authUc         usecase.AuthUsecase
	userUc         usecase.UserUsecase
	messageUc      usecase.MessageUsecase
	notificationUc usecase.NotificationUsecase
	log            *zap.SugaredLogger
}

func NewWebsocketHandler(
	hub ws.IHub,
	authUc usecase.AuthUsecase,
	userUc usecase.UserUsecase,
	messageUc usecase.MessageUsecase,
	notificationUc usecase.NotificationUsecase,
	log *zap.SugaredLogger,
) *WebsocketHandler {
	return &WebsocketHandler{
		hub:            hub,
		authUc:         authUc,
		userUc:         userUc,
		messageUc:      messageUc,
		notificationUc: notificationUc,
		log:            log,
	}
}

// HandleWebSocket authenticates the handshake, registers the connection in
// the presence registry, and runs the read loop until the connection dies.
func (h *WebsocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handshakeTimeout)
	user, err := h.authenticate(ctx, r)
	cancel()
	if err != nil {
		h.log.Warnw("websocket handshake rejected", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("websocket upgrade failed", "userId", user.Id, "error", err)
		return
	}

	if err := h.userUc.SetOnline(r.Context(), user.Id); err != nil {
		h.log.Errorw("set online failed", "userId", user.Id, "error", err)
	}

	snapshot := ws.PresenceSnapshot{
		Id:          user.Id,
		UserId:      user.Id,
		Name:        user.Fullname,
		Email:       user.Email,
		ProfilePic:  user.ProfilePic,
		Role:        user.Role,
		AccountType: user.AccountType,
		LastSeen:    time.Now(),
	}

	client := ws.NewClient(user.Id, snapshot, h.hub, conn, h.log)
	h.hub.RegisterClient(client)

	go client.WritePump()
	client.ReadPump(func(data []byte) {
		h.dispatch(context.Background(), client, data)
	})
}

// HandleUnregisterClient records the durable offline transition when a
// connection drops without an explicit userOffline event.
func (h *WebsocketHandler) HandleUnregisterClient(client *ws.UserClient) error {
	return h.userUc.SetOffline(context.Background(), client.UserId)
}

// authenticate resolves the bearer token from the Authorization header or
// the token query parameter and requires a verified, unbanned account.
func (h *WebsocketHandler) authenticate(ctx context.Context, r *http.Request) (entity.User, error) {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return entity.User{}, fmt.Errorf("missing token")
	}

	claims, err := h.authUc.ValidateAccessToken(token)
	if err != nil {
		return entity.User{}, err
	}

	user, err := h.userUc.Get(ctx, claims.UserId)
	if err != nil {
		return entity.User{}, err
	}
	if !user.IsVerified {
		return entity.User{}, fmt.Errorf("account not verified")
	}
	if user.IsBanned {
		return entity.User{}, fmt.Errorf("account is banned")
	}
	return user, nil
}

// dispatch decodes the envelope and routes it by event name. Events outside
// the enum are logged and dropped; a malformed frame never kills the
// connection.
func (h *WebsocketHandler) dispatch(ctx context.Context, client *ws.UserClient, data []byte) {
	var envelope ws.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		h.log.Warnw("malformed frame", "userId", client.UserId, "error", err)
		return
	}

	switch envelope.Event {
	case ws.EventUserOnline:
		h.handleUserOnline(ctx, client, envelope.Data)
	case ws.EventUserHeartbeat:
		h.handleHeartbeat(ctx, client)
	case ws.EventUserOffline:
		h.handleUserOffline(ctx, client)
	case ws.EventSendDirectMessage:
		h.handleSendDirectMessage(client, envelope.Data)
	case ws.EventUserTyping, ws.EventUserStoppedTyping:
		h.handleTyping(client, envelope.Event, envelope.Data)
	case ws.EventMarkNotificationRead:
		h.handleMarkNotificationRead(ctx, client, envelope.Data)
	case ws.EventMarkAllNotificationsRead:
		if _, err := h.notificationUc.MarkAllRead(ctx, client.UserId); err != nil {
			h.log.Errorw("mark all notifications read failed", "userId", client.UserId, "error", err)
		}
	case ws.EventNewPostCreated:
		h.handleNewPostCreated(ctx, client, envelope.Data)
	case ws.EventNewMessage:
		h.handleMessageNotification(ctx, client, envelope.Data, entity.NotificationNewMessage)
	case ws.EventFirstMessage:
		h.handleMessageNotification(ctx, client, envelope.Data, entity.NotificationFirstMessage)
	case ws.EventPostLiked:
		h.handlePostLiked(ctx, client, envelope.Data)
	case ws.EventPostCommented:
		h.handlePostCommented(ctx, client, envelope.Data)
	case ws.EventCommentReplied:
		h.handleCommentReplied(ctx, client, envelope.Data)
	default:
		h.log.Warnw("unknown event", "userId", client.UserId, "event", envelope.Event)
	}
}

func (h *WebsocketHandler) handleUserOnline(ctx context.Context, client *ws.UserClient, data json.RawMessage) {
	var payload StatusPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			h.log.Warnw("bad userOnline payload", "userId", client.UserId, "error", err)
			return
		}
	}

	if payload.Status != "" {
		if _, err := h.userUc.SetStatus(ctx, client.UserId, payload.Status); err != nil {
			h.log.Errorw("set status failed", "userId", client.UserId, "status", payload.Status, "error", err)
		}
	} else if err := h.userUc.SetOnline(ctx, client.UserId); err != nil {
		h.log.Errorw("set online failed", "userId", client.UserId, "error", err)
	}
	// Re-registering restores an entry the registry has dropped, so an
	// explicit announce recovers presence after a userOffline or a reap.
	h.hub.RegisterClient(client)
}

func (h *WebsocketHandler) handleHeartbeat(ctx context.Context, client *ws.UserClient) {
	// A heartbeat only refreshes an existing entry; it never re-registers a
	// connection the registry has already evicted.
	if !h.hub.Heartbeat(client.UserId) {
		return
	}
	if err := h.userUc.TouchLastSeen(ctx, client.UserId); err != nil {
		h.log.Errorw("touch last seen failed", "userId", client.UserId, "error", err)
	}
}

func (h *WebsocketHandler) handleUserOffline(ctx context.Context, client *ws.UserClient) {
	h.hub.SetOffline(client.UserId)
	if err := h.userUc.SetOffline(ctx, client.UserId); err != nil {
		h.log.Errorw("set offline failed", "userId", client.UserId, "error", err)
	}
}

// handleSendDirectMessage relays a volatile direct message to the receiver
// without persistence. Durable messaging goes through the REST pipeline.
func (h *WebsocketHandler) handleSendDirectMessage(client *ws.UserClient, data json.RawMessage) {
	var payload DirectMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ReceiverId == "" {
		h.log.Warnw("bad sendDirectMessage payload", "userId", client.UserId, "error", err)
		return
	}

	frame, err := ws.EncodeEvent(ws.EventReceiveDirectMessage, DirectMessageEvent{
		SenderId:         client.UserId,
		SenderName:       client.Snapshot.Name,
		SenderProfilePic: client.Snapshot.ProfilePic,
		Text:             payload.Text,
		Timestamp:        time.Now(),
	})
	if err != nil {
		h.log.Errorw("encode direct message failed", "userId", client.UserId, "error", err)
		return
	}
	h.hub.SendToClient(payload.ReceiverId, frame)
}

func (h *WebsocketHandler) handleTyping(client *ws.UserClient, event ws.EventType, data json.RawMessage) {
	var payload TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ReceiverId == "" {
		return
	}

	frame, err := ws.EncodeEvent(event, TypingEvent{
		SenderId: client.UserId,
		ChatId:   payload.ChatId,
	})
	if err != nil {
		return
	}
	h.hub.SendToClient(payload.ReceiverId, frame)
}

func (h *WebsocketHandler) handleMarkNotificationRead(ctx context.Context, client *ws.UserClient, data json.RawMessage) {
	var payload MarkNotificationReadPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.NotificationId == "" {
		h.log.Warnw("bad markNotificationRead payload", "userId", client.UserId, "error", err)
		return
	}
	if _, err := h.notificationUc.MarkRead(ctx, payload.NotificationId, client.UserId); err != nil {
		h.log.Errorw("mark notification read failed",
			"userId", client.UserId, "notificationId", payload.NotificationId, "error", err)
	}
}

func (h *WebsocketHandler) handleNewPostCreated(ctx context.Context, client *ws.UserClient, data json.RawMessage) {
	var payload NewPostPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.PostId == "" {
		h.log.Warnw("bad newPostCreated payload", "userId", client.UserId, "error", err)
		return
	}
	if err := h.notificationUc.BroadcastNewPost(ctx, client.UserId, payload.PostId, payload.Title); err != nil {
		h.log.Errorw("new post broadcast failed", "userId", client.UserId, "postId", payload.PostId, "error", err)
	}
}

func (h *WebsocketHandler) handleMessageNotification(ctx context.Context, client *ws.UserClient, data json.RawMessage, ntype entity.NotificationType) {
	var payload MessageEventPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ReceiverId == "" {
		h.log.Warnw("bad message event payload", "userId", client.UserId, "type", ntype, "error", err)
		return
	}

	content := fmt.Sprintf("%s started a conversation with you", client.Snapshot.Name)
	if ntype == entity.NotificationNewMessage {
		content = fmt.Sprintf("%s sent you a message: %s", client.Snapshot.Name, payload.Text)
	}

	refs := entity.NotificationRefs{MessageId: payload.MessageId, ChatId: payload.ChatId}
	if err := h.notificationUc.Notify(ctx, client.UserId, payload.ReceiverId, ntype, refs, content); err != nil {
		h.log.Errorw("message notification failed",
			"userId", client.UserId, "receiverId", payload.ReceiverId, "type", ntype, "error", err)
	}
}

func (h *WebsocketHandler) handlePostLiked(ctx context.Context, client *ws.UserClient, data json.RawMessage) {
	var payload PostLikedPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.PostOwnerId == "" {
		return
	}
	if err := h.notificationUc.NotifyPostLiked(ctx, client.UserId, payload.PostOwnerId, payload.PostId, payload.PostTitle); err != nil {
		h.log.Errorw("post liked notification failed", "userId", client.UserId, "postId", payload.PostId, "error", err)
	}
}

func (h *WebsocketHandler) handlePostCommented(ctx context.Context, client *ws.UserClient, data json.RawMessage) {
	var payload PostCommentedPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.PostOwnerId == "" {
		return
	}
	if err := h.notificationUc.NotifyPostCommented(ctx, client.UserId, payload.PostOwnerId, payload.PostId, payload.CommentText); err != nil {
		h.log.Errorw("post commented notification failed", "userId", client.UserId, "postId", payload.PostId, "error", err)
	}
}

func (h *WebsocketHandler) handleCommentReplied(ctx context.Context, client *ws.UserClient, data json.RawMessage) {
	var payload CommentRepliedPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.CommentOwnerId == "" {
		return
	}
	if err := h.notificationUc.NotifyCommentReplied(ctx, client.UserId, payload.CommentOwnerId, payload.PostId, payload.ReplyText); err != nil {
		h.log.Errorw("comment replied notification failed", "userId", client.UserId, "postId", payload.PostId, "error", err)
	}
}
