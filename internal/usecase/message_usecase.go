package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"buzzline/infrastructure/ws"
	"buzzline/internal/entity"
	"buzzline/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrEmptyMessage      = errors.New("message cannot be empty")
	ErrMessageTooLong    = errors.New("message cannot exceed 5000 characters")
	ErrSelfMessage       = errors.New("cannot send a message to yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrSenderNotFound    = errors.New("sender not found")
	ErrChatNotFound      = errors.New("chat not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotParticipant    = errors.New("you are not a participant of this chat")
	ErrNotMessageSender  = errors.New("only the sender can delete a message")
)

type MessageUsecase interface {
	SendMessage(ctx context.Context, senderId, recipientId, body string) (entity.MessagePayload, error)
	GetOrCreateChat(ctx context.Context, userId, participantId string) (entity.Chat, error)
	ListChats(ctx context.Context, userId string) ([]entity.ChatOverview, error)
	GetMessages(ctx context.Context, chatId, userId string, limit, offset int) ([]entity.Message, error)
	GetMessagesWithRecipient(ctx context.Context, userId, recipientId string) (entity.Chat, []entity.Message, error)
	MarkMessageRead(ctx context.Context, messageId, chatId, userId string) (entity.Message, error)
	MarkChatRead(ctx context.Context, chatId, userId string) (int64, error)
	DeleteMessage(ctx context.Context, messageId, userId string) error
	ClearChat(ctx context.Context, chatId, userId string) (int64, error)
	SearchMessages(ctx context.Context, chatId, userId, query string) ([]entity.Message, error)
}

type messageUsecase struct {
	messageRepo    repository.MessageRepository
	chatRepo       repository.ChatRepository
	userRepo       repository.UserRepository
	notificationUc NotificationUsecase
	pusher         LivePusher
	log            *zap.SugaredLogger
}

func NewMessageUsecase(
	messageRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	notificationUc NotificationUsecase,
	pusher LivePusher,
	log *zap.SugaredLogger,
) MessageUsecase {
	return &messageUsecase{
		messageRepo:    messageRepo,
		chatRepo:       chatRepo,
		userRepo:       userRepo,
		notificationUc: notificationUc,
		pusher:         pusher,
		log:            log,
	}
}

// SendMessage runs the full pipeline: find-or-create the direct chat,
// classify first-vs-followup by prior message count, commit the message,
// then fire the best-effort side effects (notification row + live pushes).
// Side-effect failures never roll back the message.
func (m *messageUsecase) SendMessage(ctx context.Context, senderId, recipientId, body string) (entity.MessagePayload, error) {
	if senderId == recipientId {
		return entity.MessagePayload{}, ErrSelfMessage
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return entity.MessagePayload{}, ErrEmptyMessage
	}
	if len([]rune(body)) > entity.MaxMessageLength {
		return entity.MessagePayload{}, ErrMessageTooLong
	}

	sender, err := m.userRepo.Get(ctx, senderId)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.MessagePayload{}, ErrSenderNotFound
		}
		return entity.MessagePayload{}, err
	}
	if _, err := m.userRepo.Get(ctx, recipientId); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.MessagePayload{}, ErrRecipientNotFound
		}
		return entity.MessagePayload{}, err
	}

	// Zero prior messages (or no chat at all) classifies this send as the
	// first message in the conversation.
	var messageCount int64
	existing, err := m.chatRepo.GetDirectChat(ctx, senderId, recipientId)
	if err == nil {
		messageCount, err = m.messageRepo.CountByChat(ctx, existing.Id)
		if err != nil {
			return entity.MessagePayload{}, err
		}
	} else if !errors.Is(err, repository.ErrChatNotFound) {
		return entity.MessagePayload{}, err
	}
	isFirstMessage := messageCount == 0

	chat, err := m.chatRepo.GetOrCreateDirectChat(ctx, senderId, recipientId)
	if err != nil {
		return entity.MessagePayload{}, err
	}

	now := time.Now()
	messageId, err := m.messageRepo.Create(ctx, entity.Message{
		ChatId:   chat.Id,
		SenderId: senderId,
		Message:  body,
		SentAt:   now,
	})
	if err != nil {
		return entity.MessagePayload{}, err
	}

	if err := m.chatRepo.SetLastMessage(ctx, chat.Id, messageId, now); err != nil {
		m.log.Errorw("update chat last message failed", "chatId", chat.Id, "error", err)
	}

	payload := entity.MessagePayload{
		Id:             messageId,
		ChatId:         chat.Id,
		Sender:         sender.Summary(),
		Message:        body,
		SentAt:         now,
		Read:           false,
		IsFirstMessage: isFirstMessage,
	}

	// Message is committed; everything below is best effort.
	ntype := entity.NotificationNewMessage
	content := fmt.Sprintf("%s sent you a message: %s", sender.Username, preview(body))
	if isFirstMessage {
		ntype = entity.NotificationFirstMessage
		content = fmt.Sprintf("%s started a conversation with you", sender.Username)
	}
	refs := entity.NotificationRefs{MessageId: messageId, ChatId: chat.Id}
	if err := m.notificationUc.Notify(ctx, senderId, recipientId, ntype, refs, content); err != nil {
		m.log.Errorw("message notification failed",
			"senderId", senderId, "recipientId", recipientId, "messageId", messageId, "error", err)
	}

	// Dual channel: the richer message payload goes out separately from the
	// notification envelope so an open chat view renders it immediately.
	m.pusher.PushToUser(recipientId, ws.EventReceiveMessage, payload)
	m.pusher.PushToUser(senderId, ws.EventReceiveMessage, payload)

	return payload, nil
}

func (m *messageUsecase) GetOrCreateChat(ctx context.Context, userId, participantId string) (entity.Chat, error) {
	if userId == participantId {
		return entity.Chat{}, ErrSelfMessage
	}
	if _, err := m.userRepo.Get(ctx, participantId); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.Chat{}, ErrRecipientNotFound
		}
		return entity.Chat{}, err
	}
	return m.chatRepo.GetOrCreateDirectChat(ctx, userId, participantId)
}

func (m *messageUsecase) ListChats(ctx context.Context, userId string) ([]entity.ChatOverview, error) {
	chats, err := m.chatRepo.Index(ctx, userId)
	if err != nil {
		return nil, err
	}

	userIdSet := make(map[string]bool)
	for _, chat := range chats {
		for _, p := range chat.Participants {
			userIdSet[p] = true
		}
	}
	userIds := make([]string, 0, len(userIdSet))
	for id := range userIdSet {
		userIds = append(userIds, id)
	}

	userMap := make(map[string]entity.User)
	if len(userIds) > 0 {
		users, err := m.userRepo.Index(ctx, entity.UserIndexFilter{Ids: userIds})
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			userMap[user.Id] = user
		}
	}

	overviews := make([]entity.ChatOverview, 0, len(chats))
	for _, chat := range chats {
		overview := entity.ChatOverview{
			ChatId:          chat.Id,
			LastMessageTime: chat.LastMessageAt,
		}
		for _, p := range chat.Participants {
			if user, ok := userMap[p]; ok {
				overview.Participants = append(overview.Participants, user.Summary())
			}
		}
		if chat.LastMessage != "" {
			if last, err := m.messageRepo.Get(ctx, chat.LastMessage); err == nil {
				overview.LastMessage = last.Message
				overview.LastMessageSender = last.SenderId
			}
		}
		overviews = append(overviews, overview)
	}

	return overviews, nil
}

func (m *messageUsecase) GetMessages(ctx context.Context, chatId, userId string, limit, offset int) ([]entity.Message, error) {
	if _, err := m.requireParticipant(ctx, chatId, userId); err != nil {
		return nil, err
	}
	return m.messageRepo.GetByChatId(ctx, chatId, limit, offset)
}

// GetMessagesWithRecipient resolves (or creates) the direct chat with the
// recipient and returns its history.
func (m *messageUsecase) GetMessagesWithRecipient(ctx context.Context, userId, recipientId string) (entity.Chat, []entity.Message, error) {
	chat, err := m.GetOrCreateChat(ctx, userId, recipientId)
	if err != nil {
		return entity.Chat{}, nil, err
	}
	messages, err := m.messageRepo.GetByChatId(ctx, chat.Id, 0, 0)
	if err != nil {
		return entity.Chat{}, nil, err
	}
	return chat, messages, nil
}

func (m *messageUsecase) MarkMessageRead(ctx context.Context, messageId, chatId, userId string) (entity.Message, error) {
	if _, err := m.requireParticipant(ctx, chatId, userId); err != nil {
		return entity.Message{}, err
	}

	message, err := m.messageRepo.MarkRead(ctx, messageId)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return entity.Message{}, ErrMessageNotFound
		}
		return entity.Message{}, err
	}

	m.pusher.PushToUser(message.SenderId, ws.EventMessageRead, map[string]any{
		"messageId": message.Id,
		"chatId":    chatId,
		"readBy":    userId,
		"readAt":    message.ReadAt,
	})

	return message, nil
}

func (m *messageUsecase) MarkChatRead(ctx context.Context, chatId, userId string) (int64, error) {
	chat, err := m.requireParticipant(ctx, chatId, userId)
	if err != nil {
		return 0, err
	}

	modified, err := m.messageRepo.MarkChatRead(ctx, chatId)
	if err != nil {
		return 0, err
	}

	for _, p := range chat.Participants {
		if p == userId {
			continue
		}
		m.pusher.PushToUser(p, ws.EventChatRead, map[string]any{
			"chatId": chatId,
			"readBy": userId,
		})
	}

	return modified, nil
}

func (m *messageUsecase) DeleteMessage(ctx context.Context, messageId, userId string) error {
	message, err := m.messageRepo.Get(ctx, messageId)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if message.SenderId != userId {
		return ErrNotMessageSender
	}

	if err := m.messageRepo.Delete(ctx, messageId); err != nil {
		return err
	}

	chat, err := m.chatRepo.Get(ctx, message.ChatId)
	if err == nil {
		for _, p := range chat.Participants {
			m.pusher.PushToUser(p, ws.EventMessageDeleted, map[string]any{
				"messageId": messageId,
				"chatId":    message.ChatId,
			})
		}
	}

	return nil
}

func (m *messageUsecase) ClearChat(ctx context.Context, chatId, userId string) (int64, error) {
	chat, err := m.requireParticipant(ctx, chatId, userId)
	if err != nil {
		return 0, err
	}

	deleted, err := m.messageRepo.DeleteByChat(ctx, chatId)
	if err != nil {
		return 0, err
	}
	if err := m.chatRepo.ClearLastMessage(ctx, chatId); err != nil {
		m.log.Errorw("clear chat last message failed", "chatId", chatId, "error", err)
	}

	for _, p := range chat.Participants {
		m.pusher.PushToUser(p, ws.EventChatCleared, map[string]any{
			"chatId":    chatId,
			"clearedBy": userId,
		})
	}

	return deleted, nil
}

func (m *messageUsecase) SearchMessages(ctx context.Context, chatId, userId, query string) ([]entity.Message, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptySearchQuery
	}
	if _, err := m.requireParticipant(ctx, chatId, userId); err != nil {
		return nil, err
	}
	return m.messageRepo.Search(ctx, chatId, query)
}

func (m *messageUsecase) requireParticipant(ctx context.Context, chatId, userId string) (entity.Chat, error) {
	chat, err := m.chatRepo.Get(ctx, chatId)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return entity.Chat{}, ErrChatNotFound
		}
		return entity.Chat{}, err
	}
	if !chat.HasParticipant(userId) {
		return entity.Chat{}, ErrNotParticipant
	}
	return chat, nil
}
