package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buzzline/infrastructure/ws"
	"buzzline/internal/entity"
	"buzzline/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrInvalidNotificationType = errors.New("invalid notification type")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrEmptySearchQuery        = errors.New("search query is required")
)

type NotificationUsecase interface {
	// Pipeline
	Notify(ctx context.Context, senderId, receiverId string, ntype entity.NotificationType, refs entity.NotificationRefs, content string) error
	BroadcastNewPost(ctx context.Context, authorId, postId, title string) error
	NotifyPostLiked(ctx context.Context, likerId, postOwnerId, postId, postTitle string) error
	NotifyPostCommented(ctx context.Context, commenterId, postOwnerId, postId, commentText string) error
	NotifyCommentReplied(ctx context.Context, replierId, commentOwnerId, postId, replyText string) error

	// Query/lifecycle surface
	List(ctx context.Context, filter entity.NotificationListFilter) ([]entity.Notification, error)
	Get(ctx context.Context, notificationId, receiverId string) (entity.Notification, error)
	Search(ctx context.Context, receiverId, query string) ([]entity.Notification, error)
	ByType(ctx context.Context, receiverId string, ntype entity.NotificationType) ([]entity.Notification, error)
	UnreadCount(ctx context.Context, receiverId string) (int64, error)
	Count(ctx context.Context, receiverId string) (int64, error)
	Stats(ctx context.Context, receiverId string) (entity.NotificationStats, error)
	MarkRead(ctx context.Context, notificationId, receiverId string) (entity.Notification, error)
	MarkAllRead(ctx context.Context, receiverId string) (int64, error)
	Delete(ctx context.Context, notificationId, receiverId string) error
	DeleteAll(ctx context.Context, receiverId string) (int64, error)
	ClearUnread(ctx context.Context, receiverId string) (int64, error)
}

type notificationUsecase struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	pusher           LivePusher
	log              *zap.SugaredLogger
}

func NewNotificationUsecase(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	pusher LivePusher,
	log *zap.SugaredLogger,
) NotificationUsecase {
	return &notificationUsecase{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		pusher:           pusher,
		log:              log,
	}
}

// Notify persists a notification and then attempts live delivery. The
// durable write always happens first so a disconnected recipient never
// loses the event; push failure downgrades silently to next-poll delivery.
// Self-notifications are suppressed entirely.
func (u *notificationUsecase) Notify(ctx context.Context, senderId, receiverId string, ntype entity.NotificationType, refs entity.NotificationRefs, content string) error {
	if senderId == receiverId {
		return nil
	}
	if !ntype.Valid() {
		return ErrInvalidNotificationType
	}

	sender, err := u.userRepo.Get(ctx, senderId)
	if err != nil {
		return err
	}

	notification := entity.Notification{
		Sender:    senderId,
		Receiver:  receiverId,
		Type:      ntype,
		PostId:    refs.PostId,
		MessageId: refs.MessageId,
		ChatId:    refs.ChatId,
		Content:   truncate(content, entity.MaxNotificationContent),
	}

	created, err := u.notificationRepo.Create(ctx, notification)
	if err != nil {
		return err
	}

	payload := entity.NotificationPayload{
		Id:        created.Id,
		Type:      created.Type,
		Sender:    sender.Summary(),
		Content:   created.Content,
		PostId:    created.PostId,
		MessageId: created.MessageId,
		ChatId:    created.ChatId,
		CreatedAt: created.CreatedAt,
		IsRead:    false,
	}
	if !u.pusher.PushToUser(receiverId, ws.EventNotification, payload) {
		u.log.Debugw("receiver not connected, notification stored only",
			"receiverId", receiverId, "type", ntype)
	}

	return nil
}

// BroadcastNewPost fans one new_post event out to every follower of the
// author. Each leg is independent: a failure is logged and the loop moves on.
func (u *notificationUsecase) BroadcastNewPost(ctx context.Context, authorId, postId, title string) error {
	author, err := u.userRepo.Get(ctx, authorId)
	if err != nil {
		return err
	}
	if len(author.Followers) == 0 {
		return nil
	}

	content := fmt.Sprintf("%s posted: %s", author.Username, title)
	refs := entity.NotificationRefs{PostId: postId}

	for _, followerId := range author.Followers {
		if err := u.Notify(ctx, authorId, followerId, entity.NotificationNewPost, refs, content); err != nil {
			u.log.Errorw("fan-out leg failed",
				"authorId", authorId, "followerId", followerId, "postId", postId, "error", err)
		}
	}

	return nil
}

func (u *notificationUsecase) NotifyPostLiked(ctx context.Context, likerId, postOwnerId, postId, postTitle string) error {
	liker, err := u.userRepo.Get(ctx, likerId)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("%s liked your post: %s", liker.Username, postTitle)
	return u.Notify(ctx, likerId, postOwnerId, entity.NotificationLike, entity.NotificationRefs{PostId: postId}, content)
}

func (u *notificationUsecase) NotifyPostCommented(ctx context.Context, commenterId, postOwnerId, postId, commentText string) error {
	commenter, err := u.userRepo.Get(ctx, commenterId)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("%s commented on your post: %s", commenter.Username, preview(commentText))
	return u.Notify(ctx, commenterId, postOwnerId, entity.NotificationComment, entity.NotificationRefs{PostId: postId}, content)
}

func (u *notificationUsecase) NotifyCommentReplied(ctx context.Context, replierId, commentOwnerId, postId, replyText string) error {
	replier, err := u.userRepo.Get(ctx, replierId)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("%s replied to your comment: %s", replier.Username, preview(replyText))
	return u.Notify(ctx, replierId, commentOwnerId, entity.NotificationReply, entity.NotificationRefs{PostId: postId}, content)
}

func (u *notificationUsecase) List(ctx context.Context, filter entity.NotificationListFilter) ([]entity.Notification, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, ErrInvalidNotificationType
	}
	return u.notificationRepo.List(ctx, filter)
}

func (u *notificationUsecase) Get(ctx context.Context, notificationId, receiverId string) (entity.Notification, error) {
	notification, err := u.notificationRepo.Get(ctx, notificationId, receiverId)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return entity.Notification{}, ErrNotificationNotFound
		}
		return entity.Notification{}, err
	}
	return notification, nil
}

func (u *notificationUsecase) Search(ctx context.Context, receiverId, query string) ([]entity.Notification, error) {
	if query == "" {
		return nil, ErrEmptySearchQuery
	}
	return u.notificationRepo.List(ctx, entity.NotificationListFilter{
		Receiver: receiverId,
		Query:    query,
	})
}

func (u *notificationUsecase) ByType(ctx context.Context, receiverId string, ntype entity.NotificationType) ([]entity.Notification, error) {
	if !ntype.Valid() {
		return nil, ErrInvalidNotificationType
	}
	return u.notificationRepo.List(ctx, entity.NotificationListFilter{
		Receiver: receiverId,
		Type:     ntype,
	})
}

func (u *notificationUsecase) UnreadCount(ctx context.Context, receiverId string) (int64, error) {
	return u.notificationRepo.UnreadCount(ctx, receiverId)
}

func (u *notificationUsecase) Count(ctx context.Context, receiverId string) (int64, error) {
	return u.notificationRepo.Count(ctx, receiverId)
}

func (u *notificationUsecase) Stats(ctx context.Context, receiverId string) (entity.NotificationStats, error) {
	return u.notificationRepo.Stats(ctx, receiverId)
}

func (u *notificationUsecase) MarkRead(ctx context.Context, notificationId, receiverId string) (entity.Notification, error) {
	notification, err := u.notificationRepo.MarkRead(ctx, notificationId, receiverId)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return entity.Notification{}, ErrNotificationNotFound
		}
		return entity.Notification{}, err
	}

	u.pusher.PushToUser(receiverId, ws.EventNotificationRead, map[string]any{
		"notificationId": notificationId,
		"isRead":         true,
		"readAt":         notification.ReadAt,
	})

	return notification, nil
}

func (u *notificationUsecase) MarkAllRead(ctx context.Context, receiverId string) (int64, error) {
	modified, err := u.notificationRepo.MarkAllRead(ctx, receiverId)
	if err != nil {
		return 0, err
	}

	u.pusher.PushToUser(receiverId, ws.EventAllNotificationsRead, map[string]any{
		"userId": receiverId,
		"readAt": time.Now(),
	})

	return modified, nil
}

func (u *notificationUsecase) Delete(ctx context.Context, notificationId, receiverId string) error {
	err := u.notificationRepo.Delete(ctx, notificationId, receiverId)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}

	u.pusher.PushToUser(receiverId, ws.EventNotificationDeleted, map[string]any{
		"notificationId": notificationId,
	})

	return nil
}

func (u *notificationUsecase) DeleteAll(ctx context.Context, receiverId string) (int64, error) {
	deleted, err := u.notificationRepo.DeleteAll(ctx, receiverId)
	if err != nil {
		return 0, err
	}

	u.pusher.PushToUser(receiverId, ws.EventAllNotificationsDeleted, map[string]any{
		"userId": receiverId,
	})

	return deleted, nil
}

func (u *notificationUsecase) ClearUnread(ctx context.Context, receiverId string) (int64, error) {
	deleted, err := u.notificationRepo.ClearUnread(ctx, receiverId)
	if err != nil {
		return 0, err
	}

	u.pusher.PushToUser(receiverId, ws.EventUnreadCleared, map[string]any{
		"userId": receiverId,
	})

	return deleted, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// preview trims event text down to the 50-char prefix used in notification
// content strings.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= 50 {
		return s
	}
	return string(runes[:50]) + "..."
}
