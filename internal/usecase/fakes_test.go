package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"buzzline/infrastructure/ws"
	"buzzline/internal/entity"
	"buzzline/internal/repository"
)

// In-memory fakes standing in for the mongo-backed repositories.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func newFakeUserRepo(users ...entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]entity.User)}
	for _, u := range users {
		r.users[u.Id] = u
	}
	return r
}

func (r *fakeUserRepo) Get(_ context.Context, userId string) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userId]
	if !ok {
		return entity.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return entity.User{}, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Index(_ context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.User
	for _, id := range filter.Ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user entity.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.Id == "" {
		user.Id = fmt.Sprintf("u-%d", len(r.users)+1)
	}
	r.users[user.Id] = user
	return user.Id, nil
}

func (r *fakeUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) SetPresence(_ context.Context, userId, status string, isOnline bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userId]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Status = status
	user.IsOnline = isOnline
	user.LastSeen = time.Now()
	r.users[userId] = user
	return nil
}

func (r *fakeUserRepo) TouchLastSeen(_ context.Context, userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userId]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastSeen = time.Now()
	r.users[userId] = user
	return nil
}

func (r *fakeUserRepo) GetOnlineUsers(_ context.Context, excludeUserId string) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.User
	for _, u := range r.users {
		if u.IsOnline && u.Id != excludeUserId {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) MarkInactiveOffline(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var demoted int64
	for id, u := range r.users {
		if u.IsOnline && u.LastSeen.Before(cutoff) {
			u.IsOnline = false
			u.Status = entity.StatusOffline
			r.users[id] = u
			demoted++
		}
	}
	return demoted, nil
}

func (r *fakeUserRepo) AddFollower(_ context.Context, userId, followerId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.users[userId]
	user.Followers = append(user.Followers, followerId)
	r.users[userId] = user

	follower := r.users[followerId]
	follower.Following = append(follower.Following, userId)
	r.users[followerId] = follower
	return nil
}

func (r *fakeUserRepo) RemoveFollower(_ context.Context, userId, followerId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.users[userId]
	user.Followers = remove(user.Followers, followerId)
	r.users[userId] = user

	follower := r.users[followerId]
	follower.Following = remove(follower.Following, userId)
	r.users[followerId] = follower
	return nil
}

func (r *fakeUserRepo) BlockUser(_ context.Context, userId, blockedId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.users[userId]
	user.Blocked = append(user.Blocked, blockedId)
	r.users[userId] = user
	return nil
}

func (r *fakeUserRepo) UnblockUser(_ context.Context, userId, blockedId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.users[userId]
	user.Blocked = remove(user.Blocked, blockedId)
	r.users[userId] = user
	return nil
}

func remove(values []string, value string) []string {
	out := values[:0]
	for _, v := range values {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []entity.Notification
	nextId        int
	createErr     error
	createErrFor  map[string]error // keyed by receiver
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{createErrFor: make(map[string]error)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification entity.Notification) (entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return entity.Notification{}, r.createErr
	}
	if err, ok := r.createErrFor[notification.Receiver]; ok {
		return entity.Notification{}, err
	}
	r.nextId++
	notification.Id = fmt.Sprintf("n-%d", r.nextId)
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	r.notifications = append(r.notifications, notification)
	return notification, nil
}

func (r *fakeNotificationRepo) Get(_ context.Context, notificationId, receiverId string) (entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.Id == notificationId && n.Receiver == receiverId {
			return n, nil
		}
	}
	return entity.Notification{}, repository.ErrNotificationNotFound
}

// List mirrors the real repository's contract, including the retention
// cutoff that hides rows older than the 30-day window.
func (r *fakeNotificationRepo) List(_ context.Context, filter entity.NotificationListFilter) ([]entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-entity.NotificationRetention)
	var out []entity.Notification
	for _, n := range r.notifications {
		if n.Receiver != filter.Receiver {
			continue
		}
		if !n.CreatedAt.After(cutoff) {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(n.Content), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeNotificationRepo) Count(_ context.Context, receiverId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.Receiver == receiverId {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) UnreadCount(_ context.Context, receiverId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.Receiver == receiverId && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, notificationId, receiverId string) (entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.Id == notificationId && n.Receiver == receiverId {
			now := time.Now()
			r.notifications[i].IsRead = true
			r.notifications[i].ReadAt = &now
			return r.notifications[i], nil
		}
	}
	return entity.Notification{}, repository.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, receiverId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var modified int64
	now := time.Now()
	for i, n := range r.notifications {
		if n.Receiver == receiverId && !n.IsRead {
			r.notifications[i].IsRead = true
			r.notifications[i].ReadAt = &now
			modified++
		}
	}
	return modified, nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, notificationId, receiverId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.Id == notificationId && n.Receiver == receiverId {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) DeleteAll(_ context.Context, receiverId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []entity.Notification
	var deleted int64
	for _, n := range r.notifications {
		if n.Receiver == receiverId {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	r.notifications = kept
	return deleted, nil
}

func (r *fakeNotificationRepo) ClearUnread(_ context.Context, receiverId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []entity.Notification
	var deleted int64
	for _, n := range r.notifications {
		if n.Receiver == receiverId && !n.IsRead {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	r.notifications = kept
	return deleted, nil
}

func (r *fakeNotificationRepo) Stats(ctx context.Context, receiverId string) (entity.NotificationStats, error) {
	total, _ := r.Count(ctx, receiverId)
	unread, _ := r.UnreadCount(ctx, receiverId)

	r.mu.Lock()
	defer r.mu.Unlock()
	byType := make(map[string]int64)
	for _, n := range r.notifications {
		if n.Receiver == receiverId {
			byType[string(n.Type)]++
		}
	}
	return entity.NotificationStats{
		Total:  total,
		Unread: unread,
		Read:   total - unread,
		ByType: byType,
	}, nil
}

type fakeChatRepo struct {
	mu     sync.Mutex
	chats  map[string]entity.Chat
	byPair map[string]string
	nextId int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:  make(map[string]entity.Chat),
		byPair: make(map[string]string),
	}
}

func (r *fakeChatRepo) Get(_ context.Context, chatId string) (entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatId]
	if !ok {
		return entity.Chat{}, repository.ErrChatNotFound
	}
	return chat, nil
}

func (r *fakeChatRepo) GetDirectChat(_ context.Context, userId1, userId2 string) (entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chatId, ok := r.byPair[entity.DirectPairKey(userId1, userId2)]
	if !ok {
		return entity.Chat{}, repository.ErrChatNotFound
	}
	return r.chats[chatId], nil
}

func (r *fakeChatRepo) GetOrCreateDirectChat(_ context.Context, userId1, userId2 string) (entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pairKey := entity.DirectPairKey(userId1, userId2)
	if chatId, ok := r.byPair[pairKey]; ok {
		return r.chats[chatId], nil
	}
	r.nextId++
	chat := entity.Chat{
		Id:           fmt.Sprintf("c-%d", r.nextId),
		Participants: []string{userId1, userId2},
		PairKey:      pairKey,
		CreatedAt:    time.Now(),
	}
	r.chats[chat.Id] = chat
	r.byPair[pairKey] = chat.Id
	return chat, nil
}

func (r *fakeChatRepo) Index(_ context.Context, userId string) ([]entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userId) {
			out = append(out, chat)
		}
	}
	return out, nil
}

func (r *fakeChatRepo) SetLastMessage(_ context.Context, chatId, messageId string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatId]
	if !ok {
		return repository.ErrChatNotFound
	}
	chat.LastMessage = messageId
	chat.LastMessageAt = &at
	r.chats[chatId] = chat
	return nil
}

func (r *fakeChatRepo) ClearLastMessage(_ context.Context, chatId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatId]
	if !ok {
		return repository.ErrChatNotFound
	}
	chat.LastMessage = ""
	chat.LastMessageAt = nil
	r.chats[chatId] = chat
	return nil
}

func (r *fakeChatRepo) Delete(_ context.Context, chatId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatId]
	if !ok {
		return repository.ErrChatNotFound
	}
	delete(r.byPair, chat.PairKey)
	delete(r.chats, chatId)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []entity.Message
	nextId   int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Get(_ context.Context, messageId string) (entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Id == messageId {
			return m, nil
		}
	}
	return entity.Message{}, repository.ErrMessageNotFound
}

func (r *fakeMessageRepo) Create(_ context.Context, message entity.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	message.Id = fmt.Sprintf("m-%d", r.nextId)
	if message.SentAt.IsZero() {
		message.SentAt = time.Now()
	}
	r.messages = append(r.messages, message)
	return message.Id, nil
}

func (r *fakeMessageRepo) CountByChat(_ context.Context, chatId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.ChatId == chatId {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) GetByChatId(_ context.Context, chatId string, limit, offset int) ([]entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Message
	for _, m := range r.messages {
		if m.ChatId == chatId {
			out = append(out, m)
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, messageId string) (entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.Id == messageId {
			now := time.Now()
			r.messages[i].Read = true
			r.messages[i].ReadAt = &now
			return r.messages[i], nil
		}
	}
	return entity.Message{}, repository.ErrMessageNotFound
}

func (r *fakeMessageRepo) MarkChatRead(_ context.Context, chatId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var modified int64
	now := time.Now()
	for i, m := range r.messages {
		if m.ChatId == chatId && !m.Read {
			r.messages[i].Read = true
			r.messages[i].ReadAt = &now
			modified++
		}
	}
	return modified, nil
}

func (r *fakeMessageRepo) Delete(_ context.Context, messageId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.Id == messageId {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (r *fakeMessageRepo) DeleteByChat(_ context.Context, chatId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []entity.Message
	var deleted int64
	for _, m := range r.messages {
		if m.ChatId == chatId {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.messages = kept
	return deleted, nil
}

func (r *fakeMessageRepo) Search(_ context.Context, chatId, query string) ([]entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Message
	for _, m := range r.messages {
		if m.ChatId == chatId && strings.Contains(strings.ToLower(m.Message), strings.ToLower(query)) {
			out = append(out, m)
		}
	}
	return out, nil
}

type push struct {
	userId string
	event  ws.EventType
	data   any
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []push
	online map[string]bool
}

func newFakePusher(onlineUserIds ...string) *fakePusher {
	p := &fakePusher{online: make(map[string]bool)}
	for _, id := range onlineUserIds {
		p.online[id] = true
	}
	return p
}

func (p *fakePusher) PushToUser(userId string, event ws.EventType, data any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, push{userId: userId, event: event, data: data})
	return p.online[userId]
}

func (p *fakePusher) pushed(userId string, event ws.EventType) []push {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []push
	for _, entry := range p.pushes {
		if entry.userId == userId && entry.event == event {
			out = append(out, entry)
		}
	}
	return out
}
