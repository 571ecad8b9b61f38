package usecase

import (
	"context"
	"strings"
	"testing"

	"buzzline/infrastructure/ws"
	"buzzline/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type messageFixture struct {
	messageRepo      *fakeMessageRepo
	chatRepo         *fakeChatRepo
	userRepo         *fakeUserRepo
	notificationRepo *fakeNotificationRepo
	pusher           *fakePusher
	uc               MessageUsecase
}

func newMessageFixture(users ...entity.User) *messageFixture {
	f := &messageFixture{
		messageRepo:      newFakeMessageRepo(),
		chatRepo:         newFakeChatRepo(),
		userRepo:         newFakeUserRepo(users...),
		notificationRepo: newFakeNotificationRepo(),
		pusher:           newFakePusher(),
	}
	log := zap.NewNop().Sugar()
	notificationUc := NewNotificationUsecase(f.notificationRepo, f.userRepo, f.pusher, log)
	f.uc = NewMessageUsecase(f.messageRepo, f.chatRepo, f.userRepo, notificationUc, f.pusher, log)
	return f
}

func twoUsers() []entity.User {
	return []entity.User{
		{Id: "alice", Username: "alice", Fullname: "Alice A"},
		{Id: "bob", Username: "bob", Fullname: "Bob B"},
	}
}

func TestSendMessageFirstThenFollowup(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	first, err := f.uc.SendMessage(ctx, "alice", "bob", "hey bob")
	require.NoError(t, err)
	assert.True(t, first.IsFirstMessage)
	assert.Equal(t, "hey bob", first.Message)
	assert.Equal(t, "alice", first.Sender.Id)

	second, err := f.uc.SendMessage(ctx, "alice", "bob", "you there?")
	require.NoError(t, err)
	assert.False(t, second.IsFirstMessage)
	assert.Equal(t, first.ChatId, second.ChatId)

	// Exactly one conversation exists for the pair.
	assert.Len(t, f.chatRepo.chats, 1)

	// First send produced a first_message notification, the second a
	// new_message one.
	require.Len(t, f.notificationRepo.notifications, 2)
	assert.Equal(t, entity.NotificationFirstMessage, f.notificationRepo.notifications[0].Type)
	assert.Equal(t, "alice started a conversation with you", f.notificationRepo.notifications[0].Content)
	assert.Equal(t, entity.NotificationNewMessage, f.notificationRepo.notifications[1].Type)
	assert.Equal(t, "alice sent you a message: you there?", f.notificationRepo.notifications[1].Content)
}

func TestSendMessageReplyFromOtherSideIsNotFirst(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	_, err := f.uc.SendMessage(ctx, "alice", "bob", "hey")
	require.NoError(t, err)

	reply, err := f.uc.SendMessage(ctx, "bob", "alice", "hi alice")
	require.NoError(t, err)
	assert.False(t, reply.IsFirstMessage)
	assert.Len(t, f.chatRepo.chats, 1)
}

func TestSendMessagePushesToBothParticipants(t *testing.T) {
	f := newMessageFixture(twoUsers()...)

	payload, err := f.uc.SendMessage(context.Background(), "alice", "bob", "hello")
	require.NoError(t, err)

	require.Len(t, f.pusher.pushed("bob", ws.EventReceiveMessage), 1)
	require.Len(t, f.pusher.pushed("alice", ws.EventReceiveMessage), 1)
	got := f.pusher.pushed("bob", ws.EventReceiveMessage)[0].data.(entity.MessagePayload)
	assert.Equal(t, payload.Id, got.Id)
}

func TestSendMessageValidation(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	_, err := f.uc.SendMessage(ctx, "alice", "alice", "hi")
	assert.ErrorIs(t, err, ErrSelfMessage)

	_, err = f.uc.SendMessage(ctx, "alice", "bob", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.uc.SendMessage(ctx, "alice", "bob", strings.Repeat("a", entity.MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = f.uc.SendMessage(ctx, "alice", "ghost", "hi")
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	_, err = f.uc.SendMessage(ctx, "ghost", "bob", "hi")
	assert.ErrorIs(t, err, ErrSenderNotFound)

	assert.Empty(t, f.messageRepo.messages)
}

func TestSendMessageSurvivesNotificationFailure(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	f.notificationRepo.createErr = assert.AnError

	payload, err := f.uc.SendMessage(context.Background(), "alice", "bob", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, payload.Id)
	assert.Len(t, f.messageRepo.messages, 1)
	assert.Len(t, f.pusher.pushed("bob", ws.EventReceiveMessage), 1)
}

func TestSendMessageUpdatesChatLastMessage(t *testing.T) {
	f := newMessageFixture(twoUsers()...)

	payload, err := f.uc.SendMessage(context.Background(), "alice", "bob", "hello")
	require.NoError(t, err)

	chat := f.chatRepo.chats[payload.ChatId]
	assert.Equal(t, payload.Id, chat.LastMessage)
	require.NotNil(t, chat.LastMessageAt)
}

func TestGetMessagesRequiresParticipant(t *testing.T) {
	f := newMessageFixture(append(twoUsers(), entity.User{Id: "eve", Username: "eve"})...)
	ctx := context.Background()

	payload, err := f.uc.SendMessage(ctx, "alice", "bob", "secret")
	require.NoError(t, err)

	_, err = f.uc.GetMessages(ctx, payload.ChatId, "eve", 0, 0)
	assert.ErrorIs(t, err, ErrNotParticipant)

	messages, err := f.uc.GetMessages(ctx, payload.ChatId, "bob", 0, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestMarkMessageReadNotifiesSender(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	payload, err := f.uc.SendMessage(ctx, "alice", "bob", "hello")
	require.NoError(t, err)

	message, err := f.uc.MarkMessageRead(ctx, payload.Id, payload.ChatId, "bob")
	require.NoError(t, err)
	assert.True(t, message.Read)

	reads := f.pusher.pushed("alice", ws.EventMessageRead)
	require.Len(t, reads, 1)
	data := reads[0].data.(map[string]any)
	assert.Equal(t, payload.Id, data["messageId"])
	assert.Equal(t, "bob", data["readBy"])
}

func TestMarkChatReadNotifiesOtherParticipants(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	payload, err := f.uc.SendMessage(ctx, "alice", "bob", "one")
	require.NoError(t, err)
	_, err = f.uc.SendMessage(ctx, "alice", "bob", "two")
	require.NoError(t, err)

	modified, err := f.uc.MarkChatRead(ctx, payload.ChatId, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), modified)

	assert.Len(t, f.pusher.pushed("alice", ws.EventChatRead), 1)
	assert.Empty(t, f.pusher.pushed("bob", ws.EventChatRead))
}

func TestDeleteMessageOnlyBySender(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	payload, err := f.uc.SendMessage(ctx, "alice", "bob", "oops")
	require.NoError(t, err)

	err = f.uc.DeleteMessage(ctx, payload.Id, "bob")
	assert.ErrorIs(t, err, ErrNotMessageSender)

	err = f.uc.DeleteMessage(ctx, payload.Id, "alice")
	require.NoError(t, err)
	assert.Empty(t, f.messageRepo.messages)

	assert.Len(t, f.pusher.pushed("bob", ws.EventMessageDeleted), 1)
}

func TestClearChatRemovesMessagesAndLastMessage(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	payload, err := f.uc.SendMessage(ctx, "alice", "bob", "one")
	require.NoError(t, err)
	_, err = f.uc.SendMessage(ctx, "alice", "bob", "two")
	require.NoError(t, err)

	deleted, err := f.uc.ClearChat(ctx, payload.ChatId, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	chat := f.chatRepo.chats[payload.ChatId]
	assert.Empty(t, chat.LastMessage)
	assert.Len(t, f.pusher.pushed("bob", ws.EventChatCleared), 1)
}

func TestSearchMessages(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	payload, err := f.uc.SendMessage(ctx, "alice", "bob", "lunch tomorrow?")
	require.NoError(t, err)
	_, err = f.uc.SendMessage(ctx, "alice", "bob", "never mind")
	require.NoError(t, err)

	_, err = f.uc.SearchMessages(ctx, payload.ChatId, "alice", "  ")
	assert.ErrorIs(t, err, ErrEmptySearchQuery)

	found, err := f.uc.SearchMessages(ctx, payload.ChatId, "alice", "lunch")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "lunch tomorrow?", found[0].Message)
}

func TestListChatsAssemblesOverviews(t *testing.T) {
	f := newMessageFixture(append(twoUsers(), entity.User{Id: "carol", Username: "carol"})...)
	ctx := context.Background()

	_, err := f.uc.SendMessage(ctx, "alice", "bob", "hi bob")
	require.NoError(t, err)
	_, err = f.uc.SendMessage(ctx, "carol", "alice", "hi alice")
	require.NoError(t, err)

	overviews, err := f.uc.ListChats(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, overviews, 2)
	for _, o := range overviews {
		assert.NotEmpty(t, o.LastMessage)
		assert.Len(t, o.Participants, 2)
	}
}

func TestGetOrCreateChatIsIdempotent(t *testing.T) {
	f := newMessageFixture(twoUsers()...)
	ctx := context.Background()

	first, err := f.uc.GetOrCreateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	second, err := f.uc.GetOrCreateChat(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.Id, second.Id)

	_, err = f.uc.GetOrCreateChat(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfMessage)
}
