package usecase

import (
	"context"
	"testing"

	"buzzline/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserFixture(users ...entity.User) (*fakeUserRepo, UserUsecase) {
	repo := newFakeUserRepo(users...)
	return repo, NewUserUsecase(repo, zap.NewNop().Sugar())
}

func TestPresenceTransitions(t *testing.T) {
	repo, uc := newUserFixture(entity.User{Id: "alice"})
	ctx := context.Background()

	require.NoError(t, uc.SetOnline(ctx, "alice"))
	user := repo.users["alice"]
	assert.True(t, user.IsOnline)
	assert.Equal(t, entity.StatusOnline, user.Status)

	require.NoError(t, uc.SetOffline(ctx, "alice"))
	user = repo.users["alice"]
	assert.False(t, user.IsOnline)
	assert.Equal(t, entity.StatusOffline, user.Status)

	assert.ErrorIs(t, uc.SetOnline(ctx, "ghost"), ErrUserNotFound)
}

func TestSetStatus(t *testing.T) {
	_, uc := newUserFixture(entity.User{Id: "alice"})
	ctx := context.Background()

	user, err := uc.SetStatus(ctx, "alice", entity.StatusAway)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAway, user.Status)
	assert.False(t, user.IsOnline)

	user, err = uc.SetStatus(ctx, "alice", entity.StatusOnline)
	require.NoError(t, err)
	assert.True(t, user.IsOnline)

	_, err = uc.SetStatus(ctx, "alice", "invisible")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatusDefaultsToOffline(t *testing.T) {
	_, uc := newUserFixture(entity.User{Id: "alice"})

	status, err := uc.Status(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusOffline, status.Status)
	assert.False(t, status.IsOnline)
}

func TestFollowLifecycle(t *testing.T) {
	repo, uc := newUserFixture(entity.User{Id: "alice"}, entity.User{Id: "bob"})
	ctx := context.Background()

	assert.ErrorIs(t, uc.Follow(ctx, "alice", "alice"), ErrSelfFollow)
	assert.ErrorIs(t, uc.Follow(ctx, "alice", "ghost"), ErrUserNotFound)

	require.NoError(t, uc.Follow(ctx, "alice", "bob"))
	assert.Contains(t, repo.users["bob"].Followers, "alice")
	assert.Contains(t, repo.users["alice"].Following, "bob")

	assert.ErrorIs(t, uc.Follow(ctx, "alice", "bob"), ErrAlreadyFollowing)

	require.NoError(t, uc.Unfollow(ctx, "alice", "bob"))
	assert.NotContains(t, repo.users["bob"].Followers, "alice")

	assert.ErrorIs(t, uc.Unfollow(ctx, "alice", "bob"), ErrNotFollowing)
}

func TestBlockLifecycle(t *testing.T) {
	repo, uc := newUserFixture(entity.User{Id: "alice"}, entity.User{Id: "bob"})
	ctx := context.Background()

	assert.ErrorIs(t, uc.Block(ctx, "alice", "alice"), ErrSelfBlock)

	require.NoError(t, uc.Block(ctx, "alice", "bob"))
	assert.Contains(t, repo.users["alice"].Blocked, "bob")

	assert.ErrorIs(t, uc.Block(ctx, "alice", "bob"), ErrAlreadyBlocked)

	require.NoError(t, uc.Unblock(ctx, "alice", "bob"))
	assert.ErrorIs(t, uc.Unblock(ctx, "alice", "bob"), ErrNotBlocked)
}

func TestOnlineUsersExcludesRequester(t *testing.T) {
	_, uc := newUserFixture(
		entity.User{Id: "alice", IsOnline: true},
		entity.User{Id: "bob", IsOnline: true},
		entity.User{Id: "carol", IsOnline: false},
	)

	users, err := uc.OnlineUsers(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Id)
}
