package usecase

import (
	"context"
	"errors"

	"buzzline/internal/entity"
	"buzzline/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	ErrSelfBlock        = errors.New("cannot block yourself")
	ErrAlreadyBlocked   = errors.New("user is already blocked")
	ErrNotBlocked       = errors.New("user is not blocked")
)

type UserUsecase interface {
	Get(ctx context.Context, userId string) (entity.User, error)

	// Durable presence state
	SetOnline(ctx context.Context, userId string) error
	SetOffline(ctx context.Context, userId string) error
	SetStatus(ctx context.Context, userId, status string) (entity.User, error)
	TouchLastSeen(ctx context.Context, userId string) error
	OnlineUsers(ctx context.Context, excludeUserId string) ([]entity.User, error)
	Status(ctx context.Context, userId string) (entity.UserStatusResponse, error)

	// Social graph
	Follow(ctx context.Context, followerId, targetId string) error
	Unfollow(ctx context.Context, followerId, targetId string) error
	Block(ctx context.Context, userId, targetId string) error
	Unblock(ctx context.Context, userId, targetId string) error
}

type userUsecase struct {
	userRepo repository.UserRepository
	log      *zap.SugaredLogger
}

func NewUserUsecase(userRepo repository.UserRepository, log *zap.SugaredLogger) UserUsecase {
	return &userUsecase{
		userRepo: userRepo,
		log:      log,
	}
}

func (u *userUsecase) Get(ctx context.Context, userId string) (entity.User, error) {
	user, err := u.userRepo.Get(ctx, userId)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.User{}, ErrUserNotFound
		}
		return entity.User{}, err
	}
	return user, nil
}

func (u *userUsecase) SetOnline(ctx context.Context, userId string) error {
	return u.setPresence(ctx, userId, entity.StatusOnline, true)
}

func (u *userUsecase) SetOffline(ctx context.Context, userId string) error {
	return u.setPresence(ctx, userId, entity.StatusOffline, false)
}

func (u *userUsecase) SetStatus(ctx context.Context, userId, status string) (entity.User, error) {
	if !entity.IsValidStatus(status) {
		return entity.User{}, ErrInvalidStatus
	}
	if err := u.setPresence(ctx, userId, status, status == entity.StatusOnline); err != nil {
		return entity.User{}, err
	}
	return u.Get(ctx, userId)
}

// TouchLastSeen refreshes the durable liveness timestamp on heartbeat so
// the sweeper does not demote an active user.
func (u *userUsecase) TouchLastSeen(ctx context.Context, userId string) error {
	return u.userRepo.TouchLastSeen(ctx, userId)
}

func (u *userUsecase) OnlineUsers(ctx context.Context, excludeUserId string) ([]entity.User, error) {
	return u.userRepo.GetOnlineUsers(ctx, excludeUserId)
}

func (u *userUsecase) Status(ctx context.Context, userId string) (entity.UserStatusResponse, error) {
	user, err := u.Get(ctx, userId)
	if err != nil {
		return entity.UserStatusResponse{}, err
	}

	status := user.Status
	if status == "" {
		status = entity.StatusOffline
	}
	return entity.UserStatusResponse{
		UserId:   user.Id,
		IsOnline: user.IsOnline,
		Status:   status,
		LastSeen: user.LastSeen,
	}, nil
}

func (u *userUsecase) Follow(ctx context.Context, followerId, targetId string) error {
	if followerId == targetId {
		return ErrSelfFollow
	}
	target, err := u.Get(ctx, targetId)
	if err != nil {
		return err
	}
	for _, f := range target.Followers {
		if f == followerId {
			return ErrAlreadyFollowing
		}
	}
	return u.userRepo.AddFollower(ctx, targetId, followerId)
}

func (u *userUsecase) Unfollow(ctx context.Context, followerId, targetId string) error {
	if followerId == targetId {
		return ErrSelfFollow
	}
	target, err := u.Get(ctx, targetId)
	if err != nil {
		return err
	}
	following := false
	for _, f := range target.Followers {
		if f == followerId {
			following = true
			break
		}
	}
	if !following {
		return ErrNotFollowing
	}
	return u.userRepo.RemoveFollower(ctx, targetId, followerId)
}

func (u *userUsecase) Block(ctx context.Context, userId, targetId string) error {
	if userId == targetId {
		return ErrSelfBlock
	}
	if _, err := u.Get(ctx, targetId); err != nil {
		return err
	}
	user, err := u.Get(ctx, userId)
	if err != nil {
		return err
	}
	for _, b := range user.Blocked {
		if b == targetId {
			return ErrAlreadyBlocked
		}
	}
	return u.userRepo.BlockUser(ctx, userId, targetId)
}

func (u *userUsecase) Unblock(ctx context.Context, userId, targetId string) error {
	user, err := u.Get(ctx, userId)
	if err != nil {
		return err
	}
	blocked := false
	for _, b := range user.Blocked {
		if b == targetId {
			blocked = true
			break
		}
	}
	if !blocked {
		return ErrNotBlocked
	}
	return u.userRepo.UnblockUser(ctx, userId, targetId)
}

func (u *userUsecase) setPresence(ctx context.Context, userId, status string, isOnline bool) error {
	err := u.userRepo.SetPresence(ctx, userId, status, isOnline)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
