package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

type UserUseCase interface {
	Register(ctx context.Context, username string) (entity.User, error)
	Login(ctx context.Context, username string) (entity.User, error)
	GetByID(ctx context.Context, id string) (entity.User, error)
}

type userRepo interface {
	Create(ctx context.Context, user entity.User) error
	GetByID(ctx context.Context, id string) (entity.User, error)
	GetByUsername(ctx context.Context, username string) (entity.User, error)
}

type userUseCase struct {
	repo userRepo
}

func NewUserUseCase(repo userRepo) UserUseCase {
	return &userUseCase{
		repo: repo,
	}
}

func (that *userUseCase) Register(ctx context.Context, username string) (entity.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return entity.User{}, fmt.Errorf("%w: invalid username %q", apperror.ErrBadRequest, username)
	}

	user := entity.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	if err := that.repo.Create(ctx, user); err != nil {
		return entity.User{}, fmt.Errorf("failed to save user into storage: %w", err)
	}

	return user, nil
}

func (that *userUseCase) Login(ctx context.Context, username string) (entity.User, error) {
	user, err := that.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (that *userUseCase) GetByID(ctx context.Context, id string) (entity.User, error) {
	user, err := that.repo.GetByID(ctx, id)
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
