package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
)

type userRepo interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

type UserService struct {
	logger *slog.Logger
	users  userRepo
}

func NewUserService(logger *slog.Logger, users userRepo) *UserService {
	return &UserService{
		logger: logger.With("component", "user_service"),
		users:  users,
	}
}

// CreateUser registers an account with zeroed statistics.
func (that *UserService) CreateUser(ctx context.Context, username, password, email, phone string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.New(apperror.InvalidInput, "username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Email:        strings.TrimSpace(email),
		Phone:        strings.TrimSpace(phone),
	}

	if err = that.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, apperror.New(apperror.InvalidInput, "username %s taken", username)
		}

		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	that.logger.Info("user created", "user_id", user.ID)

	return user, nil
}

func (that *UserService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := that.users.GetByID(ctx, id)
	if err != nil {
		return nil, userError(err, "the user %s does not exist", id)
	}

	return user, nil
}

func (that *UserService) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	user, err := that.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, userError(err, "the user with username %s does not exist", username)
	}

	return user, nil
}

func userError(err error, format, arg string) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.New(apperror.UserNotFound, format, arg)
	}

	return fmt.Errorf("failed to get user: %w", err)
}
