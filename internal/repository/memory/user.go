package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
)

type resultKey struct {
	roomID string
	round  int
}

// UserRepository keeps users and applied results in process memory.
type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]*entity.User
	applied map[resultKey]struct{}
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*entity.User),
		applied: make(map[resultKey]struct{}),
	}
}

func (that *UserRepository) Create(_ context.Context, user *entity.User) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, existing := range that.users {
		if existing.Username == user.Username {
			return fmt.Errorf("%w: %s", repository.ErrUsernameTaken, user.Username)
		}
	}

	stored := *user
	that.users[user.ID] = &stored

	return nil
}

func (that *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	user, ok := that.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	found := *user

	return &found, nil
}

func (that *UserRepository) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, user := range that.users {
		if user.Username == username {
			found := *user
			return &found, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (that *UserRepository) RecordResult(_ context.Context, result entity.GameResult) (bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	key := resultKey{roomID: result.RoomID, round: result.Round}
	if _, ok := that.applied[key]; ok {
		return false, nil
	}

	player1, ok1 := that.users[result.Player1ID]
	player2, ok2 := that.users[result.Player2ID]
	if !ok1 || !ok2 {
		return false, fmt.Errorf("%w: %s or %s", repository.ErrUserNotFound, result.Player1ID, result.Player2ID)
	}

	switch result.WinState {
	case entity.Seat1Wins:
		player1.WinCount++
		player2.LossCount++
	case entity.Seat2Wins:
		player2.WinCount++
		player1.LossCount++
	default:
		player1.DrawCount++
		player2.DrawCount++
	}

	that.applied[key] = struct{}{}

	return true, nil
}
