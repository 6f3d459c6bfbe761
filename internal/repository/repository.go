package repository

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// RoomRepository - durable keyed storage of rooms. Every method is atomic per record.
type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	Save(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error

	// FindByCreator returns the room created by userID that still exists.
	FindByCreator(ctx context.Context, userID string) (*entity.Room, error)
	// FindBySeat returns the room in which userID holds a seat.
	FindBySeat(ctx context.Context, userID string) (*entity.Room, error)
	// List pages rooms by creation time; limit -1 returns everything after skip.
	List(ctx context.Context, skip, limit int, oldestFirst bool) ([]*entity.Room, error)
}

// UserRepository - the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)

	// RecordResult applies the stats increments of one decided match.
	// It is idempotent per (room, round): a repeated call reports applied=false and changes nothing.
	RecordResult(ctx context.Context, result entity.GameResult) (bool, error)
}
