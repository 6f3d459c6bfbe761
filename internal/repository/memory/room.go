package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
)

// RoomRepository keeps rooms in process memory. Records are copied on the way in and out.
type RoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]*entity.Room
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{
		rooms: make(map[string]*entity.Room),
	}
}

func (that *RoomRepository) Create(_ context.Context, room *entity.Room) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[room.ID]; ok {
		return fmt.Errorf("%w: %s", repository.ErrRoomExists, room.ID)
	}

	that.rooms[room.ID] = room.Clone()

	return nil
}

func (that *RoomRepository) Save(_ context.Context, room *entity.Room) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[room.ID]; !ok {
		return repository.ErrRoomNotFound
	}

	that.rooms[room.ID] = room.Clone()

	return nil
}

func (that *RoomRepository) GetByID(_ context.Context, id string) (*entity.Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}

	return room.Clone(), nil
}

func (that *RoomRepository) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[id]; !ok {
		return repository.ErrRoomNotFound
	}

	delete(that.rooms, id)

	return nil
}

func (that *RoomRepository) FindByCreator(_ context.Context, userID string) (*entity.Room, error) {
	return that.find(func(room *entity.Room) bool { return room.CreatorID == userID })
}

func (that *RoomRepository) FindBySeat(_ context.Context, userID string) (*entity.Room, error) {
	return that.find(func(room *entity.Room) bool {
		_, ok := room.SeatOf(userID)
		return ok
	})
}

func (that *RoomRepository) List(_ context.Context, skip, limit int, oldestFirst bool) ([]*entity.Room, error) {
	that.mu.RLock()
	rooms := make([]*entity.Room, 0, len(that.rooms))
	for _, room := range that.rooms {
		rooms = append(rooms, room.Clone())
	}
	that.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		if oldestFirst {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})

	if skip >= len(rooms) {
		return []*entity.Room{}, nil
	}

	rooms = rooms[skip:]
	if limit >= 0 && limit < len(rooms) {
		rooms = rooms[:limit]
	}

	return rooms, nil
}

func (that *RoomRepository) find(match func(room *entity.Room) bool) (*entity.Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, room := range that.rooms {
		if match(room) {
			return room.Clone(), nil
		}
	}

	return nil, repository.ErrRoomNotFound
}
