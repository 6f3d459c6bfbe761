package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	roomKeyPrefix    = "room:"
	creatorKeyPrefix = "room-creator:"
	seatKeyPrefix    = "room-seat:"
	createdIndexKey  = "rooms:created"

	maxTxAttempts = 3
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func roomKey(id string) string {
	return roomKeyPrefix + id
}

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	key := roomKey(room.ID)

	return that.transact(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check room: %w", err)
		}

		if exists > 0 {
			return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
		}

		return that.write(ctx, tx, nil, room)
	})
}

func (that *dbRoom) Save(ctx context.Context, room *entity.Room) error {
	key := roomKey(room.ID)

	return that.transact(ctx, key, func(tx *redis.Tx) error {
		previous, err := readRoom(ctx, tx, key)
		if err != nil {
			return err
		}

		return that.write(ctx, tx, previous, room)
	})
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	return readRoom(ctx, that.client, roomKey(id))
}

func (that *dbRoom) DeleteByID(ctx context.Context, id string) error {
	key := roomKey(id)

	return that.transact(ctx, key, func(tx *redis.Tx) error {
		previous, err := readRoom(ctx, tx, key)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, createdIndexKey, previous.ID)
			delIndexes(ctx, pipe, previous)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to delete room by ID: %w", err)
		}

		return nil
	})
}

func (that *dbRoom) FindByCreator(ctx context.Context, userID string) (*entity.Room, error) {
	room, err := that.followIndex(ctx, creatorKeyPrefix+userID)
	if err != nil {
		return nil, err
	}

	if room.CreatorID != userID {
		return nil, ErrRoomNotFound
	}

	return room, nil
}

func (that *dbRoom) FindBySeat(ctx context.Context, userID string) (*entity.Room, error) {
	room, err := that.followIndex(ctx, seatKeyPrefix+userID)
	if err != nil {
		return nil, err
	}

	if _, ok := room.SeatOf(userID); !ok {
		return nil, ErrRoomNotFound
	}

	return room, nil
}

func (that *dbRoom) List(ctx context.Context, skip, limit int, oldestFirst bool) ([]*entity.Room, error) {
	if limit == 0 {
		return []*entity.Room{}, nil
	}

	start := int64(skip)
	stop := int64(-1)
	if limit > 0 {
		stop = start + int64(limit) - 1
	}

	var (
		ids []string
		err error
	)
	if oldestFirst {
		ids, err = that.client.ZRange(ctx, createdIndexKey, start, stop).Result()
	} else {
		ids, err = that.client.ZRevRange(ctx, createdIndexKey, start, stop).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to range rooms: %w", err)
	}

	rooms := make([]*entity.Room, 0, len(ids))
	if len(ids) == 0 {
		return rooms, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}

	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// deleted between the range and the read
			continue
		}

		var room entity.Room
		if err = json.Unmarshal([]byte(raw), &room); err != nil {
			return nil, fmt.Errorf("failed to unmarshal room: %w", err)
		}

		rooms = append(rooms, &room)
	}

	return rooms, nil
}

// transact runs fn under WATCH on key, retrying when a concurrent writer touched it.
func (that *dbRoom) transact(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	var err error
	for range maxTxAttempts {
		err = that.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}

	return fmt.Errorf("failed to commit room %s: %w", key, err)
}

// write stores the record and moves secondary indexes from previous to room in one MULTI.
func (that *dbRoom) write(ctx context.Context, tx *redis.Tx, previous, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != nil {
			delIndexes(ctx, pipe, previous)
		}

		pipe.Set(ctx, roomKey(room.ID), roomJSON, 0)
		pipe.ZAdd(ctx, createdIndexKey, redis.Z{Score: float64(room.CreatedAt.UnixMilli()), Member: room.ID})
		pipe.Set(ctx, creatorKeyPrefix+room.CreatorID, room.ID, 0)

		for _, userID := range []string{room.Player1ID, room.Player2ID} {
			if userID != "" {
				pipe.Set(ctx, seatKeyPrefix+userID, room.ID, 0)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) followIndex(ctx context.Context, indexKey string) (*entity.Room, error) {
	roomID, err := that.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", indexKey, err)
	}

	return that.GetByID(ctx, roomID)
}

func delIndexes(ctx context.Context, pipe redis.Pipeliner, room *entity.Room) {
	pipe.Del(ctx, creatorKeyPrefix+room.CreatorID)

	for _, userID := range []string{room.Player1ID, room.Player2ID} {
		if userID != "" {
			pipe.Del(ctx, seatKeyPrefix+userID)
		}
	}
}

func readRoom(ctx context.Context, reader getter, key string) (*entity.Room, error) {
	response, err := reader.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal(response, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}
