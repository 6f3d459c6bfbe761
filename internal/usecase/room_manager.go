package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/lock"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	Save(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
	FindByCreator(ctx context.Context, userID string) (*entity.Room, error)
	FindBySeat(ctx context.Context, userID string) (*entity.Room, error)
	List(ctx context.Context, skip, limit int, oldestFirst bool) ([]*entity.Room, error)
}

type userDirectory interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

type finalizer interface {
	Finalize(ctx context.Context, result entity.GameResult) error
}

type broadcaster interface {
	Publish(event entity.Event)
	Evict(roomID string)
}

type finalizeQueue interface {
	EnqueueFinalize(ctx context.Context, roomID string) error
}

// RoomManager - runs every room mutation as read, validate, persist under the room token,
// then notifies subscribers once the token is released.
type RoomManager struct {
	logger *slog.Logger

	rooms     roomRepo
	users     userDirectory
	finalizer finalizer
	locker    lock.Locker
	broadcast broadcaster
	queue     finalizeQueue

	timeout time.Duration
	now     func() time.Time
}

// NewRoomManager - queue may be nil, failed finalizations then wait for the next RetryFinalize or delete.
func NewRoomManager(
	logger *slog.Logger,
	rooms roomRepo,
	users userDirectory,
	finalizer finalizer,
	locker lock.Locker,
	broadcast broadcaster,
	queue finalizeQueue,
	timeout time.Duration,
) *RoomManager {
	return &RoomManager{
		logger: logger.With("component", "room_manager"),

		rooms:     rooms,
		users:     users,
		finalizer: finalizer,
		locker:    locker,
		broadcast: broadcast,
		queue:     queue,

		timeout: timeout,
		now:     time.Now,
	}
}

func (that *RoomManager) CreateRoom(ctx context.Context, name, creatorID string) (*entity.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.New(apperror.InvalidInput, "room name must not be empty")
	}

	if creatorID == "" {
		return nil, apperror.New(apperror.InvalidInput, "creator id must not be empty")
	}

	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	var room *entity.Room
	err := that.withLocks(ctx, []string{lock.UserKey(creatorID)}, func() error {
		existing, err := that.rooms.FindByCreator(ctx, creatorID)
		if err == nil {
			return apperror.New(apperror.HasActiveRoom, "the user %s has an active room %s", creatorID, existing.ID)
		}

		if !errors.Is(err, repository.ErrRoomNotFound) {
			return fmt.Errorf("failed to find room by creator: %w", err)
		}

		room = entity.NewRoom(uuid.NewString(), name, creatorID, that.now().UTC())
		if err = that.rooms.Create(ctx, room); err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	that.logger.Info("room created", "room_id", room.ID, "creator_id", creatorID)

	return room.Public(), nil
}

func (that *RoomManager) DeleteRoom(ctx context.Context, roomID, requesterID string) error {
	log := that.logger.With("method", "DeleteRoom", "room_id", roomID)

	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	err := that.withLocks(ctx, []string{lock.RoomKey(roomID)}, func() error {
		room, err := that.getRoom(ctx, roomID)
		if err != nil {
			return err
		}

		if room.CreatorID != requesterID {
			return apperror.New(apperror.NotCreator, "the user %s is not the creator of room %s", requesterID, roomID)
		}

		if len(room.PendingResults) > 0 {
			if err = that.finalizePending(ctx, room); err != nil {
				log.Error("deleting room with unfinalized results", "error", err, "pending", len(room.PendingResults))
			}
		}

		if err = that.rooms.DeleteByID(ctx, roomID); err != nil {
			return that.roomError(err, roomID, "failed to delete room")
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info("room deleted")

	that.broadcast.Publish(entity.Event{
		Name:   entity.EventRoomDeleted,
		RoomID: roomID,
		Data:   entity.RoomChange{RoomID: roomID, UserID: requesterID},
	})
	that.broadcast.Evict(roomID)

	return nil
}

func (that *RoomManager) JoinRoom(ctx context.Context, roomID, userID string, seat entity.Seat) (*entity.Room, error) {
	if seat != entity.Seat1 && seat != entity.Seat2 {
		return nil, apperror.New(apperror.InvalidSeat, "%s", entity.ErrUnknownSeat)
	}

	if userID == "" {
		return nil, apperror.New(apperror.InvalidInput, "user id must not be empty")
	}

	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	var room *entity.Room
	err := that.withLocks(ctx, []string{lock.UserKey(userID), lock.RoomKey(roomID)}, func() error {
		var err error
		room, err = that.getRoom(ctx, roomID)
		if err != nil {
			return err
		}

		seated, err := that.rooms.FindBySeat(ctx, userID)
		if err == nil {
			return apperror.New(apperror.AlreadyInARoom, "user %s is already in room %s", userID, seated.ID)
		}

		if !errors.Is(err, repository.ErrRoomNotFound) {
			return fmt.Errorf("failed to find room by seat: %w", err)
		}

		if room.Occupant(seat) != "" {
			return apperror.New(apperror.SlotOccupied, "slot %s of room %s had been occupied", seat, roomID)
		}

		room.SetOccupant(seat, userID)

		return that.save(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	public := room.Public()

	that.broadcast.Publish(entity.Event{
		Name:   entity.EventPlayerJoined,
		RoomID: roomID,
		Data:   entity.RoomChange{RoomID: roomID, UserID: userID, Seat: seat, Room: public},
	})

	return public, nil
}

func (that *RoomManager) LeaveRoom(ctx context.Context, roomID, userID string) (*entity.Room, error) {
	return that.leave(ctx, roomID, userID, entity.EventPlayerLeft)
}

// Disconnect is the implicit leave of a dropped connection. The room survives even when left empty.
func (that *RoomManager) Disconnect(ctx context.Context, roomID, userID string) (*entity.Room, error) {
	return that.leave(ctx, roomID, userID, entity.EventPlayerDisconnected)
}

func (that *RoomManager) leave(ctx context.Context, roomID, userID, eventName string) (*entity.Room, error) {
	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	var (
		room *entity.Room
		seat entity.Seat
	)
	err := that.withLocks(ctx, []string{lock.UserKey(userID), lock.RoomKey(roomID)}, func() error {
		var err error
		room, err = that.getRoom(ctx, roomID)
		if err != nil {
			return err
		}

		var ok bool
		seat, ok = room.SeatOf(userID)
		if !ok {
			return apperror.New(apperror.NotInRoom, "the user %s is not in room %s", userID, roomID)
		}

		room.SetOccupant(seat, "")

		return that.save(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	public := room.Public()

	that.broadcast.Publish(entity.Event{
		Name:   eventName,
		RoomID: roomID,
		Data:   entity.RoomChange{RoomID: roomID, UserID: userID, Seat: seat, Room: public},
	})

	return public, nil
}

func (that *RoomManager) ApplyMove(ctx context.Context, roomID, userID string, cell int) (*entity.Room, error) {
	if err := tictactoe.ValidateCell(cell); err != nil {
		return nil, err
	}

	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	var room *entity.Room
	err := that.withLocks(ctx, []string{lock.RoomKey(roomID)}, func() error {
		var err error
		room, err = that.getRoom(ctx, roomID)
		if err != nil {
			return err
		}

		if _, err = that.users.GetByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return apperror.New(apperror.UserNotFound, "the user %s does not exist", userID)
			}

			return fmt.Errorf("failed to get user: %w", err)
		}

		decided, err := tictactoe.MakeTurn(room, userID, cell)
		if err != nil {
			return err
		}

		if decided {
			room.PendingResults = append(room.PendingResults, entity.NewGameResult(room, that.now().UTC()))
		}

		if err = that.save(ctx, room); err != nil {
			return err
		}

		if decided {
			that.finalizeOrEnqueue(ctx, room)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	public := room.Public()

	that.broadcast.Publish(entity.Event{
		Name:   entity.EventMoveUpdated,
		RoomID: roomID,
		Data:   entity.RoomChange{RoomID: roomID, UserID: userID, CellIndex: &cell, Room: public},
	})

	return public, nil
}

// ResetRoom starts the next round keeping the seats. Only the creator may reset.
func (that *RoomManager) ResetRoom(ctx context.Context, roomID, requesterID string) (*entity.Room, error) {
	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	var room *entity.Room
	err := that.withLocks(ctx, []string{lock.RoomKey(roomID)}, func() error {
		var err error
		room, err = that.getRoom(ctx, roomID)
		if err != nil {
			return err
		}

		if room.CreatorID != requesterID {
			return apperror.New(apperror.NotCreator, "the user %s is not the creator of room %s", requesterID, roomID)
		}

		room.Reset()

		return that.save(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	public := room.Public()

	that.broadcast.Publish(entity.Event{
		Name:   entity.EventRoomReset,
		RoomID: roomID,
		Data:   entity.RoomChange{RoomID: roomID, UserID: requesterID, Room: public},
	})

	return public, nil
}

// GetRoom - a committed snapshot, read without the room token.
func (that *RoomManager) GetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	room, err := that.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return room.Public(), nil
}

// ListRooms pages rooms by creation time, newest first unless oldestFirst. limit -1 returns all.
func (that *RoomManager) ListRooms(ctx context.Context, skip, limit int, oldestFirst bool) ([]entity.RoomSummary, error) {
	if skip < 0 || limit < -1 {
		return nil, apperror.New(apperror.InvalidInput, "skip must be >= 0 and limit >= -1, got skip=%d limit=%d", skip, limit)
	}

	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	rooms, err := that.rooms.List(ctx, skip, limit, oldestFirst)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	usernames := make(map[string]string)
	username := func(userID string) string {
		if userID == "" {
			return ""
		}

		if name, ok := usernames[userID]; ok {
			return name
		}

		var name string
		user, err := that.users.GetByID(ctx, userID)
		switch {
		case err == nil:
			name = user.Username
		case !errors.Is(err, repository.ErrUserNotFound):
			that.logger.Warn("failed to resolve username for listing", "method", "ListRooms", "user_id", userID, "error", err)
		}
		usernames[userID] = name

		return name
	}

	summaries := make([]entity.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, entity.RoomSummary{
			ID:        room.ID,
			Name:      room.Name,
			CreatorID: room.CreatorID,
			Player1ID: room.Player1ID,
			Player2ID: room.Player2ID,
			WinState:  room.WinState,
			CreatedAt: room.CreatedAt,
			Creator:   username(room.CreatorID),
			Player1:   username(room.Player1ID),
			Player2:   username(room.Player2ID),
		})
	}

	return summaries, nil
}

// RetryFinalize drains the pending results of a room. A deleted room has nothing left to drain.
func (that *RoomManager) RetryFinalize(ctx context.Context, roomID string) error {
	ctx, cancel := that.operationContext(ctx)
	defer cancel()

	return that.withLocks(ctx, []string{lock.RoomKey(roomID)}, func() error {
		room, err := that.rooms.GetByID(ctx, roomID)
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		return that.finalizePending(ctx, room)
	})
}

// finalizeOrEnqueue runs right after a decisive move was persisted. A failure leaves the
// pending marker in place and schedules a retry, the move itself still succeeds.
func (that *RoomManager) finalizeOrEnqueue(ctx context.Context, room *entity.Room) {
	log := that.logger.With("method", "finalizeOrEnqueue", "room_id", room.ID)

	err := that.finalizePending(ctx, room)
	if err == nil {
		return
	}

	log.Error("stats finalization failed, result stays pending", "error", err)

	if that.queue == nil {
		return
	}

	if err = that.queue.EnqueueFinalize(ctx, room.ID); err != nil {
		log.Error("failed to enqueue finalize retry", "error", err)
	}
}

// finalizePending applies every pending result of room and persists the shrunk marker.
// Results that can never be applied are dropped. Must run under the room token.
func (that *RoomManager) finalizePending(ctx context.Context, room *entity.Room) error {
	var (
		failed   error
		finished []int
	)

	for _, result := range room.PendingResults {
		err := that.finalizer.Finalize(ctx, result)
		if err != nil && !errors.Is(err, ErrInconsistentResult) {
			failed = errors.Join(failed, fmt.Errorf("round %d: %w", result.Round, err))
			continue
		}

		finished = append(finished, result.Round)
	}

	if len(finished) == 0 {
		return failed
	}

	for _, round := range finished {
		room.RemovePending(round)
	}

	if err := that.save(ctx, room); err != nil {
		// the results are recorded, the next drain finds them already applied
		return errors.Join(failed, err)
	}

	return failed
}

func (that *RoomManager) withLocks(ctx context.Context, keys []string, fn func() error) error {
	unlocks := make([]lock.Unlock, 0, len(keys))
	defer func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}()

	for _, key := range keys {
		unlock, err := that.locker.Lock(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", key, err)
		}

		unlocks = append(unlocks, unlock)
	}

	return fn()
}

// operationContext detaches the operation from caller cancellation and bounds it by the configured timeout.
func (that *RoomManager) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), that.timeout)
}

func (that *RoomManager) getRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, that.roomError(err, roomID, "failed to get room")
	}

	return room, nil
}

func (that *RoomManager) save(ctx context.Context, room *entity.Room) error {
	if err := that.rooms.Save(ctx, room); err != nil {
		return that.roomError(err, room.ID, "failed to save room")
	}

	return nil
}

func (that *RoomManager) roomError(err error, roomID, msg string) error {
	if errors.Is(err, repository.ErrRoomNotFound) {
		return apperror.New(apperror.RoomNotFound, "the room %s does not exist", roomID)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
