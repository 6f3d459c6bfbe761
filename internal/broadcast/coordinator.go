package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Subscriber is one live connection able to receive room events.
type Subscriber interface {
	ID() string
	// Enqueue hands a frame to the connection writer without blocking; false means it was dropped.
	Enqueue(frame []byte) bool
}

// Coordinator keeps the subscriber set of every room. Its lock is independent of any room token.
type Coordinator struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[string]Subscriber
}

func NewCoordinator(logger *slog.Logger) *Coordinator {
	return &Coordinator{
		logger: logger.With("component", "broadcast"),
		rooms:  make(map[string]map[string]Subscriber),
	}
}

func (that *Coordinator) Subscribe(roomID string, subscriber Subscriber) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subscribers, ok := that.rooms[roomID]
	if !ok {
		subscribers = make(map[string]Subscriber)
		that.rooms[roomID] = subscribers
	}

	subscribers[subscriber.ID()] = subscriber
}

func (that *Coordinator) Unsubscribe(roomID, subscriberID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.remove(roomID, subscriberID)
}

// UnsubscribeAll drops subscriberID from every room, used when its connection closes.
func (that *Coordinator) UnsubscribeAll(subscriberID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for roomID := range that.rooms {
		that.remove(roomID, subscriberID)
	}
}

// Evict forgets the whole subscriber set of a room.
func (that *Coordinator) Evict(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, roomID)
}

// Subscribers returns how many connections follow roomID.
func (that *Coordinator) Subscribers(roomID string) int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms[roomID])
}

// Publish delivers event to every current subscriber of its room, best effort.
func (that *Coordinator) Publish(event entity.Event) {
	log := that.logger.With("method", "Publish", "room_id", event.RoomID, "event", event.Name)

	frame, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to marshal event", "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for id, subscriber := range that.rooms[event.RoomID] {
		if !subscriber.Enqueue(frame) {
			log.Warn("subscriber is too slow, event dropped", "subscriber_id", id)
		}
	}
}

func (that *Coordinator) remove(roomID, subscriberID string) {
	subscribers, ok := that.rooms[roomID]
	if !ok {
		return
	}

	delete(subscribers, subscriberID)
	if len(subscribers) == 0 {
		delete(that.rooms, roomID)
	}
}
