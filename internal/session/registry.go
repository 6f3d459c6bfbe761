package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Binding - the seat a live connection currently holds.
type Binding struct {
	RoomID string
	UserID string
	Seat   entity.Seat
}

type disconnecter interface {
	Disconnect(ctx context.Context, roomID, userID string) (*entity.Room, error)
}

// Registry maps connection ids to at most one Binding each.
type Registry struct {
	mu       sync.Mutex
	bindings map[string]Binding
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]Binding),
	}
}

// Bind records a successful join, replacing whatever the connection held before.
// A user holds one seat at a time, so bindings of the same user on other connections are dropped.
func (that *Registry) Bind(connID string, binding Binding) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for id, existing := range that.bindings {
		if id != connID && existing.UserID == binding.UserID {
			delete(that.bindings, id)
		}
	}

	that.bindings[connID] = binding
}

// Clear forgets every binding of userID in roomID after a leave, whichever connection it came from.
func (that *Registry) Clear(roomID, userID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for id, binding := range that.bindings {
		if binding.RoomID == roomID && binding.UserID == userID {
			delete(that.bindings, id)
		}
	}
}

func (that *Registry) Get(connID string) (Binding, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	binding, ok := that.bindings[connID]

	return binding, ok
}

// Release removes the binding of a closed connection and runs its implicit leave.
// The leave publishes the disconnect notification, so callers tear down subscriptions only after Release returns.
func (that *Registry) Release(ctx context.Context, connID string, rooms disconnecter) (Binding, error) {
	that.mu.Lock()
	binding, ok := that.bindings[connID]
	delete(that.bindings, connID)
	that.mu.Unlock()

	if !ok {
		return Binding{}, nil
	}

	if _, err := rooms.Disconnect(ctx, binding.RoomID, binding.UserID); err != nil {
		return binding, fmt.Errorf("failed to leave room %s on disconnect: %w", binding.RoomID, err)
	}

	return binding, nil
}

// Len returns the number of bound connections.
func (that *Registry) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.bindings)
}
