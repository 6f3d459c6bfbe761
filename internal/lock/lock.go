package lock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a token obtained from Locker.Lock. Calling it more than once is a no-op.
type Unlock func()

// Locker hands out one exclusion token per key.
type Locker interface {
	// Lock blocks until the token for key is held or ctx is done.
	Lock(ctx context.Context, key string) (Unlock, error)
}

func RoomKey(roomID string) string {
	return "room:" + roomID
}

func UserKey(userID string) string {
	return "user:" + userID
}
