package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/testing/suite"
)

func TestRedis_Lock(t *testing.T) {
	t.Run("Second holder waits for release", func(t *testing.T) {
		ctx, st := suite.New(t)

		locker := NewRedis(st.Logger, st.Storage, time.Second, 5*time.Millisecond)

		// Given: the key is held
		unlock, err := locker.Lock(ctx, RoomKey("r1"))
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			second, err := locker.Lock(ctx, RoomKey("r1"))
			if assert.NoError(t, err) {
				close(acquired)
				second()
			}
		}()

		// Then: the waiter is blocked until unlock
		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(50 * time.Millisecond):
		}

		unlock()

		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("lock not acquired after release")
		}
	})

	t.Run("Expired lease is not released by the old holder", func(t *testing.T) {
		ctx, st := suite.New(t)

		locker := NewRedis(st.Logger, st.Storage, 30*time.Millisecond, 5*time.Millisecond)

		// Given: a lease that expires
		stale, err := locker.Lock(ctx, "k")
		require.NoError(t, err)
		time.Sleep(60 * time.Millisecond)

		// When: another holder takes the key and the stale holder unlocks
		fresh, err := locker.Lock(ctx, "k")
		require.NoError(t, err)
		stale()

		// Then: the fresh lease survives
		exists, err := st.Storage.Exists(ctx, keyPrefix+"k").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)

		fresh()
	})

	t.Run("Gives up when the context is done", func(t *testing.T) {
		ctx, st := suite.New(t)

		locker := NewRedis(st.Logger, st.Storage, time.Second, 5*time.Millisecond)

		unlock, err := locker.Lock(ctx, "k")
		require.NoError(t, err)
		defer unlock()

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err = locker.Lock(short, "k")
		assert.ErrorIs(t, err, ErrNotAcquired)
	})
}
