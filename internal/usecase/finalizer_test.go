package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/memory"
)

func TestStatsFinalizer_Finalize(t *testing.T) {
	ctx := context.Background()

	newUsers := func(t *testing.T) *memory.UserRepository {
		t.Helper()

		users := memory.NewUserRepository()
		require.NoError(t, users.Create(ctx, &entity.User{ID: "a", Username: "alice"}))
		require.NoError(t, users.Create(ctx, &entity.User{ID: "b", Username: "bob"}))

		return users
	}

	t.Run("Draw counts for both and only once", func(t *testing.T) {
		users := newUsers(t)
		finalizer := NewStatsFinalizer(discardLogger(), users)

		result := entity.GameResult{RoomID: "r", Round: 1, WinState: entity.Draw, Player1ID: "a", Player2ID: "b"}

		// When: the same result is finalized twice
		require.NoError(t, finalizer.Finalize(ctx, result))
		require.NoError(t, finalizer.Finalize(ctx, result))

		// Then: each participant has one draw
		for _, id := range []string{"a", "b"} {
			user, err := users.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 1, user.DrawCount)
			assert.Zero(t, user.WinCount)
			assert.Zero(t, user.LossCount)
		}
	})

	t.Run("Missing participant is an inconsistency", func(t *testing.T) {
		users := newUsers(t)
		finalizer := NewStatsFinalizer(discardLogger(), users)

		// Given: seat 2 was empty when the match was decided
		result := entity.GameResult{RoomID: "r", Round: 1, WinState: entity.Seat1Wins, Player1ID: "a"}

		err := finalizer.Finalize(ctx, result)

		// Then: nothing is applied
		require.ErrorIs(t, err, ErrInconsistentResult)

		alice, err := users.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Zero(t, alice.WinCount)
	})
}
