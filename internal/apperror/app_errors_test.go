package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	t.Run("Matches sentinel of the same kind through wrapping", func(t *testing.T) {
		// Given: a detailed error wrapped twice
		err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", New(SlotOccupied, "slot %s taken", "player1")))

		// Then: it matches the sentinel of its kind only
		assert.ErrorIs(t, err, ErrSlotOccupied)
		assert.NotErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("Foreign errors are internal", func(t *testing.T) {
		err := errors.New("redis down")

		assert.Equal(t, InternalError, KindOf(err))
		assert.Equal(t, "redis down", Detail(err))
	})
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "wrong_turn: turn is 2", New(WrongTurn, "turn is %d", 2).Error())
	assert.Equal(t, "room_not_exist", ErrRoomNotFound.Error())
	assert.Equal(t, "server_error", Kind(99).String())
}
