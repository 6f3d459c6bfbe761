package tictactoe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	e  = entity.EmptyCell
	m1 = entity.Mark1
	m2 = entity.Mark2
)

func TestEvaluate(t *testing.T) {
	t.Run("Returns Seat1Wins on a row of player1 marks", func(t *testing.T) {
		board := entity.Board{
			m1, m1, m1,
			m2, m2, e,
			e, e, e,
		}

		assert.Equal(t, Seat1Wins, Evaluate(board))
	})

	t.Run("Returns Seat2Wins on a diagonal of player2 marks", func(t *testing.T) {
		board := entity.Board{
			m2, m1, m1,
			e, m2, e,
			m1, e, m2,
		}

		assert.Equal(t, Seat2Wins, Evaluate(board))
	})

	t.Run("Returns FullNoWin on a full board without lines", func(t *testing.T) {
		board := entity.Board{
			m1, m2, m1,
			m2, m1, m2,
			m2, m1, m2,
		}

		assert.Equal(t, FullNoWin, Evaluate(board))
		assert.Equal(t, entity.Draw, Evaluate(board).WinState())
	})

	t.Run("Returns Ongoing on an empty board", func(t *testing.T) {
		assert.Equal(t, Ongoing, Evaluate(entity.Board{}))
	})

	t.Run("First line in scan order wins on arbitrary boards", func(t *testing.T) {
		// Given: a board where both players completed a row
		board := entity.Board{
			m2, m2, m2,
			m1, m1, m1,
			e, e, e,
		}

		// Then: the top row is scanned first
		assert.Equal(t, Seat2Wins, Evaluate(board))
	})
}

// TestEvaluate_AllBoards checks every one of the 3^9 boards against a line count.
func TestEvaluate_AllBoards(t *testing.T) {
	for code := 0; code < 19683; code++ {
		var board entity.Board
		n := code
		for i := range board {
			board[i] = entity.Mark(n % 3)
			n /= 3
		}

		lines1, lines2, empty := 0, 0, false
		for _, combo := range WinCombos {
			a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
			if a == b && b == c {
				switch a {
				case m1:
					lines1++
				case m2:
					lines2++
				}
			}
		}
		for _, cell := range board {
			if cell == e {
				empty = true
			}
		}

		got := Evaluate(board)
		switch {
		case lines1 == 0 && lines2 == 0 && empty:
			require.Equal(t, Ongoing, got, "board %v", board)
		case lines1 == 0 && lines2 == 0:
			require.Equal(t, FullNoWin, got, "board %v", board)
		case lines1 > 0 && lines2 == 0:
			require.Equal(t, Seat1Wins, got, "board %v", board)
		case lines2 > 0 && lines1 == 0:
			require.Equal(t, Seat2Wins, got, "board %v", board)
		default:
			require.Contains(t, []Result{Seat1Wins, Seat2Wins}, got, "board %v", board)
		}
	}
}

func newSeatedRoom() *entity.Room {
	room := entity.NewRoom("r1", "R", "alice", testTime)
	room.Player1ID = "alice"
	room.Player2ID = "bob"

	return room
}

func TestMakeTurn(t *testing.T) {
	t.Run("Successful turn flips the turn", func(t *testing.T) {
		// Given: a filled room
		room := newSeatedRoom()

		// When: player1 marks the centre
		decided, err := MakeTurn(room, "alice", 4)

		// Then: the mark lands and it is player2's turn
		require.NoError(t, err)
		assert.False(t, decided)
		assert.Equal(t, m1, room.Board[4])
		assert.Equal(t, entity.Seat2, room.Turn)
		assert.Equal(t, entity.Ongoing, room.WinState)
	})

	t.Run("Winning turn decides and still flips", func(t *testing.T) {
		room := newSeatedRoom()
		room.Board = entity.Board{m1, m1, e, m2, m2, e, e, e, e}

		decided, err := MakeTurn(room, "alice", 2)

		require.NoError(t, err)
		assert.True(t, decided)
		assert.Equal(t, entity.Seat1Wins, room.WinState)
		assert.Equal(t, entity.Seat2, room.Turn)
	})

	t.Run("Last cell without a line is a draw", func(t *testing.T) {
		room := newSeatedRoom()
		room.Board = entity.Board{m1, m2, m1, m1, m2, m2, m2, m1, e}

		decided, err := MakeTurn(room, "alice", 8)

		require.NoError(t, err)
		assert.True(t, decided)
		assert.Equal(t, entity.Draw, room.WinState)
	})

	t.Run("Errors leave the room unchanged", func(t *testing.T) {
		cases := []struct {
			name   string
			prep   func(room *entity.Room)
			userID string
			cell   int
			want   error
		}{
			{"occupied cell", func(room *entity.Room) { room.Board[0] = m2 }, "alice", 0, apperror.ErrCellOccupied},
			{"wrong turn", func(*entity.Room) {}, "bob", 0, apperror.ErrWrongTurn},
			{"stranger", func(*entity.Room) {}, "carol", 0, apperror.ErrNotInRoom},
			{"decided", func(room *entity.Room) { room.WinState = entity.Draw }, "alice", 0, apperror.ErrAlreadyDecided},
			{"negative cell", func(*entity.Room) {}, "alice", -1, apperror.ErrInvalidCell},
			{"cell past board", func(*entity.Room) {}, "alice", 9, apperror.ErrInvalidCell},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				// Given: a prepared room and its snapshot
				room := newSeatedRoom()
				tc.prep(room)
				before := room.Clone()

				// When: the invalid move is applied
				decided, err := MakeTurn(room, tc.userID, tc.cell)

				// Then: the error kind matches and nothing changed
				require.ErrorIs(t, err, tc.want)
				assert.False(t, decided)
				assert.Equal(t, before, room)
			})
		}
	})
}
