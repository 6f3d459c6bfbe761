package tictactoe

import (
	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Result - verdict of evaluating a board.
type Result uint8

const (
	Ongoing Result = iota
	Seat1Wins
	Seat2Wins
	FullNoWin
)

// WinCombos - rows, columns, diagonals. Scan order decides the winner on arbitrary boards.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Evaluate reports the first completed line in scan order, otherwise whether the board is full.
func Evaluate(board entity.Board) Result {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			if a == entity.Mark1 {
				return Seat1Wins
			}
			return Seat2Wins
		}
	}

	// the game will continue until all the squares are full
	for _, cell := range board {
		if cell == entity.EmptyCell {
			return Ongoing
		}
	}

	return FullNoWin
}

// WinState maps a board verdict onto the room outcome.
func (r Result) WinState() entity.WinState {
	switch r {
	case Seat1Wins:
		return entity.Seat1Wins
	case Seat2Wins:
		return entity.Seat2Wins
	case FullNoWin:
		return entity.Draw
	default:
		return entity.Ongoing
	}
}

// ValidateCell - checks the index is on the board.
func ValidateCell(cell int) error {
	if cell < 0 || cell >= entity.BoardSize {
		return apperror.New(apperror.InvalidCell, "cellIndex must be an integer between 0 and %d, got %d",
			entity.BoardSize-1, cell)
	}

	return nil
}

// MakeTurn writes the mark of userID into cell and re-evaluates the room.
// It reports whether this move decided the match. The room is left untouched on error.
func MakeTurn(room *entity.Room, userID string, cell int) (bool, error) {
	if err := ValidateCell(cell); err != nil {
		return false, err
	}

	seat, err := validateMove(room, userID, cell)
	if err != nil {
		return false, err
	}

	room.Board[cell] = seat.Mark()
	room.WinState = Evaluate(room.Board).WinState()
	room.Turn = seat.Other()

	return room.IsDecided(), nil
}

// validateMove - checks if the move is valid and returns the mover's seat.
func validateMove(room *entity.Room, userID string, cell int) (entity.Seat, error) {
	if room.IsDecided() {
		return entity.NoSeat, apperror.New(apperror.AlreadyDecided,
			"the room %s win cond is already determined", room.ID)
	}

	seat, ok := room.SeatOf(userID)
	if !ok {
		return entity.NoSeat, apperror.New(apperror.NotInRoom, "the user %s is not in room %s", userID, room.ID)
	}

	if room.Turn != seat {
		return entity.NoSeat, apperror.New(apperror.WrongTurn,
			"turn is %s but player %s is in slot %s", room.Turn, userID, seat)
	}

	if room.Board[cell] != entity.EmptyCell {
		return entity.NoSeat, apperror.New(apperror.CellOccupied, "the index %d is already being stepped", cell)
	}

	return seat, nil
}
