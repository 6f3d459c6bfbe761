package apperror

import (
	"errors"
	"fmt"
)

// Kind - closed set of failure categories a room operation can report.
type Kind int

const (
	InternalError Kind = iota
	RoomNotFound
	UserNotFound
	HasActiveRoom
	NotCreator
	AlreadyInARoom
	SlotOccupied
	NotInRoom
	WrongTurn
	CellOccupied
	AlreadyDecided
	InvalidSeat
	InvalidCell
	InvalidInput
)

var kindCodes = map[Kind]string{
	InternalError:  "server_error",
	RoomNotFound:   "room_not_exist",
	UserNotFound:   "user_not_exist",
	HasActiveRoom:  "has_active_room",
	NotCreator:     "not_creator",
	AlreadyInARoom: "in_a_room",
	SlotOccupied:   "slot_occupied",
	NotInRoom:      "not_in_room",
	WrongTurn:      "wrong_turn",
	CellOccupied:   "already_stepped",
	AlreadyDecided: "already_has_result",
	InvalidSeat:    "invalid_slot",
	InvalidCell:    "invalid_cell",
	InvalidInput:   "invalid_input",
}

// String returns the wire code of the kind.
func (k Kind) String() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}

	return kindCodes[InternalError]
}

// Error - a kind tag plus a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
}

func (that *Error) Error() string {
	if that.Detail == "" {
		return that.Kind.String()
	}

	return that.Kind.String() + ": " + that.Detail
}

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (that *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return other.Kind == that.Kind
}

// New builds an error of the given kind with a formatted detail.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind carried by err, InternalError for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return InternalError
}

// Detail returns the human-readable part of err.
func Detail(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Detail
	}

	return err.Error()
}

var (
	ErrInternal       = &Error{Kind: InternalError}
	ErrRoomNotFound   = &Error{Kind: RoomNotFound}
	ErrUserNotFound   = &Error{Kind: UserNotFound}
	ErrHasActiveRoom  = &Error{Kind: HasActiveRoom}
	ErrNotCreator     = &Error{Kind: NotCreator}
	ErrAlreadyInARoom = &Error{Kind: AlreadyInARoom}
	ErrSlotOccupied   = &Error{Kind: SlotOccupied}
	ErrNotInRoom      = &Error{Kind: NotInRoom}
	ErrWrongTurn      = &Error{Kind: WrongTurn}
	ErrCellOccupied   = &Error{Kind: CellOccupied}
	ErrAlreadyDecided = &Error{Kind: AlreadyDecided}
	ErrInvalidSeat    = &Error{Kind: InvalidSeat}
	ErrInvalidCell    = &Error{Kind: InvalidCell}
	ErrInvalidInput   = &Error{Kind: InvalidInput}
)
