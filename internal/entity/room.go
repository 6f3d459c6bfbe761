package entity

import (
	"fmt"
	"time"
)

const BoardSize = 9

// Mark - content of a single board cell.
type Mark uint8

const (
	EmptyCell Mark = iota
	Mark1
	Mark2
)

// Board - the 3x3 grid, row-major.
type Board [BoardSize]Mark

// Seat - one of the two playing positions of a room.
type Seat uint8

const (
	NoSeat Seat = iota
	Seat1
	Seat2
)

const (
	seat1Name = "player1"
	seat2Name = "player2"
)

var ErrUnknownSeat = fmt.Errorf("seat must be %q or %q", seat1Name, seat2Name)

// ParseSeat accepts the wire names "player1" and "player2".
func ParseSeat(name string) (Seat, error) {
	switch name {
	case seat1Name:
		return Seat1, nil
	case seat2Name:
		return Seat2, nil
	default:
		return NoSeat, ErrUnknownSeat
	}
}

func (s Seat) String() string {
	switch s {
	case Seat1:
		return seat1Name
	case Seat2:
		return seat2Name
	default:
		return ""
	}
}

func (s Seat) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Seat) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = NoSeat
		return nil
	}

	seat, err := ParseSeat(string(text))
	if err != nil {
		return err
	}

	*s = seat

	return nil
}

// Mark returns the mark written by the occupant of the seat.
func (s Seat) Mark() Mark {
	switch s {
	case Seat1:
		return Mark1
	case Seat2:
		return Mark2
	default:
		return EmptyCell
	}
}

// Other returns the opposite seat.
func (s Seat) Other() Seat {
	if s == Seat1 {
		return Seat2
	}

	return Seat1
}

// WinState - outcome of the current match in a room.
type WinState uint8

const (
	Ongoing WinState = iota
	Seat1Wins
	Seat2Wins
	Draw
)

func (w WinState) String() string {
	switch w {
	case Ongoing:
		return "ongoing"
	case Seat1Wins:
		return "player1_wins"
	case Seat2Wins:
		return "player2_wins"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Room - a game session with one board and two seats. Seats hold user ids, an empty string is a free seat.
type Room struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CreatorID string   `json:"creatorId"`
	Player1ID string   `json:"player1Id"`
	Player2ID string   `json:"player2Id"`
	Board     Board    `json:"board"`
	Turn      Seat     `json:"turn"`
	WinState  WinState `json:"winState"`
	Round     int      `json:"round"`

	// PendingResults holds decided matches whose stats have not been applied yet.
	PendingResults []GameResult `json:"pendingResults,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func NewRoom(id, name, creatorID string, createdAt time.Time) *Room {
	return &Room{
		ID:        id,
		Name:      name,
		CreatorID: creatorID,
		Turn:      Seat1,
		WinState:  Ongoing,
		Round:     1,
		CreatedAt: createdAt,
	}
}

// Occupant returns the user id sitting in seat.
func (that *Room) Occupant(seat Seat) string {
	switch seat {
	case Seat1:
		return that.Player1ID
	case Seat2:
		return that.Player2ID
	default:
		return ""
	}
}

func (that *Room) SetOccupant(seat Seat, userID string) {
	switch seat {
	case Seat1:
		that.Player1ID = userID
	case Seat2:
		that.Player2ID = userID
	}
}

// SeatOf returns the seat held by userID in this room.
func (that *Room) SeatOf(userID string) (Seat, bool) {
	switch {
	case userID == "":
		return NoSeat, false
	case that.Player1ID == userID:
		return Seat1, true
	case that.Player2ID == userID:
		return Seat2, true
	default:
		return NoSeat, false
	}
}

func (that *Room) IsDecided() bool {
	return that.WinState != Ongoing
}

// Reset starts a new match keeping seat occupancy.
func (that *Room) Reset() {
	that.Board = Board{}
	that.Turn = Seat1
	that.WinState = Ongoing
	that.Round++
}

// Clone returns a deep copy.
func (that *Room) Clone() *Room {
	clone := *that
	if that.PendingResults != nil {
		clone.PendingResults = append([]GameResult(nil), that.PendingResults...)
	}

	return &clone
}

// Public returns a copy stripped of bookkeeping that subscribers never see.
func (that *Room) Public() *Room {
	public := that.Clone()
	public.PendingResults = nil

	return public
}

// RemovePending drops the pending result of the given round.
func (that *Room) RemovePending(round int) {
	kept := that.PendingResults[:0]
	for _, result := range that.PendingResults {
		if result.Round != round {
			kept = append(kept, result)
		}
	}

	if len(kept) == 0 {
		kept = nil
	}

	that.PendingResults = kept
}

// GameResult - a decided match awaiting or past stats finalization.
type GameResult struct {
	RoomID    string    `json:"roomId"`
	Round     int       `json:"round"`
	WinState  WinState  `json:"winState"`
	Player1ID string    `json:"player1Id"`
	Player2ID string    `json:"player2Id"`
	DecidedAt time.Time `json:"decidedAt"`
}

// NewGameResult snapshots the current participants of a decided room.
func NewGameResult(room *Room, decidedAt time.Time) GameResult {
	return GameResult{
		RoomID:    room.ID,
		Round:     room.Round,
		WinState:  room.WinState,
		Player1ID: room.Player1ID,
		Player2ID: room.Player2ID,
		DecidedAt: decidedAt,
	}
}

// Outcome returns winner and loser ids, or draw=true when nobody won.
func (that GameResult) Outcome() (winner, loser string, draw bool) {
	switch that.WinState {
	case Seat1Wins:
		return that.Player1ID, that.Player2ID, false
	case Seat2Wins:
		return that.Player2ID, that.Player1ID, false
	default:
		return "", "", true
	}
}

// RoomSummary - one entry of the room listing, with usernames resolved where the directory knows them.
type RoomSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creatorId"`
	Player1ID string    `json:"player1Id"`
	Player2ID string    `json:"player2Id"`
	WinState  WinState  `json:"winState"`
	CreatedAt time.Time `json:"createdAt"`

	Creator string `json:"creator"`
	Player1 string `json:"player1,omitempty"`
	Player2 string `json:"player2,omitempty"`
}
