package entity

// Events pushed to room subscribers after a mutation commits.
const (
	EventPlayerJoined       = "room:player:joined"
	EventPlayerLeft         = "room:player:left"
	EventPlayerDisconnected = "room:player:disconnected"
	EventMoveUpdated        = "room:move:updated"
	EventRoomReset          = "room:reset"
	EventRoomDeleted        = "room:deleted"
	EventChatMessage        = "room:chat:message"
)

// Event - a notification addressed to every subscriber of one room.
type Event struct {
	Name   string `json:"event"`
	RoomID string `json:"-"`
	Data   any    `json:"data"`
}

// RoomChange - payload of seat, move and reset notifications.
type RoomChange struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	Seat      Seat   `json:"playerSlot,omitempty"`
	CellIndex *int   `json:"cellIndex,omitempty"`
	Room      *Room  `json:"room,omitempty"`
}

// ChatMessage - relayed verbatim with a server timestamp.
type ChatMessage struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
}
