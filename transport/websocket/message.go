package websocket

import (
	"encoding/json"
)

// Message - a client request frame. AckID is echoed back on the response.
type Message struct {
	Event   string          `json:"event"`
	AckID   string          `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Response - the ack of one request.
type Response struct {
	Event   string     `json:"event"`
	AckID   string     `json:"ackId,omitempty"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	ErrorType string `json:"errorType"`
	Info      string `json:"info"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type joinPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Seat   string `json:"seat"`
}

type leavePayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type movePayload struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	CellIndex *int   `json:"cellIndex"`
}

type chatPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Text     string `json:"text"`
}
