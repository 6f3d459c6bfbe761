package websocket

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/session"
)

const maxMessageSize = 4096

func decode(payload json.RawMessage, target any) error {
	if len(payload) == 0 {
		return apperror.New(apperror.InvalidInput, "payload is required")
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return apperror.New(apperror.InvalidInput, "malformed payload: %v", err)
	}

	return nil
}

func requireRoom(roomID string) error {
	if roomID == "" {
		return apperror.New(apperror.InvalidInput, "roomId is required")
	}

	return nil
}

func (that *Server) handleJoin(ctx context.Context, conn *connection, payload json.RawMessage) (any, error) {
	var req joinPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	seat, err := entity.ParseSeat(req.Seat)
	if err != nil {
		return nil, apperror.New(apperror.InvalidSeat, "%s", err)
	}

	if err = requireRoom(req.RoomID); err != nil {
		return nil, err
	}

	room, err := that.rooms.JoinRoom(ctx, req.RoomID, req.UserID, seat)
	if err != nil {
		return nil, err
	}

	that.sessions.Bind(conn.id, session.Binding{RoomID: req.RoomID, UserID: req.UserID, Seat: seat})
	that.hub.Subscribe(req.RoomID, conn)

	return room, nil
}

func (that *Server) handleLeave(ctx context.Context, conn *connection, payload json.RawMessage) (any, error) {
	var req leavePayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}

	room, err := that.rooms.LeaveRoom(ctx, req.RoomID, req.UserID)
	if err != nil {
		return nil, err
	}

	// the left notification is already queued, dropping the subscription cannot lose it
	that.sessions.Clear(req.RoomID, req.UserID)
	that.hub.Unsubscribe(req.RoomID, conn.id)

	return room, nil
}

func (that *Server) handleMove(ctx context.Context, _ *connection, payload json.RawMessage) (any, error) {
	var req movePayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	if req.CellIndex == nil {
		return nil, apperror.New(apperror.InvalidCell, "cellIndex is required")
	}

	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}

	return that.rooms.ApplyMove(ctx, req.RoomID, req.UserID, *req.CellIndex)
}

func (that *Server) handleState(ctx context.Context, _ *connection, payload json.RawMessage) (any, error) {
	var req roomPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}

	return that.rooms.GetRoom(ctx, req.RoomID)
}

func (that *Server) handleSubscribe(_ context.Context, conn *connection, payload json.RawMessage) (any, error) {
	var req roomPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}

	that.hub.Subscribe(req.RoomID, conn)

	return req, nil
}

func (that *Server) handleUnsubscribe(_ context.Context, conn *connection, payload json.RawMessage) (any, error) {
	var req roomPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}

	that.hub.Unsubscribe(req.RoomID, conn.id)

	return req, nil
}

// handleChat relays a message to the room with a server timestamp. Blank messages are dropped.
func (that *Server) handleChat(_ context.Context, _ *connection, payload json.RawMessage) (any, error) {
	var req chatPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Text) == "" {
		return nil, nil
	}

	now := that.now()
	message := entity.ChatMessage{
		RoomID:    req.RoomID,
		UserID:    req.UserID,
		Username:  req.Username,
		Text:      req.Text,
		Time:      now.Format("15:04"),
		Timestamp: now.UnixMilli(),
	}

	that.hub.Publish(entity.Event{Name: entity.EventChatMessage, RoomID: req.RoomID, Data: message})

	return message, nil
}
