package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/broadcast"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/session"
)

type roomService interface {
	JoinRoom(ctx context.Context, roomID, userID string, seat entity.Seat) (*entity.Room, error)
	LeaveRoom(ctx context.Context, roomID, userID string) (*entity.Room, error)
	Disconnect(ctx context.Context, roomID, userID string) (*entity.Room, error)
	ApplyMove(ctx context.Context, roomID, userID string, cell int) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type hub interface {
	Subscribe(roomID string, subscriber broadcast.Subscriber)
	Unsubscribe(roomID, subscriberID string)
	UnsubscribeAll(subscriberID string)
	Publish(event entity.Event)
}

type handlerFunc func(ctx context.Context, conn *connection, payload json.RawMessage) (any, error)

type Options struct {
	SendBuffer    int
	PingInterval  time.Duration
	PongWait      time.Duration
	AllowedOrigin string
}

type Server struct {
	logger   *slog.Logger
	rooms    roomService
	hub      hub
	sessions *session.Registry
	options  Options
	upgrader websocket.Upgrader
	now      func() time.Time

	handlers map[string]handlerFunc
	srv      *http.Server
}

func New(logger *slog.Logger, rooms roomService, hub hub, sessions *session.Registry, options Options) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		rooms:    rooms,
		hub:      hub,
		sessions: sessions,
		options:  options,
		now:      time.Now,

		handlers: make(map[string]handlerFunc),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.handlers["room:join"] = server.handleJoin
	server.handlers["room:leave"] = server.handleLeave
	server.handlers["room:move"] = server.handleMove
	server.handlers["room:state"] = server.handleState
	server.handlers["room:subscribe"] = server.handleSubscribe
	server.handlers["room:unsubscribe"] = server.handleUnsubscribe
	server.handlers["room:chat:send"] = server.handleChat

	return server
}

// Handler - the http handler serving /ws.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(port string) error {
	that.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := that.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if that.srv == nil {
		return nil
	}

	return that.srv.Shutdown(ctx)
}

func (that *Server) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")

	return origin == "" || that.options.AllowedOrigin == "*" || origin == that.options.AllowedOrigin
}

// serveWS - upgrades the connection to WebSocket and runs it until the client goes away.
func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	wsConn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(that.logger, uuid.NewString(), wsConn, that.options.SendBuffer)

	log.Info("WebSocket connection established", "conn_id", conn.id)

	go conn.writePump(that.options.PingInterval)

	that.readPump(conn)
}

// readPump - processes messages from the client, then cleans up after it.
func (that *Server) readPump(conn *connection) {
	log := that.logger.With("method", "readPump", "conn_id", conn.id)

	defer that.disconnect(conn)

	conn.conn.SetReadLimit(maxMessageSize)
	if err := conn.conn.SetReadDeadline(time.Now().Add(that.options.PongWait)); err != nil {
		log.Error("failed to set read deadline", "error", err)
		return
	}

	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(that.options.PongWait))
	})

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			that.reply(conn, Message{Event: "error"}, nil, apperror.New(apperror.InvalidInput, "malformed frame"))
			continue
		}

		handler, ok := that.handlers[message.Event]
		if !ok {
			that.reply(conn, message, nil, apperror.New(apperror.InvalidInput, "unknown event %q", message.Event))
			continue
		}

		result, err := handler(context.Background(), conn, message.Payload)
		that.reply(conn, message, result, err)
	}
}

// disconnect runs the implicit leave before dropping subscriptions, so the room hears about it.
func (that *Server) disconnect(conn *connection) {
	log := that.logger.With("method", "disconnect", "conn_id", conn.id)

	binding, err := that.sessions.Release(context.Background(), conn.id, that.rooms)
	if err != nil && !errors.Is(err, apperror.ErrNotInRoom) && !errors.Is(err, apperror.ErrRoomNotFound) {
		log.Error("failed to leave room on disconnect", "room_id", binding.RoomID, "error", err)
	}

	that.hub.UnsubscribeAll(conn.id)
	conn.close()

	log.Info("WebSocket connection closed")
}

func (that *Server) reply(conn *connection, message Message, data any, err error) {
	response := Response{
		Event:   message.Event,
		AckID:   message.AckID,
		Success: err == nil,
		Data:    data,
	}

	if err != nil {
		response.Data = nil
		response.Error = that.errorBody(message.Event, err)
	}

	frame, err := json.Marshal(response)
	if err != nil {
		that.logger.Error("failed to marshal response", "event", message.Event, "error", err)
		return
	}

	if !conn.Enqueue(frame) {
		that.logger.Warn("response dropped, connection is too slow", "conn_id", conn.id, "event", message.Event)
	}
}

func (that *Server) errorBody(event string, err error) *ErrorBody {
	kind := apperror.KindOf(err)
	if kind == apperror.InternalError {
		that.logger.Error("request failed", "event", event, "error", err)
		return &ErrorBody{ErrorType: kind.String(), Info: "internal server error"}
	}

	return &ErrorBody{ErrorType: kind.String(), Info: apperror.Detail(err)}
}
