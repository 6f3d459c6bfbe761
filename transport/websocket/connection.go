package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// connection - one websocket client. Frames are written only by writePump.
type connection struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(logger *slog.Logger, id string, conn *websocket.Conn, buffer int) *connection {
	return &connection{
		id:     id,
		conn:   conn,
		logger: logger.With("conn_id", id),
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

func (that *connection) ID() string {
	return that.id
}

// Enqueue implements broadcast.Subscriber.
func (that *connection) Enqueue(frame []byte) bool {
	select {
	case <-that.done:
		return false
	default:
	}

	select {
	case that.send <- frame:
		return true
	default:
		return false
	}
}

func (that *connection) close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}

// writePump drains send and pings the client every pingInterval.
func (that *connection) writePump(pingInterval time.Duration) {
	log := that.logger.With("method", "writePump")

	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case frame := <-that.send:
			if err := that.write(websocket.TextMessage, frame); err != nil {
				log.Debug("failed to write frame", "error", err)
				that.close()
				return
			}
		case <-ticker.C:
			if err := that.write(websocket.PingMessage, nil); err != nil {
				log.Debug("failed to ping", "error", err)
				that.close()
				return
			}
		case <-that.done:
			_ = that.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (that *connection) write(messageType int, data []byte) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return that.conn.WriteMessage(messageType, data)
}
