package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// UserClient is one live connection plus the cached profile snapshot the
// registry serves in onlineUsers broadcasts.
type UserClient struct {
	UserId   string
	Snapshot PresenceSnapshot

	hub    IHub
	conn   *websocket.Conn
	send   chan []byte
	log    *zap.SugaredLogger
	closed chan struct{}
}

func NewClient(userId string, snapshot PresenceSnapshot, hub IHub, conn *websocket.Conn, log *zap.SugaredLogger) *UserClient {
	return &UserClient{
		UserId:   userId,
		Snapshot: snapshot,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		log:      log,
		closed:   make(chan struct{}),
	}
}

// closeSend is idempotent; the hub calls it whenever the entry is evicted.
func (c *UserClient) closeSend() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
		close(c.send)
	}
}

// ReadPump reads frames off the connection and hands them to handler in
// arrival order. It unregisters the client when the connection dies.
func (c *UserClient) ReadPump(handler func(data []byte)) {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warnw("unexpected close", "userId", c.UserId, "error", err)
			}
			return
		}
		handler(data)
	}
}

func (c *UserClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
