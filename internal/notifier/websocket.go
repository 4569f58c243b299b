package notifier

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Observers never send payloads; anything larger than a control frame is dropped
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// envelope is the WebSocket frame for one hub message
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsConn pairs a hub client with its WebSocket connection
type wsConn struct {
	hub    *Hub
	client *Client
	conn   *websocket.Conn
	logger *slog.Logger
}

// ServeWS upgrades the request and streams hub messages as JSON text frames
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &wsConn{
		hub:    hub,
		client: NewClient(TransportWebSocket),
		conn:   conn,
		logger: hub.logger,
	}
	if !hub.Register(c.client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "notifier closed"))
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump drains control frames so pongs are processed, and unregisters on disconnect
func (c *wsConn) readPump() {
	defer func() {
		c.hub.Unregister(c.client)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump writes hub messages and keepalive pings to the connection
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.client.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			frame, err := json.Marshal(envelope{Event: string(message.Event), Data: message.Data})
			if err != nil {
				c.logger.Error("websocket encode failed", slog.String("error", err.Error()))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
