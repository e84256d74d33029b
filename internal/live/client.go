package live

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is the wire frame pushed to dashboard clients.
type WSMessage struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Client is a single dashboard websocket connection.
type Client struct {
	ID      string
	UserID  string
	EventID string
	conn    *websocket.Conn
	send    chan WSMessage
	hub     *Hub
	logger  *zap.Logger
}

// ServeWS upgrades GET /ws/events/:id to a dashboard connection. The JWT
// middleware runs before this, so the caller identity is on the context.
func (h *Hub) ServeWS(c *gin.Context) {
	eventID := c.Param("id")
	userID := c.MustGet(middleware.ContextUserID).(string)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:      utils.NewID(),
		UserID:  userID,
		EventID: eventID,
		conn:    conn,
		send:    make(chan WSMessage, 64),
		hub:     h,
		logger:  h.logger,
	}
	h.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so pings and close frames are processed.
// Dashboard clients do not send application messages.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("dashboard write failed", zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
