package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/internal/webinars"
	"github.com/Israel70964/YadnusConsultant2/pkg/response"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is public and read-only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WebinarLookup loads the webinar a viewer subscribes to.
type WebinarLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
}

// Client is one viewer connection on a webinar's status feed.
type Client struct {
	ID        string
	WebinarID uuid.UUID
	hub       *Hub
	conn      *websocket.Conn
	send      chan WSMessage
}

// ServeWs handles GET /ws/webinars/:id: it upgrades the connection, sends a snapshot of the
// public webinar view and then streams stream_status and audience_count events.
func ServeWs(hub *Hub, lookup WebinarLookup, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		webinarID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid webinar id")
			return
		}
		w, err := lookup.GetByID(c.Request.Context(), webinarID)
		if errors.Is(err, webinars.ErrNotFound) {
			response.NotFound(c, "Webinar not found")
			return
		}
		if err != nil {
			logger.Error("load webinar for feed", zap.String("webinar_id", webinarID.String()), zap.Error(err))
			response.Internal(c, "failed to fetch webinar")
			return
		}
		snapshot, err := json.Marshal(w.Public())
		if err != nil {
			response.Internal(c, "failed to encode webinar")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.NewString(),
			WebinarID: webinarID,
			hub:       hub,
			conn:      conn,
			send:      make(chan WSMessage, 64),
		}
		client.send <- WSMessage{Event: EventSnapshot, Data: snapshot}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump only services control frames; viewers cannot send events.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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
