// Package ws serves the live print job feed over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Event is one frame on the feed.
type Event struct {
	Event string          `json:"event"`
	Job   entity.PrintJob `json:"job"`
}

// Hub fans job events out to every connected dashboard. Broadcasts never
// block the print path: when the buffer is full the event is dropped.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	log       *slog.Logger
}

func NewHub(l *slog.Logger) *Hub {
	if l == nil {
		l = logging.New("ws")
	}
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the POS dashboard is served from another local origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: l,
	}
}

// Run delivers queued broadcasts until ctx is done, then closes all clients.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg []byte) {
	h.mu.RLock()
	var dead []*websocket.Conn
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			dead = append(dead, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dead {
		h.remove(c)
	}
}

// PublishJob queues a job event for every client.
func (h *Hub) PublishJob(_ context.Context, job entity.PrintJob) error {
	b, err := json.Marshal(Event{Event: "print." + string(job.Status), Job: job})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- b:
	default:
		h.log.Warn("ws broadcast buffer full, dropping event", "job_id", job.ID)
	}
	return nil
}

// Serve upgrades the request and keeps the client registered until it hangs up.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.From(c).Warn("websocket upgrade failed", "error", err)
		return
	}
	h.add(conn)
	h.log.Info("job feed client connected", "clients", h.ClientsCount())
	defer func() {
		h.remove(conn)
		h.log.Info("job feed client disconnected", "clients", h.ClientsCount())
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("job feed read", "error", err)
			}
			return
		}
	}
}

func (h *Hub) ClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		_ = c.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
}
