package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sitesafety/internal/logger"
)

const (
	// clientBuffer is how many messages may queue for one viewer before it is dropped.
	clientBuffer = 16
	writeWait    = 10 * time.Second
)

// client is one connected viewer with its own writer goroutine.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// HubService fans display messages out to every connected viewer. Viewers that fall
// behind are disconnected instead of slowing the stream down.
type HubService struct {
	clients    map[*websocket.Conn]*client
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]*client),
		broadcast:  make(chan []byte, clientBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done, then
// disconnects every viewer.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn, c := range h.clients {
				delete(h.clients, conn)
				close(c.send)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.register:
			c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
			h.mutex.Lock()
			h.clients[conn] = c
			total := len(h.clients)
			h.mutex.Unlock()
			go h.writePump(c)
			h.logger.Info("Viewer connected. Total: %d", total)

		case conn := <-h.unregister:
			h.mutex.Lock()
			if c, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(c.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for conn, c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.logger.Warning("Viewer %s too slow, disconnecting", conn.RemoteAddr())
					delete(h.clients, conn)
					close(c.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// writePump writes queued messages to one viewer and closes the connection when its
// queue is closed or a write fails.
func (h *HubService) writePump(c *client) {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Error("Error sending message: %v", err)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// Register adds a viewer. It returns false once the hub has stopped.
func (h *HubService) Register(conn *websocket.Conn) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a viewer and closes its connection.
func (h *HubService) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Broadcast queues message for every viewer. It never blocks: when the hub is
// backed up the message is dropped, the next one replaces it on screen anyway.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// Send queues message for every viewer, waiting while the hub is backed up. It is
// meant for state changes, which must not be lost the way frames may be.
func (h *HubService) Send(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// GetClientCount returns the number of connected viewers.
func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
