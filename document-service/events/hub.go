package events

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Event types broadcast over the websocket stream
const (
	TypeDocumentCreated  = "document.created"
	TypeDocumentUpdated  = "document.updated"
	TypeDocumentDeleted  = "document.deleted"
	TypeVersionCreated   = "version.created"
	TypeVersionRestored  = "version.restored"
	TypeProcessingStart  = "processing.started"
	TypeProgressReported = "progress.reported"
)

// Event is a document lifecycle notification pushed to connected clients
type Event struct {
	Type       string      `json:"type"`
	DocumentID string      `json:"document_id"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Hub fans document lifecycle events out to websocket subscribers. All
// methods are nil-safe so the service layer can publish unconditionally.
type Hub struct {
	mutex      sync.RWMutex
	clients    map[*websocket.Conn]struct{}
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	upgrader   websocket.Upgrader
}

// NewHub creates the hub and starts its event loop
func NewHub(allowedOrigins []string) *Hub {
	hub := &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		broadcast:  make(chan Event, 256),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mutex.Lock()
			h.clients[conn] = struct{}{}
			h.mutex.Unlock()
			log.Printf("websocket client connected (total: %d)", h.clientCount())

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case event := <-h.broadcast:
			h.mutex.RLock()
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					go func(c *websocket.Conn) { h.unregister <- c }(conn)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) clientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Publish queues an event for broadcast; drops when the buffer is full so a
// slow consumer can never stall a request handler.
func (h *Hub) Publish(eventType, documentID string, payload interface{}) {
	if h == nil {
		return
	}
	event := Event{
		Type:       eventType,
		DocumentID: documentID,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("event buffer full, dropping %s for %s", eventType, documentID)
	}
}

// Handler upgrades the request and registers the connection. Incoming frames
// are read and discarded; the stream is push-only.
func (h *Hub) Handler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
