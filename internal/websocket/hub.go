package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Message types sent to dashboard clients
const (
	TypeConnection         = "connection"
	TypeEstimatesRefreshed = "estimates_refreshed"
	TypeRefreshFailed      = "refresh_failed"
	TypePong               = "pong"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	register   chan *Client
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	mutex sync.RWMutex

	logger *zerolog.Logger
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	conn *websocket.Conn

	// Buffered channel of outbound messages
	Send chan []byte

	ID       string
	ClientIP string

	Hub *Hub

	ConnectedAt time.Time

	// Guarded by pingMu; written by the read pump
	pingMu   sync.Mutex
	lastPing time.Time
}

// Message represents a generic WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	broadcastBuffer = 64
)

// MaxConnections is the number of dashboard clients considered healthy
const MaxConnections = 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Global(),
	}
}

// Run starts the hub's main loop until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mutex.Unlock()

	metrics.Get().IncrementWSConnection()

	h.logger.Info().
		Str("client_id", client.ID).
		Str("client_ip", client.ClientIP).
		Int("connections", total).
		Msg("WebSocket client registered")

	client.SendMessage(Message{
		Type:      TypeConnection,
		Data:      map[string]string{"status": "connected"},
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	h.removeLocked(client)

	h.logger.Info().
		Str("client_id", client.ID).
		Int("remaining_connections", len(h.clients)).
		Msg("WebSocket client unregistered")
}

// removeLocked drops a client; the caller holds the write lock
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	metrics.Get().DecrementWSConnection()
}

func (h *Hub) broadcastMessage(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		select {
		case client.Send <- message:
			metrics.Get().IncrementWSMessageOut()
		default:
			h.logger.Warn().
				Str("client_id", client.ID).
				Msg("Failed to send message to client, closing connection")
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		h.removeLocked(client)
	}
}

// Broadcast queues a typed message for every connected client.
// The message is dropped when the queue is full.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal broadcast message")
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn().Str("type", msgType).Msg("Broadcast queue full, message dropped")
	}
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Connections returns information about every connected client
func (h *Hub) Connections() []map[string]interface{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	infos := make([]map[string]interface{}, 0, len(h.clients))
	for client := range h.clients {
		infos = append(infos, client.GetConnectionInfo())
	}
	return infos
}
