package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

const (
	clientSendBuffer = 16
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
)

// wsClient is one websocket subscriber.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts today summaries to websocket subscribers. New
// subscribers receive the latest summary immediately.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    []byte
	closed  bool
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
	}
}

// Publish sends summary to every subscriber. Slow subscribers whose
// buffer is full are disconnected.
func (h *Hub) Publish(summary domain.TodaySummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		h.logger.Warn("failed to encode summary", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = payload
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Debug("dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API only listens on loopback.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams summaries until either side
// closes the connection.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}
	if !h.register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}

	// Reader goroutine: subscribers send nothing, but reading detects disconnects.
	go func() {
		defer h.unregister(client)
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(readTimeout / 2)
	defer func() {
		ping.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ domain.SummaryPublisher = (*Hub)(nil)
