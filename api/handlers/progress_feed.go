package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/videold-go/internal/app"
	"go.uber.org/zap"
)

const (
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressFeed streams orchestrator snapshots to websocket clients
type ProgressFeed struct {
	orch    *app.Orchestrator
	logger  *zap.Logger
	clients map[*feedClient]struct{}
	mu      sync.RWMutex
}

// feedClient holds at most one undelivered snapshot. A newer snapshot replaces it, so a slow
// client skips intermediate states but always receives the latest one.
type feedClient struct {
	mu      sync.Mutex
	pending []byte
	wake    chan struct{}
}

func newFeedClient() *feedClient {
	return &feedClient{wake: make(chan struct{}, 1)}
}

// offer replaces the pending snapshot and wakes the writer
func (c *feedClient) offer(data []byte) {
	c.mu.Lock()
	c.pending = data
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// take returns and clears the pending snapshot
func (c *feedClient) take() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.pending
	c.pending = nil
	return data
}

// NewProgressFeed creates a feed and subscribes it to orchestrator updates
func NewProgressFeed(orch *app.Orchestrator, log *zap.Logger) *ProgressFeed {
	f := &ProgressFeed{
		orch:    orch,
		logger:  log,
		clients: make(map[*feedClient]struct{}),
	}
	orch.OnUpdate(f.Broadcast)
	return f
}

// HandleWebSocket handles GET /api/v1/ws
func (f *ProgressFeed) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	client := newFeedClient()
	f.mu.Lock()
	f.clients[client] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, client)
		f.mu.Unlock()
	}()

	f.logger.Info("WebSocket client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	initial, err := json.Marshal(f.orch.Snapshot())
	if err != nil {
		f.logger.Error("Failed to marshal snapshot", zap.Error(err))
		return
	}
	if err := f.write(conn, websocket.TextMessage, initial); err != nil {
		return
	}

	// Read messages from client so close frames and pongs are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.wake:
			data := client.take()
			if data == nil {
				continue
			}
			if err := f.write(conn, websocket.TextMessage, data); err != nil {
				f.logger.Debug("Failed to send snapshot", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := f.write(conn, websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			f.logger.Info("WebSocket client disconnected", zap.String("remote_addr", c.Request.RemoteAddr))
			return
		}
	}
}

// Broadcast hands a snapshot to every connected client without blocking on slow writers
func (f *ProgressFeed) Broadcast(snap app.Snapshot) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.clients) == 0 {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		f.logger.Error("Failed to marshal snapshot for broadcast", zap.Error(err))
		return
	}

	for client := range f.clients {
		client.offer(data)
	}
}

// Clients returns the number of connected clients
func (f *ProgressFeed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *ProgressFeed) write(conn *websocket.Conn, messageType int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}
