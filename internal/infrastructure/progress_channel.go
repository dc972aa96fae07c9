package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourusername/videold-go/internal/domain"
	"go.uber.org/zap"
)

const (
	eventJoin     = "join"
	eventProgress = "progress"

	defaultSocketPath = "/ws"
)

// ErrChannelDisconnected is returned by Join while no connection is up.
// Rooms are rejoined by the OnConnect hooks once the connection returns.
var ErrChannelDisconnected = errors.New("progress channel not connected")

// WSConn is the subset of a websocket connection the channel uses
type WSConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// WSDialer opens websocket connections
type WSDialer interface {
	Dial(ctx context.Context, rawURL string) (WSConn, error)
}

type gorillaDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer wraps a gorilla websocket dialer
func NewWebsocketDialer(dialer *websocket.Dialer) WSDialer {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &gorillaDialer{dialer: dialer}
}

func (d *gorillaDialer) Dial(ctx context.Context, rawURL string) (WSConn, error) {
	conn, _, err := d.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// channelMessage is the envelope for every frame in both directions
type channelMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type subscription struct {
	id      uint64
	handler domain.ProgressHandler
}

// ProgressChannel is a single persistent push connection with per-transfer handler routing.
// It holds no domain state; handlers correlate events to sessions.
type ProgressChannel struct {
	url            string
	dialer         WSDialer
	reconnectDelay time.Duration
	logger         *zap.Logger

	mu       sync.Mutex
	conn     WSConn
	handlers map[string][]subscription
	nextID   uint64
	hooks    []func()

	writeMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewProgressChannel creates a progress channel for the given endpoint. Call Start to connect.
func NewProgressChannel(endpoint string, dialer WSDialer, reconnectDelay time.Duration, logger *zap.Logger) (*ProgressChannel, error) {
	wsURL, err := websocketURL(endpoint)
	if err != nil {
		return nil, err
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	return &ProgressChannel{
		url:            wsURL,
		dialer:         dialer,
		reconnectDelay: reconnectDelay,
		logger:         logger,
		handlers:       make(map[string][]subscription),
	}, nil
}

// Start launches the connection loop. It returns immediately; the loop reconnects until Close.
func (c *ProgressChannel) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx)
}

// Close stops the connection loop and waits for it to exit
func (c *ProgressChannel) Close() error {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return nil
	}
	// serve checks ctx under the same lock before publishing conn
	c.cancel()
	done, conn := c.done, c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	<-done
	return nil
}

// Connected reports whether a connection is currently up
func (c *ProgressChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Join announces interest in a transfer's room on the current connection
func (c *ProgressChannel) Join(transferID string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrChannelDisconnected
	}

	data, err := json.Marshal(transferID)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(channelMessage{Event: eventJoin, Data: data}); err != nil {
		return fmt.Errorf("join room %s: %w", transferID, err)
	}

	c.logger.Debug("Joined progress room", zap.String("transfer_id", transferID))
	return nil
}

// Subscribe registers a handler for a transfer's events
func (c *ProgressChannel) Subscribe(transferID string, handler domain.ProgressHandler) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[transferID] = append(c.handlers[transferID], subscription{id: id, handler: handler})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(transferID, id) })
	}
}

// OnConnect registers a hook run after every (re)connection
func (c *ProgressChannel) OnConnect(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

func (c *ProgressChannel) unsubscribe(transferID string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.handlers[transferID]
	for i, s := range subs {
		if s.id == id {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(c.handlers, transferID)
		return
	}
	c.handlers[transferID] = subs
}

func (c *ProgressChannel) run(ctx context.Context) {
	defer close(c.done)

	for {
		conn, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("Progress channel connect failed",
				zap.String("url", c.url),
				zap.Duration("retry_in", c.reconnectDelay),
				zap.Error(err))
		} else {
			c.serve(ctx, conn)
			if ctx.Err() != nil {
				return
			}
		}

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// serve owns one connection until it fails or the channel is closed
func (c *ProgressChannel) serve(ctx context.Context, conn WSConn) {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	hooks := append([]func(){}, c.hooks...)
	c.mu.Unlock()

	c.logger.Info("Progress channel connected", zap.String("url", c.url))

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	for _, hook := range hooks {
		hook()
	}

	for {
		var msg channelMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Progress channel disconnected", zap.Error(err))
			}
			return
		}
		if msg.Event != eventProgress {
			continue
		}

		var ev domain.ProgressEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.logger.Debug("Ignoring malformed progress event", zap.Error(err))
			continue
		}
		c.dispatch(ev)
	}
}

func (c *ProgressChannel) dispatch(ev domain.ProgressEvent) {
	c.mu.Lock()
	subs := append([]subscription(nil), c.handlers[ev.TransferID]...)
	c.mu.Unlock()

	for _, s := range subs {
		s.handler(ev)
	}
}

// websocketURL maps an http(s) endpoint to ws(s), defaulting the path to /ws
func websocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid progress endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported progress endpoint scheme: %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = defaultSocketPath
	}
	return u.String(), nil
}
