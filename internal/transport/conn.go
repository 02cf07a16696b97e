package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/bus"
	"github.com/velorahq/crewchat/internal/model"
)

// Handler receives one inbound push channel frame.
type Handler func(model.Frame)

// Conn owns a single websocket connection to the messaging push channel.
// It validates state transitions, runs a periodic liveness probe once
// connected, and retries a dropped connection up to a fixed ceiling
// before giving up. Sends while not connected are dropped with a warning.
type Conn struct {
	url    string
	token  string
	logger *zap.Logger
	bus    *bus.Bus

	pingInterval   time.Duration
	reconnectDelay time.Duration
	maxReconnects  int

	mu      sync.Mutex
	state   State
	ws      *websocket.Conn
	closing bool
	cancel  context.CancelFunc

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handlers  map[model.EventType][]handlerEntry
	nextID    int

	pingSentAt time.Time
	lastPongAt time.Time
}

type handlerEntry struct {
	id int
	fn Handler
}

// Option configures a Conn.
type Option func(*Conn)

// WithPingInterval overrides the liveness probe interval.
func WithPingInterval(d time.Duration) Option {
	return func(c *Conn) { c.pingInterval = d }
}

// WithReconnectPolicy overrides the reconnect attempt ceiling and the
// wait between attempts.
func WithReconnectPolicy(attempts int, delay time.Duration) Option {
	return func(c *Conn) {
		c.maxReconnects = attempts
		c.reconnectDelay = delay
	}
}

// WithBus publishes transport.connected / transport.disconnected events.
func WithBus(b *bus.Bus) Option {
	return func(c *Conn) { c.bus = b }
}

// New creates a push channel connection manager for the given endpoint.
func New(url, token string, logger *zap.Logger, opts ...Option) *Conn {
	c := &Conn{
		url:            url,
		token:          token,
		logger:         logger,
		state:          Disconnected,
		pingInterval:   30 * time.Second,
		reconnectDelay: 5 * time.Second,
		maxReconnects:  5,
		handlers:       make(map[model.EventType][]handlerEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the push channel. It returns once the channel is ready,
// or with an error on immediate failure. A liveness probe starts on success.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(Connecting)
	c.closing = false
	c.mu.Unlock()

	ws, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(Disconnected)
		c.mu.Unlock()
		return fmt.Errorf("connect push channel: %w", err)
	}

	c.adopt(ws)
	return nil
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	return ws, err
}

// adopt installs a freshly dialed websocket, moves to Connected, and
// starts the read and liveness loops.
func (c *Conn) adopt(ws *websocket.Conn) {
	loopCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.ws = ws
	c.cancel = cancel
	c.pingSentAt = time.Time{}
	c.lastPongAt = time.Time{}
	c.setStateLocked(Connected)
	c.mu.Unlock()

	c.logger.Info("push channel connected", zap.String("url", c.url))
	c.publish(bus.KindTransportUp)

	go c.readLoop(ws)
	go c.pingLoop(loopCtx, ws)
}

// Disconnect closes the channel for good. No reconnection is attempted.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	c.closing = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	ws := c.ws
	c.ws = nil
	if c.state != Disconnected {
		c.setStateLocked(Disconnected)
	}
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"),
			time.Now().Add(time.Second))
		_ = ws.Close()
	}
	c.publish(bus.KindTransportDown)
}

// Send marshals a frame and writes it to the channel. Delivery is
// fire-and-forget: when the channel is not connected the frame is
// dropped with a warning and no error reaches the caller.
func (c *Conn) Send(eventType model.EventType, payload any) {
	c.mu.Lock()
	ws := c.ws
	state := c.state
	c.mu.Unlock()

	if state != Connected || ws == nil {
		c.logger.Warn("send dropped, push channel not connected",
			zap.String("event", string(eventType)),
			zap.String("state", string(state)))
		return
	}

	if err := c.writeFrame(ws, eventType, payload); err != nil {
		c.logger.Warn("push channel write failed",
			zap.String("event", string(eventType)), zap.Error(err))
	}
}

func (c *Conn) writeFrame(ws *websocket.Conn, eventType model.EventType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	frame := model.Frame{Type: eventType, Payload: raw, Timestamp: time.Now().UTC()}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteMessage(websocket.TextMessage, data)
}

// Subscribe registers a handler for an inbound event type. Handlers for
// the same type run in registration order. The returned function removes
// exactly this handler.
func (c *Conn) Subscribe(eventType model.EventType, h Handler) func() {
	c.handlerMu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[eventType] = append(c.handlers[eventType], handlerEntry{id: id, fn: h})
	c.handlerMu.Unlock()

	return func() {
		c.handlerMu.Lock()
		entries := c.handlers[eventType]
		for i, e := range entries {
			if e.id == id {
				c.handlers[eventType] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
		c.handlerMu.Unlock()
	}
}

func (c *Conn) dispatch(frame model.Frame) {
	c.handlerMu.RLock()
	entries := append([]handlerEntry(nil), c.handlers[frame.Type]...)
	c.handlerMu.RUnlock()

	for _, e := range entries {
		e.fn(frame)
	}
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.handleClose(ws, err)
			return
		}

		var frame model.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}

		switch frame.Type {
		case model.EventPong:
			c.mu.Lock()
			c.lastPongAt = time.Now()
			c.mu.Unlock()
		case model.EventPing:
			// Server-originated probe; answer and keep it away from handlers.
			if err := c.writeFrame(ws, model.EventPong, struct{}{}); err != nil {
				c.logger.Warn("pong write failed", zap.Error(err))
			}
		default:
			c.dispatch(frame)
		}
	}
}

// pingLoop sends an application-level ping every interval. A ping that
// saw no pong by the next tick means the channel is silently dead, so
// the socket is closed to force the reconnect path.
func (c *Conn) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			missed := !c.pingSentAt.IsZero() && c.lastPongAt.Before(c.pingSentAt)
			c.mu.Unlock()

			if missed {
				c.logger.Warn("liveness probe missed pong, forcing reconnect")
				_ = ws.Close()
				return
			}

			if err := c.writeFrame(ws, model.EventPing, struct{}{}); err != nil {
				c.logger.Warn("ping write failed", zap.Error(err))
				continue
			}
			c.mu.Lock()
			c.pingSentAt = time.Now()
			c.mu.Unlock()
		}
	}
}

// handleClose runs when the read loop observes a channel error. Unless
// the close was requested via Disconnect, it retries the connection up
// to the ceiling and then gives up with a log line only; callers that
// still need the channel must call Connect again themselves.
func (c *Conn) handleClose(ws *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.closing || c.ws != ws {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.ws = nil
	c.setStateLocked(Reconnecting)
	c.mu.Unlock()

	_ = ws.Close()
	c.logger.Warn("push channel closed", zap.Error(cause))
	c.publish(bus.KindTransportDown)

	for attempt := 1; attempt <= c.maxReconnects; attempt++ {
		time.Sleep(c.reconnectDelay)

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		next, err := c.dial(ctx)
		cancel()
		if err != nil {
			c.logger.Warn("reconnect attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max", c.maxReconnects),
				zap.Error(err))
			continue
		}

		c.adopt(next)
		return
	}

	c.mu.Lock()
	c.setStateLocked(Disconnected)
	c.mu.Unlock()
	c.logger.Error("push channel reconnect attempts exhausted",
		zap.Int("attempts", c.maxReconnects))
}

func (c *Conn) setStateLocked(to State) {
	if !canTransition(c.state, to) {
		c.logger.Error("invalid transport state transition",
			zap.String("from", string(c.state)), zap.String("to", string(to)))
		return
	}
	c.state = to
}

func (c *Conn) publish(kind string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now()})
}
