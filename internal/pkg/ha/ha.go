package ha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/anicoll/dash480-integration/internal/pkg/config"
)

var ErrAuthFailed = errors.New("host platform rejected access token")

// Client speaks the host platform's websocket API: auth, state snapshots,
// state-change event subscription and service calls. One client is shared
// by every panel service.
type Client struct {
	cfg     *config.HAConfig
	logger  *zap.Logger
	errChan chan error

	mu           sync.Mutex
	conn         *websocket.Conn
	nextID       int64
	pending      map[int64]chan serverMessage
	handlers     map[string]map[int64]func(Entity)
	nextHandler  int64
	states       map[string]Entity
	closed       bool
	disconnected chan struct{}
}

func New(cfg *config.HAConfig, errChan chan error) *Client {
	return &Client{
		cfg:      cfg,
		logger:   zap.L(),
		errChan:  errChan,
		pending:  make(map[int64]chan serverMessage),
		handlers: make(map[string]map[int64]func(Entity)),
		states:   make(map[string]Entity),
	}
}

// Run keeps the connection alive until the context ends, redialing after
// transport errors. Device state subscriptions survive reconnects.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.Connect(ctx); err != nil {
			if errors.Is(err, ErrAuthFailed) {
				return err
			}
			c.logger.Error("host platform connect failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				continue
			}
		}
		c.mu.Lock()
		done := c.disconnected
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			_ = c.Close()
			return ctx.Err()
		case <-done:
			c.logger.Warn("host platform connection lost, reconnecting")
		}
	}
}

// Connect dials, authenticates, subscribes to state_changed events and
// primes the local state cache.
func (c *Client) Connect(ctx context.Context) error {
	dialer := &websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	if err := c.authenticate(conn); err != nil {
		_ = conn.Close()
		return err
	}

	disconnected := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.disconnected = disconnected
	c.mu.Unlock()

	go c.readLoop(conn, disconnected)

	if _, err := c.request(ctx, commandMessage{Type: "subscribe_events", EventType: "state_changed"}); err != nil {
		_ = conn.Close()
		return err
	}
	states, err := c.GetStates(ctx)
	if err != nil {
		_ = conn.Close()
		return err
	}
	c.mu.Lock()
	for _, e := range states {
		c.states[e.EntityID] = e
	}
	c.mu.Unlock()
	c.logger.Info("host platform connected", zap.Int("entities", len(states)))
	return nil
}

func (c *Client) authenticate(conn *websocket.Conn) error {
	var hello serverMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return err
	}
	if hello.Type != "auth_required" {
		return fmt.Errorf("unexpected handshake message: %s", hello.Type)
	}
	if err := conn.WriteJSON(authMessage{Type: "auth", AccessToken: c.cfg.Token}); err != nil {
		return err
	}
	var reply serverMessage
	if err := conn.ReadJSON(&reply); err != nil {
		return err
	}
	if reply.Type != "auth_ok" {
		return fmt.Errorf("%w: %s", ErrAuthFailed, reply.Message)
	}
	return nil
}

// readLoop owns its connection's disconnected channel; a stale loop from a
// failed connect can never tear down a healthy successor. Requests waiting
// on this connection are failed on exit so redials are never wedged behind
// a reply that cannot arrive.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		for id, waiter := range c.pending {
			delete(c.pending, id)
			close(waiter)
		}
		c.mu.Unlock()
		close(done)
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.errChan <- err
			}
			return
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("undecodable host platform message", zap.Error(err))
			continue
		}
		switch msg.Type {
		case "result":
			c.mu.Lock()
			waiter, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if ok {
				waiter <- msg
			}
		case "event":
			c.handleEvent(msg.Event)
		}
	}
}

func (c *Client) handleEvent(event *eventMessage) {
	if event == nil || event.EventType != "state_changed" || event.Data.NewState == nil {
		return
	}
	entity := *event.Data.NewState
	c.mu.Lock()
	c.states[entity.EntityID] = entity
	callbacks := make([]func(Entity), 0, len(c.handlers[entity.EntityID]))
	for _, fn := range c.handlers[entity.EntityID] {
		callbacks = append(callbacks, fn)
	}
	c.mu.Unlock()
	for _, fn := range callbacks {
		fn(entity)
	}
}

func (c *Client) request(ctx context.Context, msg commandMessage) (json.RawMessage, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, errors.New("not connected")
	}
	c.nextID++
	msg.ID = c.nextID
	waiter := make(chan serverMessage, 1)
	c.pending[msg.ID] = waiter
	err := c.conn.WriteJSON(msg)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		return nil, ctx.Err()
	case reply, ok := <-waiter:
		if !ok {
			return nil, fmt.Errorf("connection lost awaiting %s reply", msg.Type)
		}
		if !reply.Success {
			return nil, fmt.Errorf("host platform rejected %s request", msg.Type)
		}
		return reply.Result, nil
	}
}

func (c *Client) GetStates(ctx context.Context) ([]Entity, error) {
	result, err := c.request(ctx, commandMessage{Type: "get_states"})
	if err != nil {
		return nil, err
	}
	var states []Entity
	if err := json.Unmarshal(result, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// Resolve returns the cached state for an entity. ok is false when the
// entity no longer exists in the host registry; callers render defaults.
func (c *Client) Resolve(entityID string) (Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.states[entityID]
	return e, ok
}

// OnStateChange registers a per-entity callback and returns its
// unsubscribe func. Handlers must not block.
func (c *Client) OnStateChange(entityID string, fn func(Entity)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandler++
	id := c.nextHandler
	if c.handlers[entityID] == nil {
		c.handlers[entityID] = make(map[int64]func(Entity))
	}
	c.handlers[entityID][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[entityID], id)
	}
}

func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	_, err := c.request(ctx, commandMessage{
		Type:        "call_service",
		Domain:      domain,
		Service:     service,
		ServiceData: data,
	})
	return err
}

// Toggle flips a switch/light/fan regardless of current state.
func (c *Client) Toggle(ctx context.Context, entityID string) error {
	domain, _, _ := strings.Cut(entityID, ".")
	return c.CallService(ctx, domain, "toggle", map[string]any{"entity_id": entityID})
}

func (c *Client) TurnOff(ctx context.Context, entityID string) error {
	domain, _, _ := strings.Cut(entityID, ".")
	return c.CallService(ctx, domain, "turn_off", map[string]any{"entity_id": entityID})
}

func (c *Client) SetFanPercentage(ctx context.Context, entityID string, pct int) error {
	return c.CallService(ctx, "fan", "set_percentage", map[string]any{
		"entity_id":  entityID,
		"percentage": pct,
	})
}

// TurnOnLight issues an on-with-color command: rgb when a triple is given,
// otherwise color temperature in kelvin.
func (c *Client) TurnOnLight(ctx context.Context, entityID string, rgb []int, kelvin int) error {
	data := map[string]any{"entity_id": entityID}
	if len(rgb) == 3 {
		data["rgb_color"] = rgb
	} else if kelvin > 0 {
		data["color_temp_kelvin"] = kelvin
	}
	return c.CallService(ctx, "light", "turn_on", data)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
