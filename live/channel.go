// Package live maintains the long-lived server-push channel and translates
// the fixed event vocabulary into cache invalidations and notifications. It
// has no other side effects.
package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/epitaphe360/shareyoursales-go/cache"
	"github.com/epitaphe360/shareyoursales-go/notify"
	"github.com/epitaphe360/shareyoursales-go/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Reconnect defaults. The backoff is exponential with jitter and never gives
// up while the context is alive.
const (
	DefaultReconnectInitial = time.Second
	DefaultReconnectMax     = 30 * time.Second
)

type authenticateMessage struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	ClientID string `json:"client_id"`
}

// Channel is the live update connection. Construct with NewChannel, then
// Run it on its own goroutine; it redials with backoff until the context is
// cancelled.
type Channel struct {
	url      string
	sessions *session.Store
	cache    *cache.Cache
	notifier *notify.Center
	logger   zerolog.Logger
	clientID string

	dialer           *websocket.Dialer
	reconnectInitial time.Duration
	reconnectMax     time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[EventType]map[int]Handler
	nextID   int
}

// ChannelOption modifies a Channel at construction time.
type ChannelOption func(*Channel)

// WithReconnectIntervals overrides the reconnect backoff bounds.
func WithReconnectIntervals(initial, max time.Duration) ChannelOption {
	return func(c *Channel) {
		c.reconnectInitial = initial
		c.reconnectMax = max
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) ChannelOption {
	return func(c *Channel) {
		c.dialer = d
	}
}

func NewChannel(url string, sessions *session.Store, queryCache *cache.Cache, notifier *notify.Center, logger zerolog.Logger, options ...ChannelOption) (*Channel, error) {
	if url == "" {
		return nil, pkgerrors.New("[NewChannel] url is required")
	}
	if sessions == nil {
		return nil, pkgerrors.New("[NewChannel] session store is required")
	}
	if queryCache == nil {
		return nil, pkgerrors.New("[NewChannel] cache is required")
	}
	if notifier == nil {
		return nil, pkgerrors.New("[NewChannel] notification center is required")
	}

	c := &Channel{
		url:              url,
		sessions:         sessions,
		cache:            queryCache,
		notifier:         notifier,
		logger:           logger,
		clientID:         uuid.New().String(),
		dialer:           websocket.DefaultDialer,
		reconnectInitial: DefaultReconnectInitial,
		reconnectMax:     DefaultReconnectMax,
		handlers:         make(map[EventType]map[int]Handler),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// On registers a handler for one event type and returns an unsubscribe
// function. Subscriptions must be released when their owning scope goes
// away, or a stale closure keeps firing with the old user context.
func (c *Channel) On(event EventType, handler Handler) func() {
	c.mu.Lock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = handler
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers[event], id)
		c.mu.Unlock()
	}
}

// Run connects and serves the channel until ctx is cancelled, redialing
// with exponential backoff and jitter after every disconnect.
func (c *Channel) Run(ctx context.Context) error {
	// Re-send authenticate when a login happens while the channel is open.
	unsubscribe := c.sessions.OnChange(func(status session.Status) {
		if status == session.StatusActive {
			c.authenticate()
		}
	})
	defer unsubscribe()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.reconnectInitial
	policy.MaxInterval = c.reconnectMax
	policy.MaxElapsedTime = 0

	for {
		err := backoff.Retry(func() error {
			return c.connect(ctx)
		}, backoff.WithContext(policy, ctx))
		if err != nil {
			// Retry only stops when the context is done.
			return ctx.Err()
		}

		c.serve(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		policy.Reset()
	}
}

func (c *Channel) connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.logger.Warn().Str("url", c.url).Err(err).Msg("live channel dial failed")
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info().Str("url", c.url).Msg("live channel connected")
	c.notifier.Push(notify.Info, "Live updates connected", 0)
	c.authenticate()
	return nil
}

// serve reads frames until the connection drops, then tears it down. A
// server-initiated close surfaces as a warning notification; transport
// errors are logged only, reconnection is silent.
func (c *Channel) serve(ctx context.Context) {
	conn := c.currentConn()
	if conn == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.notifier.Push(notify.Warning, "Live updates disconnected", 0)
				} else {
					c.logger.Warn().Err(err).Msg("live channel read error")
				}
			}
			break
		}

		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.Error().Err(err).Msg("malformed live event")
			continue
		}
		c.dispatch(event)
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Channel) dispatch(event Event) {
	c.apply(event)

	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.handlers[event.Type]))
	for _, h := range c.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// authenticate announces the current user on the open connection. A no-op
// when no session or no connection exists.
func (c *Channel) authenticate() {
	user := c.sessions.User()
	if user == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}

	msg := authenticateMessage{Type: "authenticate", UserID: user.ID, ClientID: c.clientID}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn().Err(err).Msg("authenticate send failed")
		return
	}
	c.logger.Debug().Str("userId", user.ID).Msg("live channel authenticated")
}

func (c *Channel) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Channel) invalidate(keys ...cache.Key) {
	for _, key := range keys {
		c.cache.InvalidatePrefix(key)
	}
}
