// Package notify holds the user-facing notification set raised by the live
// update channel and by direct client actions. Notifications with a positive
// duration dismiss themselves once it elapses.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Type classifies a notification for presentation.
type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Info    Type = "info"
	Warning Type = "warning"
)

// DefaultDuration applies when Push is called with duration zero.
const DefaultDuration = 5 * time.Second

// Notification is a single user-facing message.
type Notification struct {
	ID        string        `json:"id"`
	Type      Type          `json:"type"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Listener receives every notification as it is pushed.
type Listener func(Notification)

// Center owns the active notification set.
type Center struct {
	mu        sync.Mutex
	active    map[string]Notification
	timers    map[string]*time.Timer
	listeners map[int]Listener
	nextID    int
	nowTime   func() time.Time
	logger    zerolog.Logger
}

// CenterOption modifies a Center at construction time.
type CenterOption func(*Center)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CenterOption {
	return func(c *Center) {
		c.nowTime = nowFunc
	}
}

func NewCenter(logger zerolog.Logger, options ...CenterOption) *Center {
	c := &Center{
		active:    make(map[string]Notification),
		timers:    make(map[string]*time.Timer),
		listeners: make(map[int]Listener),
		nowTime:   time.Now,
		logger:    logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Push adds a notification to the active set and schedules its auto-dismiss.
// A zero duration uses DefaultDuration; a negative duration pins the
// notification until explicitly dismissed.
func (c *Center) Push(t Type, message string, duration time.Duration) Notification {
	if duration == 0 {
		duration = DefaultDuration
	}

	n := Notification{
		ID:        uuid.New().String(),
		Type:      t,
		Message:   message,
		Duration:  duration,
		CreatedAt: c.nowTime(),
	}

	c.mu.Lock()
	c.active[n.ID] = n
	if duration > 0 {
		id := n.ID
		c.timers[id] = time.AfterFunc(duration, func() {
			c.Dismiss(id)
		})
	}
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	c.logger.Debug().Str("id", n.ID).Str("type", string(t)).Str("message", message).Msg("notification pushed")

	for _, l := range listeners {
		l(n)
	}
	return n
}

// Dismiss removes a notification before its duration elapses. Dismissing an
// unknown or already-dismissed id is a no-op.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
	delete(c.active, id)
}

// Active returns a snapshot of the live notification set, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.active))
	for _, n := range c.active {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Subscribe registers a listener for future notifications and returns an
// unsubscribe function.
func (c *Center) Subscribe(l Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}
