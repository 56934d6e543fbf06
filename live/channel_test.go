package live_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/epitaphe360/shareyoursales-go/api"
	"github.com/epitaphe360/shareyoursales-go/cache"
	"github.com/epitaphe360/shareyoursales-go/credstore"
	"github.com/epitaphe360/shareyoursales-go/live"
	"github.com/epitaphe360/shareyoursales-go/notify"
	"github.com/epitaphe360/shareyoursales-go/session"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    = "user-42"
	testUserEmail = "lea@example.com"
	testPassword  = "password123"
	testToken     = "live-test-token"
)

type authFrame struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	ClientID string `json:"client_id"`
}

// wsBackend is a scripted websocket endpoint that records authenticate
// frames and can push events to the connected client.
type wsBackend struct {
	upgrader websocket.Upgrader
	frames   chan authFrame

	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSBackend() *wsBackend {
	return &wsBackend{frames: make(chan authFrame, 8)}
}

func (b *wsBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	for {
		var frame authFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type == "authenticate" {
			b.frames <- frame
		}
	}
}

func (b *wsBackend) push(t *testing.T, event live.Event) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotNil(t, b.conn)
	require.NoError(t, b.conn.WriteJSON(event))
}

// testFixture holds all test dependencies
type testFixture struct {
	ws            *wsBackend
	cache         *cache.Cache
	notifier      *notify.Center
	store         *session.Store
	channel       *live.Channel
	notifications chan notify.Notification
	cancel        context.CancelFunc
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	// Minimal REST backend for login.
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.LoginResponse{
			AccessToken: testToken,
			User:        &api.User{ID: testUserID, Email: testUserEmail, Role: api.RoleInfluencer},
		})
	})
	restServer := httptest.NewServer(mux)
	t.Cleanup(restServer.Close)

	ws := newWSBackend()
	wsServer := httptest.NewServer(ws)
	t.Cleanup(wsServer.Close)
	wsURL := "ws" + strings.TrimPrefix(wsServer.URL, "http")

	queryCache := cache.New(zerolog.Nop())
	client, err := api.NewClient(restServer.URL, queryCache, zerolog.Nop())
	require.NoError(t, err)

	store, err := session.NewStore(client, credstore.NewMemory(), zerolog.Nop())
	require.NoError(t, err)
	client.SetTokenSource(store)

	notifier := notify.NewCenter(zerolog.Nop())
	notifications := make(chan notify.Notification, 32)
	notifier.Subscribe(func(n notify.Notification) {
		notifications <- n
	})

	channel, err := live.NewChannel(wsURL, store, queryCache, notifier, zerolog.Nop(),
		live.WithReconnectIntervals(10*time.Millisecond, 50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go channel.Run(ctx)

	return &testFixture{
		ws:            ws,
		cache:         queryCache,
		notifier:      notifier,
		store:         store,
		channel:       channel,
		notifications: notifications,
		cancel:        cancel,
	}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	_, err := f.store.Login(context.Background(), testUserEmail, testPassword)
	require.NoError(t, err)
}

func (f *testFixture) waitNotification(t *testing.T, match func(notify.Notification) bool) notify.Notification {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-f.notifications:
			if match(n) {
				return n
			}
		case <-deadline:
			t.Fatal("timed out waiting for notification")
		}
	}
}

func (f *testFixture) waitAuthFrame(t *testing.T) authFrame {
	t.Helper()
	select {
	case frame := <-f.ws.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for authenticate frame")
		return authFrame{}
	}
}

func TestConnectRaisesInfoNotification(t *testing.T) {
	f := setupTestFixture(t)

	n := f.waitNotification(t, func(n notify.Notification) bool {
		return n.Type == notify.Info && strings.Contains(n.Message, "connected")
	})
	require.Equal(t, notify.Info, n.Type)
}

func TestAuthenticateSentOnLoginAfterOpen(t *testing.T) {
	f := setupTestFixture(t)

	// Channel is open but no session exists yet: no frame may arrive.
	select {
	case frame := <-f.ws.frames:
		t.Fatalf("unexpected authenticate frame before login: %+v", frame)
	case <-time.After(100 * time.Millisecond):
	}

	f.login(t)

	frame := f.waitAuthFrame(t)
	require.Equal(t, "authenticate", frame.Type)
	require.Equal(t, testUserID, frame.UserID)
	require.NotEmpty(t, frame.ClientID)
}

func TestNoTokenAtLoadNeverAuthenticates(t *testing.T) {
	f := setupTestFixture(t)

	ok, err := f.store.VerifySession(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, session.StatusExpired, f.store.Status())

	select {
	case frame := <-f.ws.frames:
		t.Fatalf("unexpected authenticate frame without a session: %+v", frame)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCommissionCreatedEndToEnd(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.waitAuthFrame(t)

	f.cache.Set(cache.CommissionsKey(), []api.Commission{})
	f.cache.Set(cache.DashboardStatsKey("influencer"), &api.DashboardStats{})

	f.ws.push(t, live.Event{Type: live.EventCommissionCreated, Data: live.EventData{Amount: 42}})

	n := f.waitNotification(t, func(n notify.Notification) bool {
		return n.Type == notify.Success && strings.Contains(n.Message, "42")
	})
	require.Equal(t, 10*time.Second, n.Duration)

	require.Eventually(t, func() bool {
		return f.cache.IsStale(cache.CommissionsKey()) &&
			f.cache.IsStale(cache.DashboardStatsKey("influencer"))
	}, time.Second, 5*time.Millisecond)
}

func TestPaymentStatusChangedBranches(t *testing.T) {
	cases := []struct {
		status string
		want   notify.Type
	}{
		{api.PaymentCompleted, notify.Success},
		{api.PaymentFailed, notify.Warning},
		{"processing", notify.Info},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			f := setupTestFixture(t)
			f.login(t)
			f.waitAuthFrame(t)

			f.cache.Set(cache.PaymentsKey(), []api.Payment{})
			f.cache.Set(cache.PaymentByIDKey("pay-1"), &api.Payment{ID: "pay-1"})

			f.ws.push(t, live.Event{
				Type: live.EventPaymentStatusChanged,
				Data: live.EventData{ID: "pay-1", Status: tc.status},
			})

			n := f.waitNotification(t, func(n notify.Notification) bool {
				return strings.Contains(n.Message, "pay-1")
			})
			require.Equal(t, tc.want, n.Type)

			require.Eventually(t, func() bool {
				return f.cache.IsStale(cache.PaymentsKey()) &&
					f.cache.IsStale(cache.PaymentByIDKey("pay-1"))
			}, time.Second, 5*time.Millisecond)
		})
	}
}

func TestPaymentCreatedInvalidatesBalance(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.waitAuthFrame(t)

	f.cache.Set(cache.PaymentsKey(), []api.Payment{})
	f.cache.Set(cache.AffiliateBalanceKey(testUserID), &api.Balance{})

	f.ws.push(t, live.Event{Type: live.EventPaymentCreated, Data: live.EventData{Amount: 120.5}})

	f.waitNotification(t, func(n notify.Notification) bool {
		return n.Type == notify.Success && strings.Contains(n.Message, "120.5")
	})

	require.Eventually(t, func() bool {
		return f.cache.IsStale(cache.PaymentsKey()) &&
			f.cache.IsStale(cache.AffiliateBalanceKey(testUserID))
	}, time.Second, 5*time.Millisecond)
}

func TestDashboardUpdateInvalidatesWithoutNotification(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.waitAuthFrame(t)

	f.cache.Set(cache.DashboardKey(), &api.Dashboard{})
	f.cache.Set(cache.DashboardStatsKey("influencer"), &api.DashboardStats{})

	f.ws.push(t, live.Event{Type: live.EventDashboardUpdate})

	require.Eventually(t, func() bool {
		return f.cache.IsStale(cache.DashboardKey()) &&
			f.cache.IsStale(cache.DashboardStatsKey("influencer"))
	}, time.Second, 5*time.Millisecond)

	// Drain: no dashboard notification beyond the connection banner.
	for {
		select {
		case n := <-f.notifications:
			require.NotContains(t, n.Message, "dashboard")
		default:
			return
		}
	}
}

func TestHandlerSubscribeAndUnsubscribe(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.waitAuthFrame(t)

	seen := make(chan live.Event, 4)
	unsubscribe := f.channel.On(live.EventSaleCreated, func(e live.Event) {
		seen <- e
	})

	f.ws.push(t, live.Event{Type: live.EventSaleCreated, Data: live.EventData{Amount: 10}})
	select {
	case e := <-seen:
		require.Equal(t, float64(10), e.Data.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not invoked")
	}

	unsubscribe()
	f.ws.push(t, live.Event{Type: live.EventSaleCreated, Data: live.EventData{Amount: 11}})
	select {
	case e := <-seen:
		t.Fatalf("handler invoked after unsubscribe: %+v", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.waitAuthFrame(t)

	// Drop the connection server-side; the channel must redial and
	// re-authenticate on its own.
	f.ws.mu.Lock()
	f.ws.conn.Close()
	f.ws.mu.Unlock()

	frame := f.waitAuthFrame(t)
	require.Equal(t, testUserID, frame.UserID)
}
