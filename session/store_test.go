package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/epitaphe360/shareyoursales-go/api"
	"github.com/epitaphe360/shareyoursales-go/cache"
	"github.com/epitaphe360/shareyoursales-go/credstore"
	"github.com/epitaphe360/shareyoursales-go/internal/errors"
	"github.com/epitaphe360/shareyoursales-go/session"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUserEmail    = "jane.doe@example.com"
	testUserPassword = "password123"
	testToken        = "opaque-token-1"
	testTempToken    = "temp-2fa-token"
	testUserID       = "user-1"
)

// fakeBackend scripts the auth endpoints for the store under test.
type fakeBackend struct {
	twoFactor   bool
	failLogout  bool
	rejectMe    bool
	meCalls     atomic.Int32
	logoutCalls atomic.Int32
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email != testUserEmail || req.Password != testUserPassword {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(api.ErrorResponse{Detail: "invalid email or password"})
			return
		}
		if b.twoFactor {
			json.NewEncoder(w).Encode(api.LoginResponse{RequiresTwoFactor: true, TempToken: testTempToken})
			return
		}
		json.NewEncoder(w).Encode(api.LoginResponse{AccessToken: testToken, User: testUser()})
	})

	mux.HandleFunc("/api/auth/verify-2fa", func(w http.ResponseWriter, r *http.Request) {
		var req api.TwoFactorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TempToken != testTempToken || req.Code != "123456" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(api.ErrorResponse{Detail: "invalid verification code"})
			return
		}
		json.NewEncoder(w).Encode(api.LoginResponse{AccessToken: testToken, User: testUser()})
	})

	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		b.meCalls.Add(1)
		if b.rejectMe || r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(api.ErrorResponse{Detail: "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(testUser())
	})

	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutCalls.Add(1)
		if b.failLogout {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func testUser() *api.User {
	return &api.User{ID: testUserID, Email: testUserEmail, Role: api.RoleInfluencer}
}

// testFixture holds all test dependencies
type testFixture struct {
	backend *fakeBackend
	server  *httptest.Server
	creds   *credstore.Memory
	store   *session.Store
}

func setupTestFixture(t *testing.T, backend *fakeBackend, options ...session.StoreOption) *testFixture {
	t.Helper()

	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	queryCache := cache.New(zerolog.Nop())
	client, err := api.NewClient(server.URL, queryCache, zerolog.Nop())
	require.NoError(t, err)

	creds := credstore.NewMemory()
	store, err := session.NewStore(client, creds, zerolog.Nop(), options...)
	require.NoError(t, err)
	client.SetTokenSource(store)

	return &testFixture{backend: backend, server: server, creds: creds, store: store}
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{})

	require.Equal(t, session.StatusChecking, f.store.Status())

	result, err := f.store.Login(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.False(t, result.TwoFactorRequired)
	require.NotNil(t, result.Session)
	require.Equal(t, session.StatusActive, f.store.Status())
	require.Equal(t, testToken, f.store.Token())
	require.Equal(t, testUserID, f.store.User().ID)

	stored, err := f.creds.Load()
	require.NoError(t, err)
	require.Equal(t, testToken, stored.Token)
}

func TestLoginMissingFields(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{})

	_, err := f.store.Login(context.Background(), "", testUserPassword)
	require.ErrorIs(t, err, errors.ErrMissingCredentials)

	_, err = f.store.Login(context.Background(), testUserEmail, "")
	require.ErrorIs(t, err, errors.ErrMissingCredentials)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{})

	_, err := f.store.Login(context.Background(), testUserEmail, "wrong")
	require.Error(t, err)

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "invalid email or password", apiErr.Message)

	// Session untouched: no persisted token, status unchanged.
	require.Equal(t, session.StatusChecking, f.store.Status())
	_, err = f.creds.Load()
	require.ErrorIs(t, err, errors.ErrNoStoredCredentials)
}

func TestLoginTwoFactorFlow(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{twoFactor: true})

	result, err := f.store.Login(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.True(t, result.TwoFactorRequired)
	require.Equal(t, testTempToken, result.TempToken)

	// Nothing persisted until the second factor succeeds.
	require.Equal(t, session.StatusChecking, f.store.Status())
	_, err = f.creds.Load()
	require.ErrorIs(t, err, errors.ErrNoStoredCredentials)

	completed, err := f.store.VerifyTwoFactor(context.Background(), result.TempToken, "123456")
	require.NoError(t, err)
	require.NotNil(t, completed.Session)
	require.Equal(t, session.StatusActive, f.store.Status())
}

func TestVerifySessionNoToken(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{})

	ok, err := f.store.VerifySession(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, session.StatusExpired, f.store.Status())
	require.Equal(t, int32(0), f.backend.meCalls.Load())
}

func TestVerifySessionIsIdempotent(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{})
	seedCredentials(t, f.creds, testToken)

	for i := 0; i < 2; i++ {
		ok, err := f.store.VerifySession(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, session.StatusActive, f.store.Status())
	}

	stored, err := f.creds.Load()
	require.NoError(t, err)
	var user api.User
	require.NoError(t, json.Unmarshal(stored.User, &user))
	require.Equal(t, testUserID, user.ID)
}

func TestVerifySessionFailureClearsCredentials(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{rejectMe: true})
	seedCredentials(t, f.creds, testToken)

	ok, err := f.store.VerifySession(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, session.StatusExpired, f.store.Status())
	require.Empty(t, f.store.Token())

	_, err = f.creds.Load()
	require.ErrorIs(t, err, errors.ErrNoStoredCredentials)
}

func TestVerifySessionSkipsBackendForExpiredJWT(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{})
	seedCredentials(t, f.creds, expiredJWT(t))

	ok, err := f.store.VerifySession(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, session.StatusExpired, f.store.Status())

	// The whole point: no who-am-I round-trip for a token that cannot verify.
	require.Equal(t, int32(0), f.backend.meCalls.Load())
}

func TestLogoutClearsDespiteBackendFailure(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{failLogout: true})

	_, err := f.store.Login(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)

	require.NoError(t, f.store.Logout(context.Background()))
	require.Equal(t, session.StatusExpired, f.store.Status())
	require.Empty(t, f.store.Token())
	require.Nil(t, f.store.User())

	_, err = f.creds.Load()
	require.ErrorIs(t, err, errors.ErrNoStoredCredentials)
	require.Equal(t, int32(1), f.backend.logoutCalls.Load())
}

func TestOnChangeNotifiesTransitions(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{})

	var mu sync.Mutex
	var transitions []session.Status
	unsubscribe := f.store.OnChange(func(s session.Status) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	})
	defer unsubscribe()

	_, err := f.store.Login(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.NoError(t, f.store.Logout(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []session.Status{session.StatusActive, session.StatusExpired}, transitions)
}

func TestAutoVerifyLoop(t *testing.T) {
	f := setupTestFixture(t, &fakeBackend{}, session.WithVerifyInterval(20*time.Millisecond))

	_, err := f.store.Login(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.store.StartAutoVerify(ctx)

	require.Eventually(t, func() bool {
		return f.backend.meCalls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, session.StatusActive, f.store.Status())
}

func seedCredentials(t *testing.T, creds *credstore.Memory, token string) {
	t.Helper()
	userJSON, err := json.Marshal(testUser())
	require.NoError(t, err)
	require.NoError(t, creds.Save(credstore.Credentials{Token: token, User: userJSON}))
}

func expiredJWT(t *testing.T) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": testUserID,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
