// Package session is the single source of truth for who is logged in and
// whether they are still allowed to be. It owns the bearer token, the user
// record, and the persisted copy of both, and re-validates the session on a
// fixed period while credentials are present.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/epitaphe360/shareyoursales-go/api"
	"github.com/epitaphe360/shareyoursales-go/credstore"
	interrors "github.com/epitaphe360/shareyoursales-go/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Status is the session lifecycle state. The only way back to StatusChecking
// is a fresh process start.
type Status string

const (
	StatusChecking Status = "checking"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
)

// DefaultVerifyInterval is the periodic re-validation cadence.
const DefaultVerifyInterval = 5 * time.Minute

// Session is a read-only view of the current authenticated state.
type Session struct {
	User   *api.User
	Token  string
	Status Status
}

// LoginResult is the outcome of a login attempt that did not fail outright.
// Either Session is populated, or TwoFactorRequired is set and TempToken
// carries the credential for the follow-up verification step.
type LoginResult struct {
	Session           *Session
	TwoFactorRequired bool
	TempToken         string
}

// Store owns the session. It is safe for concurrent use; the live channel
// and every data-fetching caller read it while the verify loop writes it.
type Store struct {
	mu             sync.RWMutex
	client         *api.Client
	creds          credstore.Store
	status         Status
	user           *api.User
	token          string
	verifyInterval time.Duration
	nowTime        func() time.Time
	listeners      map[int]func(Status)
	nextListenerID int
	logger         zerolog.Logger
}

var _ api.TokenSource = (*Store)(nil)

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithVerifyInterval overrides the periodic re-validation cadence.
func WithVerifyInterval(d time.Duration) StoreOption {
	return func(s *Store) {
		s.verifyInterval = d
	}
}

// NewStore initializes a session store in StatusChecking. Callers normally
// follow up with VerifySession to resolve the persisted credentials, then
// StartAutoVerify for the background loop.
func NewStore(client *api.Client, creds credstore.Store, logger zerolog.Logger, options ...StoreOption) (*Store, error) {
	if client == nil {
		return nil, pkgerrors.New("[NewStore] api client is required")
	}
	if creds == nil {
		return nil, pkgerrors.New("[NewStore] credential store is required")
	}

	s := &Store{
		client:         client,
		creds:          creds,
		status:         StatusChecking,
		verifyInterval: DefaultVerifyInterval,
		nowTime:        time.Now,
		listeners:      make(map[int]func(Status)),
		logger:         logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Status returns the current lifecycle state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// User returns the current user record, or nil when no session is active.
func (s *Store) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Session{Token: s.token, Status: s.status}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Login exchanges credentials for an active session. Both fields are
// required. A second-factor challenge is a success-shaped outcome, not an
// error, and persists nothing. On failure the server-provided message comes
// back as the error and the session is left untouched.
func (s *Store) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, interrors.ErrMissingCredentials
	}

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.logger.Debug().Str("email", email).Err(err).Msg("login failed")
		return nil, err
	}

	if resp.RequiresTwoFactor {
		s.logger.Info().Str("email", email).Msg("login requires second factor")
		return &LoginResult{TwoFactorRequired: true, TempToken: resp.TempToken}, nil
	}

	return s.establish(resp)
}

// VerifyTwoFactor completes a two-factor login using the temporary token
// from a previous Login call.
func (s *Store) VerifyTwoFactor(ctx context.Context, tempToken, code string) (*LoginResult, error) {
	if tempToken == "" || code == "" {
		return nil, interrors.ErrMissingCredentials
	}

	resp, err := s.client.VerifyTwoFactor(ctx, tempToken, code)
	if err != nil {
		return nil, err
	}
	return s.establish(resp)
}

// establish persists a successful login response and activates the session.
func (s *Store) establish(resp *api.LoginResponse) (*LoginResult, error) {
	if resp.AccessToken == "" || resp.User == nil {
		return nil, interrors.Wrapf(interrors.ErrDecodeResponse, "login response missing token or user")
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return nil, interrors.Wrapf(err, "marshal user record")
	}
	if err := s.creds.Save(credstore.Credentials{Token: resp.AccessToken, User: userJSON}); err != nil {
		return nil, interrors.Wrapf(err, "persist credentials")
	}

	s.mu.Lock()
	s.token = resp.AccessToken
	user := *resp.User
	s.user = &user
	s.mu.Unlock()
	s.setStatus(StatusActive)

	s.logger.Info().Str("userId", resp.User.ID).Str("role", string(resp.User.Role)).Msg("session established")
	snap := s.Current()
	return &LoginResult{Session: &snap}, nil
}

// VerifySession re-validates the persisted session against the backend.
// Missing or invalid credentials resolve to false with the session expired;
// transport failures degrade the same way rather than retrying. Safe to call
// repeatedly. The returned error is reserved for credential-store faults.
func (s *Store) VerifySession(ctx context.Context) (bool, error) {
	stored, err := s.creds.Load()
	if err != nil {
		if interrors.Is(err, interrors.ErrNoStoredCredentials) {
			s.expireLocal()
			return false, nil
		}
		if interrors.Is(err, interrors.ErrCorruptCredentials) {
			s.logger.Warn().Err(err).Msg("discarding corrupt stored credentials")
			if clearErr := s.creds.Clear(); clearErr != nil {
				return false, interrors.Wrapf(clearErr, "clear credentials")
			}
			s.expireLocal()
			return false, nil
		}
		return false, err
	}

	// A stored JWT whose expiry is already past cannot verify; skip the
	// round-trip. Opaque tokens fall through to the backend.
	if expired, ok := tokenExpired(stored.Token, s.nowTime()); ok && expired {
		s.logger.Debug().Msg("stored token already expired")
		if err := s.creds.Clear(); err != nil {
			return false, interrors.Wrapf(err, "clear credentials")
		}
		s.expireLocal()
		return false, nil
	}

	s.mu.Lock()
	s.token = stored.Token
	s.mu.Unlock()

	user, err := s.client.Me(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session verification failed")
		if clearErr := s.creds.Clear(); clearErr != nil {
			return false, interrors.Wrapf(clearErr, "clear credentials")
		}
		s.expireLocal()
		return false, nil
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return false, interrors.Wrapf(err, "marshal user record")
	}
	if err := s.creds.Save(credstore.Credentials{Token: stored.Token, User: userJSON}); err != nil {
		return false, interrors.Wrapf(err, "persist credentials")
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.setStatus(StatusActive)
	return true, nil
}

// RefreshSession is VerifySession, exposed for manual re-validation.
func (s *Store) RefreshSession(ctx context.Context) (bool, error) {
	return s.VerifySession(ctx)
}

// Logout tears the session down. The backend call is best-effort: a failure
// is logged and swallowed, local state is cleared regardless.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.client.Logout(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("logout endpoint failed, clearing local session anyway")
	}

	if err := s.creds.Clear(); err != nil {
		return interrors.Wrapf(err, "clear credentials")
	}
	s.expireLocal()
	s.logger.Info().Msg("session cleared")
	return nil
}

// StartAutoVerify runs the periodic re-validation loop until ctx is
// cancelled. Ticks are skipped while no session is established.
func (s *Store) StartAutoVerify(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.verifyInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.hasSession() {
					s.VerifySession(ctx) //nolint:errcheck // degrades to expired
				}
			}
		}
	}()
}

// OnChange registers a listener for status transitions and returns an
// unsubscribe function. Listeners run synchronously on the transitioning
// goroutine.
func (s *Store) OnChange(listener func(Status)) func() {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) hasSession() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

func (s *Store) expireLocal() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	s.setStatus(StatusExpired)
}

func (s *Store) setStatus(next Status) {
	s.mu.Lock()
	if s.status == next {
		s.mu.Unlock()
		return
	}
	prev := s.status
	s.status = next
	listeners := make([]func(Status), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	s.logger.Debug().Str("from", string(prev)).Str("to", string(next)).Msg("session status changed")
	for _, l := range listeners {
		l(next)
	}
}
