// Package session owns the in-memory authentication state of the process and
// keeps it in step with the persisted token store.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/ace/internal/client/api"
	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/tokenstore"
	"github.com/dmitrijs2005/ace/internal/common"
	"github.com/dmitrijs2005/ace/internal/logging"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	fallbackLoginMessage    = "Invalid credentials."
	fallbackRegisterMessage = "Registration failed."
	missingFieldsMessage    = "Email and password are required."
)

// State is a snapshot of the session. Role is empty whenever Token is.
type State struct {
	Token string
	Role  Role
}

func (s State) IsAuthenticated() bool {
	return s.Token != ""
}

// AuthError is a rejected login or registration. Message is safe to show.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func newAuthError(err error, fallback string) *AuthError {
	msg := api.Message(err)
	if msg == "" || errors.Is(err, api.ErrNetwork) {
		msg = fallback
	}
	return &AuthError{Message: msg, Err: err}
}

// TokenStore is what the manager needs from the persisted token slots.
type TokenStore interface {
	Get(ctx context.Context) (string, bool)
	Role(ctx context.Context) (string, bool)
	Set(ctx context.Context, token, role string)
	Clear(ctx context.Context)
	OnChange(fn func(tokenstore.Change)) func()
}

// Authenticator is the backend side of login and registration.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (models.TokenResponse, error)
	Register(ctx context.Context, email, password string) error
}

// Manager is the single writer of session state. Readers take snapshots via
// State or follow changes via Subscribe.
type Manager struct {
	tokens TokenStore
	auth   Authenticator
	logger logging.Logger

	mu    sync.RWMutex
	token string
	role  Role
	ready bool

	subsMu sync.Mutex
	subs   map[int]func(State)
	nextID int

	unsubscribe func()
}

// NewManager hydrates the session from tokens before returning, so the
// first guard check already sees a persisted login.
func NewManager(ctx context.Context, tokens TokenStore, auth Authenticator, logger logging.Logger) *Manager {
	m := &Manager{
		tokens: tokens,
		auth:   auth,
		logger: logger.With("component", "session"),
		subs:   make(map[int]func(State)),
	}

	token, _ := tokens.Get(ctx)
	role, _ := tokens.Role(ctx)
	m.mu.Lock()
	m.token, m.role, m.ready = token, Role(role), true
	m.mu.Unlock()

	m.unsubscribe = tokens.OnChange(m.handleChange)
	m.logger.Debug(ctx, "session hydrated", "authenticated", token != "", "role", role)
	return m
}

// Ready reports whether hydration finished. It is safe on a nil Manager.
func (m *Manager) Ready() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	if m.token == "" {
		return State{}
	}
	return State{Token: m.token, Role: m.role}
}

func (m *Manager) IsAuthenticated() bool {
	if m == nil {
		return false
	}
	return m.State().IsAuthenticated()
}

func (m *Manager) Role() Role {
	return m.State().Role
}

// Login authenticates against the backend. On success the token store and
// memory are both updated before it returns. On failure the existing session
// is left as it was and an *AuthError is returned.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return &AuthError{Message: missingFieldsMessage, Err: common.ErrValidation}
	}

	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.logger.Info(ctx, "login rejected", "email", email, "error", err)
		return newAuthError(err, fallbackLoginMessage)
	}
	if resp.AccessToken == "" {
		return &AuthError{Message: fallbackLoginMessage, Err: common.ErrUnauthorized}
	}

	m.tokens.Set(ctx, resp.AccessToken, resp.Role)
	m.set(resp.AccessToken, Role(resp.Role))
	m.logger.Info(ctx, "logged in", "email", email, "role", resp.Role)
	return nil
}

// Register creates the account and then logs into it.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return &AuthError{Message: missingFieldsMessage, Err: common.ErrValidation}
	}

	if err := m.auth.Register(ctx, email, password); err != nil {
		m.logger.Info(ctx, "registration rejected", "email", email, "error", err)
		return newAuthError(err, fallbackRegisterMessage)
	}
	return m.Login(ctx, email, password)
}

// Logout forgets the session locally. It makes no network call and may be
// called any number of times.
func (m *Manager) Logout(ctx context.Context) {
	m.tokens.Clear(ctx)
	if m.set("", "") {
		m.logger.Info(ctx, "logged out")
	}
}

// Expire drops the in-memory session after the backend rejected the token.
// The token store has already been cleared by then. Safe on a nil Manager.
func (m *Manager) Expire(ctx context.Context) {
	if m == nil {
		return
	}
	if m.set("", "") {
		m.logger.Info(ctx, "session expired")
	}
}

// Subscribe registers fn for every state change, local or foreign.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.subsMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

// Close detaches the manager from the token store.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// handleChange applies a foreign token store change. A removed token also
// drops the role.
func (m *Manager) handleChange(c tokenstore.Change) {
	m.mu.Lock()
	before := m.stateLocked()
	switch c.Key {
	case common.KeyAuthToken:
		if c.Present {
			m.token = c.Value
		} else {
			m.token, m.role = "", ""
		}
	case common.KeyAuthRole:
		if c.Present {
			m.role = Role(c.Value)
		} else {
			m.role = ""
		}
	}
	after := m.stateLocked()
	m.mu.Unlock()

	if before != after {
		m.logger.Info(context.Background(), "session changed by another process",
			"authenticated", after.IsAuthenticated(), "role", after.Role)
		m.notify(after)
	}
}

// set replaces the state and reports whether it changed.
func (m *Manager) set(token string, role Role) bool {
	m.mu.Lock()
	before := m.stateLocked()
	m.token, m.role = token, role
	if token == "" {
		m.role = ""
	}
	after := m.stateLocked()
	m.mu.Unlock()

	if before == after {
		return false
	}
	m.notify(after)
	return true
}

func (m *Manager) notify(s State) {
	m.subsMu.Lock()
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// Claims is what the client can read from its own token. It is decoded
// without signature verification and is for display only.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// ErrNoSession is returned by Claims when nobody is logged in.
var ErrNoSession = errors.New("not logged in")

func (m *Manager) Claims() (Claims, error) {
	st := m.State()
	if !st.IsAuthenticated() {
		return Claims{}, ErrNoSession
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(st.Token, mc); err != nil {
		return Claims{}, err
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	if r, ok := mc["role"].(string); ok {
		c.Role = r
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
