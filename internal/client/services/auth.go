// Package services contains the page logic of the client: authentication,
// search, image generation and the dashboard.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/ace/internal/client/api"
	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/session"
	"github.com/dmitrijs2005/ace/internal/common"
	"github.com/dmitrijs2005/ace/internal/logging"
)

// MinPasswordLength is enforced on registration only.
const MinPasswordLength = 6

// SessionManager is the part of session.Manager the auth service drives.
type SessionManager interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password string) error
	Logout(ctx context.Context)
	State() session.State
	Claims() (session.Claims, error)
}

// Identity describes the logged-in user. User is nil when the backend could
// not be asked.
type Identity struct {
	State  session.State
	Claims session.Claims
	User   *models.User
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: validate input and authenticate via the session manager.
//   - Register: validate input, create the account and log into it.
//   - Logout: forget the session locally.
//   - WhoAmI: describe the current session, asking the backend when it can.
//   - Ping: check backend liveness.
type AuthService interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password, confirm string) error
	Logout(ctx context.Context)
	WhoAmI(ctx context.Context) (Identity, error)
	Ping(ctx context.Context) error
}

type authService struct {
	session SessionManager
	backend Backend
	logger  logging.Logger
}

func NewAuthService(s SessionManager, backend Backend, logger logging.Logger) AuthService {
	return &authService{session: s, backend: backend, logger: logger.With("service", "auth")}
}

func validationError(msg string) error {
	return &session.AuthError{Message: msg, Err: common.ErrValidation}
}

func (a *authService) Login(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return validationError("Email and password are required.")
	}
	return a.session.Login(ctx, email, password)
}

func (a *authService) Register(ctx context.Context, email, password, confirm string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return validationError("Email and password are required.")
	}
	if password != confirm {
		return validationError("Passwords do not match.")
	}
	if len(password) < MinPasswordLength {
		return validationError("Password must be at least 6 characters.")
	}
	return a.session.Register(ctx, email, password)
}

func (a *authService) Logout(ctx context.Context) {
	a.session.Logout(ctx)
}

// WhoAmI returns session.ErrNoSession when nobody is logged in. A backend
// failure other than an expired session is logged and leaves User nil.
func (a *authService) WhoAmI(ctx context.Context) (Identity, error) {
	st := a.session.State()
	if !st.IsAuthenticated() {
		return Identity{}, session.ErrNoSession
	}

	id := Identity{State: st}
	claims, err := a.session.Claims()
	if err != nil {
		a.logger.Debug(ctx, "token claims unreadable", "error", err)
	} else {
		id.Claims = claims
	}

	user, err := a.backend.Me(ctx)
	switch {
	case err == nil:
		id.User = &user
	case errors.Is(err, api.ErrSessionExpired):
		return Identity{}, err
	default:
		a.logger.Warn(ctx, "cannot fetch profile", "error", err)
	}
	return id, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.backend.Ping(ctx)
}
