package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/ace/internal/common"
	"github.com/dmitrijs2005/ace/internal/logging"
)

// LoginPath is where a 401 sends the user.
const LoginPath = "/login"

// TokenSource is the slice of the token store the client needs.
type TokenSource interface {
	Get(ctx context.Context) (string, bool)
	Clear(ctx context.Context)
}

// Navigator moves the current view.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// authTransport attaches the bearer token to every request and turns any 401
// into a cleared token store plus a move to the login view. Credential
// exchange paths are exempt from the 401 handling: a 401 there is a wrong
// password, not an expired session.
type authTransport struct {
	base         http.RoundTripper
	tokens       TokenSource
	nav          Navigator
	exempt       map[string]bool
	unauthorized func(ctx context.Context)
	logger       logging.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if token, ok := t.tokens.Get(ctx); ok {
		req = req.Clone(ctx)
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !t.exempt[req.URL.Path] {
		t.logger.Info(ctx, "backend rejected credentials, clearing session",
			"method", req.Method, "path", req.URL.Path)
		t.tokens.Clear(ctx)
		if t.unauthorized != nil {
			t.unauthorized(ctx)
		}
		if t.nav != nil && t.nav.CurrentPath() != LoginPath {
			t.nav.Navigate(LoginPath)
		}
	}
	return resp, nil
}
