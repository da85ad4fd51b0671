package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/ace/internal/client/api"
	"github.com/dmitrijs2005/ace/internal/client/router"
	"github.com/dmitrijs2005/ace/internal/client/session"
	"github.com/dmitrijs2005/ace/internal/common"
)

// getSimpleText, getPassword and confirm are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	confirm       = Confirm
)

// Register prompts for email, password and its confirmation, creates the
// account and logs into it. On success the client moves to the dashboard.
func (a *App) Register(ctx context.Context) error {
	a.nav.Redirect(router.Location{Path: router.PathRegister})

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	confirmation, err := getPassword(a.reader, "Repeat password", a.out)
	if err != nil {
		return err
	}

	a.asLocal(func() {
		err = a.authService.Register(ctx, email, password, confirmation)
	})
	if err != nil {
		a.report(ctx, "register", err)
		return err
	}

	a.nav.Visit(ctx, router.Location{Path: router.PathDashboard})
	a.notifier.Info("Account created. Logged in as %s.", roleLabel(a.session.Role()))
	return nil
}

// Login prompts for credentials and authenticates. On success the client
// returns to the view the guard interrupted, or the dashboard. On failure
// it stays on the login view.
func (a *App) Login(ctx context.Context) error {
	if a.nav.CurrentPath() != router.PathLogin {
		a.nav.Redirect(router.Location{Path: router.PathLogin})
	}
	target := a.nav.AfterLogin()

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}

	a.asLocal(func() {
		err = a.authService.Login(ctx, email, password)
	})
	if err != nil {
		a.report(ctx, "login", err)
		return err
	}

	a.nav.Visit(ctx, target)
	a.notifier.Info("Logged in as %s.", roleLabel(a.session.Role()))
	return nil
}

// Logout forgets the session here and in every other window.
func (a *App) Logout(ctx context.Context) error {
	a.asLocal(func() {
		a.authService.Logout(ctx)
	})
	a.nav.Redirect(router.Location{Path: router.PathLogin})
	a.notifier.Info("Logged out.")
	return nil
}

// WhoAmI prints the current identity.
func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.authService.WhoAmI(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			a.notifier.Info("Not logged in.")
			return nil
		}
		a.report(ctx, "whoami", err)
		return err
	}

	if id.User != nil {
		a.notifier.Info("%s (%s, id %d)", id.User.Email, id.User.Role, id.User.ID)
	} else {
		a.notifier.Info("Logged in as %s (profile unavailable offline)", roleLabel(id.State.Role))
	}
	if !id.Claims.ExpiresAt.IsZero() {
		a.notifier.Info("Session valid until %s", id.Claims.ExpiresAt.Local().Format(time.DateTime))
	}
	return nil
}

// checkRedirect notices moves to the login view that happened outside the
// user's control: a 401 answered by the API client, or a protected view
// whose session went away meanwhile.
func (a *App) checkRedirect(ctx context.Context) bool {
	if a.nav.TakeForced() {
		a.notifier.Notice("Your session has expired. Please log in again.")
		return true
	}
	if d := a.nav.Recheck(ctx); !d.Allowed {
		a.notifier.Notice("Please log in to continue to %s.", d.Redirect.From.Path)
		return true
	}
	return false
}

// report turns err into a banner. Expired sessions are left to
// checkRedirect.
func (a *App) report(ctx context.Context, op string, err error) {
	a.logger.Debug(ctx, "command failed", "command", op, "error", err)

	var authErr *session.AuthError
	switch {
	case errors.As(err, &authErr):
		a.notifier.Error("%s", authErr.Message)
	case errors.Is(err, api.ErrSessionExpired):
	case errors.Is(err, api.ErrNetwork):
		a.notifier.Error("Cannot reach the server. Please try again.")
	case api.Message(err) != "":
		a.notifier.Error("%s", api.Message(err))
	case errors.Is(err, common.ErrNotFound):
		a.notifier.Error("Not found.")
	case errors.Is(err, common.ErrUnauthorized):
		a.notifier.Error("You are not allowed to do that.")
	default:
		a.notifier.Error("%s failed: %v", op, err)
	}
}
