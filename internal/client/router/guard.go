package router

import (
	"context"

	"github.com/dmitrijs2005/ace/internal/logging"
)

// SessionView is the read side of the session manager the guard consults.
type SessionView interface {
	Ready() bool
	IsAuthenticated() bool
}

// TokenReader reads the persisted token directly.
type TokenReader interface {
	Get(ctx context.Context) (string, bool)
}

// Decision is the outcome of a guard check. When Allowed is false, Redirect
// is the login location carrying the requested one in From.
type Decision struct {
	Route    Route
	Allowed  bool
	Redirect *Location
	// ByFallback is true when the session manager could not vouch for the
	// user and the persisted token decided instead.
	ByFallback bool
}

// Guard gates protected views. It holds no state of its own.
type Guard struct {
	table   *Table
	session SessionView
	tokens  TokenReader
	logger  logging.Logger
}

func NewGuard(table *Table, session SessionView, tokens TokenReader, logger logging.Logger) *Guard {
	return &Guard{table: table, session: session, tokens: tokens, logger: logger.With("component", "guard")}
}

// Check decides whether loc may be rendered. Public routes are always
// allowed. For protected routes the session manager is asked first; if it is
// missing, not yet hydrated or reports no session, the persisted token is
// consulted as a best-effort safety net. Startup hydrates the session
// synchronously, so the fallback only matters if that ever regresses or a
// foreign login has not been polled yet.
func (g *Guard) Check(ctx context.Context, loc Location) Decision {
	route := g.table.Resolve(loc.Path)
	if !route.Protected {
		return Decision{Route: route, Allowed: true}
	}

	if g.session != nil && g.session.Ready() && g.session.IsAuthenticated() {
		return Decision{Route: route, Allowed: true}
	}

	if g.tokens != nil {
		if _, ok := g.tokens.Get(ctx); ok {
			g.logger.Debug(ctx, "guard allowed by persisted token", "path", loc.Path)
			return Decision{Route: route, Allowed: true, ByFallback: true}
		}
	}

	from := loc
	from.From = nil
	return Decision{
		Route:    route,
		Allowed:  false,
		Redirect: &Location{Path: PathLogin, From: &from},
	}
}
