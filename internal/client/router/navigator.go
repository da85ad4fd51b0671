package router

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/ace/internal/logging"
)

// Navigator owns the current location of the process.
type Navigator struct {
	mu      sync.Mutex
	current Location
	history []Location
	forced  bool
	table   *Table
	guard   *Guard
	logger  logging.Logger
}

func NewNavigator(table *Table, start Location, logger logging.Logger) *Navigator {
	return &Navigator{table: table, current: start, logger: logger.With("component", "navigator")}
}

// SetGuard installs the guard used by Visit. It is set after construction
// because the guard depends on the session, which depends on the API client,
// which in turn needs the navigator.
func (n *Navigator) SetGuard(g *Guard) {
	n.mu.Lock()
	n.guard = g
	n.mu.Unlock()
}

func (n *Navigator) Current() Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Navigator) CurrentPath() string {
	return n.Current().Path
}

// Navigate moves to path without consulting the guard. It is the forced move
// used by the API client on a 401; TakeForced reports it once.
func (n *Navigator) Navigate(path string) {
	loc, err := ParseLocation(path)
	if err != nil {
		n.logger.Warn(context.Background(), "ignoring navigation to invalid path", "path", path, "error", err)
		return
	}
	n.mu.Lock()
	n.moveLocked(loc, true)
	n.forced = true
	n.mu.Unlock()
	n.logger.Debug(context.Background(), "forced navigation", "path", loc.Path)
}

// TakeForced reports whether a forced navigation happened since the last
// call, and clears the flag.
func (n *Navigator) TakeForced() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	f := n.forced
	n.forced = false
	return f
}

// Redirect replaces the current location without a guard check.
func (n *Navigator) Redirect(loc Location) {
	n.mu.Lock()
	n.moveLocked(loc, true)
	n.mu.Unlock()
}

func (n *Navigator) moveLocked(loc Location, push bool) {
	if push && n.current.String() != loc.String() {
		n.history = append(n.history, n.current)
	}
	n.current = loc
}

// Visit moves to loc if the guard allows it, otherwise to the login view
// with loc remembered in From.
func (n *Navigator) Visit(ctx context.Context, loc Location) Decision {
	return n.visit(ctx, loc, true)
}

func (n *Navigator) visit(ctx context.Context, loc Location, push bool) Decision {
	n.mu.Lock()
	g := n.guard
	n.mu.Unlock()

	var d Decision
	if g == nil {
		d = Decision{Route: n.table.Resolve(loc.Path), Allowed: true}
	} else {
		d = g.Check(ctx, loc)
	}

	target := loc
	if !d.Allowed {
		n.logger.Info(ctx, "protected view requires login", "path", loc.Path)
		target = *d.Redirect
	}
	n.mu.Lock()
	n.moveLocked(target, push)
	n.mu.Unlock()
	return d
}

// Recheck runs the guard against the current location again, redirecting to
// login if the session went away meanwhile.
func (n *Navigator) Recheck(ctx context.Context) Decision {
	cur := n.Current()
	if cur.Path == PathLogin {
		return Decision{Route: n.table.Resolve(cur.Path), Allowed: true}
	}
	return n.visit(ctx, cur, false)
}

// AfterLogin is where a successful login should go: the location the guard
// interrupted, or the dashboard.
func (n *Navigator) AfterLogin() Location {
	cur := n.Current()
	if cur.From != nil {
		return *cur.From
	}
	return Location{Path: PathDashboard}
}

// Back returns to the previous location, or home when there is none.
func (n *Navigator) Back(ctx context.Context) Decision {
	n.mu.Lock()
	prev := Location{Path: PathHome}
	if len(n.history) > 0 {
		prev = n.history[len(n.history)-1]
		n.history = n.history[:len(n.history)-1]
	}
	n.mu.Unlock()

	return n.visit(ctx, prev, false)
}
