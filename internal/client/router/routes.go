// Package router resolves view paths, gates protected views and tracks the
// current location of the client.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// View names a screen of the client.
type View string

const (
	ViewHome      View = "home"
	ViewLogin     View = "login"
	ViewRegister  View = "register"
	ViewSearch    View = "search"
	ViewImage     View = "image"
	ViewDashboard View = "dashboard"
	ViewEntry     View = "entry"
	ViewNotFound  View = "not-found"
)

const (
	PathHome      = "/"
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathSearch    = "/search"
	PathImage     = "/image"
	PathDashboard = "/dashboard"
)

// Route is a resolved location.
type Route struct {
	View      View
	Pattern   string
	Protected bool
	Params    map[string]string
}

type routeDef struct {
	view      View
	protected bool
}

// Table maps paths to views. Matching is delegated to a chi mux so patterns
// such as /dashboard/{type}/{id} behave exactly like server-side routes.
type Table struct {
	mux  *chi.Mux
	defs map[string]routeDef
}

func NewTable() *Table {
	t := &Table{mux: chi.NewRouter(), defs: make(map[string]routeDef)}

	t.add(PathHome, ViewHome, false)
	t.add(PathLogin, ViewLogin, false)
	t.add(PathRegister, ViewRegister, false)
	t.add(PathSearch, ViewSearch, false)
	t.add(PathImage, ViewImage, false)
	t.add(PathDashboard, ViewDashboard, true)
	t.add(PathDashboard+"/{type}/{id}", ViewEntry, true)

	return t
}

func (t *Table) add(pattern string, view View, protected bool) {
	t.defs[pattern] = routeDef{view: view, protected: protected}
	t.mux.Get(pattern, func(http.ResponseWriter, *http.Request) {})
}

// Resolve returns the route for p. Unknown paths resolve to ViewNotFound,
// which is public.
func (t *Table) Resolve(p string) Route {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, p) {
		return Route{View: ViewNotFound}
	}
	pattern := rctx.RoutePattern()
	def, ok := t.defs[pattern]
	if !ok {
		return Route{View: ViewNotFound}
	}

	r := Route{View: def.view, Pattern: pattern, Protected: def.protected}
	if n := len(rctx.URLParams.Keys); n > 0 {
		r.Params = make(map[string]string, n)
		for i, k := range rctx.URLParams.Keys {
			r.Params[k] = rctx.URLParams.Values[i]
		}
	}
	return r
}
