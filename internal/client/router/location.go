package router

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Location is a navigable view address. From is set on the login view when
// the user was sent there by the guard, so login can return to it.
type Location struct {
	Path  string
	Query url.Values
	From  *Location
}

// ParseLocation accepts "/path?query". A missing leading slash is added and
// trailing slashes are dropped.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{Path: "/"}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("invalid location %q: %w", raw, err)
	}
	if u.Scheme != "" || u.Host != "" {
		return Location{}, fmt.Errorf("invalid location %q: must be a path", raw)
	}
	p := path.Clean("/" + u.Path)
	loc := Location{Path: p}
	if u.RawQuery != "" {
		loc.Query = u.Query()
	}
	return loc, nil
}

// MustLocation is ParseLocation for literals known to be valid.
func MustLocation(raw string) Location {
	loc, err := ParseLocation(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}
