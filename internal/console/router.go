// Package console implements the gdprctl pages on top of the client SDK.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gdprdesk/internal/client"
	"gdprdesk/internal/domain/auth"
)

const LoginPath = "login"

var ErrForbidden = errors.New("forbidden: your role cannot open this page")

// Env is what a page runs against.
type Env struct {
	Client *client.Client
	Out    io.Writer
	Err    io.Writer
	Now    func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) session() *client.Session {
	return e.Client.Session()
}

func (e *Env) table() *tabwriter.Writer {
	return tabwriter.NewWriter(e.Out, 0, 4, 2, ' ', 0)
}

// Route binds a console path to a page. Roles empty means any signed-in
// user; Public pages need no session.
type Route struct {
	Path    string
	Summary string
	Public  bool
	Roles   []auth.Role
	Run     func(ctx context.Context, env *Env, args []string) error
}

func (r Route) allows(role auth.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

type Router struct {
	routes   map[string]Route
	fallback string
}

// NewRouter registers routes. fallback names the route used for unknown
// paths and for protected pages opened without a session.
func NewRouter(fallback string, routes ...Route) *Router {
	r := &Router{routes: make(map[string]Route, len(routes)), fallback: fallback}
	for _, route := range routes {
		r.routes[route.Path] = route
	}
	return r
}

func normalizePath(path string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(path)), "/")
}

// Redirect says why Resolve substituted the fallback route.
type Redirect int

const (
	NoRedirect Redirect = iota
	RedirectUnknownPage
	RedirectSignIn
)

// Resolve picks the route for path, substituting the fallback for unknown
// paths and for protected pages opened without a session.
func (r *Router) Resolve(path string, session *client.Session) (Route, Redirect, error) {
	route, ok := r.routes[normalizePath(path)]
	if !ok {
		return r.routes[r.fallback], RedirectUnknownPage, nil
	}
	if route.Public {
		return route, NoRedirect, nil
	}
	if session == nil || !session.IsAuthenticated() {
		return r.routes[r.fallback], RedirectSignIn, nil
	}
	user := session.User()
	if user == nil || !route.allows(user.Role) {
		return Route{}, NoRedirect, ErrForbidden
	}
	return route, NoRedirect, nil
}

// Dispatch resolves args[0] and runs the page with the remaining args. The
// args are dropped when another page is opened instead.
func (r *Router) Dispatch(ctx context.Context, env *Env, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		r.Usage(env.Out)
		return nil
	}
	route, redirect, err := r.Resolve(args[0], env.session())
	if err != nil {
		return err
	}
	rest := args[1:]
	switch redirect {
	case RedirectUnknownPage:
		fmt.Fprintf(env.Err, "%s: unknown page, opening %s\n", args[0], route.Path)
		rest = nil
	case RedirectSignIn:
		fmt.Fprintf(env.Err, "%s: sign in required, opening %s\n", args[0], route.Path)
		rest = nil
	}
	if route.Run == nil {
		return fmt.Errorf("no page registered for %q", args[0])
	}
	return route.Run(ctx, env, rest)
}

func (r *Router) Usage(w io.Writer) {
	paths := make([]string, 0, len(r.routes))
	for path := range r.routes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	fmt.Fprintln(w, "usage: gdprctl [-server URL] [-state FILE] <page> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, path := range paths {
		route := r.routes[path]
		roles := "any"
		switch {
		case route.Public:
			roles = "public"
		case len(route.Roles) > 0:
			names := make([]string, len(route.Roles))
			for i, role := range route.Roles {
				names[i] = string(role)
			}
			roles = strings.Join(names, ",")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", path, roles, route.Summary)
	}
	_ = tw.Flush()
}

// rolesWith lists the roles granted a capability.
func rolesWith(capability auth.Capability) []auth.Role {
	var out []auth.Role
	for _, role := range auth.Roles {
		if auth.Can(role, capability) {
			out = append(out, role)
		}
	}
	return out
}
