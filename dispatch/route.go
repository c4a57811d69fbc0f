package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Route stores information to match a request and build URLs.
type Route struct {
	pattern *pathPattern
	methods []string
	handler http.Handler
	name    string
	err     error

	namedRoutes map[string]*Route
	strictSlash bool

	staticCtx     *routeContext
	staticCtxOnce sync.Once
}

// Match matches this route against the request. The match distinguishes a
// path that never matched from a path that matched with the wrong method,
// so the router can answer 405 instead of 404.
func (r *Route) Match(req *http.Request, match *RouteMatch) bool {
	if r.err != nil || r.pattern == nil {
		return false
	}

	if !r.pattern.match(req.URL.Path) {
		return false
	}

	if len(r.methods) > 0 && !matchInArray(r.methods, req.Method) {
		match.MatchErr = ErrMethodMismatch
		return false
	}

	match.Route = r
	match.Handler = r.handler
	match.MatchErr = nil

	if len(r.pattern.varsN) > 0 {
		if match.Vars == nil {
			match.Vars = make(map[string]string, len(r.pattern.varsN))
		}
		r.pattern.setVars(req.URL.Path, match.Vars)
	}

	return true
}

// Handler sets a handler for the route.
func (r *Route) Handler(handler http.Handler) *Route {
	if r.err == nil {
		r.handler = handler
	}
	return r
}

// HandlerFunc sets a handler function for the route.
func (r *Route) HandlerFunc(f func(http.ResponseWriter, *http.Request)) *Route {
	return r.Handler(http.HandlerFunc(f))
}

// GetHandler returns the handler for the route, if any.
func (r *Route) GetHandler() http.Handler {
	return r.handler
}

// Name sets the name for the route, used to build URLs. Names must be unique
// within a router: registering a name twice is an error, never a silent
// overwrite, because reverse lookup would otherwise resolve to whichever
// route happened to register last.
func (r *Route) Name(name string) *Route {
	if r.name != "" {
		r.err = fmt.Errorf("dispatch: route already has name %q, can't set %q", r.name, name)
		return r
	}
	if r.err == nil {
		if _, taken := r.namedRoutes[name]; taken {
			r.err = fmt.Errorf("dispatch: duplicate route name %q", name)
			return r
		}
		r.name = name
		if r.namedRoutes != nil {
			r.namedRoutes[name] = r
		}
	}
	return r
}

// GetName returns the name for the route, if any.
func (r *Route) GetName() string {
	return r.name
}

// Methods restricts the route to the given HTTP methods. A route without a
// method restriction matches every method.
func (r *Route) Methods(methods ...string) *Route {
	upper := make([]string, len(methods))
	for i, m := range methods {
		upper[i] = strings.ToUpper(m)
	}
	r.methods = upper
	return r
}

// GetMethods returns the methods the route matches against, or nil when the
// route is unrestricted.
func (r *Route) GetMethods() []string {
	return r.methods
}

// URLPath builds a concrete path for the route. It accepts a sequence of
// key/value pairs for the route variables. Returns an error if a variable is
// missing or its value does not match the variable's pattern.
func (r *Route) URLPath(pairs ...string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if r.pattern == nil {
		return "", errors.New("dispatch: route doesn't have a path")
	}
	values, err := mapFromPairs(pairs...)
	if err != nil {
		return "", err
	}
	return r.pattern.build(values)
}

// PathTemplate returns the template for the route path, if defined.
func (r *Route) PathTemplate() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if r.pattern == nil {
		return "", errors.New("dispatch: route doesn't have a path")
	}
	return r.pattern.template, nil
}

// PathRegexp returns the compiled regexp for the route path, if defined.
func (r *Route) PathRegexp() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if r.pattern == nil {
		return "", errors.New("dispatch: route doesn't have a path")
	}
	return r.pattern.regexp.String(), nil
}

// VarNames returns the variable names for the route in declaration order.
func (r *Route) VarNames() []string {
	if r.pattern == nil {
		return nil
	}
	return r.pattern.varsN
}

// GetError returns any error that was set on the route during registration.
func (r *Route) GetError() error {
	return r.err
}

// matchInArray returns true if the given string value is in the array.
func matchInArray(arr []string, value string) bool {
	for _, v := range arr {
		if v == value {
			return true
		}
	}
	return false
}

// mapFromPairs converts variadic string parameters to a string map.
func mapFromPairs(pairs ...string) (map[string]string, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dispatch: number of parameters must be multiple of 2, got %v", pairs)
	}
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m, nil
}
