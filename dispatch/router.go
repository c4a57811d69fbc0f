package dispatch

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Router registers routes to be matched and dispatches a handler.
//
// It implements the http.Handler interface, so it can be registered to serve
// requests:
//
//	r := dispatch.NewRouter()
//	r.HandleFunc("/", handler)
//	http.ListenAndServe(":8080", r)
//
// The route table is built once at startup; registration is not safe for
// concurrent use, dispatch is.
type Router struct {
	// NotFoundHandler is called when no route matches.
	// If nil, http.NotFoundHandler() is used.
	NotFoundHandler http.Handler

	// MethodNotAllowedHandler is called when a route matches the path but
	// not the method. If nil, a default 405 handler is used. The Allow
	// header is always set before this handler is invoked.
	MethodNotAllowedHandler http.Handler

	routes      []*Route
	namedRoutes map[string]*Route
	middlewares []MiddlewareFunc

	// handlerCache caches the middleware-wrapped handler per route
	// to avoid re-wrapping on every request.
	handlerCache sync.Map // map[*Route]http.Handler

	strictSlash bool
}

// NewRouter returns a new router instance.
func NewRouter() *Router {
	return &Router{
		namedRoutes: make(map[string]*Route),
	}
}

// ServeHTTP dispatches the handler registered in the matched route.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Normalize the request path per RFC 3986 Section 5.2.4
	// (removing dot segments).
	if cleaned := cleanPath(req.URL.Path); cleaned != req.URL.Path {
		u := *req.URL
		u.Path = cleaned
		u.RawPath = ""
		req = req.Clone(req.Context())
		req.URL = &u
	}

	var match RouteMatch
	var handler http.Handler

	if r.Match(req, &match) {
		handler = match.Handler
		if handler == nil {
			handler = defaultNotFoundHandler
		}
		req = setRouteContext(req, match.Route, match.Vars)
	} else {
		if match.methodNotAllowed {
			// RFC 9110 Section 15.5.6: a 405 response must carry an Allow
			// header listing the methods the target resource supports.
			w.Header().Set("Allow", strings.Join(r.allowedMethods(req.URL.Path), ", "))
			handler = r.MethodNotAllowedHandler
			if handler == nil {
				handler = defaultMethodNotAllowedHandler
			}
		} else {
			handler = r.NotFoundHandler
			if handler == nil {
				handler = defaultNotFoundHandler
			}
		}
	}

	// Apply strict slash redirect if needed.
	if match.Route != nil && match.Route.strictSlash && match.Route.pattern != nil {
		tplPath := match.Route.pattern.template
		tplHasSlash := strings.HasSuffix(tplPath, "/")
		urlHasSlash := strings.HasSuffix(req.URL.Path, "/")
		if tplHasSlash != urlHasSlash && req.URL.Path != "/" {
			u := *req.URL
			if tplHasSlash {
				u.Path += "/"
			} else {
				u.Path = strings.TrimSuffix(u.Path, "/")
			}
			// RFC 7538 Section 3: 308 preserves the request method,
			// unlike 301 which allows clients to change POST to GET.
			http.Redirect(w, req, u.String(), http.StatusPermanentRedirect)
			return
		}
	}

	handler.ServeHTTP(w, req)
}

// Match attempts to match the given request against the router's routes in
// declaration order; the first match wins. Method mismatches are tracked
// independently across route iteration to distinguish 405 from 404.
func (r *Router) Match(req *http.Request, match *RouteMatch) bool {
	var methodNotAllowed bool
	for _, route := range r.routes {
		if route.Match(req, match) {
			if match.Handler != nil && len(r.middlewares) > 0 {
				if cached, ok := r.handlerCache.Load(match.Route); ok {
					match.Handler = cached.(http.Handler)
				} else {
					wrapped := r.applyMiddleware(match.Handler)
					r.handlerCache.Store(match.Route, wrapped)
					match.Handler = wrapped
				}
			}
			return true
		}
		if match.MatchErr == ErrMethodMismatch {
			methodNotAllowed = true
		}
	}

	if methodNotAllowed {
		match.MatchErr = ErrMethodMismatch
		match.methodNotAllowed = true
		return false
	}

	match.MatchErr = ErrNotFound
	return false
}

// StrictSlash defines the trailing slash behavior for new routes.
// When true, if the route path is "/path/", accessing "/path" will redirect
// to "/path/" and vice versa, using 308 Permanent Redirect to preserve the
// original request method. Must be called before registering routes.
func (r *Router) StrictSlash(value bool) *Router {
	r.strictSlash = value
	return r
}

// NewRoute creates an empty route for configuration.
func (r *Router) NewRoute() *Route {
	route := &Route{
		namedRoutes: r.namedRoutes,
		strictSlash: r.strictSlash,
	}
	r.routes = append(r.routes, route)
	return route
}

// Handle registers a new route matching the URL path template with the
// given handler.
func (r *Router) Handle(path string, handler http.Handler) *Route {
	return r.Path(path).Handler(handler)
}

// HandleFunc registers a new route matching the URL path template with the
// given handler function.
func (r *Router) HandleFunc(path string, f func(http.ResponseWriter, *http.Request)) *Route {
	return r.Path(path).HandlerFunc(f)
}

// Path registers a new route with a matcher for the URL path template.
func (r *Router) Path(tpl string) *Route {
	route := r.NewRoute()
	pattern, err := newPathPattern(tpl, r.strictSlash)
	if err != nil {
		route.err = err
		return route
	}
	route.pattern = pattern
	return route
}

// Get returns the route registered with the given name, or nil.
func (r *Router) Get(name string) *Route {
	return r.namedRoutes[name]
}

// Reverse builds a concrete path for the named route from the given
// key/value variable pairs. Returns ErrRouteNotFound when no route is
// registered under the name.
func (r *Router) Reverse(name string, pairs ...string) (string, error) {
	route := r.namedRoutes[name]
	if route == nil {
		return "", ErrRouteNotFound
	}
	return route.URLPath(pairs...)
}

// Routes returns the registered routes in declaration order.
func (r *Router) Routes() []*Route {
	return r.routes
}

// Err returns the first registration error across all routes, if any.
// Checking it once after the table is declared surfaces bad templates and
// duplicate names before the server starts taking traffic.
func (r *Router) Err() error {
	for _, route := range r.routes {
		if err := route.GetError(); err != nil {
			return err
		}
	}
	return nil
}

// Use appends a MiddlewareFunc to the chain. Middleware is applied to
// matched handlers only.
func (r *Router) Use(mwf ...MiddlewareFunc) {
	r.middlewares = append(r.middlewares, mwf...)
}

// applyMiddleware wraps the handler with all registered middleware.
func (r *Router) applyMiddleware(handler http.Handler) http.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i].Middleware(handler)
	}
	return handler
}

// allowedMethods returns the union of methods accepted by routes whose path
// pattern matches the given path, sorted alphabetically for the Allow header.
func (r *Router) allowedMethods(path string) []string {
	seen := make(map[string]bool)
	for _, route := range r.routes {
		if route.err != nil || route.pattern == nil {
			continue
		}
		if !route.pattern.match(path) {
			continue
		}
		for _, m := range route.methods {
			seen[m] = true
		}
	}
	allowed := make([]string, 0, len(seen))
	for m := range seen {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	return allowed
}

var defaultNotFoundHandler = http.NotFoundHandler()

var defaultMethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
})
