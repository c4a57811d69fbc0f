// Package dispatch implements an ordered URL routing table and request
// dispatcher.
//
// Routes are declared once at startup and matched against incoming request
// paths in declaration order; the first matching route wins. Each route may
// carry a symbolic name, which must be unique within the router and can be
// used to rebuild a concrete path from the route's template (reverse lookup).
//
// # Routing
//
//	r := dispatch.NewRouter().StrictSlash(true)
//	r.HandleFunc("/", listHandler).Methods(http.MethodGet).Name("profile_list")
//	r.HandleFunc("/profile/{username:username}/", detailHandler).Name("profile_detail")
//	http.ListenAndServe(":8080", r)
//
// # Path Variables
//
// Path templates contain variables enclosed in curly braces, optionally
// followed by a colon and a regular expression pattern or a macro name:
//
//	/profile/{username:username}/
//	/articles/{id:[0-9]+}
//
// Matched variable values are stored in the request context:
//
//	username, ok := dispatch.VarGet(req, "username")
//
// Available macros: username, uuid, int, slug, alpha, alphanum. A name after
// the colon that is not a known macro is treated as a raw regular expression.
//
// # Reverse Lookup
//
// Named routes rebuild their paths from variable values, validating each
// value against the variable's pattern:
//
//	path, err := r.Reverse("profile_detail", "username", "ada.lovelace")
//	// "/profile/ada.lovelace/"
//
// # Error Responses
//
// When no route matches, NotFoundHandler is invoked (404). When a route's
// path matches but its method set does not, the router responds 405 with an
// Allow header listing the methods accepted for that path.
package dispatch
