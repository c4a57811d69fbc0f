// Package middleware provides HTTP middleware for the dispatch router:
// panic recovery, request IDs, security response headers, access logging,
// and handler timeouts.
package middleware
