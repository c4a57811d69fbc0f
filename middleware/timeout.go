package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/openprofiles/profiled/dispatch"
)

// ErrInvalidTimeout is returned when TimeoutConfig.Duration is not greater
// than zero.
var ErrInvalidTimeout = errors.New("timeout: duration must be greater than zero")

// DefaultTimeoutMessage is the 503 response body when TimeoutConfig.Message
// is empty.
const DefaultTimeoutMessage = "request timed out"

// TimeoutConfig configures the Timeout middleware behaviour.
type TimeoutConfig struct {
	// Duration bounds handler execution time. Must be greater than zero.
	Duration time.Duration

	// Message is the response body returned when the handler overruns.
	// Defaults to DefaultTimeoutMessage.
	Message string
}

// Timeout returns a middleware that bounds handler execution time, responding
// 503 Service Unavailable when the handler does not complete within the
// configured duration. The timed-out handler keeps running but its writes are
// discarded, so handlers should honor request context cancellation.
//
// It returns ErrInvalidTimeout if Duration is not greater than zero.
func Timeout(cfg TimeoutConfig) (dispatch.MiddlewareFunc, error) {
	if cfg.Duration <= 0 {
		return nil, ErrInvalidTimeout
	}

	message := cfg.Message
	if message == "" {
		message = DefaultTimeoutMessage
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, cfg.Duration, message)
	}, nil
}
