package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic with 500", func(t *testing.T) {
		mw := Recovery(RecoveryConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
		h := mw(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic("boom")
		}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("logs the panic value and request", func(t *testing.T) {
		var buf bytes.Buffer
		mw := Recovery(RecoveryConfig{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
		h := mw(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic("boom")
		}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/edit/", nil)
		h.ServeHTTP(w, req)

		out := buf.String()
		assert.Contains(t, out, "panic recovered")
		assert.Contains(t, out, "panic=boom")
		assert.Contains(t, out, "method=GET")
		assert.Contains(t, out, "path=/edit/")
	})

	t.Run("passes through without panic", func(t *testing.T) {
		var buf bytes.Buffer
		mw := Recovery(RecoveryConfig{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Empty(t, buf.String())
	})
}
