package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, limit int, d time.Duration) (*Limiter, *time.Time) {
	t.Helper()
	l := New(limit, d)
	t.Cleanup(l.Stop)
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_WindowResets(t *testing.T) {
	l, now := newTestLimiter(t, 2, time.Minute)

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.Equal(t, 0, l.Remaining("u1"))
	assert.True(t, l.Allow("u2"), "keys are independent")

	*now = now.Add(61 * time.Second)
	assert.Equal(t, 2, l.Remaining("u1"))
	assert.True(t, l.Allow("u1"))
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	l.Reset("u1")
	assert.True(t, l.Allow("u1"))
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	h := Middleware(l, func(r *http.Request) string { return r.Header.Get("X-User-ID") })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	req := httptest.NewRequest(http.MethodPost, "/postponement/years", nil)
	req.Header.Set("X-User-ID", "u1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	anon := httptest.NewRequest(http.MethodPost, "/postponement/years", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, anon)
	assert.Equal(t, http.StatusNoContent, rec.Code, "anonymous requests are keyed by IP")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	assert.Equal(t, "10.0.0.3", ClientIP(req))
}
