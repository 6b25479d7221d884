package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T, perMinute int) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, Now: clock.Now})
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestLimiter_AllowWithinWindow(t *testing.T) {
	rl, clock := newLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "clients are counted separately")
	assert.Equal(t, int64(1), rl.Rejected())

	clock.Advance(30 * time.Second)
	assert.False(t, rl.Allow("1.2.3.4"), "rejected requests do not extend the window")
	assert.Equal(t, 30*time.Second, rl.RetryAfter("1.2.3.4"))

	clock.Advance(30 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"), "window resets after a minute")
}

func TestLimiter_CleanupDropsIdleClients(t *testing.T) {
	rl, clock := newLimiter(t, 10)
	rl.Allow("1.2.3.4")
	clock.Advance(5 * time.Minute)
	rl.Allow("5.6.7.8")

	clock.Advance(6 * time.Minute)
	rl.cleanupStaleEntries()
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newLimiter(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rl.Middleware(func(r *http.Request) string { return "client" }, nil)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/expenses", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/expenses", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var called bool
	h = rl.Middleware(func(r *http.Request) string { return "client" }, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTooManyRequests)
	})(ok)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.True(t, called)
}
