package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(rl *RateLimiter) *fiber.App {
	app := fiber.New()
	app.Get("/ask", rl.Middleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/sessions/:session_id", rl.Middleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestMiddleware_RejectsOverBurst(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 2})
	defer rl.Stop()
	app := newApp(rl)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ask", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/ask", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestMiddleware_NewSessionIDsDoNotResetIPLimit(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 2})
	defer rl.Stop()
	app := newApp(rl)

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/sessions/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	for _, id := range []string{"c", "d", "e"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/sessions/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode, id)
	}
}

func TestAllowRequest_SessionCapsAcrossIPs(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1})
	defer rl.Stop()

	assert.True(t, rl.allowRequest("10.0.0.1", "shared"))
	assert.False(t, rl.allowRequest("10.0.0.2", "shared"))
	assert.True(t, rl.allowRequest("10.0.0.3", ""))
	assert.False(t, rl.allowRequest("10.0.0.1", "other"))
}

func TestAllow_Refills(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 60, Burst: 1})
	defer rl.Stop()

	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("k"))
	assert.False(t, rl.allow("k"))

	now = now.Add(time.Second)
	assert.True(t, rl.allow("k"))
}

func TestEvictIdle(t *testing.T) {
	rl := New(Config{IdleTimeout: time.Minute})
	defer rl.Stop()

	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }
	rl.allow("old")

	now = now.Add(2 * time.Minute)
	rl.allow("fresh")
	rl.evictIdle()

	assert.NotContains(t, rl.visitors, "old")
	assert.Contains(t, rl.visitors, "fresh")
}
