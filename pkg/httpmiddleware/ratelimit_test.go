package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remoteAddr string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := serve(handler, "192.168.1.1:12345")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:9999").Code)
	}

	w := serve(handler, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var (
		code    int
		message string
	)
	err := jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := d.Int()
			code = v
			return err
		case "message":
			v, err := d.Str()
			message = v
			return err
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", message)
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.2:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:5678").Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("api_key")
		},
	})(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, "1.1.1.1:1", "api_key", "key-a").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "2.2.2.2:2", "api_key", "key-a").Code)
	assert.Equal(t, http.StatusOK, serve(handler, "1.1.1.1:1", "api_key", "key-b").Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	xff := "203.0.113.50, 70.41.3.18"
	assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.1:4444", "X-Forwarded-For", xff).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "192.168.1.2:5555", "X-Forwarded-For", xff).Code)
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: 2 * time.Second})
	now := time.Now()

	_, _, ok := rl.allow("k", now)
	require.True(t, ok)
	_, _, ok = rl.allow("k", now)
	require.True(t, ok)

	_, wait, ok := rl.allow("k", now)
	require.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	_, _, ok = rl.allow("k", now.Add(time.Second))
	assert.True(t, ok, "one token refills per Window/Max")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()
	rl.allow("old", now.Add(-2*time.Minute))
	rl.allow("fresh", now)

	rl.cleanup(now)

	assert.NotContains(t, rl.clients, "old")
	assert.Contains(t, rl.clients, "fresh")
}

func TestRateLimitWithCleanup_Stops(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	handler := RateLimitWithCleanup(ctx, RateLimitConfig{Max: 1, Window: time.Millisecond})(okHandler())
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1").Code)

	cancel()
	time.Sleep(10 * time.Millisecond)
}
