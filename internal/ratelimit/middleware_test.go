package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-pos/internal/common"
)

func newTestMiddleware(t *testing.T, max int64) Middleware {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store, err := NewRedisStore(rdb)
	require.NoError(t, err)
	return Middleware{
		Limiter: limiter.New(store, limiter.Rate{Period: time.Minute, Limit: max}),
		Key:     PerVendorKey,
		Logger:  zerolog.Nop(),
	}
}

func doRequest(handler http.Handler, vendorID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	if vendorID != "" {
		req = req.WithContext(common.WithVendorID(req.Context(), vendorID))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareLimitsPerVendor(t *testing.T) {
	m := newTestMiddleware(t, 2)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, doRequest(handler, "vendor-a").Code)
	require.Equal(t, http.StatusOK, doRequest(handler, "vendor-a").Code)
	rec := doRequest(handler, "vendor-a")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// Another vendor gets its own bucket.
	require.Equal(t, http.StatusOK, doRequest(handler, "vendor-b").Code)
}

func TestMiddlewareFailsOpenWithoutLimiter(t *testing.T) {
	m := Middleware{Logger: zerolog.Nop()}
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	require.Equal(t, http.StatusOK, doRequest(handler, "vendor-a").Code)
}
