package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-pos/internal/common"
)

// NewRedisStore wires a limiter store backed by Redis so limits hold across
// replicas.
func NewRedisStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit"})
}

// PerVendorKey buckets requests by authenticated vendor, falling back to the
// remote address for unauthenticated traffic.
func PerVendorKey(r *http.Request) string {
	if id, ok := common.VendorID(r.Context()); ok {
		return "vendor:" + id
	}
	return "ip:" + r.RemoteAddr
}

// Middleware enforces a request rate per key. Limiter backend errors fail
// open so a Redis outage cannot take checkout down with it.
type Middleware struct {
	Limiter *limiter.Limiter
	Key     func(*http.Request) string
	Logger  zerolog.Logger
}

// Handler wraps next with the rate limit check.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Limiter == nil || m.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := m.Limiter.Get(r.Context(), m.Key(r))
		if err != nil {
			m.Logger.Warn().Err(err).Msg("rate limiter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
