// Provides the HTTP middleware throttling mutating requests.

package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Config holds the limits applied by Middleware.
type Config struct {
	// Write limits POST, PUT, PATCH and DELETE requests per client IP.
	Write *Limiter
}

// DefaultConfig allows each client 60 writes per minute in bursts of 10.
func DefaultConfig() *Config {
	return &Config{Write: NewLimiter(60, time.Minute, 10)}
}

// Close stops the limiters.
func (c *Config) Close() {
	if c.Write != nil {
		c.Write.Close()
	}
}

// Denied writes the response of a throttled request.
type Denied func(w http.ResponseWriter, r *http.Request, res Result)

// Middleware throttles mutating requests by client IP. Reads are not limited.
func Middleware(cfg *Config, clientIP func(*http.Request) string, denied Denied) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Write == nil || !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			res := cfg.Write.Allow("ip:" + clientIP(r) + ":write")
			WriteHeaders(w, res)
			if !res.Allowed {
				denied(w, r, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteHeaders sets the rate limit headers. Retry-After is only set on
// throttled requests.
func WriteHeaders(w http.ResponseWriter, res Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if !res.Allowed {
		h.Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
	}
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}
