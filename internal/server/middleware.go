// Provides the request id, logging, metrics and throttling middlewares.

package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/maruel/ksid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/maruel/jsoncms/internal/errors"
	"github.com/maruel/jsoncms/internal/server/ratelimit"
	"github.com/maruel/jsoncms/internal/server/reqctx"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jsoncms",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"method", "pattern", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jsoncms",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "pattern"})
)

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestLog tags each request with an id, stores the client IP in the
// context and logs the request once served.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ksid.NewID().String()
		ip := reqctx.GetClientIP(r)
		ctx := reqctx.WithRequestID(reqctx.WithClientIP(r.Context(), ip), id)
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r = r.WithContext(ctx)
		next.ServeHTTP(rec, r)
		dur := time.Since(start)

		// r.Pattern is set by the mux on the request it was handed.
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, pattern).Observe(dur.Seconds())
		slog.InfoContext(ctx, "http", "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur", dur.Round(time.Microsecond), "ip", ip, "rid", id)
	})
}

// rateLimited answers a throttled request with the standard error body.
func rateLimited(w http.ResponseWriter, r *http.Request, res ratelimit.Result) {
	slog.WarnContext(r.Context(), "Rate limited", "ip", reqctx.ClientIP(r.Context()), "retry_after", res.RetryAfter)
	writeError(w, apierrors.RateLimited(int(res.RetryAfter.Seconds())))
}

// clientIP returns the IP stored by RequestLog, parsing the request when
// the middleware did not run.
func clientIP(r *http.Request) string {
	if ip := reqctx.ClientIP(r.Context()); ip != "" {
		return ip
	}
	return reqctx.GetClientIP(r)
}
