// Package server wires the HTTP routes over the admin service.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maruel/jsoncms/internal/admin"
	"github.com/maruel/jsoncms/internal/server/handlers"
	"github.com/maruel/jsoncms/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router. limits may be nil to
// disable throttling.
func NewRouter(svc *admin.Service, limits *ratelimit.Config, version string) http.Handler {
	mux := http.NewServeMux()

	eh := handlers.NewEntityHandler(svc)
	hh := handlers.NewHealthHandler(version)

	mux.Handle("GET /api/health", Wrap(hh.Health))

	mux.Handle("GET /api/types", Wrap(eh.Types))
	mux.Handle("GET /api/types/{type}", Wrap(eh.ListView))
	mux.Handle("GET /api/types/{type}/schema", Wrap(eh.Schema))
	mux.Handle("GET /api/types/{type}/form", Wrap(eh.CreateForm))
	mux.Handle("POST /api/types/{type}/sort", Wrap(eh.Sort))
	mux.Handle("GET /api/types/{type}/history", Wrap(eh.History))
	mux.Handle("GET /api/types/{type}/history/{hash}", Wrap(eh.Revision))

	mux.Handle("GET /api/types/{type}/records", Wrap(eh.Records))
	mux.Handle("POST /api/types/{type}/records", Wrap(eh.Create))
	mux.Handle("GET /api/types/{type}/records/{id}/form", Wrap(eh.EditForm))
	mux.Handle("PUT /api/types/{type}/records/{id}", Wrap(eh.Update))
	mux.Handle("DELETE /api/types/{type}/records/{id}", Wrap(eh.Delete))

	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	if limits != nil {
		h = ratelimit.Middleware(limits, clientIP, rateLimited)(h)
	}
	return RequestLog(h)
}
