// internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/psykos/internal/middleware"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers every endpoint. Each route is wrapped with request
// logging and metrics labelled by its pattern.
func NewRouter(s *SessionServer) http.Handler {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		s.Logger.WithField("path", r.URL.Path).Errorf("panic serving request: %v", v)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "internal",
			"message": "internal error",
		})
	}

	logged := middleware.LogMiddleware(s.Logger)
	handle := func(method, route string, h http.Handler) {
		mux.Handler(method, route, middleware.Metrics(route)(logged(h)))
	}

	handle(http.MethodPost, "/sessions", CreateSessionHandler(s))
	handle(http.MethodGet, "/sessions/:code", SessionInfoHandler(s))
	handle(http.MethodPost, "/sessions/:code/players", JoinSessionHandler(s))
	handle(http.MethodGet, "/sessions/:code/ws", SessionWSHandler(s))
	handle(http.MethodGet, "/sessions/:code/qr", QRHandler(s))
	handle(http.MethodGet, "/healthz", HealthHandler(s))

	// Scrapes are frequent; keep them out of the request log.
	mux.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	return mux
}
