package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jason-s-yu/psykos/internal/metrics"
)

// Metrics records request count and latency under the route pattern rather
// than the raw path, so session codes do not explode label cardinality.
func Metrics(route string) func(next http.Handler) http.Handler {
	if route == "" {
		route = "unknown"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrapWriter(w)

			next.ServeHTTP(sw, r)

			metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(sw.Status()), time.Since(start))
		})
	}
}
