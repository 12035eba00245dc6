package middleware

import (
	"net/http"
	"time"

	"github.com/example/ec-storefront/internal/metrics"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LogMiddleware logs every request and records its status and latency
// under the matched route name.
func LogMiddleware(m *metrics.ServerMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			handler := "unmatched"
			if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
				handler = route.GetName()
			}
			elapsed := time.Since(start)
			m.ObserveRequest(handler, rec.status, elapsed)

			log.WithFields(log.Fields{
				"method":     r.Method,
				"url":        r.URL,
				"remoteAddr": r.RemoteAddr,
				"userAgent":  r.UserAgent(),
				"status":     rec.status,
				"elapsed":    elapsed,
			}).Info("handled request")
		})
	}
}
