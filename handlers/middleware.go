package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type contextKey string

const RequestIDKey contextKey = "requestID"

const requestIDHeader = "X-Request-Id"

var (
	peticiones = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cotizador",
		Name:      "http_peticiones_total",
		Help:      "API requests by method, route and status.",
	}, []string{"metodo", "ruta", "estado"})

	peticionDuracion = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cotizador",
		Name:      "http_duracion_segundos",
		Help:      "API request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"ruta"})
)

// GetRequestID extracts the request id set by RequestMetricsMiddleware.
func GetRequestID(r *http.Request) string {
	if val, ok := r.Context().Value(RequestIDKey).(string); ok {
		return val
	}
	return ""
}

// RequestMetricsMiddleware tags each request with an id (reusing an incoming
// X-Request-Id) and records its count and latency per route pattern.
func RequestMetricsMiddleware() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.Header.Get(requestIDHeader)
		if id == "" {
			id = security.RandomString(16)
		}
		e.Response.Header().Set(requestIDHeader, id)
		e.Request = e.Request.WithContext(context.WithValue(e.Request.Context(), RequestIDKey, id))

		start := time.Now()
		err := e.Next()

		ruta := e.Request.Pattern
		if ruta == "" {
			ruta = "unmatched"
		}
		peticionDuracion.WithLabelValues(ruta).Observe(time.Since(start).Seconds())
		peticiones.WithLabelValues(e.Request.Method, ruta, strconv.Itoa(e.Status())).Inc()
		return err
	}
}
