package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// ServerMetrics groups the collectors the storefront exports. A nil
// *ServerMetrics is valid and records nothing.
type ServerMetrics struct {
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
	Checkouts         *prometheus.CounterVec
	CartUpdates       *prometheus.CounterVec
	CategoryRefreshes *prometheus.CounterVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by final state.",
	}, []string{"state"})
	cartUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_updates_total",
		Help:      "Cart mutations by outcome.",
	}, []string{"outcome"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "category_cache_refreshes_total",
		Help:      "Category cache refreshes by outcome.",
	}, []string{"outcome"})

	reg.MustRegister(requests, latency, checkouts, cartUpdates, refreshes)
	return &ServerMetrics{
		Requests:          requests,
		LatencyMS:         latency,
		Checkouts:         checkouts,
		CartUpdates:       cartUpdates,
		CategoryRefreshes: refreshes,
	}
}

func (m *ServerMetrics) ObserveRequest(handler string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

func (m *ServerMetrics) ObserveCheckout(state string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(state).Inc()
}

func (m *ServerMetrics) ObserveCartUpdate(outcome string) {
	if m == nil {
		return
	}
	m.CartUpdates.WithLabelValues(outcome).Inc()
}

func (m *ServerMetrics) ObserveCategoryRefresh(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CategoryRefreshes.WithLabelValues(outcome).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
