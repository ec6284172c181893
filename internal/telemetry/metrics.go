package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics счётчики HTTP и жизненного цикла заказов.
// Все методы допускают nil-получатель.
type Metrics struct {
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	Transitions    *prometheus.CounterVec
	StockConflicts prometheus.Counter
}

// NewMetrics регистрирует метрики в reg. Тесты передают свой prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "order_transitions_total",
			Help:      "Committed order lifecycle transitions by action.",
		}, []string{"action"}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "order_stock_conflicts_total",
			Help:      "Verifications refused because stock ran out.",
		}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.Transitions, m.StockConflicts)
	return m
}

func (m *Metrics) ObserveRequest(handler string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) Transition(action string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action).Inc()
}

func (m *Metrics) StockConflict() {
	if m == nil {
		return
	}
	m.StockConflicts.Inc()
}

// Handler отдаёт метрики из g в формате Prometheus
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
