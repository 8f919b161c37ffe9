package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标
type Metrics struct {
	Requests    *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	Predictions *prometheus.CounterVec
	CacheHits   prometheus.Counter
}

// NewMetrics 创建并注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termdeposit_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termdeposit_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termdeposit_predictions_total",
			Help: "Predictions served by label.",
		}, []string{"label"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termdeposit_prediction_cache_hits_total",
			Help: "Predictions answered from the result cache.",
		}),
	}
	reg.MustRegister(m.Requests, m.Latency, m.Predictions, m.CacheHits)
	return m
}

// Middleware 记录请求数与延迟，路由标签取自 mux 的匹配模式
func (m *Metrics) Middleware(mux *http.ServeMux) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			_, route := mux.Handler(r)
			if route == "" {
				route = "unmatched"
			}
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
			m.Latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsHandler 注册 /metrics
func RegisterMetricsHandler(mux *http.ServeMux, reg *prometheus.Registry) {
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
}
