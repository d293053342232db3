package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smarthelp/deskclient/internal/common"
)

var (
	reqCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskclient",
			Name:      "api_requests_total",
			Help:      "Total REST API requests",
		},
		[]string{"method", "path", "status"},
	)
	reqLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deskclient",
			Name:      "api_request_duration_seconds",
			Help:      "REST API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	metricsRegistered bool
)

// RegisterCollectors allows an external registry to reuse the same metric
// vectors instead of duplicating definitions. If a registry is provided and
// collectors are not yet registered, it registers them there; otherwise it
// falls back to the default global registry.
func RegisterCollectors(reg *prometheus.Registry) {
	if metricsRegistered {
		return
	}
	cs := []prometheus.Collector{
		reqCounter, reqLatency,
		TicketsCreated, ArticlesCreated,
		SuggestionPolls, SuggestionResolved, SuggestionExhausted,
	}
	if reg != nil {
		reg.MustRegister(cs...)
	} else {
		prometheus.MustRegister(cs...)
	}
	metricsRegistered = true
}

// InitMetrics launches a /metrics HTTP endpoint if addr is not empty.
func InitMetrics(service, addr string) *http.Server {
	if addr == "" {
		return nil
	}
	RegisterCollectors(nil)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.L().Error("metrics server error", zap.Error(err))
		}
	}()
	common.L().Info("metrics server listening", zap.String("addr", addr), zap.String("service", service))
	return srv
}

// ObserveRequest records count and latency for one adapter request.
// A zero status means the request never produced a response.
func ObserveRequest(method, path string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	reqCounter.WithLabelValues(method, path, label).Inc()
	reqLatency.WithLabelValues(method, path).Observe(d.Seconds())
}
