package auth

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Общие метрики запросов
	AuthRequestsTotal *prometheus.CounterVec   // Количество запросов аутентификации
	AuthLatency       *prometheus.HistogramVec // Латентность аутентификации
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

func NewMetrics() *Metrics {
	return &Metrics{
		AuthRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3authn_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"result", "reason"}, // authorized/unauthorized/error
		),
		AuthLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s3authn_auth_latency_seconds",
				Help:    "Latency of authentication requests in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"result"},
		),
	}
}

// getMetrics возвращает общий для процесса набор метрик.
// Повторная регистрация в promauto приводит к панике.
func getMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}
