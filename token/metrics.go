package token

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TokensIssuedTotal prometheus.Counter // Количество выданных токенов
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

func NewMetrics() *Metrics {
	return &Metrics{
		TokensIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "s3authn_tokens_issued_total",
			Help: "Total number of issued tokens",
		}),
	}
}

func getMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}
