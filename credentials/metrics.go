package credentials

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CatalogRefreshTotal *prometheus.CounterVec // Количество обновлений каталога
	CatalogCredentials  prometheus.Gauge       // Количество учетных данных в загруженном каталоге
}

func NewMetrics() *Metrics {
	return &Metrics{
		CatalogRefreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3authn_catalog_refresh_total",
				Help: "Total number of credential catalog refreshes",
			},
			[]string{"result"}, // success/unchanged/error
		),
		CatalogCredentials: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "s3authn_catalog_credentials",
				Help: "Number of credentials in the loaded catalog",
			},
		),
	}
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// getMetrics регистрирует метрики один раз на процесс.
func getMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}
