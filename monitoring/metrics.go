package monitoring

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - системные метрики процесса и состояние готовности.
type Metrics struct {
	Ready       prometheus.Gauge // 1, если сервис готов выдавать токены
	Goroutines  prometheus.Gauge // Количество горутин
	MemoryUsage prometheus.Gauge // Использование памяти
}

// NewMetrics создает и регистрирует метрики в default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Ready: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "s3authn_ready",
				Help: "Whether the credential catalog is loaded and the service accepts requests",
			},
		),
		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "s3authn_goroutines",
				Help: "Number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "s3authn_memory_usage_bytes",
				Help: "Current heap memory usage in bytes",
			},
		),
	}
}

// collectSystem снимает показания рантайма
func (m *Metrics) collectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.MemoryUsage.Set(float64(ms.HeapAlloc))
	m.Goroutines.Set(float64(runtime.NumGoroutine()))
}
