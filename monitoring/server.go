package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"s3authn/logger"
)

// ReadinessChecker сообщает, готов ли источник данных обслуживать запросы
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Server представляет HTTP сервер для экспорта метрик Prometheus и health check
type Server struct {
	config       *Config
	server       *http.Server
	readiness    ReadinessChecker
	metrics      *Metrics
	shuttingDown atomic.Bool

	// Канал для остановки сбора системных метрик
	stopSystemMetrics chan struct{}
	stopOnce          sync.Once
	wg                sync.WaitGroup
}

// NewServer создает новый сервер метрик. readiness и metrics могут быть nil.
func NewServer(config *Config, readiness ReadinessChecker, metrics *Metrics) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:            config,
		readiness:         readiness,
		metrics:           metrics,
		stopSystemMetrics: make(chan struct{}),
	}

	// Отключенный мониторинг не поднимает HTTP сервер
	if !config.Enabled {
		return s
	}

	s.server = &http.Server{
		Addr:         config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler возвращает мультиплексор с эндпоинтами метрик и health check
func (s *Server) Handler() http.Handler {
	metricsPath := s.config.MetricsPath
	if metricsPath == "" {
		metricsPath = DefaultConfig().MetricsPath
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.Handler())
	mux.HandleFunc("/health/live", s.liveHealthHandler)
	mux.HandleFunc("/health/ready", s.readyHealthHandler)
	return mux
}

// Start запускает HTTP сервер для метрик
func (s *Server) Start() error {
	if !s.config.Enabled {
		logger.Info("Monitoring is disabled, skipping metrics server start")
		return nil
	}

	logger.Info("Starting metrics server on %s", s.config.ListenAddress)

	// Слушаем синхронно, чтобы ошибка занятого порта вернулась вызывающему
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}

	go func() {
		logger.Info("Metrics server listening on %s%s", ln.Addr(), s.config.MetricsPath)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()

	if s.config.EnableSystemMetrics && s.metrics != nil {
		s.wg.Add(1)
		go s.collectSystemMetrics()
	}

	return nil
}

// collectSystemMetrics периодически обновляет системные метрики
func (s *Server) collectSystemMetrics() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SystemMetricsInterval)
	defer ticker.Stop()

	s.metrics.collectSystem()
	for {
		select {
		case <-ticker.C:
			s.metrics.collectSystem()
		case <-s.stopSystemMetrics:
			return
		}
	}
}

// SetShuttingDown переводит /health/ready в состояние 503
func (s *Server) SetShuttingDown() {
	s.shuttingDown.Store(true)
	if s.metrics != nil {
		s.metrics.Ready.Set(0)
	}
}

// Stop останавливает HTTP сервер метрик
func (s *Server) Stop(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	logger.Info("Stopping metrics server...")
	s.SetShuttingDown()

	// Останавливаем сбор системных метрик
	s.stopOnce.Do(func() { close(s.stopSystemMetrics) })
	s.wg.Wait()

	return s.server.Shutdown(ctx)
}

// liveHealthHandler обрабатывает запросы /health/live
func (s *Server) liveHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

// readyHealthHandler обрабатывает запросы /health/ready
func (s *Server) readyHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Проверяем, не находимся ли мы в состоянии graceful shutdown
	if s.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"shutting down"}`)
		return
	}

	// Проверяем, загружен ли каталог учетных данных
	if s.readiness != nil {
		ctx := r.Context()
		if s.config.ReadinessTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.ReadinessTimeout)
			defer cancel()
		}
		if err := s.readiness.Ready(ctx); err != nil {
			logger.Warn("Readiness check failed: %v", err)
			s.setReady(false)
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"catalog not ready"}`)
			return
		}
	}

	s.setReady(true)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

func (s *Server) setReady(ready bool) {
	if s.metrics == nil {
		return
	}
	if ready {
		s.metrics.Ready.Set(1)
	} else {
		s.metrics.Ready.Set(0)
	}
}
