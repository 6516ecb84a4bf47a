package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"s3authn/logger"
)

func main() {
	// Парсим аргументы командной строки
	var (
		configFile     = flag.String("config", "", "Configuration file path (YAML)")
		listenAddr     = flag.String("listen", "", "Listen address (overrides config)")
		tlsCert        = flag.String("tls-cert", "", "TLS certificate file (overrides config)")
		tlsKey         = flag.String("tls-key", "", "TLS key file (overrides config)")
		readTimeout    = flag.Duration("read-timeout", 0, "Read timeout (overrides config)")
		writeTimeout   = flag.Duration("write-timeout", 0, "Write timeout (overrides config)")
		useMock        = flag.Bool("mock", false, "Issue tokens without signature checks (overrides config)")
		logLevel       = flag.String("log-level", "", "Log level (debug, info, warn, error) (overrides config)")
		metricsAddr    = flag.String("metrics-listen", "", "Metrics server listen address (overrides config)")
		disableMetrics = flag.Bool("disable-metrics", false, "Disable metrics collection (overrides config)")
		tokenTTL       = flag.Duration("token-ttl", 0, "Token lifetime (overrides config)")
	)
	flag.Parse()

	// Загружаем конфигурацию
	if *configFile == "" {
		logger.Error("Config file not provided or incorrect. Exiting.")
		os.Exit(1)
	}

	logger.Info("Loading configuration from file: %s", *configFile)
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Info("Configuration loaded successfully")

	// Применяем переопределения из командной строки
	applyCommandLineOverrides(config, overrides{
		listenAddr:     *listenAddr,
		tlsCert:        *tlsCert,
		tlsKey:         *tlsKey,
		readTimeout:    *readTimeout,
		writeTimeout:   *writeTimeout,
		useMock:        *useMock,
		logLevel:       *logLevel,
		metricsAddr:    *metricsAddr,
		disableMetrics: *disableMetrics,
		tokenTTL:       *tokenTTL,
	})
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration after overrides: %v", err)
	}

	// Устанавливаем уровень и формат логирования
	level := logger.ParseLogLevel(config.Logging.Level)
	logger.SetGlobalLevel(level)
	logger.SetGlobalFormat(logger.Format(config.Logging.Format))
	defer func() { _ = logger.Sync() }()

	logger.Info("S3 token authentication service starting...")
	logger.Info("Log level: %s", level.String())

	app, err := NewApp(config)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	if err := app.Start(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	gatewayConfig := config.ToAPIGatewayConfig()
	logger.Info("Configuration:")
	logger.Info("  Listen Address: %s", gatewayConfig.ListenAddress)
	logger.Info("  Read Timeout: %v", gatewayConfig.ReadTimeout)
	logger.Info("  Write Timeout: %v", gatewayConfig.WriteTimeout)
	logger.Info("  Token TTL: %v", config.Token.TTL)
	if gatewayConfig.TLSCertFile != "" {
		logger.Info("  TLS Enabled: Yes")
		logger.Info("  TLS Cert: %s", gatewayConfig.TLSCertFile)
		logger.Info("  TLS Key: %s", gatewayConfig.TLSKeyFile)
	} else {
		logger.Info("  TLS Enabled: No")
	}

	// Настраиваем graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Запускаем API Gateway в отдельной горутине
	go func() {
		if err := app.Serve(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	logger.Info("Service started successfully")

	// Ждем сигнал для остановки
	sig := <-sigChan
	logger.Info("Received signal %v, shutting down...", sig)

	// Создаем контекст с таймаутом для graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app.Shutdown(ctx)

	logger.Info("Service stopped")
}

// overrides - значения флагов командной строки
type overrides struct {
	listenAddr, tlsCert, tlsKey string
	readTimeout, writeTimeout   time.Duration
	useMock                     bool
	logLevel, metricsAddr       string
	disableMetrics              bool
	tokenTTL                    time.Duration
}

// applyCommandLineOverrides применяет переопределения из командной строки
func applyCommandLineOverrides(config *AppConfig, o overrides) {
	// Переопределения сервера
	if o.listenAddr != "" {
		config.Server.ListenAddress = o.listenAddr
		logger.Debug("Override: server.listen_address = %s", o.listenAddr)
	}

	if o.tlsCert != "" {
		config.Server.TLSCertFile = o.tlsCert
		logger.Debug("Override: server.tls_cert_file = %s", o.tlsCert)
	}

	if o.tlsKey != "" {
		config.Server.TLSKeyFile = o.tlsKey
		logger.Debug("Override: server.tls_key_file = %s", o.tlsKey)
	}

	if o.readTimeout > 0 {
		config.Server.ReadTimeout = o.readTimeout
		logger.Debug("Override: server.read_timeout = %v", o.readTimeout)
	}

	if o.writeTimeout > 0 {
		config.Server.WriteTimeout = o.writeTimeout
		logger.Debug("Override: server.write_timeout = %v", o.writeTimeout)
	}

	if o.useMock {
		config.Server.UseMock = true
		logger.Debug("Override: server.use_mock = true")
	}

	// Переопределения логирования
	if o.logLevel != "" {
		config.Logging.Level = o.logLevel
		logger.Debug("Override: logging.level = %s", o.logLevel)
	}

	// Переопределения мониторинга
	if o.metricsAddr != "" {
		config.Monitoring.ListenAddress = o.metricsAddr
		logger.Debug("Override: monitoring.listen_address = %s", o.metricsAddr)
	}

	if o.disableMetrics {
		config.Monitoring.Enabled = false
		logger.Debug("Override: monitoring.enabled = false")
	}

	// Переопределения токенов
	if o.tokenTTL > 0 {
		config.Token.TTL = o.tokenTTL
		logger.Debug("Override: token.ttl = %v", o.tokenTTL)
	}
}
