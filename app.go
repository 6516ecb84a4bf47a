package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"s3authn/apigw"
	"s3authn/auth"
	"s3authn/credentials"
	"s3authn/handlers"
	"s3authn/logger"
	"s3authn/monitoring"
	"s3authn/token"
)

// refresher - каталог с фоновым обновлением (провайдер s3)
type refresher interface {
	Start() error
	Stop() error
}

// App связывает каталог, валидатор, выдачу токенов, шлюз и мониторинг
type App struct {
	config  *AppConfig
	catalog credentials.Catalog
	gateway *apigw.Gateway
	monitor *monitoring.Monitor
}

// NewApp собирает приложение по конфигурации. Сетевые серверы не запускаются.
func NewApp(config *AppConfig) (*App, error) {
	issuer, err := token.NewIssuer(&config.Token)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	app := &App{config: config}

	// Создаем обработчик в зависимости от конфигурации
	var handler apigw.RequestHandler
	if config.Server.UseMock {
		logger.Info("Using Mock Handler (for testing)")
		handler = handlers.NewMockHandler(issuer)
	} else {
		catalog, err := credentials.NewCatalogFromConfig(&config.Credentials)
		if err != nil {
			return nil, fmt.Errorf("credential catalog: %w", err)
		}
		app.catalog = catalog
		logger.Info("Credential catalog provider: %s", config.Credentials.Provider)

		validator, err := auth.NewValidatorFromConfig(&config.Auth, catalog)
		if err != nil {
			app.closeCatalog()
			return nil, fmt.Errorf("validator: %w", err)
		}
		logger.Info("Enabled claim kinds: %v", config.Auth.Methods)

		handler = handlers.NewTokenHandler(validator, issuer, catalog)
	}

	app.gateway = apigw.New(config.ToAPIGatewayConfig(), handler)

	if config.Monitoring.Enabled {
		var readiness monitoring.ReadinessChecker
		if app.catalog != nil {
			readiness = app.catalog
		}
		monitor, err := monitoring.New(&config.Monitoring, readiness)
		if err != nil {
			app.closeCatalog()
			return nil, fmt.Errorf("failed to create monitoring module: %w", err)
		}
		app.monitor = monitor
	}

	return app, nil
}

// Handler возвращает HTTP обработчик шлюза
func (a *App) Handler() http.Handler {
	return a.gateway
}

// Start запускает фоновое обновление каталога и мониторинг
func (a *App) Start() error {
	if r, ok := a.catalog.(refresher); ok {
		if err := r.Start(); err != nil {
			return fmt.Errorf("failed to start catalog refresher: %w", err)
		}
	}

	if a.monitor != nil {
		if err := a.monitor.Start(); err != nil {
			return fmt.Errorf("failed to start monitoring module: %w", err)
		}
		logger.Info("Monitoring enabled on %s", a.config.Monitoring.ListenAddress)
	} else {
		logger.Info("Monitoring disabled")
	}
	return nil
}

// Serve запускает API Gateway и блокируется до его остановки
func (a *App) Serve() error {
	return a.gateway.Start()
}

// Shutdown останавливает компоненты в обратном порядке
func (a *App) Shutdown(ctx context.Context) {
	if a.monitor != nil {
		a.monitor.SetShuttingDown()
	}

	// Останавливаем API Gateway
	if err := a.gateway.Stop(ctx); err != nil {
		logger.Error("Error stopping API Gateway: %v", err)
	}

	a.closeCatalog()

	// Останавливаем мониторинг
	if a.monitor != nil {
		if err := a.monitor.Stop(ctx); err != nil {
			logger.Error("Error stopping monitoring: %v", err)
		}
	}
}

func (a *App) closeCatalog() {
	if r, ok := a.catalog.(refresher); ok {
		if err := r.Stop(); err != nil {
			logger.Error("Error stopping catalog refresher: %v", err)
		}
	}
	if c, ok := a.catalog.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Error("Error closing catalog: %v", err)
		}
	}
}
