package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"s3authn/apigw"
	"s3authn/auth"
	"s3authn/credentials"
	"s3authn/logger"
	"s3authn/monitoring"
	"s3authn/token"
)

// AppConfig содержит полную конфигурацию приложения
type AppConfig struct {
	// Конфигурация API Gateway
	Server ServerConfig `yaml:"server"`

	// Конфигурация логирования
	Logging LoggingConfig `yaml:"logging"`

	// Конфигурация аутентификации
	Auth auth.Config `yaml:"auth"`

	// Конфигурация каталога учетных данных
	Credentials credentials.Config `yaml:"credentials"`

	// Конфигурация выдачи токенов
	Token token.Config `yaml:"token"`

	// Конфигурация мониторинга
	Monitoring monitoring.Config `yaml:"monitoring"`
}

// ServerConfig содержит конфигурацию HTTP сервера
type ServerConfig struct {
	ListenAddress      string        `yaml:"listen_address"`
	TLSCertFile        string        `yaml:"tls_cert_file"`
	TLSKeyFile         string        `yaml:"tls_key_file"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	MaxBodyBytes       int64         `yaml:"max_body_bytes"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	UseMock            bool          `yaml:"use_mock"`
}

// LoggingConfig содержит конфигурацию логирования
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultAppConfig возвращает конфигурацию по умолчанию
func DefaultAppConfig() *AppConfig {
	gw := apigw.DefaultConfig()
	return &AppConfig{
		Server: ServerConfig{
			ListenAddress: gw.ListenAddress,
			ReadTimeout:   gw.ReadTimeout,
			WriteTimeout:  gw.WriteTimeout,
			MaxBodyBytes:  gw.MaxBodyBytes,
			UseMock:       false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logger.FormatConsole),
		},
		Auth:        *auth.DefaultConfig(),
		Credentials: *credentials.DefaultConfig(),
		Token:       *token.DefaultConfig(),
		Monitoring:  *monitoring.DefaultConfig(),
	}
}

// LoadConfig загружает конфигурацию из файла
func LoadConfig(filename string) (*AppConfig, error) {
	// Читаем файл
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", filename, err)
	}
	return config, nil
}

// ParseConfig разбирает YAML поверх конфигурации по умолчанию и валидирует результат
func ParseConfig(data []byte) (*AppConfig, error) {
	// Начинаем с конфигурации по умолчанию
	config := DefaultAppConfig()

	// Парсим YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Подставляем умолчания провайдера s3 для незаданных полей
	if config.Credentials.S3 != nil {
		defaults := credentials.DefaultS3Config()
		if config.Credentials.S3.Region == "" {
			config.Credentials.S3.Region = defaults.Region
		}
		if config.Credentials.S3.Key == "" {
			config.Credentials.S3.Key = defaults.Key
		}
	}

	// Валидируем конфигурацию
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *AppConfig) Validate() error {
	// Валидируем server конфигурацию
	gw := c.ToAPIGatewayConfig()
	if err := gw.Validate(); err != nil {
		return err
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	// Валидируем уровень и формат логирования
	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	if c.Logging.Format != string(logger.FormatConsole) && c.Logging.Format != string(logger.FormatJSON) {
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	// Валидируем конфигурации модулей
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Credentials.Validate(); err != nil {
		return fmt.Errorf("credentials config: %w", err)
	}

	if err := c.Token.Validate(); err != nil {
		return fmt.Errorf("token config: %w", err)
	}

	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}

	return nil
}

// ToAPIGatewayConfig преобразует в конфигурацию API Gateway
func (c *AppConfig) ToAPIGatewayConfig() apigw.Config {
	return apigw.Config{
		ListenAddress:      c.Server.ListenAddress,
		TLSCertFile:        c.Server.TLSCertFile,
		TLSKeyFile:         c.Server.TLSKeyFile,
		ReadTimeout:        c.Server.ReadTimeout,
		WriteTimeout:       c.Server.WriteTimeout,
		MaxBodyBytes:       c.Server.MaxBodyBytes,
		CORSAllowedOrigins: c.Server.CORSAllowedOrigins,
	}
}

// isValidLogLevel проверяет корректность уровня логирования
func isValidLogLevel(level string) bool {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return true
		}
	}
	return false
}

// SaveConfig сохраняет конфигурацию в файл (для генерации примера)
func (c *AppConfig) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
