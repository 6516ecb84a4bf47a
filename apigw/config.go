package apigw

import (
	"errors"
	"time"
)

// Config содержит конфигурацию для API Gateway
type Config struct {
	// ListenAddress - адрес и порт для прослушивания (например, ":5000")
	ListenAddress string `yaml:"listen_address"`

	// TLSCertFile - путь к файлу SSL-сертификата (опционально, для включения HTTPS)
	TLSCertFile string `yaml:"tls_cert_file"`

	// TLSKeyFile - путь к файлу приватного ключа SSL (опционально)
	TLSKeyFile string `yaml:"tls_key_file"`

	// ReadTimeout - таймаут на чтение всего запроса, включая тело
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout - таймаут на запись всего ответа
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxBodyBytes - предельный размер тела запроса на выдачу токена
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORSAllowedOrigins - источники, которым разрешены кросс-доменные запросы.
	// Пустой список отключает CORS.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		ListenAddress: ":5000",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		MaxBodyBytes:  64 << 10,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("server.listen_address cannot be empty")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file must be set together")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	return nil
}
