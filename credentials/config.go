package credentials

import (
	"fmt"
	"time"
)

// Config содержит конфигурацию каталога учетных данных
type Config struct {
	// Provider определяет источник каталога ("static", "s3", "postgres")
	Provider string `yaml:"provider"`

	// Static - каталог, описанный прямо в конфигурации
	Static *Document `yaml:"static,omitempty"`

	// S3 - каталог, хранящийся YAML документом в бакете
	S3 *S3Config `yaml:"s3,omitempty"`

	// Postgres - каталог в базе данных
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// S3Config содержит параметры доступа к документу каталога в S3
type S3Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	Bucket          string        `yaml:"bucket"`
	Key             string        `yaml:"key"`
	AccessKey       string        `yaml:"access_key"`
	SecretKey       string        `yaml:"secret_key"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Timeout         time.Duration `yaml:"timeout"`
}

// PostgresConfig содержит параметры подключения к базе
type PostgresConfig struct {
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// DefaultConfig возвращает конфигурацию по умолчанию: пустой статический каталог
func DefaultConfig() *Config {
	return &Config{
		Provider: "static",
		Static:   &Document{},
	}
}

// DefaultS3Config возвращает значения по умолчанию для провайдера s3
func DefaultS3Config() S3Config {
	return S3Config{
		Region:          "us-east-1",
		Key:             "catalog.yaml",
		RefreshInterval: 30 * time.Second,
		Timeout:         10 * time.Second,
	}
}

// Validate проверяет корректность конфигурации каталога
func (c *Config) Validate() error {
	switch c.Provider {
	case "static":
		if c.Static == nil {
			return fmt.Errorf("%w: static section is required", ErrInvalidConfig)
		}
		return c.Static.Validate()
	case "s3":
		if c.S3 == nil {
			return fmt.Errorf("%w: s3 section is required", ErrInvalidConfig)
		}
		return c.S3.Validate()
	case "postgres":
		if c.Postgres == nil {
			return fmt.Errorf("%w: postgres section is required", ErrInvalidConfig)
		}
		return c.Postgres.Validate()
	case "":
		return fmt.Errorf("%w: provider cannot be empty", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
}

// Validate проверяет конфигурацию провайдера s3
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("%w: s3.bucket cannot be empty", ErrInvalidConfig)
	}
	if c.Key == "" {
		return fmt.Errorf("%w: s3.key cannot be empty", ErrInvalidConfig)
	}
	if c.Region == "" {
		return fmt.Errorf("%w: s3.region cannot be empty", ErrInvalidConfig)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("%w: s3.access_key and s3.secret_key must be set together", ErrInvalidConfig)
	}
	if c.RefreshInterval < 0 || c.Timeout < 0 {
		return fmt.Errorf("%w: s3 intervals cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Validate проверяет конфигурацию провайдера postgres
func (c *PostgresConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("%w: postgres.dsn cannot be empty", ErrInvalidConfig)
	}
	return nil
}

// NewCatalogFromConfig создает каталог на основе конфигурации.
// Каталог s3 возвращается незапущенным: фоновое обновление запускает вызывающий.
func NewCatalogFromConfig(cfg *Config) (Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		catalog Catalog
		err     error
	)
	switch cfg.Provider {
	case "static":
		catalog, err = NewMemoryCatalogFromDocument(cfg.Static)
	case "s3":
		catalog, err = NewS3Catalog(*cfg.S3)
	case "postgres":
		catalog, err = OpenSQLCatalog(*cfg.Postgres)
	default:
		err = fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return catalog, nil
}
