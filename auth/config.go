package auth

import (
	"fmt"

	"s3authn/credentials"
)

// Config содержит конфигурацию для модуля аутентификации
type Config struct {
	// Methods - включенные виды заявок ("s3Credentials", "ec2Credentials")
	Methods []string `yaml:"methods"`
}

// DefaultConfig возвращает конфигурацию по умолчанию: все виды заявок включены
func DefaultConfig() *Config {
	return &Config{
		Methods: []string{string(KindS3), string(KindEC2)},
	}
}

// Validate проверяет корректность конфигурации аутентификации
func (c *Config) Validate() error {
	if len(c.Methods) == 0 {
		return fmt.Errorf("auth.methods cannot be empty")
	}
	for _, m := range c.Methods {
		if _, ok := builtinVerifiers[ClaimKind(m)]; !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedClaim, m)
		}
	}
	return nil
}

// builtinVerifiers - проверяющие, доступные для включения через конфигурацию
var builtinVerifiers = map[ClaimKind]Verifier{
	KindS3:  S3Verifier{},
	KindEC2: EC2Verifier{},
}

// NewValidatorFromConfig создает валидатор поверх каталога с включенными видами заявок
func NewValidatorFromConfig(cfg *Config, catalog credentials.Catalog) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v := &Validator{
		store:     catalog,
		tenants:   catalog,
		roles:     catalog,
		verifiers: make(map[ClaimKind]Verifier, len(cfg.Methods)),
		now:       timeNow,
		metrics:   getMetrics(),
	}
	for _, m := range cfg.Methods {
		v.Register(ClaimKind(m), builtinVerifiers[ClaimKind(m)])
	}
	return v, nil
}
