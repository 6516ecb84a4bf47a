package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"s3authn/auth"
	"s3authn/credentials"
	"s3authn/logger"
)

// ExpiresLayout - формат поля expires в ответе: UTC с микросекундами
const ExpiresLayout = "2006-01-02T15:04:05.000000"

// Token - непрозрачный токен, выданный после успешной проверки подписи
type Token struct {
	ID        string
	ExpiresAt time.Time
	UserID    string
	TenantID  string
	Roles     []credentials.Role
}

// Expires возвращает срок действия в формате ответа
func (t Token) Expires() string {
	return t.ExpiresAt.UTC().Format(ExpiresLayout)
}

// Config содержит конфигурацию выдачи токенов
type Config struct {
	// TTL - время жизни токена
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{TTL: 24 * time.Hour}
}

var ErrInvalidTTL = errors.New("token ttl must be positive")

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, c.TTL)
	}
	return nil
}

// Issuer выдает токены по вердикту Authorized. Состояние не хранит.
type Issuer struct {
	ttl     time.Duration
	now     func() time.Time
	metrics *Metrics
}

func NewIssuer(cfg *Config) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{
		ttl:     cfg.TTL,
		now:     time.Now,
		metrics: getMetrics(),
	}, nil
}

// SetClock подменяет источник текущего времени
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// Issue создает новый токен. Каждый вызов дает новый идентификатор.
func (i *Issuer) Issue(a auth.Authorized) Token {
	roles := make([]credentials.Role, len(a.Roles))
	copy(roles, a.Roles)

	t := Token{
		ID:        uuid.NewString(),
		ExpiresAt: i.now().UTC().Add(i.ttl),
		UserID:    a.UserID,
		TenantID:  a.TenantID,
		Roles:     roles,
	}

	i.metrics.TokensIssuedTotal.Inc()
	logger.Debug("Issued token for user %s on tenant %s, expires %s", t.UserID, t.TenantID, t.Expires())
	return t
}
