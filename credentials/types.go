package credentials

import (
	"context"
	"errors"
)

// Kind - тип хранимых учетных данных.
type Kind string

const (
	// KindEC2 - HMAC ключи, которыми подписываются и S3, и EC2 запросы.
	KindEC2 Kind = "EC2"
)

// AccessCredential - пара ключей, привязанная к пользователю и тенанту.
// После выдачи не меняется, может быть только удалена.
type AccessCredential struct {
	AccessKeyID string
	Secret      string
	UserID      string
	TenantID    string
	Kind        Kind
}

// Tenant представляет тенант (проект).
type Tenant struct {
	ID   string
	Name string
}

// User представляет пользователя.
type User struct {
	ID   string
	Name string
}

// Role - роль пользователя в тенанте.
type Role struct {
	ID          string
	Name        string
	Description string
}

// Store ищет учетные данные по ключу доступа.
type Store interface {
	// Lookup возвращает ErrNotFound, если ключа нет.
	// Удаление тенанта не удаляет его учетные данные.
	Lookup(ctx context.Context, accessKeyID string) (AccessCredential, error)
}

// TenantDirectory проверяет существование тенанта.
type TenantDirectory interface {
	TenantExists(ctx context.Context, tenantID string) (bool, error)
}

// RoleDirectory возвращает роли пользователя в тенанте в порядке назначения.
type RoleDirectory interface {
	RolesFor(ctx context.Context, userID, tenantID string) ([]Role, error)
}

// UserDirectory возвращает данные пользователя.
type UserDirectory interface {
	User(ctx context.Context, userID string) (User, error)
}

// Catalog объединяет все справочники. Реализации безопасны для конкурентного чтения.
type Catalog interface {
	Store
	TenantDirectory
	RoleDirectory
	UserDirectory

	// Ready возвращает ошибку, пока каталог не готов обслуживать запросы.
	Ready(ctx context.Context) error
}

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrNotReady - каталог еще не загружен.
	ErrNotReady = errors.New("catalog is not ready")
	// ErrInvalidConfig - некорректная конфигурация провайдера.
	ErrInvalidConfig = errors.New("invalid credentials config")
)
