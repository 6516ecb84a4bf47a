package credentials

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"s3authn/logger"
)

type TenantModel struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

func (TenantModel) TableName() string {
	return "tenants"
}

type UserModel struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (UserModel) TableName() string {
	return "users"
}

// CredentialModel - учетные данные. Внешнего ключа на тенант нет:
// удаление тенанта оставляет записи на месте.
type CredentialModel struct {
	AccessKeyID string `gorm:"column:access_key_id;primaryKey"`
	Secret      string `gorm:"not null"`
	UserID      string `gorm:"index;not null"`
	TenantID    string `gorm:"index;not null"`
	Type        string `gorm:"not null"`
}

func (CredentialModel) TableName() string {
	return "credentials"
}

type RoleModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
}

func (RoleModel) TableName() string {
	return "roles"
}

// RoleAssignmentModel - назначение роли. Seq задает порядок ролей в ответе.
type RoleAssignmentModel struct {
	Seq      uint   `gorm:"primaryKey;autoIncrement"`
	UserID   string `gorm:"uniqueIndex:idx_assignment;not null"`
	TenantID string `gorm:"uniqueIndex:idx_assignment;not null"`
	RoleID   string `gorm:"uniqueIndex:idx_assignment;not null"`
}

func (RoleAssignmentModel) TableName() string {
	return "role_assignments"
}

// SQLCatalog - каталог в PostgreSQL.
type SQLCatalog struct {
	db *gorm.DB
}

// OpenSQLCatalog подключается к базе по DSN из конфигурации.
func OpenSQLCatalog(cfg PostgresConfig) (*SQLCatalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres catalog: %w", err)
	}
	catalog := NewSQLCatalog(db)
	if cfg.AutoMigrate {
		if err := catalog.Migrate(context.Background()); err != nil {
			return nil, err
		}
		logger.Info("Catalog schema migrated")
	}
	return catalog, nil
}

// NewSQLCatalog оборачивает готовое подключение.
func NewSQLCatalog(db *gorm.DB) *SQLCatalog {
	return &SQLCatalog{db: db}
}

// Migrate создает таблицы каталога.
func (c *SQLCatalog) Migrate(ctx context.Context) error {
	err := c.db.WithContext(ctx).AutoMigrate(
		&TenantModel{}, &UserModel{}, &CredentialModel{}, &RoleModel{}, &RoleAssignmentModel{})
	if err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

// Lookup реализует Store.
func (c *SQLCatalog) Lookup(ctx context.Context, accessKeyID string) (AccessCredential, error) {
	var m CredentialModel
	err := c.db.WithContext(ctx).Where("access_key_id = ?", accessKeyID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AccessCredential{}, ErrNotFound
	}
	if err != nil {
		return AccessCredential{}, fmt.Errorf("lookup credential: %w", err)
	}
	return AccessCredential{
		AccessKeyID: m.AccessKeyID,
		Secret:      m.Secret,
		UserID:      m.UserID,
		TenantID:    m.TenantID,
		Kind:        Kind(m.Type),
	}, nil
}

// TenantExists реализует TenantDirectory.
func (c *SQLCatalog) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&TenantModel{}).Where("id = ?", tenantID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lookup tenant: %w", err)
	}
	return count > 0, nil
}

// RolesFor реализует RoleDirectory.
func (c *SQLCatalog) RolesFor(ctx context.Context, userID, tenantID string) ([]Role, error) {
	var models []RoleModel
	err := c.db.WithContext(ctx).
		Joins("JOIN role_assignments ra ON ra.role_id = roles.id").
		Where("ra.user_id = ? AND ra.tenant_id = ?", userID, tenantID).
		Order("ra.seq").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("lookup roles: %w", err)
	}
	roles := make([]Role, 0, len(models))
	for _, m := range models {
		roles = append(roles, Role{ID: m.ID, Name: m.Name, Description: m.Description})
	}
	return roles, nil
}

// User реализует UserDirectory.
func (c *SQLCatalog) User(ctx context.Context, userID string) (User, error) {
	var m UserModel
	err := c.db.WithContext(ctx).Where("id = ?", userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return User{ID: m.ID, Name: m.Name}, nil
}

// Ready проверяет соединение с базой.
func (c *SQLCatalog) Ready(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

// Close закрывает пул соединений.
func (c *SQLCatalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
