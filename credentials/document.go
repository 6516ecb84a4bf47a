package credentials

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document - описание каталога в YAML. Используется статическим провайдером
// и провайдером, читающим каталог из S3.
type Document struct {
	Tenants     []TenantConfig     `yaml:"tenants"`
	Users       []UserConfig       `yaml:"users"`
	Roles       []RoleConfig       `yaml:"roles"`
	Credentials []CredentialConfig `yaml:"credentials"`
}

type TenantConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// UserConfig содержит пользователя и его роли по тенантам.
type UserConfig struct {
	ID    string      `yaml:"id"`
	Name  string      `yaml:"name"`
	Roles []RoleGrant `yaml:"roles"`
}

// RoleGrant - назначение роли в тенанте.
type RoleGrant struct {
	Tenant string `yaml:"tenant"`
	Role   string `yaml:"role"`
}

type RoleConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// CredentialConfig содержит одну пару ключей.
type CredentialConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UserID    string `yaml:"user_id"`
	TenantID  string `yaml:"tenant_id"`
	Type      string `yaml:"type"`
}

// ParseDocument разбирает YAML документ каталога и проверяет его.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate проверяет документ. Учетные данные могут ссылаться на
// отсутствующий тенант: такие ключи остаются, но не проходят аутентификацию.
func (d *Document) Validate() error {
	roles := make(map[string]bool, len(d.Roles))
	for _, r := range d.Roles {
		if r.ID == "" {
			return fmt.Errorf("%w: role id cannot be empty", ErrInvalidConfig)
		}
		roles[r.ID] = true
	}

	users := make(map[string]bool, len(d.Users))
	for _, u := range d.Users {
		if u.ID == "" {
			return fmt.Errorf("%w: user id cannot be empty", ErrInvalidConfig)
		}
		for _, g := range u.Roles {
			if !roles[g.Role] {
				return fmt.Errorf("%w: user %s references unknown role %q", ErrInvalidConfig, u.ID, g.Role)
			}
		}
		users[u.ID] = true
	}

	for _, t := range d.Tenants {
		if t.ID == "" {
			return fmt.Errorf("%w: tenant id cannot be empty", ErrInvalidConfig)
		}
	}

	accessKeys := make(map[string]bool, len(d.Credentials))
	for _, c := range d.Credentials {
		if c.AccessKey == "" {
			return fmt.Errorf("%w: access_key cannot be empty", ErrInvalidConfig)
		}
		if c.SecretKey == "" {
			return fmt.Errorf("%w: secret_key cannot be empty for %s", ErrInvalidConfig, c.AccessKey)
		}
		if !users[c.UserID] {
			return fmt.Errorf("%w: credential %s references unknown user %q", ErrInvalidConfig, c.AccessKey, c.UserID)
		}
		if c.Type != "" && Kind(c.Type) != KindEC2 {
			return fmt.Errorf("%w: unsupported credential type %q", ErrInvalidConfig, c.Type)
		}
		if accessKeys[c.AccessKey] {
			return fmt.Errorf("%w: duplicate access_key %s", ErrInvalidConfig, c.AccessKey)
		}
		accessKeys[c.AccessKey] = true
	}

	return nil
}
