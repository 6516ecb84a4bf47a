package credentials

import (
	"context"
	"fmt"
	"sync"
)

type roleKey struct {
	userID   string
	tenantID string
}

// MemoryCatalog хранит каталог в памяти. Все методы потокобезопасны.
type MemoryCatalog struct {
	mu          sync.RWMutex
	tenants     map[string]Tenant
	users       map[string]User
	roles       map[string]Role
	credentials map[string]AccessCredential
	assignments map[roleKey][]string // id ролей в порядке назначения
}

// NewMemoryCatalog создает пустой каталог.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tenants:     make(map[string]Tenant),
		users:       make(map[string]User),
		roles:       make(map[string]Role),
		credentials: make(map[string]AccessCredential),
		assignments: make(map[roleKey][]string),
	}
}

// NewMemoryCatalogFromDocument создает каталог из документа.
func NewMemoryCatalogFromDocument(doc *Document) (*MemoryCatalog, error) {
	c := NewMemoryCatalog()
	if err := c.Load(doc); err != nil {
		return nil, err
	}
	return c, nil
}

// Load целиком заменяет содержимое каталога документом.
// Читатели видят либо старое, либо новое состояние.
func (c *MemoryCatalog) Load(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidConfig)
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	next := NewMemoryCatalog()
	for _, t := range doc.Tenants {
		next.tenants[t.ID] = Tenant{ID: t.ID, Name: t.Name}
	}
	for _, r := range doc.Roles {
		next.roles[r.ID] = Role{ID: r.ID, Name: r.Name, Description: r.Description}
	}
	for _, u := range doc.Users {
		next.users[u.ID] = User{ID: u.ID, Name: u.Name}
		for _, g := range u.Roles {
			key := roleKey{userID: u.ID, tenantID: g.Tenant}
			next.assignments[key] = append(next.assignments[key], g.Role)
		}
	}
	for _, cc := range doc.Credentials {
		kind := Kind(cc.Type)
		if kind == "" {
			kind = KindEC2
		}
		next.credentials[cc.AccessKey] = AccessCredential{
			AccessKeyID: cc.AccessKey,
			Secret:      cc.SecretKey,
			UserID:      cc.UserID,
			TenantID:    cc.TenantID,
			Kind:        kind,
		}
	}

	c.mu.Lock()
	c.tenants = next.tenants
	c.users = next.users
	c.roles = next.roles
	c.credentials = next.credentials
	c.assignments = next.assignments
	c.mu.Unlock()
	return nil
}

// Lookup реализует Store.
func (c *MemoryCatalog) Lookup(ctx context.Context, accessKeyID string) (AccessCredential, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cred, ok := c.credentials[accessKeyID]
	if !ok {
		return AccessCredential{}, ErrNotFound
	}
	return cred, nil
}

// TenantExists реализует TenantDirectory.
func (c *MemoryCatalog) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tenants[tenantID]
	return ok, nil
}

// RolesFor реализует RoleDirectory.
func (c *MemoryCatalog) RolesFor(ctx context.Context, userID, tenantID string) ([]Role, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.assignments[roleKey{userID: userID, tenantID: tenantID}]
	roles := make([]Role, 0, len(ids))
	for _, id := range ids {
		if r, ok := c.roles[id]; ok {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// User реализует UserDirectory.
func (c *MemoryCatalog) User(ctx context.Context, userID string) (User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Ready - каталог в памяти готов всегда.
func (c *MemoryCatalog) Ready(ctx context.Context) error {
	return nil
}

// Len возвращает количество учетных данных.
func (c *MemoryCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.credentials)
}

// Методы провизионирования. Используются тестами и статическим провайдером.

func (c *MemoryCatalog) AddTenant(t Tenant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenants[t.ID] = t
}

// DeleteTenant удаляет тенант. Учетные данные тенанта остаются (осиротевшими).
func (c *MemoryCatalog) DeleteTenant(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tenants, tenantID)
}

func (c *MemoryCatalog) AddUser(u User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

func (c *MemoryCatalog) AddRole(r Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[r.ID] = r
}

// GrantRole назначает роль пользователю в тенанте.
func (c *MemoryCatalog) GrantRole(userID, tenantID, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.roles[roleID]; !ok {
		return fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	key := roleKey{userID: userID, tenantID: tenantID}
	for _, id := range c.assignments[key] {
		if id == roleID {
			return nil
		}
	}
	c.assignments[key] = append(c.assignments[key], roleID)
	return nil
}

// AddCredential регистрирует учетные данные. Тенант должен существовать
// на момент создания.
func (c *MemoryCatalog) AddCredential(cred AccessCredential) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cred.AccessKeyID == "" || cred.Secret == "" {
		return fmt.Errorf("%w: access key and secret are required", ErrInvalidConfig)
	}
	if _, ok := c.users[cred.UserID]; !ok {
		return fmt.Errorf("user %s: %w", cred.UserID, ErrNotFound)
	}
	if _, ok := c.tenants[cred.TenantID]; !ok {
		return fmt.Errorf("tenant %s: %w", cred.TenantID, ErrNotFound)
	}
	if _, dup := c.credentials[cred.AccessKeyID]; dup {
		return fmt.Errorf("%w: duplicate access key %s", ErrInvalidConfig, cred.AccessKeyID)
	}
	if cred.Kind == "" {
		cred.Kind = KindEC2
	}
	c.credentials[cred.AccessKeyID] = cred
	return nil
}

// DeleteCredential удаляет учетные данные.
func (c *MemoryCatalog) DeleteCredential(accessKeyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.credentials, accessKeyID)
}
