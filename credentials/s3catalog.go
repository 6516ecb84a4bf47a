package credentials

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"s3authn/logger"
)

// ObjectGetter - часть S3 клиента, нужная каталогу. Позволяет подменять клиент в тестах.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Catalog читает YAML документ каталога из бакета и периодически его обновляет.
// Пока первая загрузка не удалась, Ready возвращает ErrNotReady.
// Каталог доступен только для чтения: содержимое задает документ в бакете.
type S3Catalog struct {
	mem *MemoryCatalog

	cfg     S3Config
	client  ObjectGetter
	metrics *Metrics

	// Управление жизненным циклом
	mu       sync.RWMutex
	loaded   bool
	etag     string
	lastErr  error
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewS3Catalog создает каталог с S3 клиентом, настроенным по конфигурации.
func NewS3Catalog(cfg S3Config) (*S3Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsConfig, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for catalog: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	logger.Debug("Catalog S3 client created for s3://%s/%s", cfg.Bucket, cfg.Key)

	return NewS3CatalogWithClient(cfg, client), nil
}

// NewS3CatalogWithClient создает каталог с готовым клиентом.
func NewS3CatalogWithClient(cfg S3Config, client ObjectGetter) *S3Catalog {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultS3Config().RefreshInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultS3Config().Timeout
	}
	return &S3Catalog{
		mem:      NewMemoryCatalog(),
		cfg:      cfg,
		client:   client,
		metrics:  getMetrics(),
		stopChan: make(chan struct{}),
	}
}

// Refresh загружает документ из бакета. Если ETag не изменился, каталог не перестраивается.
func (c *S3Catalog) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(c.cfg.Key),
	})
	if err != nil {
		return c.fail(fmt.Errorf("failed to get catalog s3://%s/%s: %w", c.cfg.Bucket, c.cfg.Key, err))
	}
	defer out.Body.Close()

	etag := aws.ToString(out.ETag)
	c.mu.RLock()
	unchanged := c.loaded && etag != "" && etag == c.etag
	c.mu.RUnlock()
	if unchanged {
		logger.Debug("Catalog unchanged (etag %s)", etag)
		c.metrics.CatalogRefreshTotal.WithLabelValues("unchanged").Inc()
		return nil
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return c.fail(fmt.Errorf("failed to read catalog body: %w", err))
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return c.fail(err)
	}
	if err := c.mem.Load(doc); err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.loaded = true
	c.etag = etag
	c.lastErr = nil
	c.mu.Unlock()

	c.metrics.CatalogRefreshTotal.WithLabelValues("success").Inc()
	c.metrics.CatalogCredentials.Set(float64(c.mem.Len()))
	logger.Info("Catalog loaded from s3://%s/%s: %d credentials", c.cfg.Bucket, c.cfg.Key, c.mem.Len())
	return nil
}

// fail запоминает ошибку. Ранее загруженный каталог продолжает обслуживать запросы.
func (c *S3Catalog) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.metrics.CatalogRefreshTotal.WithLabelValues("error").Inc()
	logger.Warn("Catalog refresh failed: %v", err)
	return err
}

// Lookup реализует Store.
func (c *S3Catalog) Lookup(ctx context.Context, accessKeyID string) (AccessCredential, error) {
	return c.mem.Lookup(ctx, accessKeyID)
}

// TenantExists реализует TenantDirectory.
func (c *S3Catalog) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	return c.mem.TenantExists(ctx, tenantID)
}

// RolesFor реализует RoleDirectory.
func (c *S3Catalog) RolesFor(ctx context.Context, userID, tenantID string) ([]Role, error) {
	return c.mem.RolesFor(ctx, userID, tenantID)
}

// User реализует UserDirectory.
func (c *S3Catalog) User(ctx context.Context, userID string) (User, error) {
	return c.mem.User(ctx, userID)
}

// Len возвращает количество загруженных учетных данных.
func (c *S3Catalog) Len() int {
	return c.mem.Len()
}

// Ready реализует Catalog.
func (c *S3Catalog) Ready(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		if c.lastErr != nil {
			return fmt.Errorf("%w: %v", ErrNotReady, c.lastErr)
		}
		return ErrNotReady
	}
	return nil
}

// LastError возвращает ошибку последнего обновления.
func (c *S3Catalog) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Start выполняет первую загрузку и запускает фоновое обновление.
// Ошибка первой загрузки не фатальна: обновление будет повторено.
func (c *S3Catalog) Start() error {
	if c.IsRunning() {
		return fmt.Errorf("catalog refresher is already running")
	}

	_ = c.Refresh(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("catalog refresher is already running")
	}

	c.wg.Add(1)
	go c.runRefresh(c.stopChan)

	c.running = true
	logger.Info("Catalog refresher started (interval %v)", c.cfg.RefreshInterval)
	return nil
}

// Stop останавливает фоновое обновление.
func (c *S3Catalog) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	close(c.stopChan)
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	c.stopChan = make(chan struct{})
	c.running = false
	c.mu.Unlock()
	logger.Info("Catalog refresher stopped")
	return nil
}

// IsRunning возвращает true, если фоновое обновление запущено.
func (c *S3Catalog) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *S3Catalog) runRefresh(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = c.Refresh(context.Background())
		}
	}
}
