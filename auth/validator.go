package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"s3authn/credentials"
	"s3authn/logger"
	"s3authn/signer"
)

var timeNow = time.Now

// Validator выносит вердикт по подписанной заявке, используя каталог
// учетных данных, тенантов и ролей.
type Validator struct {
	store     credentials.Store
	tenants   credentials.TenantDirectory
	roles     credentials.RoleDirectory
	verifiers map[ClaimKind]Verifier
	now       func() time.Time
	metrics   *Metrics
}

// NewValidator создает валидатор с проверяющими для S3 и EC2 заявок.
func NewValidator(store credentials.Store, tenants credentials.TenantDirectory, roles credentials.RoleDirectory) *Validator {
	v := &Validator{
		store:     store,
		tenants:   tenants,
		roles:     roles,
		verifiers: make(map[ClaimKind]Verifier),
		now:       timeNow,
		metrics:   getMetrics(),
	}
	v.Register(KindS3, S3Verifier{})
	v.Register(KindEC2, EC2Verifier{})
	return v
}

// NewCatalogValidator создает валидатор поверх единого каталога.
func NewCatalogValidator(catalog credentials.Catalog) *Validator {
	return NewValidator(catalog, catalog, catalog)
}

// Register добавляет или заменяет проверяющего для вида заявки.
// Вызывается до начала обслуживания запросов.
func (v *Validator) Register(kind ClaimKind, verifier Verifier) {
	v.verifiers[kind] = verifier
}

// SetClock подменяет источник текущего времени.
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

// Validate реализует интерфейс Authenticator.
func (v *Validator) Validate(ctx context.Context, claim Claim) (Verdict, error) {
	start := time.Now()

	verdict, err := v.validate(ctx, claim)

	latency := time.Since(start).Seconds()
	switch vd := verdict.(type) {
	case Authorized:
		v.metrics.AuthRequestsTotal.WithLabelValues("authorized", "").Inc()
		v.metrics.AuthLatency.WithLabelValues("authorized").Observe(latency)
	case Unauthorized:
		v.metrics.AuthRequestsTotal.WithLabelValues("unauthorized", string(vd.Reason)).Inc()
		v.metrics.AuthLatency.WithLabelValues("unauthorized").Observe(latency)
	default:
		reason := "internal"
		if errors.Is(err, signer.ErrMalformedRequest) || errors.Is(err, ErrUnsupportedClaim) {
			reason = "malformed"
		}
		v.metrics.AuthRequestsTotal.WithLabelValues("error", reason).Inc()
		v.metrics.AuthLatency.WithLabelValues("error").Observe(latency)
	}
	return verdict, err
}

func (v *Validator) validate(ctx context.Context, claim Claim) (Verdict, error) {
	if claim == nil || claim.AccessKey() == "" {
		return nil, fmt.Errorf("%w: access key is required", signer.ErrMalformedRequest)
	}
	verifier, ok := v.verifiers[claim.Kind()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedClaim, claim.Kind())
	}

	access := claim.AccessKey()
	logger.Debug("Validating %s claim for access key %s", claim.Kind(), access)

	// 1. Поиск учетных данных
	cred, err := v.store.Lookup(ctx, access)
	if errors.Is(err, credentials.ErrNotFound) {
		logger.Debug("Access key not found: %s", access)
		return Unauthorized{
			Reason:  ReasonCredentialNotFound,
			Message: "No credentials found for " + access,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	// 2. Тенант должен существовать: удаление тенанта не удаляет его учетные данные
	exists, err := v.tenants.TenantExists(ctx, cred.TenantID)
	if err != nil {
		return nil, fmt.Errorf("check tenant %s: %w", cred.TenantID, err)
	}
	if !exists {
		logger.Debug("Tenant %s of access key %s is unavailable", cred.TenantID, access)
		return Unauthorized{
			Reason:  ReasonTenantUnavailable,
			Message: "Unauthorized on this tenant",
		}, nil
	}

	// 3. Проверка подписи и срока действия
	switch err := verifier.Verify(cred, claim, v.now()); {
	case errors.Is(err, ErrSignatureMismatch):
		return Unauthorized{Reason: ReasonSignatureMismatch, Message: "Invalid signature"}, nil
	case errors.Is(err, ErrSignatureExpired):
		return Unauthorized{Reason: ReasonSignatureExpired, Message: "Signature expired"}, nil
	case err != nil:
		return nil, err
	}

	// 4. Роли пользователя в тенанте
	roles, err := v.roles.RolesFor(ctx, cred.UserID, cred.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles for user %s: %w", cred.UserID, err)
	}

	logger.Debug("Access key %s authorized as user %s on tenant %s", access, cred.UserID, cred.TenantID)
	return Authorized{
		UserID:   cred.UserID,
		TenantID: cred.TenantID,
		Roles:    roles,
	}, nil
}
