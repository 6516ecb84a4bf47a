package auth

import (
	"context"
	"errors"
	"time"

	"s3authn/credentials"
	"s3authn/signer"
)

// Authenticator - универсальный интерфейс проверки подписанных запросов.
type Authenticator interface {
	// Validate возвращает ровно один вердикт. Ошибка означает, что вердикт
	// вынести нельзя: запрос некорректен (signer.ErrMalformedRequest,
	// ErrUnsupportedClaim) или произошел внутренний сбой.
	Validate(ctx context.Context, claim Claim) (Verdict, error)
}

// ClaimKind - вид заявки. Совпадает с суффиксом ключа в теле запроса.
type ClaimKind string

const (
	KindS3  ClaimKind = "s3Credentials"
	KindEC2 ClaimKind = "ec2Credentials"
)

// Claim - подписанная заявка клиента одного из поддерживаемых видов.
type Claim interface {
	Kind() ClaimKind
	AccessKey() string
}

// S3Claim - запрос, подписанный по схеме S3.
type S3Claim struct {
	Request   signer.Request
	Signature signer.Signature
}

func (c *S3Claim) Kind() ClaimKind   { return KindS3 }
func (c *S3Claim) AccessKey() string { return c.Request.AccessKeyID }

// EC2Claim - запрос, подписанный по схеме EC2 v2.
type EC2Claim struct {
	Request   signer.EC2Request
	Signature signer.Signature
}

func (c *EC2Claim) Kind() ClaimKind   { return KindEC2 }
func (c *EC2Claim) AccessKey() string { return c.Request.AccessKeyID }

// Verifier проверяет подпись заявки своего вида секретом из учетных данных.
// Возвращает nil, ErrSignatureMismatch, ErrSignatureExpired или ошибку запроса.
type Verifier interface {
	Verify(cred credentials.AccessCredential, claim Claim, now time.Time) error
}

// Reason - машинный код причины отказа.
type Reason string

const (
	ReasonCredentialNotFound Reason = "CredentialNotFound"
	ReasonTenantUnavailable  Reason = "TenantUnavailable"
	ReasonSignatureMismatch  Reason = "SignatureMismatch"
	ReasonSignatureExpired   Reason = "SignatureExpired"
)

// Verdict - результат одной попытки аутентификации: Authorized или Unauthorized.
type Verdict interface {
	verdict()
}

// Authorized - подпись верна, пользователь и его роли определены.
type Authorized struct {
	UserID   string
	TenantID string
	Roles    []credentials.Role
}

// Unauthorized - отказ. Все причины снаружи выглядят как 401.
type Unauthorized struct {
	Reason  Reason
	Message string
}

func (Authorized) verdict()   {}
func (Unauthorized) verdict() {}

// Пользовательские ошибки для точной диагностики
var (
	// ErrUnsupportedClaim - вид заявки не зарегистрирован.
	ErrUnsupportedClaim = errors.New("unsupported credentials type")
	// ErrSignatureMismatch - вычисленная подпись не совпадает с предоставленной.
	ErrSignatureMismatch = errors.New("signature does not match")
	// ErrSignatureExpired - срок действия подписи истек.
	ErrSignatureExpired = errors.New("signature has expired")
)
