package apigw

import (
	"context"
	"errors"

	"s3authn/auth"
)

// TokenRequest - внутреннее представление запроса на выдачу токена.
// Создается модулем API Gateway из http.Request.
type TokenRequest struct {
	// Подписанная заявка, извлеченная из тела запроса.
	Claim auth.Claim

	// Пространство имен ключа заявки (например, "OS-KSS3").
	Namespace string

	// Адрес клиента после обработки X-Forwarded-For/X-Real-IP.
	RemoteAddr string

	// Оригинальный контекст запроса для поддержки таймаутов и отмены.
	Context context.Context
}

// TokenResponse - стандартизированное внутреннее представление ответа.
type TokenResponse struct {
	// HTTP код состояния для отправки клиенту.
	StatusCode int

	// Тело ответа, сериализуемое в JSON (один из конвертов ниже).
	Body any

	// Ошибка, возникшая при обработке. Если не nil, Body игнорируется
	// и формируется конверт badRequest или identityFault.
	Error error
}

// RequestHandler - это интерфейс, который должен реализовывать
// следующий по цепочке модуль.
type RequestHandler interface {
	// Handle принимает распарсенный TokenRequest и возвращает TokenResponse,
	// готовый для отправки клиенту.
	Handle(req *TokenRequest) *TokenResponse
}

// ErrBadRequest - тело запроса не удалось разобрать.
var ErrBadRequest = errors.New("bad request")

// Конверты ответов

type AccessEnvelope struct {
	Access Access `json:"access"`
}

type Access struct {
	Token TokenBody `json:"token"`
	User  UserBody  `json:"user"`
}

type TokenBody struct {
	ID      string `json:"id"`
	Expires string `json:"expires"`
}

type UserBody struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Roles []RoleBody `json:"roles"`
}

type RoleBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Fault - тело ошибки: код дублируется строкой.
type Fault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type UnauthorizedEnvelope struct {
	Unauthorized Fault `json:"unauthorized"`
}

type BadRequestEnvelope struct {
	BadRequest Fault `json:"badRequest"`
}

type IdentityFaultEnvelope struct {
	IdentityFault Fault `json:"identityFault"`
}

type ItemNotFoundEnvelope struct {
	ItemNotFound Fault `json:"itemNotFound"`
}

// Тела заявок

type s3CredentialsBody struct {
	Access      string          `json:"access"`
	Verb        string          `json:"verb"`
	Path        string          `json:"path"`
	Expire      int64           `json:"expire"`
	ContentType string          `json:"content_type"`
	ContentMD5  string          `json:"content_md5"`
	XHeaders    uniqueStringMap `json:"xheaders"`
	Signature   string          `json:"signature"`
}

type ec2CredentialsBody struct {
	Access    string          `json:"access"`
	Signature string          `json:"signature"`
	Host      string          `json:"host"`
	Verb      string          `json:"verb"`
	Path      string          `json:"path"`
	Params    uniqueStringMap `json:"params"`
}
