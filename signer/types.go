package signer

import "errors"

// ExtensionHeaderPrefixes - префиксы заголовков, которые входят в каноническую строку.
// Остальные заголовки отбрасываются без ошибки.
var ExtensionHeaderPrefixes = []string{"x-amz-"}

// Request - запрос, подписанный клиентом по схеме S3 (HMAC-SHA1).
type Request struct {
	// Ключ доступа, которым подписан запрос.
	AccessKeyID string

	// HTTP метод (PUT, GET, ...). Обязателен.
	Verb string

	// Путь ресурса, например "/bucket/key". Обязателен.
	Path string

	ContentType string
	ContentMD5  string

	// Время истечения подписи в секундах Unix. 0 - без проверки срока.
	Expire int64

	// Заголовки расширения вида x-amz-*.
	ExtensionHeaders map[string]string
}

// EC2Request - запрос, подписанный по схеме EC2 signature version 2.
type EC2Request struct {
	AccessKeyID string
	Verb        string
	Host        string
	Path        string

	// Параметры запроса. Параметр Signature в каноническую строку не входит.
	Params map[string]string
}

// Signature - подпись в base64. Сравнивается побайтно.
type Signature string

var (
	// ErrMalformedRequest - отсутствует обязательное поле или заголовки дублируются.
	ErrMalformedRequest = errors.New("malformed signable request")
	// ErrInvalidKey - пустой секретный ключ.
	ErrInvalidKey = errors.New("invalid secret key")
)
