package apigw

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"s3authn/auth"
	"s3authn/logger"
	"s3authn/signer"
)

// RequestParser отвечает за парсинг HTTP запросов в TokenRequest
type RequestParser struct {
	maxBodyBytes int64
}

// NewRequestParser создает новый экземпляр парсера
func NewRequestParser(maxBodyBytes int64) *RequestParser {
	return &RequestParser{maxBodyBytes: maxBodyBytes}
}

// Parse анализирует тело запроса {"auth": {"<ns>:<kind>": {...}}} и создает TokenRequest
func (p *RequestParser) Parse(w http.ResponseWriter, r *http.Request) (*TokenRequest, error) {
	logger.Debug("Parsing HTTP request: %s %s", r.Method, r.URL.Path)

	if p.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, p.maxBodyBytes)
	}

	var body struct {
		Auth map[string]json.RawMessage `json:"auth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, fmt.Errorf("%w: request body exceeds %d bytes", ErrBadRequest, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return nil, fmt.Errorf("%w: empty request body", ErrBadRequest)
		default:
			return nil, fmt.Errorf("%w: malformed JSON: %v", ErrBadRequest, err)
		}
	}
	if len(body.Auth) == 0 {
		return nil, fmt.Errorf("%w: expecting auth", ErrBadRequest)
	}

	namespace, kind, raw, err := p.selectClaim(body.Auth)
	if err != nil {
		logger.Debug("Failed to select claim: %v", err)
		return nil, err
	}

	claim, err := p.decodeClaim(kind, raw)
	if err != nil {
		logger.Debug("Failed to decode %s claim: %v", kind, err)
		return nil, err
	}

	logger.Debug("Parsed %s claim for access key %s", kind, claim.AccessKey())
	return &TokenRequest{
		Claim:      claim,
		Namespace:  namespace,
		RemoteAddr: r.RemoteAddr,
		Context:    r.Context(),
	}, nil
}

// selectClaim находит единственную заявку известного вида.
// Ключ имеет вид "<namespace>:<kind>" или просто "<kind>".
func (p *RequestParser) selectClaim(entries map[string]json.RawMessage) (string, auth.ClaimKind, json.RawMessage, error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		found     []string
		namespace string
		kind      auth.ClaimKind
	)
	for _, k := range keys {
		ns, suffix := splitClaimKey(k)
		switch auth.ClaimKind(suffix) {
		case auth.KindS3, auth.KindEC2:
			found = append(found, k)
			namespace, kind = ns, auth.ClaimKind(suffix)
		default:
			logger.Debug("Ignoring auth entry %q", k)
		}
	}

	switch len(found) {
	case 0:
		return "", "", nil, fmt.Errorf("%w: %s", auth.ErrUnsupportedClaim, strings.Join(keys, ", "))
	case 1:
		return namespace, kind, entries[found[0]], nil
	default:
		return "", "", nil, fmt.Errorf("%w: expected exactly one credentials entry, got %s",
			ErrBadRequest, strings.Join(found, ", "))
	}
}

func splitClaimKey(key string) (namespace, kind string) {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

// decodeClaim преобразует тело заявки в auth.Claim
func (p *RequestParser) decodeClaim(kind auth.ClaimKind, raw json.RawMessage) (auth.Claim, error) {
	switch kind {
	case auth.KindS3:
		var b s3CredentialsBody
		if err := unmarshalClaimBody(kind, raw, &b); err != nil {
			return nil, err
		}
		return &auth.S3Claim{
			Request: signer.Request{
				AccessKeyID:      b.Access,
				Verb:             b.Verb,
				Path:             b.Path,
				ContentType:      b.ContentType,
				ContentMD5:       b.ContentMD5,
				Expire:           b.Expire,
				ExtensionHeaders: b.XHeaders,
			},
			Signature: signer.Signature(b.Signature),
		}, nil
	case auth.KindEC2:
		var b ec2CredentialsBody
		if err := unmarshalClaimBody(kind, raw, &b); err != nil {
			return nil, err
		}
		return &auth.EC2Claim{
			Request: signer.EC2Request{
				AccessKeyID: b.Access,
				Verb:        b.Verb,
				Host:        b.Host,
				Path:        b.Path,
				Params:      b.Params,
			},
			Signature: signer.Signature(b.Signature),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", auth.ErrUnsupportedClaim, kind)
	}
}

func unmarshalClaimBody(kind auth.ClaimKind, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		if errors.Is(err, signer.ErrMalformedRequest) {
			return err
		}
		return fmt.Errorf("%w: invalid %s: %v", ErrBadRequest, kind, err)
	}
	return nil
}

// uniqueStringMap - JSON объект строк без повторяющихся ключей.
// Повтор ключа возвращает signer.ErrMalformedRequest.
type uniqueStringMap map[string]string

func (m *uniqueStringMap) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	out := make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if _, dup := out[key]; dup {
			return fmt.Errorf("%w: duplicate key %q", signer.ErrMalformedRequest, key)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		out[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = out
	return nil
}
