package signer

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Canonicalize строит каноническую строку S3 запроса:
//
//	VERB\nCONTENT-MD5\nCONTENT-TYPE\nEXPIRE\n[x-amz-name:value\n ...]PATH
//
// Строка EXPIRE пустая, если Expire == 0. Заголовки сортируются по имени.
func Canonicalize(req *Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("%w: request is nil", ErrMalformedRequest)
	}
	if req.Verb == "" {
		return "", fmt.Errorf("%w: verb is required", ErrMalformedRequest)
	}
	if req.Path == "" {
		return "", fmt.Errorf("%w: path is required", ErrMalformedRequest)
	}

	headers, err := extensionHeaders(req.ExtensionHeaders)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	expire := ""
	if req.Expire != 0 {
		expire = strconv.FormatInt(req.Expire, 10)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n%s\n", req.Verb, req.ContentMD5, req.ContentType, expire)
	for _, name := range names {
		fmt.Fprintf(&b, "%s:%s\n", name, headers[name])
	}
	b.WriteString(req.Path)
	return b.String(), nil
}

// extensionHeaders оставляет только заголовки с известным префиксом.
// Имена приводятся к нижнему регистру, значения обрезаются по краям.
func extensionHeaders(in map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for name, value := range in {
		lower := strings.ToLower(strings.TrimSpace(name))
		if !IsExtensionHeader(lower) {
			continue
		}
		if _, dup := out[lower]; dup {
			return nil, fmt.Errorf("%w: duplicate header %q", ErrMalformedRequest, lower)
		}
		out[lower] = strings.TrimSpace(value)
	}
	return out, nil
}

// IsExtensionHeader сообщает, входит ли заголовок в каноническую строку.
func IsExtensionHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range ExtensionHeaderPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// CanonicalizeEC2 строит строку для подписи EC2 версии 2:
//
//	VERB\nhost\npath\nk1=v1&k2=v2
//
// Параметры сортируются по имени и кодируются по RFC 3986.
func CanonicalizeEC2(req *EC2Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("%w: request is nil", ErrMalformedRequest)
	}
	if req.Verb == "" || req.Host == "" {
		return "", fmt.Errorf("%w: verb and host are required", ErrMalformedRequest)
	}
	path := req.Path
	if path == "" {
		path = "/"
	}

	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		if k == "Signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, rfc3986(k)+"="+rfc3986(req.Params[k]))
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		strings.ToUpper(req.Verb), strings.ToLower(req.Host), path, strings.Join(pairs, "&")), nil
}

// rfc3986 кодирует строку, оставляя только незарезервированные символы.
func rfc3986(s string) string {
	// QueryEscape кодирует пробел как '+', а '~' оставляет как есть.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
