package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"hash"
)

// Sign вычисляет подпись S3: base64(HMAC-SHA1(secret, canonical)).
func Sign(secretKey, canonical string) (Signature, error) {
	return sign(sha1.New, secretKey, canonical)
}

// SignEC2 вычисляет подпись EC2 v2: base64(HMAC-SHA256(secret, canonical)).
func SignEC2(secretKey, canonical string) (Signature, error) {
	return sign(sha256.New, secretKey, canonical)
}

func sign(h func() hash.Hash, secretKey, canonical string) (Signature, error) {
	if secretKey == "" {
		return "", ErrInvalidKey
	}
	mac := hmac.New(h, []byte(secretKey))
	mac.Write([]byte(canonical))
	return Signature(base64.StdEncoding.EncodeToString(mac.Sum(nil))), nil
}

// SignRequest - удобная обертка для клиентов: каноникализация и подпись.
func SignRequest(secretKey string, req *Request) (Signature, error) {
	canonical, err := Canonicalize(req)
	if err != nil {
		return "", err
	}
	return Sign(secretKey, canonical)
}

// SignEC2Request - то же для запросов EC2.
func SignEC2Request(secretKey string, req *EC2Request) (Signature, error) {
	canonical, err := CanonicalizeEC2(req)
	if err != nil {
		return "", err
	}
	return SignEC2(secretKey, canonical)
}
