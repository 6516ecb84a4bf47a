package apigw

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"s3authn/auth"
	"s3authn/signer"
)

func newPost(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/tokens", strings.NewReader(body))
}

func TestRequestParser_Parse(t *testing.T) {
	parser := NewRequestParser(DefaultConfig().MaxBodyBytes)

	t.Run("S3Credentials", func(t *testing.T) {
		body := `{"auth": {"OS-KSS3:s3Credentials": {
			"access": "xpd285.access", "verb": "PUT", "path": "/test.txt", "expire": 0,
			"content_type": "text/plain", "content_md5": "1234567890abcdef",
			"xheaders": {"x-amz-acl": "public-read-write"},
			"signature": "sig"}}}`

		req, err := parser.Parse(httptest.NewRecorder(), newPost(body))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		claim, ok := req.Claim.(*auth.S3Claim)
		if !ok {
			t.Fatalf("Expected *auth.S3Claim, got %T", req.Claim)
		}
		if req.Namespace != "OS-KSS3" {
			t.Errorf("Expected namespace 'OS-KSS3', got '%s'", req.Namespace)
		}
		if claim.Request.AccessKeyID != "xpd285.access" || claim.Request.Verb != "PUT" || claim.Request.Path != "/test.txt" {
			t.Errorf("Unexpected request %+v", claim.Request)
		}
		if claim.Request.ContentType != "text/plain" || claim.Request.ContentMD5 != "1234567890abcdef" {
			t.Errorf("Unexpected content fields %+v", claim.Request)
		}
		if claim.Request.ExtensionHeaders["x-amz-acl"] != "public-read-write" {
			t.Errorf("Expected xheaders to be carried, got %v", claim.Request.ExtensionHeaders)
		}
		if claim.Signature != "sig" {
			t.Errorf("Expected signature 'sig', got '%s'", claim.Signature)
		}
	})

	t.Run("EC2CredentialsWithoutNamespace", func(t *testing.T) {
		body := `{"auth": {"ec2Credentials": {"access": "ec2.access", "signature": "s",
			"host": "ec2.example.com", "verb": "GET", "path": "/", "params": {"Action": "DescribeInstances"}}}}`

		req, err := parser.Parse(httptest.NewRecorder(), newPost(body))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		claim, ok := req.Claim.(*auth.EC2Claim)
		if !ok {
			t.Fatalf("Expected *auth.EC2Claim, got %T", req.Claim)
		}
		if claim.Request.Host != "ec2.example.com" || claim.Request.Params["Action"] != "DescribeInstances" {
			t.Errorf("Unexpected request %+v", claim.Request)
		}
		if req.Namespace != "" {
			t.Errorf("Expected empty namespace, got '%s'", req.Namespace)
		}
	})

	t.Run("NullSignature", func(t *testing.T) {
		body := `{"auth": {"OS-KSS3:s3Credentials": {"access": "a", "verb": "GET", "path": "/", "signature": null}}}`
		req, err := parser.Parse(httptest.NewRecorder(), newPost(body))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if sig := req.Claim.(*auth.S3Claim).Signature; sig != "" {
			t.Errorf("Expected empty signature, got '%s'", sig)
		}
	})

	errorTests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"EmptyBody", ``, ErrBadRequest},
		{"InvalidJSON", `{"auth": `, ErrBadRequest},
		{"MissingAuth", `{"credentials": {}}`, ErrBadRequest},
		{"EmptyAuth", `{"auth": {}}`, ErrBadRequest},
		{"UnknownKind", `{"auth": {"passwordCredentials": {"username": "u"}}}`, auth.ErrUnsupportedClaim},
		{"TwoClaims", `{"auth": {"a:s3Credentials": {}, "b:ec2Credentials": {}}}`, ErrBadRequest},
		{"WrongFieldType", `{"auth": {"OS-KSS3:s3Credentials": {"expire": "soon"}}}`, ErrBadRequest},
		{"DuplicateXHeader", `{"auth": {"OS-KSS3:s3Credentials": {"access": "a", "verb": "PUT", "path": "/",
			"xheaders": {"x-amz-acl": "private", "x-amz-acl": "public-read-write"}}}}`, signer.ErrMalformedRequest},
		{"DuplicateEC2Param", `{"auth": {"ec2Credentials": {"access": "a", "verb": "GET", "host": "h", "path": "/",
			"params": {"Action": "DescribeInstances", "Action": "TerminateInstances"}}}}`, signer.ErrMalformedRequest},
		{"NonStringXHeader", `{"auth": {"OS-KSS3:s3Credentials": {"xheaders": {"x-amz-acl": 1}}}}`, ErrBadRequest},
		{"XHeadersNotObject", `{"auth": {"OS-KSS3:s3Credentials": {"xheaders": ["x-amz-acl"]}}}`, ErrBadRequest},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parser.Parse(httptest.NewRecorder(), newPost(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if req != nil {
				t.Errorf("Expected nil request, got %+v", req)
			}
		})
	}

	t.Run("NullXHeaders", func(t *testing.T) {
		body := `{"auth": {"OS-KSS3:s3Credentials": {"access": "a", "verb": "GET", "path": "/", "xheaders": null}}}`
		req, err := parser.Parse(httptest.NewRecorder(), newPost(body))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if headers := req.Claim.(*auth.S3Claim).Request.ExtensionHeaders; len(headers) != 0 {
			t.Errorf("Expected no xheaders, got %v", headers)
		}
	})

	t.Run("BodyTooLarge", func(t *testing.T) {
		small := NewRequestParser(16)
		_, err := small.Parse(httptest.NewRecorder(), newPost(`{"auth": {"OS-KSS3:s3Credentials": {"access": "xpd285.access"}}}`))
		if !errors.Is(err, ErrBadRequest) {
			t.Errorf("Expected ErrBadRequest, got %v", err)
		}
	})
}

func TestSplitClaimKey(t *testing.T) {
	tests := []struct {
		key, namespace, kind string
	}{
		{"OS-KSS3:s3Credentials", "OS-KSS3", "s3Credentials"},
		{"s3Credentials", "", "s3Credentials"},
		{"a:b:ec2Credentials", "a:b", "ec2Credentials"},
	}
	for _, tt := range tests {
		ns, kind := splitClaimKey(tt.key)
		if ns != tt.namespace || kind != tt.kind {
			t.Errorf("splitClaimKey(%q) = %q, %q; want %q, %q", tt.key, ns, kind, tt.namespace, tt.kind)
		}
	}
}
