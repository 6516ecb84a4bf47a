package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3authn/signer"
)

const testConfigYAML = `
server:
  listen_address: "127.0.0.1:0"
logging:
  level: error
token:
  ttl: 1h
monitoring:
  enabled: false
credentials:
  provider: static
  static:
    tenants:
      - id: "1234"
        name: "ANOTHER:TENANT"
    roles:
      - id: "0"
        name: regular_role
        description: regular role
    users:
      - id: "1"
        name: auth_user
        roles:
          - tenant: "1234"
            role: "0"
    credentials:
      - access_key: xpd285.access
        secret_key: 345fgi.secret
        user_id: "1"
        tenant_id: "1234"
        type: EC2
      - access_key: orphan.access
        secret_key: orphan.secret
        user_id: "1"
        tenant_id: bad
      - access_key: ec2.access
        secret_key: ec2.secret
        user_id: "1"
        tenant_id: "1234"
`

func newTestServer(t *testing.T, yamlConfig string) *httptest.Server {
	t.Helper()
	config, err := ParseConfig([]byte(yamlConfig))
	require.NoError(t, err)

	app, err := NewApp(config)
	require.NoError(t, err)
	require.NoError(t, app.Start())

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// s3Credentials строит тело заявки, подписывая его секретом
func s3Credentials(t *testing.T, access, secret string, expire int64) map[string]interface{} {
	t.Helper()
	req := &signer.Request{
		AccessKeyID: access,
		Verb:        "PUT",
		Path:        "/test.txt",
		ContentType: "text/plain",
		ContentMD5:  "1234567890abcdef",
		Expire:      expire,
		ExtensionHeaders: map[string]string{
			"x-amz-acl":                    "public-read-write",
			"x-amz-server-side-encryption": "AES256",
		},
	}
	sig, err := signer.SignRequest(secret, req)
	require.NoError(t, err)

	return map[string]interface{}{
		"access":       access,
		"verb":         req.Verb,
		"path":         req.Path,
		"expire":       expire,
		"content_type": req.ContentType,
		"content_md5":  req.ContentMD5,
		"xheaders":     req.ExtensionHeaders,
		"signature":    string(sig),
	}
}

func postTokens(t *testing.T, srv *httptest.Server, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return resp.StatusCode, out
}

func wrap(kind string, creds interface{}) map[string]interface{} {
	return map[string]interface{}{"auth": map[string]interface{}{kind: creds}}
}

func TestTokens_Integration(t *testing.T) {
	srv := newTestServer(t, testConfigYAML)

	t.Run("ValidSignature", func(t *testing.T) {
		creds := s3Credentials(t, "xpd285.access", "345fgi.secret", 0)
		assert.Equal(t, "J80e9Y3fUPVQHc2OLnmWI7yUQz4=", creds["signature"])

		code, body := postTokens(t, srv, "/tokens", wrap("OS-KSS3:s3Credentials", creds))
		require.Equal(t, http.StatusOK, code, "body: %v", body)

		access := body["access"].(map[string]interface{})
		tok := access["token"].(map[string]interface{})
		assert.NotEmpty(t, tok["id"])
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{6}$`, tok["expires"])

		assert.Equal(t, map[string]interface{}{
			"id":   "1",
			"name": "auth_user",
			"roles": []interface{}{
				map[string]interface{}{"id": "0", "name": "regular_role", "description": "regular role"},
			},
		}, access["user"])
	})

	t.Run("VersionedPath", func(t *testing.T) {
		creds := s3Credentials(t, "xpd285.access", "345fgi.secret", 0)
		code, _ := postTokens(t, srv, "/v2.0/tokens", wrap("OS-KSS3:s3Credentials", creds))
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("UnknownAccessKey", func(t *testing.T) {
		creds := s3Credentials(t, "nobody.access", "345fgi.secret", 0)
		code, body := postTokens(t, srv, "/tokens", wrap("OS-KSS3:s3Credentials", creds))
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, map[string]interface{}{
			"unauthorized": map[string]interface{}{
				"code":    "401",
				"message": "No credentials found for nobody.access",
			},
		}, body)
	})

	t.Run("OrphanedTenant", func(t *testing.T) {
		creds := s3Credentials(t, "orphan.access", "orphan.secret", 0)
		code, body := postTokens(t, srv, "/tokens", wrap("OS-KSS3:s3Credentials", creds))
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Unauthorized on this tenant", body["unauthorized"].(map[string]interface{})["message"])
	})

	t.Run("WrongSecret", func(t *testing.T) {
		creds := s3Credentials(t, "xpd285.access", "guessed.secret", 0)
		code, body := postTokens(t, srv, "/tokens", wrap("OS-KSS3:s3Credentials", creds))
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Invalid signature", body["unauthorized"].(map[string]interface{})["message"])
	})

	t.Run("ExpiredSignature", func(t *testing.T) {
		creds := s3Credentials(t, "xpd285.access", "345fgi.secret", 1)
		code, body := postTokens(t, srv, "/tokens", wrap("OS-KSS3:s3Credentials", creds))
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Signature expired", body["unauthorized"].(map[string]interface{})["message"])
	})

	t.Run("RepeatedRequestsGetFreshTokens", func(t *testing.T) {
		creds := s3Credentials(t, "xpd285.access", "345fgi.secret", 0)
		ids := make(map[string]bool)
		for i := 0; i < 3; i++ {
			code, body := postTokens(t, srv, "/tokens", wrap("OS-KSS3:s3Credentials", creds))
			require.Equal(t, http.StatusOK, code)
			id := body["access"].(map[string]interface{})["token"].(map[string]interface{})["id"].(string)
			ids[id] = true
		}
		assert.Len(t, ids, 3)
	})

	t.Run("EC2Credentials", func(t *testing.T) {
		creds := map[string]interface{}{
			"access":    "ec2.access",
			"signature": "zcoRBlO+brAs5FAMTef7QZhWWmetdNoT3LmR8QO+/vw=",
			"host":      "EC2.example.com",
			"verb":      "GET",
			"path":      "",
			"params": map[string]string{
				"Action":           "DescribeInstances",
				"AWSAccessKeyId":   "ec2.access",
				"SignatureMethod":  "HmacSHA256",
				"SignatureVersion": "2",
				"Timestamp":        "2011-10-03T12:00:00Z",
			},
		}
		code, body := postTokens(t, srv, "/tokens", wrap("OS-KSEC2:ec2Credentials", creds))
		assert.Equal(t, http.StatusOK, code, "body: %v", body)
	})

	t.Run("MalformedRequest", func(t *testing.T) {
		creds := s3Credentials(t, "xpd285.access", "345fgi.secret", 0)
		creds["verb"] = ""
		code, body := postTokens(t, srv, "/tokens", wrap("OS-KSS3:s3Credentials", creds))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "400", body["badRequest"].(map[string]interface{})["code"])
	})

	t.Run("UnsupportedCredentials", func(t *testing.T) {
		code, body := postTokens(t, srv, "/tokens", wrap("passwordCredentials", map[string]string{"username": "u"}))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body, "badRequest")
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/tokens", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTokens_DisabledMethod(t *testing.T) {
	srv := newTestServer(t, testConfigYAML+`
auth:
  methods: [s3Credentials]
`)
	code, body := postTokens(t, srv, "/tokens", wrap("ec2Credentials", map[string]interface{}{
		"access": "ec2.access", "host": "h", "verb": "GET", "signature": "s",
	}))
	assert.Equal(t, http.StatusBadRequest, code, "body: %v", body)
}

func TestTokens_MockMode(t *testing.T) {
	config, err := ParseConfig([]byte(testConfigYAML))
	require.NoError(t, err)
	applyCommandLineOverrides(config, overrides{useMock: true})

	app, err := NewApp(config)
	require.NoError(t, err)
	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	creds := s3Credentials(t, "anyone.access", "whatever", 0)
	creds["signature"] = "not checked"
	code, body := postTokens(t, srv, "/tokens", wrap("OS-KSS3:s3Credentials", creds))
	require.Equal(t, http.StatusOK, code)
	user := body["access"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "anyone.access", user["name"])
}

func TestParseConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := ParseConfig([]byte(testConfigYAML))
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:0", config.Server.ListenAddress)
		assert.Equal(t, DefaultAppConfig().Server.ReadTimeout, config.Server.ReadTimeout)
		assert.Equal(t, []string{"s3Credentials", "ec2Credentials"}, config.Auth.Methods)
		assert.Equal(t, "console", config.Logging.Format)
		assert.Len(t, config.Credentials.Static.Credentials, 3)
	})

	t.Run("S3ProviderDefaults", func(t *testing.T) {
		config, err := ParseConfig([]byte(`
credentials:
  provider: s3
  s3:
    bucket: keystone
`))
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", config.Credentials.S3.Region)
		assert.Equal(t, "catalog.yaml", config.Credentials.S3.Key)
	})

	errorCases := map[string]string{
		"InvalidYAML":      "server: [",
		"BadLogLevel":      "logging:\n  level: verbose\n",
		"BadLogFormat":     "logging:\n  format: xml\n",
		"ZeroTTL":          "token:\n  ttl: 0s\n",
		"UnknownProvider":  "credentials:\n  provider: ldap\n",
		"PostgresNoDSN":    "credentials:\n  provider: postgres\n  postgres: {}\n",
		"TLSWithoutKey":    "server:\n  tls_cert_file: cert.pem\n",
		"UnknownAuthKind":  "auth:\n  methods: [sigv4Credentials]\n",
		"MonitoringNoAddr": "monitoring:\n  listen_address: \"\"\n",
	}
	for name, data := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestApplyCommandLineOverrides(t *testing.T) {
	config := DefaultAppConfig()
	applyCommandLineOverrides(config, overrides{
		listenAddr:     ":7000",
		logLevel:       "debug",
		metricsAddr:    ":7001",
		disableMetrics: true,
		tokenTTL:       2 * time.Hour,
	})

	assert.Equal(t, ":7000", config.Server.ListenAddress)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, ":7001", config.Monitoring.ListenAddress)
	assert.False(t, config.Monitoring.Enabled)
	assert.Equal(t, 2*time.Hour, config.Token.TTL)
	assert.False(t, config.Server.UseMock)
}
