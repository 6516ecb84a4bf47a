package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"s3authn/apigw"
	"s3authn/auth"
	"s3authn/credentials"
	"s3authn/signer"
	"s3authn/token"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Validate(ctx context.Context, claim auth.Claim) (auth.Verdict, error) {
	args := m.Called(ctx, claim)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Verdict), args.Error(1)
}

func newIssuer(t *testing.T) *token.Issuer {
	t.Helper()
	issuer, err := token.NewIssuer(&token.Config{TTL: time.Hour})
	require.NoError(t, err)
	issuer.SetClock(func() time.Time { return time.Date(2011, 12, 1, 10, 0, 0, 0, time.UTC) })
	return issuer
}

func newUsers() *credentials.MemoryCatalog {
	c := credentials.NewMemoryCatalog()
	c.AddUser(credentials.User{ID: "1", Name: "auth_user"})
	return c
}

func s3Request() *apigw.TokenRequest {
	return &apigw.TokenRequest{
		Claim: &auth.S3Claim{
			Request:   signer.Request{AccessKeyID: "xpd285.access", Verb: "PUT", Path: "/test.txt"},
			Signature: "sig",
		},
		Context: context.Background(),
	}
}

func TestTokenHandler_Authorized(t *testing.T) {
	authenticator := &MockAuthenticator{}
	authenticator.On("Validate", mock.Anything, mock.Anything).Return(auth.Authorized{
		UserID:   "1",
		TenantID: "1234",
		Roles:    []credentials.Role{{ID: "0", Name: "regular_role", Description: "regular role"}},
	}, nil)

	h := NewTokenHandler(authenticator, newIssuer(t), newUsers())
	resp := h.Handle(s3Request())

	require.NoError(t, resp.Error)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env, ok := resp.Body.(apigw.AccessEnvelope)
	require.True(t, ok, "body must be an access envelope")
	assert.NotEmpty(t, env.Access.Token.ID)
	assert.Equal(t, "2011-12-01T11:00:00.000000", env.Access.Token.Expires)
	assert.Equal(t, apigw.UserBody{
		ID:    "1",
		Name:  "auth_user",
		Roles: []apigw.RoleBody{{ID: "0", Name: "regular_role", Description: "regular role"}},
	}, env.Access.User)
	authenticator.AssertExpectations(t)
}

func TestTokenHandler_EmptyRolesSerializeAsList(t *testing.T) {
	authenticator := &MockAuthenticator{}
	authenticator.On("Validate", mock.Anything, mock.Anything).Return(auth.Authorized{UserID: "1", TenantID: "1234"}, nil)

	resp := NewTokenHandler(authenticator, newIssuer(t), newUsers()).Handle(s3Request())
	env := resp.Body.(apigw.AccessEnvelope)
	assert.NotNil(t, env.Access.User.Roles)
	assert.Empty(t, env.Access.User.Roles)
}

func TestTokenHandler_Unauthorized(t *testing.T) {
	authenticator := &MockAuthenticator{}
	authenticator.On("Validate", mock.Anything, mock.Anything).Return(auth.Unauthorized{
		Reason:  auth.ReasonCredentialNotFound,
		Message: "No credentials found for xpd285.access",
	}, nil)

	resp := NewTokenHandler(authenticator, newIssuer(t), newUsers()).Handle(s3Request())

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apigw.UnauthorizedEnvelope{Unauthorized: apigw.Fault{
		Code:    "401",
		Message: "No credentials found for xpd285.access",
	}}, resp.Body)
}

func TestTokenHandler_Errors(t *testing.T) {
	t.Run("ValidatorError", func(t *testing.T) {
		authenticator := &MockAuthenticator{}
		authenticator.On("Validate", mock.Anything, mock.Anything).Return(nil, signer.ErrMalformedRequest)

		resp := NewTokenHandler(authenticator, newIssuer(t), newUsers()).Handle(s3Request())
		assert.ErrorIs(t, resp.Error, signer.ErrMalformedRequest)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		authenticator := &MockAuthenticator{}
		authenticator.On("Validate", mock.Anything, mock.Anything).Return(auth.Authorized{UserID: "42", TenantID: "1234"}, nil)

		resp := NewTokenHandler(authenticator, newIssuer(t), newUsers()).Handle(s3Request())
		assert.ErrorIs(t, resp.Error, credentials.ErrNotFound)
	})

	t.Run("UserDirectoryFailure", func(t *testing.T) {
		authenticator := &MockAuthenticator{}
		authenticator.On("Validate", mock.Anything, mock.Anything).Return(auth.Authorized{UserID: "1", TenantID: "1234"}, nil)
		boom := errors.New("db is down")

		resp := NewTokenHandler(authenticator, newIssuer(t), failingUsers{err: boom}).Handle(s3Request())
		assert.ErrorIs(t, resp.Error, boom)
	})
}

type failingUsers struct{ err error }

func (f failingUsers) User(context.Context, string) (credentials.User, error) {
	return credentials.User{}, f.err
}

func TestTokenHandler_WithValidator(t *testing.T) {
	catalog := credentials.NewMemoryCatalog()
	catalog.AddTenant(credentials.Tenant{ID: "1234", Name: "ANOTHER:TENANT"})
	catalog.AddUser(credentials.User{ID: "1", Name: "auth_user"})
	catalog.AddRole(credentials.Role{ID: "0", Name: "regular_role", Description: "regular role"})
	require.NoError(t, catalog.GrantRole("1", "1234", "0"))
	require.NoError(t, catalog.AddCredential(credentials.AccessCredential{
		AccessKeyID: "xpd285.access", Secret: "345fgi.secret", UserID: "1", TenantID: "1234",
	}))

	h := NewTokenHandler(auth.NewCatalogValidator(catalog), newIssuer(t), catalog)

	req := s3Request()
	claim := req.Claim.(*auth.S3Claim)
	sig, err := signer.SignRequest("345fgi.secret", &claim.Request)
	require.NoError(t, err)
	claim.Signature = sig

	resp := h.Handle(req)
	require.NoError(t, resp.Error)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	claim.Signature = "bogus"
	resp = h.Handle(req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid signature", resp.Body.(apigw.UnauthorizedEnvelope).Unauthorized.Message)
}

func TestMockHandler(t *testing.T) {
	h := NewMockHandler(newIssuer(t))

	resp := h.Handle(s3Request())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := resp.Body.(apigw.AccessEnvelope)
	assert.Equal(t, "xpd285.access", env.Access.User.Name)

	resp = h.Handle(&apigw.TokenRequest{Claim: &auth.EC2Claim{}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
