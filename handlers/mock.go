package handlers

import (
	"s3authn/apigw"
	"s3authn/auth"
	"s3authn/credentials"
	"s3authn/logger"
)

// MockHandler - тестовая реализация RequestHandler для демонстрации.
// Выдает токен на любую заявку с непустым ключом доступа, подпись не проверяет.
type MockHandler struct {
	issuer TokenIssuer
}

// NewMockHandler создает новый экземпляр тестового обработчика
func NewMockHandler(issuer TokenIssuer) *MockHandler {
	return &MockHandler{issuer: issuer}
}

// Handle реализует интерфейс RequestHandler
func (h *MockHandler) Handle(req *apigw.TokenRequest) *apigw.TokenResponse {
	access := req.Claim.AccessKey()
	logger.Debug("MockHandler: handling %s claim for %s", req.Claim.Kind(), access)

	if access == "" {
		return unauthorizedResponse("No credentials found for ")
	}

	tok := h.issuer.Issue(auth.Authorized{
		UserID:   "mock-" + access,
		TenantID: "mock",
		Roles:    []credentials.Role{{ID: "0", Name: "mock_role", Description: "mock role"}},
	})
	return accessResponse(tok, credentials.User{ID: "mock-" + access, Name: access})
}
