package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"s3authn/apigw"
	"s3authn/auth"
	"s3authn/credentials"
	"s3authn/logger"
	"s3authn/token"
)

// TokenIssuer выдает токен по успешному вердикту
type TokenIssuer interface {
	Issue(a auth.Authorized) token.Token
}

// TokenHandler связывает проверку подписи, выдачу токена и конверты ответа
type TokenHandler struct {
	authenticator auth.Authenticator
	issuer        TokenIssuer
	users         credentials.UserDirectory
}

// NewTokenHandler создает обработчик запросов на выдачу токенов
func NewTokenHandler(authenticator auth.Authenticator, issuer TokenIssuer, users credentials.UserDirectory) *TokenHandler {
	return &TokenHandler{
		authenticator: authenticator,
		issuer:        issuer,
		users:         users,
	}
}

// Handle реализует интерфейс apigw.RequestHandler
func (h *TokenHandler) Handle(req *apigw.TokenRequest) *apigw.TokenResponse {
	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}

	verdict, err := h.authenticator.Validate(ctx, req.Claim)
	if err != nil {
		logger.Debug("Validation failed for %s: %v", req.Claim.AccessKey(), err)
		return &apigw.TokenResponse{Error: err}
	}

	switch v := verdict.(type) {
	case auth.Unauthorized:
		logger.Info("Rejected %s claim for %s from %s: %s", req.Claim.Kind(), req.Claim.AccessKey(), req.RemoteAddr, v.Reason)
		return unauthorizedResponse(v.Message)
	case auth.Authorized:
		return h.grant(ctx, v)
	default:
		return &apigw.TokenResponse{Error: fmt.Errorf("unexpected verdict %T", verdict)}
	}
}

func (h *TokenHandler) grant(ctx context.Context, a auth.Authorized) *apigw.TokenResponse {
	user, err := h.users.User(ctx, a.UserID)
	if err != nil {
		return &apigw.TokenResponse{Error: fmt.Errorf("resolve user %s: %w", a.UserID, err)}
	}

	tok := h.issuer.Issue(a)
	logger.Info("Issued token for user %s on tenant %s", user.Name, a.TenantID)
	return accessResponse(tok, user)
}

func unauthorizedResponse(message string) *apigw.TokenResponse {
	return &apigw.TokenResponse{
		StatusCode: http.StatusUnauthorized,
		Body: apigw.UnauthorizedEnvelope{Unauthorized: apigw.Fault{
			Code:    strconv.Itoa(http.StatusUnauthorized),
			Message: message,
		}},
	}
}

func accessResponse(tok token.Token, user credentials.User) *apigw.TokenResponse {
	roles := make([]apigw.RoleBody, 0, len(tok.Roles))
	for _, r := range tok.Roles {
		roles = append(roles, apigw.RoleBody{ID: r.ID, Name: r.Name, Description: r.Description})
	}

	return &apigw.TokenResponse{
		StatusCode: http.StatusOK,
		Body: apigw.AccessEnvelope{Access: apigw.Access{
			Token: apigw.TokenBody{ID: tok.ID, Expires: tok.Expires()},
			User:  apigw.UserBody{ID: user.ID, Name: user.Name, Roles: roles},
		}},
	}
}
