package apigw

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"s3authn/auth"
	"s3authn/logger"
	"s3authn/signer"
)

// ResponseWriter отвечает за формирование HTTP ответов из TokenResponse
type ResponseWriter struct{}

// NewResponseWriter создает новый экземпляр writer'а ответов
func NewResponseWriter() *ResponseWriter {
	return &ResponseWriter{}
}

// WriteResponse записывает TokenResponse в http.ResponseWriter и возвращает
// фактически отправленный код
func (rw *ResponseWriter) WriteResponse(w http.ResponseWriter, resp *TokenResponse) (int, error) {
	logger.Debug("Writing response: status=%d, hasError=%t", resp.StatusCode, resp.Error != nil)

	status, body := resp.StatusCode, resp.Body
	if resp.Error != nil {
		status, body = rw.mapError(resp.Error)
	}
	return status, rw.writeJSON(w, status, body)
}

// mapError сопоставляет ошибку с конвертом. Внутренние детали наружу не попадают.
func (rw *ResponseWriter) mapError(err error) (int, any) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, signer.ErrMalformedRequest),
		errors.Is(err, auth.ErrUnsupportedClaim):
		logger.Debug("Bad request: %v", err)
		return http.StatusBadRequest, BadRequestEnvelope{BadRequest: Fault{
			Code:    strconv.Itoa(http.StatusBadRequest),
			Message: err.Error(),
		}}
	default:
		logger.Error("Request failed: %v", err)
		return http.StatusInternalServerError, IdentityFaultEnvelope{IdentityFault: Fault{
			Code:    strconv.Itoa(http.StatusInternalServerError),
			Message: "An unexpected error occurred",
		}}
	}
}

func (rw *ResponseWriter) writeJSON(w http.ResponseWriter, status int, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Error("Failed to marshal response: %v", err)
		http.Error(w, `{"identityFault":{"code":"500","message":"An unexpected error occurred"}}`,
			http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
