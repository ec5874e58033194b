package errors

import "net/http"

// AppError is a request-scoped error carrying an HTTP status code. Handlers
// attach one to the gin context; the error middleware maps it onto the
// response.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Upstream reports the external platform unreachable or erroring.
func Upstream(msg string) *AppError {
	return NewAppError(http.StatusBadGateway, msg)
}
