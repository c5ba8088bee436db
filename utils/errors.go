package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// AppError represents an application error that maps onto an HTTP response
type AppError struct {
	Code    int                    // HTTP status code
	Message string                 // User-facing message
	Err     error                  // Underlying error, logged but never returned
	Context map[string]interface{} // Extra fields merged into the response body
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying error to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds a field to the error response
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	e.Context[key] = value
	return e
}

func BadRequestError(message string, err error) *AppError {
	return NewAppError(fiber.StatusBadRequest, message, err)
}

func UnauthorizedError(message string, err error) *AppError {
	return NewAppError(fiber.StatusUnauthorized, message, err)
}

func ForbiddenError(message string, err error) *AppError {
	return NewAppError(fiber.StatusForbidden, message, err)
}

func NotFoundError(message string, err error) *AppError {
	return NewAppError(fiber.StatusNotFound, message, err)
}

func ConflictError(message string, err error) *AppError {
	return NewAppError(fiber.StatusConflict, message, err)
}

func TooManyRequestsError(message string, err error) *AppError {
	return NewAppError(fiber.StatusTooManyRequests, message, err)
}

func InternalServerError(message string, err error) *AppError {
	return NewAppError(fiber.StatusInternalServerError, message, err)
}

// BadGatewayError reports a failure of the remote mail server.
func BadGatewayError(message string, err error) *AppError {
	return NewAppError(fiber.StatusBadGateway, message, err)
}
