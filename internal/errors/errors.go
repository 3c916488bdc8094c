package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
	CodeUpstream       ErrorCode = "UPSTREAM_ERROR"
	CodeTooLarge       ErrorCode = "PAYLOAD_TOO_LARGE"
)

type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return Wrap(nil, code, message)
}

// Wrap attaches cause to a coded error. The cause is logged but never
// serialised to the client.
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Cause:      cause,
		Timestamp:  time.Now().UTC(),
	}
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func ValidationWrap(err error, message string) *AppError {
	return Wrap(err, CodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func BadRequestWrap(err error, message string) *AppError {
	return Wrap(err, CodeBadRequest, message)
}

// Upstream wraps a failed OmniShelf backend call. The message is what the
// dashboard panel shows, e.g. "Failed to load inventory".
func Upstream(err error, message string) *AppError {
	return Wrap(err, CodeUpstream, message)
}

func TooLarge(message string) *AppError {
	return New(CodeTooLarge, message)
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

func ServiceUnavailable(message string) *AppError {
	return New(CodeServiceUnavail, message)
}

var statusByCode = map[ErrorCode]int{
	CodeValidation:     http.StatusBadRequest,
	CodeBadRequest:     http.StatusBadRequest,
	CodeNotFound:       http.StatusNotFound,
	CodeTooLarge:       http.StatusRequestEntityTooLarge,
	CodeRateLimit:      http.StatusTooManyRequests,
	CodeUpstream:       http.StatusBadGateway,
	CodeServiceUnavail: http.StatusServiceUnavailable,
}

// getStatusCode falls back to 500 for CodeInternal and unknown codes.
func getStatusCode(code ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

// WriteError writes the error envelope and logs it: 5xx at error level,
// everything else at warn. Errors that are not AppErrors become a generic 500
// so internal messages do not reach the client. err itself is not modified.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = InternalWrap(err, "An unexpected error occurred")
	}
	out := *appErr
	out.RequestID = requestID

	level := slog.LevelWarn
	if out.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "request failed",
		"error_code", out.Code,
		"error_message", out.Message,
		"status_code", out.StatusCode,
		"request_id", requestID,
		"cause", out.Cause,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(out.StatusCode)
	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: &out}); encodeErr != nil {
		logger.Error("failed to encode error response", "error", encodeErr, "request_id", requestID)
	}
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := SuccessResponse{
		Data:    data,
		Success: true,
	}

	_ = json.NewEncoder(w).Encode(response)
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
