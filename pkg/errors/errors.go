package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrSignatureInvalid = NewError("SIGNATURE_INVALID", "invalid signature", http.StatusForbidden)
	ErrMalformedRequest = NewError("MALFORMED_REQUEST", "missing or malformed request parameters", http.StatusBadRequest)
	ErrCrypto           = NewError("CRYPTO_ERROR", "message decryption failed", http.StatusBadRequest)
	ErrCryptoConfig     = NewError("CRYPTO_NOT_CONFIGURED", "encryption key not configured", http.StatusInternalServerError)
	ErrAppIDMismatch    = NewError("APP_ID_MISMATCH", "message appid does not match configured appid", http.StatusBadRequest)
	ErrMalformedMessage = NewError("MALFORMED_MESSAGE", "unparseable message body", http.StatusBadRequest)
	ErrBindingStore     = NewError("BINDING_STORE_ERROR", "binding store unavailable", http.StatusInternalServerError)
	ErrPushFailed       = NewError("PUSH_FAILED", "failed to deliver message to user", http.StatusInternalServerError)
	ErrNotFound         = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrInternal         = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
)

type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
}

// NewError creates a sentinel. Details stays nil until a derived copy
// adds one; sentinels are shared package-wide and must never be
// mutated.
func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// clone copies the error including its Details map, so derived errors
// never alias the sentinel's map. Handlers derive errors concurrently;
// a shared map here is a data race and leaks details across requests.
func (e *Error) clone() *Error {
	err := *e
	if e.Details != nil {
		err.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			err.Details[k] = v
		}
	}
	return &err
}

func (e *Error) WithCause(cause error) *Error {
	err := e.clone()
	err.Cause = cause
	return err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := e.clone()
	if err.Details == nil {
		err.Details = make(map[string]interface{})
	}
	err.Details[key] = value
	return err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func Is(err error, appErr *Error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == appErr.Code
	}
	return false
}

func IsCrypto(err error) bool {
	return Is(err, ErrCrypto) || Is(err, ErrAppIDMismatch)
}

func IsPushFailed(err error) bool {
	return Is(err, ErrPushFailed)
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
