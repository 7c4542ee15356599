package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to users and metrics.
const (
	CodeAuthorizationDenied      = "AUTHORIZATION_DENIED"
	CodeInvalidContext           = "INVALID_CONTEXT"
	CodePlatformPermissionDenied = "PLATFORM_PERMISSION_DENIED"
	CodeSessionExpired           = "SESSION_EXPIRED"
	CodeConfigurationMissing     = "CONFIGURATION_MISSING"
	CodeValidationFailed         = "VALIDATION_FAILED"
	CodeNotFound                 = "NOT_FOUND"
	CodeConflict                 = "CONFLICT"
	CodeInternal                 = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewAuthorizationDenied is returned when the actor fails the access policy.
func NewAuthorizationDenied(message string) error {
	return NewDomainError(CodeAuthorizationDenied, message, http.StatusForbidden, nil)
}

// NewInvalidContext is returned for actions outside a ticket channel or
// against an identity that is not in the guild.
func NewInvalidContext(message string) error {
	return NewDomainError(CodeInvalidContext, message, http.StatusBadRequest, nil)
}

// NewPlatformPermissionDenied wraps a forbidden response from the platform.
func NewPlatformPermissionDenied(message string, err error) error {
	return &DomainError{
		Code:       CodePlatformPermissionDenied,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewSessionExpired is returned for clicks on a menu or picker that has
// expired or already finished.
func NewSessionExpired(message string) error {
	return NewDomainError(CodeSessionExpired, message, http.StatusGone, nil)
}

func NewConfigurationMissing(message string) error {
	return NewDomainError(CodeConfigurationMissing, message, http.StatusServiceUnavailable, nil)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "Something went wrong while handling this request.",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}

// HasCode reports whether err carries the given DomainError code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
