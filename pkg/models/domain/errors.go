package domain

import "fmt"

type ErrorCode string

const (
	CodeValidation             ErrorCode = "VALIDATION_ERROR"
	CodePermissionDenied       ErrorCode = "PERMISSION_DENIED"
	CodeRecommendationNotFound ErrorCode = "RECOMMENDATION_NOT_FOUND"
	CodeUserNotFound           ErrorCode = "USER_NOT_FOUND"
	CodePlanNotEnabled         ErrorCode = "PLAN_NOT_ENABLED"
	CodeScopeMismatch          ErrorCode = "SCOPE_MISMATCH"
	CodeResponseTooLarge       ErrorCode = "RESPONSE_TOO_LARGE"
	CodeProviderTransient      ErrorCode = "PROVIDER_TRANSIENT"
	CodeRetriesExhausted       ErrorCode = "RETRIES_EXHAUSTED"
	CodeCircuitOpen            ErrorCode = "CIRCUIT_OPEN"
	CodeCredentialUnavailable  ErrorCode = "CREDENTIAL_UNAVAILABLE"
)

// Error is the structured failure every operation surfaces. Code is
// machine-readable so an automated caller can decide whether to retry,
// fix its input, or escalate.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	cause   error
}

func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}
