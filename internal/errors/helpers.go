package errors

import (
	"fmt"
	"time"
)

// Common error creators for frequent use cases

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s not found", resource))
}

// NewRateLimitError creates a quota/throttle error carrying enough structure
// for the caller to explain the rejection
func NewRateLimitError(message string, current, limit int, window time.Duration) *AppError {
	return New(ErrCodeRateLimit, message).
		WithContext("current", current).
		WithContext("limit", limit).
		WithContext("window", window.String()).
		WithUserMessage("Too many requests, please try again later")
}

// WithRetryAfter attaches a retry-after hint to a rate limit error
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	if d < 0 {
		d = 0
	}
	return e.WithContext("retry_after", d.String())
}

// NewPolicyRejection creates a compliance rejection with the evaluation
// snapshot attached
func NewPolicyRejection(reason string, snapshot interface{}) *AppError {
	return New(ErrCodePolicyRejected, reason).
		WithContext("evaluation", snapshot).
		WithUserMessage(reason)
}

// NewUnconfiguredError reports a missing configuration target, distinct from
// not-found
func NewUnconfiguredError(message string) *AppError {
	return New(ErrCodeUnconfigured, message).
		WithUserMessage(message)
}

// NewAuthError creates an authentication error
func NewAuthError(reason string) *AppError {
	return New(ErrCodeAuthentication, "authentication failed").
		WithContext("reason", reason).
		WithUserMessage("Authentication failed")
}

// HTTP helpers

// HTTPStatusCode maps error codes to appropriate HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed, ErrCodeInvalidConfig:
		return 400
	case ErrCodeAuthentication:
		return 401
	case ErrCodePolicyRejected:
		return 403
	case ErrCodeNotFound:
		return 404
	case ErrCodeUnconfigured:
		return 409
	case ErrCodeRateLimit:
		return 429
	case ErrCodeDelivery:
		if IsRetryable(err) {
			return 502
		}
		return 500
	default:
		return 500
	}
}

// HTTPErrorResponse is the standardized error body returned by the API
type HTTPErrorResponse struct {
	Error struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Context interface{} `json:"context,omitempty"`
	} `json:"error"`
}

// ToHTTPResponse converts an error to a standardized HTTP response
func ToHTTPResponse(err error) HTTPErrorResponse {
	var response HTTPErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response.Error.Code = appErr.Code
		response.Error.Message = appErr.Message
		if len(appErr.Context) > 0 {
			publicContext := make(map[string]interface{})
			for k, v := range appErr.Context {
				if k != "pin" && k != "token" && k != "secret" {
					publicContext[k] = v
				}
			}
			if len(publicContext) > 0 {
				response.Error.Context = publicContext
			}
		}
	} else {
		response.Error.Code = ErrCodeInternalError
		response.Error.Message = GetUserMessage(err)
	}

	return response
}
