package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a typed error code.
type ErrorCode string

const (
	// ErrorCodeInternal represents an internal server error.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeNotFound represents a resource not found error.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeBadRequest represents a bad request error.
	ErrorCodeBadRequest ErrorCode = "BAD_REQUEST"
	// ErrorCodeUnauthorized represents an unauthorized error.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeForbidden represents a credential that was understood and refused.
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeValidation represents a validation error.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeTimeout represents a timeout error.
	ErrorCodeTimeout ErrorCode = "TIMEOUT"
	// ErrorCodeServiceUnavailable represents a service unavailable error.
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodePayloadTooLarge is returned when a request body exceeds the configured limit.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrorCodeRateLimited is returned when a client exceeds its request rate.
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"

	// ErrorCodeInvalidRange is returned when a start/end page pair is out of bounds.
	ErrorCodeInvalidRange ErrorCode = "INVALID_RANGE"
	// ErrorCodeInvalidOrder is returned when a page order is not a permutation of the document.
	ErrorCodeInvalidOrder ErrorCode = "INVALID_ORDER"
	// ErrorCodeInvalidPageIndex is returned when a referenced page does not exist.
	ErrorCodeInvalidPageIndex ErrorCode = "INVALID_PAGE_INDEX"
	// ErrorCodeWrongPassword is returned when a document cannot be opened with the supplied password.
	ErrorCodeWrongPassword ErrorCode = "WRONG_PASSWORD"
	// ErrorCodeCorrupt is returned when input bytes cannot be parsed as a document.
	ErrorCodeCorrupt ErrorCode = "CORRUPT_DOCUMENT"
	// ErrorCodeInsufficientInputs is returned when an operation needs more input documents.
	ErrorCodeInsufficientInputs ErrorCode = "INSUFFICIENT_INPUTS"
	// ErrorCodePartialFailure marks a single failed item inside a batch that otherwise succeeded.
	ErrorCodePartialFailure ErrorCode = "PARTIAL_FAILURE"
	// ErrorCodeProcessing represents an unexpected failure while transforming a document.
	ErrorCodeProcessing ErrorCode = "PROCESSING_ERROR"
)

// AppError represents an application error with code, message, and HTTP status.
type AppError struct {
	Code             ErrorCode
	Message          string
	HTTPStatus       int
	Err              error
	Details          map[string]interface{}
	HandledByService bool // Indicates if the service has already handled/alerted on this error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so sentinels such as
// ErrWrongPassword work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation         = &AppError{Code: ErrorCodeValidation}
	ErrInvalidRange       = &AppError{Code: ErrorCodeInvalidRange}
	ErrInvalidOrder       = &AppError{Code: ErrorCodeInvalidOrder}
	ErrInvalidPageIndex   = &AppError{Code: ErrorCodeInvalidPageIndex}
	ErrWrongPassword      = &AppError{Code: ErrorCodeWrongPassword}
	ErrCorrupt            = &AppError{Code: ErrorCodeCorrupt}
	ErrInsufficientInputs = &AppError{Code: ErrorCodeInsufficientInputs}
	ErrNotFound           = &AppError{Code: ErrorCodeNotFound}
)

// NewAppError creates a new application error.
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// NewAppErrorWithErr creates a new application error with an underlying error.
func NewAppErrorWithErr(code ErrorCode, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// SetHandledByService marks the error as handled by the service.
func (e *AppError) SetHandledByService(handled bool) *AppError {
	e.HandledByService = handled
	return e
}

// ErrorResponse represents the JSON error response format.
type ErrorResponse struct {
	Error            string                 `json:"error"`
	Code             ErrorCode              `json:"code"`
	Details          map[string]interface{} `json:"details,omitempty"`
	HandledByService bool                   `json:"handled_by_service,omitempty"`
}

// ToErrorResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:            e.Message,
		Code:             e.Code,
		Details:          e.Details,
		HandledByService: e.HandledByService,
	}
}

// ToHTTPStatus maps an error code to HTTP status code.
func ToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrorCodeBadRequest, ErrorCodeValidation,
		ErrorCodeInvalidRange, ErrorCodeInvalidOrder, ErrorCodeInvalidPageIndex,
		ErrorCodeWrongPassword, ErrorCodeCorrupt, ErrorCodeInsufficientInputs:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeTimeout:
		return http.StatusRequestTimeout
	case ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts a standard error to an AppError.
// If the error is or wraps an AppError, that error is returned.
// A body that hit the server's size limit becomes PAYLOAD_TOO_LARGE.
// Otherwise, it wraps it as an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return NewPayloadTooLargeError(tooLarge.Limit)
	}

	return NewAppErrorWithErr(
		ErrorCodeInternal,
		"An internal error occurred",
		http.StatusInternalServerError,
		err,
	)
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// newCoded builds an error whose HTTP status follows from its code.
func newCoded(code ErrorCode, message string) *AppError {
	return NewAppError(code, message, ToHTTPStatus(code))
}

// NewBadRequestError creates a bad request error.
func NewBadRequestError(message string) *AppError {
	return newCoded(ErrorCodeBadRequest, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *AppError {
	return newCoded(ErrorCodeNotFound, message)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return newCoded(ErrorCodeUnauthorized, message)
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *AppError {
	return newCoded(ErrorCodeForbidden, message)
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *AppError {
	return newCoded(ErrorCodeInternal, message)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return newCoded(ErrorCodeValidation, message)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string) *AppError {
	return newCoded(ErrorCodeTimeout, message)
}

// NewServiceUnavailableError creates a service unavailable error.
func NewServiceUnavailableError(message string) *AppError {
	return newCoded(ErrorCodeServiceUnavailable, message)
}

// NewPayloadTooLargeError reports a request body over limit bytes.
func NewPayloadTooLargeError(limit int64) *AppError {
	return newCoded(ErrorCodePayloadTooLarge,
		fmt.Sprintf("Request body exceeds the %d byte limit", limit))
}

// NewRateLimitedError reports a client over its request rate.
func NewRateLimitedError() *AppError {
	return newCoded(ErrorCodeRateLimited, "Too many requests")
}

// NewInvalidRangeError reports a start/end pair outside [1, total].
func NewInvalidRangeError(start, end, total int) *AppError {
	return newCoded(ErrorCodeInvalidRange,
		fmt.Sprintf("Invalid page range %d-%d: document has %d pages", start, end, total))
}

// NewInvalidOrderError reports a page order that is not a permutation of the document.
func NewInvalidOrderError(message string) *AppError {
	return newCoded(ErrorCodeInvalidOrder, message)
}

// NewInvalidPageIndexError reports a page number outside [1, total].
func NewInvalidPageIndexError(page, total int) *AppError {
	return newCoded(ErrorCodeInvalidPageIndex,
		fmt.Sprintf("Invalid page number %d: document has %d pages", page, total))
}

// NewWrongPasswordError reports a failed decryption.
func NewWrongPasswordError(message string) *AppError {
	return newCoded(ErrorCodeWrongPassword, message)
}

// NewCorruptError reports input that cannot be parsed.
func NewCorruptError(message string, err error) *AppError {
	e := newCoded(ErrorCodeCorrupt, message)
	e.Err = err
	return e
}

// NewInsufficientInputsError reports an operation given too few documents.
func NewInsufficientInputsError(message string) *AppError {
	return newCoded(ErrorCodeInsufficientInputs, message)
}

// NewProcessingError wraps an unexpected failure inside a transform.
func NewProcessingError(message string, err error) *AppError {
	e := newCoded(ErrorCodeProcessing, message)
	e.Err = err
	return e
}
