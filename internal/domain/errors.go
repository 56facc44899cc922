package domain

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorCode represents a specific error condition returned by the gateway.
type ErrorCode string

const (
	ErrInvalidAPIKey       ErrorCode = "InvalidAPIKey"       // HTTP 401
	ErrBadRequest          ErrorCode = "BadRequest"          // HTTP 400
	ErrMissingParameter    ErrorCode = "MissingParameter"    // HTTP 422
	ErrMethodNotAllowed    ErrorCode = "MethodNotAllowed"    // HTTP 405
	ErrProviderRejected    ErrorCode = "ProviderRejected"    // HTTP 502, provider answered with a failure
	ErrProviderUnreachable ErrorCode = "ProviderUnreachable" // HTTP 504, no response from provider
	ErrInternal            ErrorCode = "InternalServerError" // HTTP 500
)

// ErrorResponse is the standard error format returned to gateway clients.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}

// ErrorKind classifies a failed provider call.
type ErrorKind string

const (
	// ErrorKindTransport means no HTTP response was obtained.
	ErrorKindTransport ErrorKind = "TransportError"
	// ErrorKindProvider means a response arrived but the provider signalled failure.
	ErrorKindProvider ErrorKind = "ProviderError"
	// ErrorKindValidation means a required parameter was missing before any call was made.
	ErrorKindValidation ErrorKind = "ValidationError"
)

var (
	ErrTransport  = errors.New("provider transport failure")
	ErrProvider   = errors.New("provider reported failure")
	ErrValidation = errors.New("missing required parameter")
)

// Fallback messages used when the provider does not supply one.
const (
	MsgTokenRequestFailed = "Token isteği sırasında hata oluştu"
	MsgRequestFailed      = "İstek sırasında bir hata oluştu"
	MsgUnknownAPIError    = "Bilinmeyen API hatası"
	MsgUnknownError       = "Bilinmeyen hata"
)

const apiErrorPrefix = "API/HTTP hatası: "

// APIError is the error form of a failed Result. It is returned instead of a
// failure Result when the client runs with throw_exceptions enabled.
type APIError struct {
	Kind       ErrorKind
	Message    string
	Status     int
	Body       json.RawMessage
	ResultInfo *ResultInfo
}

func (e *APIError) Error() string {
	return apiErrorPrefix + e.Message
}

// Is lets callers match on ErrTransport or ErrProvider with errors.Is.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case ErrorKindTransport:
		return target == ErrTransport
	case ErrorKindProvider:
		return target == ErrProvider
	}
	return false
}

// Result converts the error into the failure shape of Result.
func (e *APIError) Result() *Result {
	return &Result{
		Success:    false,
		Error:      e.Message,
		Status:     e.Status,
		Body:       e.Body,
		ResultInfo: e.ResultInfo,
		Kind:       e.Kind,
	}
}

// ValidationError reports a required parameter absent from a transfer request.
// It is always returned as an error, whatever the client's error mode.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "Eksik parametre: " + e.Field
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
