package models

// ErrorType categorizes API errors for clients.
type ErrorType string

const (
	ValidationErrorType ErrorType = "validation_error"
	NotFoundErrorType   ErrorType = "not_found_error"
	GeneralErrorType    ErrorType = "general_error"
)

// APIResponse is the envelope returned by every HTTP endpoint.
type APIResponse struct {
	Status    string    `json:"status"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}
