package model

// Stable machine-readable error codes carried by every rejection.
const (
	CodeMissingCredential      = "missing_credential"
	CodeInvalidCredential      = "invalid_credential"
	CodeInsufficientPermission = "insufficient_permission"
	CodeNotFound               = "not_found"
	CodeValidationFailed       = "validation_failed"
	CodeInternal               = "internal_error"
	CodeUnavailable            = "unavailable"
)

// ListResponse is the standard envelope for list endpoints, wrapping results
// in a "resource" array with count metadata.
type ListResponse struct {
	Resource interface{}   `json:"resource"`
	Meta     *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta contains count information for list responses.
type ResponseMeta struct {
	Count int `json:"count"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
// Code is one of the stable machine codes above; Context carries optional
// diagnostic fields and is suppressed outside development mode.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}
