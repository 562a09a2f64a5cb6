package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidPayload = "invalid_payload"

	// Resource errors
	ErrCodeNotFound = "not_found"

	// Throttling
	ErrCodeRateLimited = "rate_limited"

	// Certificate errors
	ErrCodeCertificateFailed = "certificate_failed"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
