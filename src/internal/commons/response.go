package commons

// Response is the envelope every HTTP endpoint returns. Message is a short
// human-readable summary; Errors carries field-level detail. Neither drives
// behavior: callers that need to branch use the typed error returned next to
// the envelope.
type Response[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    *T       `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// SuccessResponse wraps a settled result. Data is always set when Success is
// true.
func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    &data,
	}
}

// ErrorResponse reports a failed call with no payload. The HTTP status comes
// from the accompanying typed error, not from these strings.
func ErrorResponse[T any](message string, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}
