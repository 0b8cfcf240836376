package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrSchemaViolation    = errors.New("model response violates schema")
	ErrPromptMissing      = errors.New("required prompt is missing")
	ErrValidation         = errors.New("validation failed")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrToolNotFound       = errors.New("tool not found")
	ErrToolExecution      = errors.New("tool execution failed")
)

// Retryable reports whether a caller may resubmit the same request.
func Retryable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrModelInvoke)
}

// Kind names the error category exposed to callers.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrModelInvoke):
		return "backend_unavailable"
	case errors.Is(err, ErrToolNotFound):
		return "tool_not_found"
	case errors.Is(err, ErrToolExecution):
		return "tool_execution_error"
	default:
		return "internal_error"
	}
}
