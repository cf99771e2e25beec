package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool     = errors.New("external tool error")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrTransient        = errors.New("transient failure")
	ErrGenerationFailed = errors.New("generation failed")
	ErrRenderTimeout    = errors.New("render timed out")
	ErrRenderFailed     = errors.New("render failed")
	ErrPersistence      = errors.New("persistence failed")
	ErrInvalidTimeline  = errors.New("invalid timeline")
)

// markers is ordered from most to least specific so Details picks the
// domain kind before the generic ones.
var markers = []struct {
	err  error
	kind ErrorKind
}{
	{ErrGenerationFailed, KindGenerationFailed},
	{ErrRenderTimeout, KindRenderTimeout},
	{ErrRenderFailed, KindRenderFailed},
	{ErrPersistence, KindPersistence},
	{ErrInvalidTimeline, KindInvalidTimeline},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
	{ErrNotFound, KindNotFound},
	{ErrTimeout, KindTimeout},
	{ErrExternalTool, KindExternalTool},
	{ErrTransient, KindTransient},
}

// ErrorKind is the coarse classification surfaced in logs and CLI output.
type ErrorKind string

const (
	KindUnknown          ErrorKind = "unknown"
	KindGenerationFailed ErrorKind = "generation_failed"
	KindRenderTimeout    ErrorKind = "render_timeout"
	KindRenderFailed     ErrorKind = "render_failed"
	KindPersistence      ErrorKind = "persistence_failed"
	KindInvalidTimeline  ErrorKind = "invalid_timeline"
	KindValidation       ErrorKind = "validation"
	KindConfiguration    ErrorKind = "configuration"
	KindNotFound         ErrorKind = "not_found"
	KindTimeout          ErrorKind = "timeout"
	KindExternalTool     ErrorKind = "external_tool"
	KindTransient        ErrorKind = "transient"
)

// ServiceError carries structured context alongside the marker chain built by Wrap.
type ServiceError struct {
	Marker    error
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Component, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Marker, detail)
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Marker, e.Cause}
	}
	return []error{e.Marker}
}

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Component: strings.TrimSpace(component),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the flattened view of a wrapped error used for logging.
type ErrorDetails struct {
	Kind      ErrorKind
	Component string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured information from an error produced by Wrap.
// Plain errors yield KindUnknown and their message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	details := ErrorDetails{Kind: KindUnknown, Message: err.Error()}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Component = svcErr.Component
		details.Operation = svcErr.Operation
		if svcErr.Message != "" {
			details.Message = svcErr.Message
		}
		details.Cause = svcErr.Cause
	}
	for _, m := range markers {
		if errors.Is(err, m.err) {
			details.Kind = m.kind
			break
		}
	}
	return details
}

// IsRetryable reports whether a failure is worth retrying automatically.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidTimeline):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
