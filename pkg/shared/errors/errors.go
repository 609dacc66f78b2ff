// Package errors supplies a small set of operation-tagged error types used
// throughout the triage pipeline so logs and HTTP error bodies carry
// consistent, classifiable failure text instead of ad-hoc fmt.Errorf
// strings.
package errors

import (
	"fmt"
	"strings"
)

// OperationError describes a failed operation with optional component and
// resource context, plus the underlying cause.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to %s", e.Operation)
	if e.Component != "" {
		fmt.Fprintf(&b, ", component: %s", e.Component)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, ", resource: %s", e.Resource)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ", cause: %s", e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo wraps cause as "failed to <action>: <cause>", or returns a plain
// "failed to <action>" error when cause is nil.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return fmt.Errorf("failed to %s", action)
	}
	return fmt.Errorf("failed to %s: %w", action, cause)
}

// FailedToWithDetails builds an OperationError with component and resource
// context attached.
func FailedToWithDetails(action, component, resource string, cause error) error {
	return &OperationError{Operation: action, Component: component, Resource: resource, Cause: cause}
}

// Wrapf wraps err with an additional formatted message, stdlib-style.
// Returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// DatabaseError tags a failure originating from a persistence operation.
func DatabaseError(action string, cause error) error {
	return FailedToWithDetails(action, "database", "", cause)
}

// NetworkError tags a failure reaching a remote endpoint.
func NetworkError(action, endpoint string, cause error) error {
	return FailedToWithDetails(action, "network", endpoint, cause)
}

// ValidationError reports that a named field failed validation.
func ValidationError(field, reason string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, reason)
}

// ConfigurationError reports that a named configuration setting is invalid.
func ConfigurationError(setting, reason string) error {
	return fmt.Errorf("configuration error for setting %s: %s", setting, reason)
}

// TimeoutError reports that an action exceeded its allotted duration.
func TimeoutError(action, duration string) error {
	return fmt.Errorf("timeout while %s after %s", action, duration)
}

// AuthenticationError reports a failed authentication attempt.
func AuthenticationError(reason string) error {
	return fmt.Errorf("authentication failed: %s", reason)
}

// AuthorizationError reports insufficient permissions for an action on a
// resource.
func AuthorizationError(action, resource string) error {
	return fmt.Errorf("authorization failed: insufficient permissions to %s %s", action, resource)
}

// ParseError reports a failure parsing a resource in a given format.
func ParseError(resource, format string, cause error) error {
	return FailedToWithDetails(fmt.Sprintf("parse %s as %s", resource, format), "parser", resource, cause)
}

// IsRetryable is a coarse heuristic over the error text for callers deciding
// whether to back off and retry rather than surface the failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection refused", "service unavailable", "connection reset", "broken pipe"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Chain joins non-nil errors into a single error, skipping nils. Returns
// nil if every error is nil.
func Chain(errs ...error) error {
	var msgs []string
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	switch len(msgs) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s", msgs[0])
	default:
		return fmt.Errorf("multiple errors: %s", strings.Join(msgs, "; "))
	}
}
