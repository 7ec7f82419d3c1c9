// Package errors provides structured error types for stackctl.
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode identifies specific error conditions
type ErrorCode string

const (
	ErrCodeConfig       ErrorCode = "CONFIG_ERROR"
	ErrCodeUnknownDep   ErrorCode = "UNKNOWN_DEPENDENCY"
	ErrCodeCircularDep  ErrorCode = "CIRCULAR_DEPENDENCY"
	ErrCodeResolution   ErrorCode = "RESOLUTION_ERROR"
	ErrCodeHook         ErrorCode = "HOOK_ERROR"
	ErrCodeProvider     ErrorCode = "PROVIDER_ERROR"
	ErrCodeTemplate     ErrorCode = "TEMPLATE_ERROR"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeCancelled    ErrorCode = "CANCELLED"
	ErrCodeUpstream     ErrorCode = "UPSTREAM_FAILED"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
)

// Error is the base error type for stackctl
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Wrap creates a new error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: make(map[string]interface{}),
	}
}

// WithDetail adds a single detail to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// UnknownDependency creates an error for a dependency that does not match
// any stack in the project.
func UnknownDependency(stack, target string) *Error {
	return &Error{
		Code:    ErrCodeUnknownDep,
		Message: fmt.Sprintf("stack %q depends on unknown stack %q", stack, target),
		Details: map[string]interface{}{
			"stack":  stack,
			"target": target,
		},
	}
}

// CircularDependency creates an error enumerating the members of a
// dependency cycle in order.
func CircularDependency(cycle []string) *Error {
	return &Error{
		Code:    ErrCodeCircularDep,
		Message: fmt.Sprintf("circular dependency: %s", strings.Join(cycle, " -> ")),
		Details: map[string]interface{}{
			"cycle": cycle,
		},
	}
}

// UpstreamFailed creates the error recorded on a stack that never ran
// because one of its prerequisites failed.
func UpstreamFailed(stack, dependency string, cause error) *Error {
	return &Error{
		Code:    ErrCodeUpstream,
		Message: fmt.Sprintf("stack %q not run: dependency %q failed", stack, dependency),
		Cause:   cause,
		Details: map[string]interface{}{
			"stack":      stack,
			"dependency": dependency,
		},
	}
}

// Cancelled creates the error recorded on a stack that never ran because
// the run was aborted.
func Cancelled(stack string) *Error {
	return &Error{
		Code:    ErrCodeCancelled,
		Message: fmt.Sprintf("stack %q not run: execution cancelled", stack),
		Details: map[string]interface{}{
			"stack": stack,
		},
	}
}

// ResolutionError creates an error for a resolver failure on a stack attribute.
func ResolutionError(resolver, message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeResolution,
		Message: fmt.Sprintf("resolver %q: %s", resolver, message),
		Cause:   cause,
		Details: map[string]interface{}{
			"resolver": resolver,
		},
	}
}

// HookError creates an error for a failing hook at a named hook point.
func HookError(point string, cause error) *Error {
	return &Error{
		Code:    ErrCodeHook,
		Message: fmt.Sprintf("hook %q failed", point),
		Cause:   cause,
		Details: map[string]interface{}{
			"point": point,
		},
	}
}

// Is checks if the error matches the given code
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
