package errors

import (
	stderrors "errors"
	"fmt"
	"reflect"
)

// AppError is the unified error type of the runtime.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code. This lets
// callers match against the package sentinels with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Sentinels for errors.Is matching. Never mutate them; the constructors
// below return fresh values.
var (
	ErrAlreadyRegistered  = New(ErrCodeAlreadyRegistered, "already registered")
	ErrNotFound           = New(ErrCodeNotFound, "not found")
	ErrTypeMismatch       = New(ErrCodeTypeMismatch, "type mismatch")
	ErrAlreadyTracked     = New(ErrCodeAlreadyTracked, "already tracked")
	ErrNotTracked         = New(ErrCodeNotTracked, "not tracked")
	ErrDisposed           = New(ErrCodeDisposed, "disposed")
	ErrAlreadyInitialized = New(ErrCodeAlreadyInitialized, "already initialized")
	ErrNotInitialized     = New(ErrCodeNotInitialized, "not initialized")
	ErrReentrantSingleton = New(ErrCodeReentrantSingleton, "re-entrant singleton")
	ErrInvalidInput       = New(ErrCodeInvalidInput, "invalid input")
	ErrCallbackFailed     = New(ErrCodeCallbackFailed, "callback failed")
	ErrCanceled           = New(ErrCodeCanceled, "canceled")
)

// --- Constructors ---

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// AlreadyRegistered creates an error for a duplicate registration.
func AlreadyRegistered(t reflect.Type, selector string) *AppError {
	return &AppError{
		Code:    ErrCodeAlreadyRegistered,
		Message: fmt.Sprintf("A resolution for %s (selector %q) is already registered.", typeName(t), selector),
		Details: map[string]any{"type": typeName(t), "selector": selector},
	}
}

// NotFound creates an error for a lookup that matched no registration.
func NotFound(t reflect.Type, selector string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("No resolution registered for %s (selector %q).", typeName(t), selector),
		Details: map[string]any{"type": typeName(t), "selector": selector},
	}
}

// TypeMismatch creates an error for a resolved value of the wrong type.
func TypeMismatch(want reflect.Type, got any) *AppError {
	return &AppError{
		Code:    ErrCodeTypeMismatch,
		Message: fmt.Sprintf("Resolved value of type %T is not assignable to %s.", got, typeName(want)),
		Details: map[string]any{"want": typeName(want), "got": fmt.Sprintf("%T", got)},
	}
}

// AlreadyTracked creates an error for a resource watched twice in one slot.
func AlreadyTracked(slot string, resource any) *AppError {
	return &AppError{
		Code:    ErrCodeAlreadyTracked,
		Message: fmt.Sprintf("Resource %T is already tracked in slot %s.", resource, slot),
		Details: map[string]any{"slot": slot, "resource": fmt.Sprintf("%T", resource)},
	}
}

// NotTracked creates an error for releasing a resource that is not watched.
func NotTracked(slot string, resource any) *AppError {
	return &AppError{
		Code:    ErrCodeNotTracked,
		Message: fmt.Sprintf("Resource %T is not tracked in slot %s.", resource, slot),
		Details: map[string]any{"slot": slot, "resource": fmt.Sprintf("%T", resource)},
	}
}

// Disposed creates an error for use of a disposed component.
func Disposed(component string) *AppError {
	return &AppError{
		Code:    ErrCodeDisposed,
		Message: fmt.Sprintf("The %s has been disposed.", component),
		Details: map[string]any{"component": component},
	}
}

// AlreadyInitialized creates an error for a repeated create.
func AlreadyInitialized(component string) *AppError {
	return &AppError{
		Code:    ErrCodeAlreadyInitialized,
		Message: fmt.Sprintf("The %s is already initialized.", component),
		Details: map[string]any{"component": component},
	}
}

// NotInitialized creates an error for use of a component before create.
func NotInitialized(component string) *AppError {
	return &AppError{
		Code:    ErrCodeNotInitialized,
		Message: fmt.Sprintf("The %s has not been initialized.", component),
		Details: map[string]any{"component": component},
	}
}

// ReentrantSingleton creates the fatal error raised when the process-wide
// domain is observed before it exists.
func ReentrantSingleton(component string) *AppError {
	return &AppError{
		Code:    ErrCodeReentrantSingleton,
		Message: fmt.Sprintf("The process-wide %s was observed during its own construction.", component),
		Details: map[string]any{"component": component},
	}
}

// Canceled creates an error for a lock wait ended by its context. The context
// error stays reachable through errors.Is.
func Canceled(component string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeCanceled,
		Message: fmt.Sprintf("Waiting for the %s was canceled.", component),
		Details: map[string]any{"component": component},
		Cause:   cause,
	}
}

// InvalidInput creates an error for invalid call arguments.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an error for configuration validation failures.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// CallbackFailed creates an error for a failing convention callback.
func CallbackFailed(unit, callback string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeCallbackFailed,
		Message: fmt.Sprintf("Registration callback %s in %s failed.", callback, unit),
		Details: map[string]any{"unit": unit, "callback": callback},
		Cause:   cause,
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "An unexpected error occurred.",
		Cause:   cause,
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is or wraps an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Wrap converts any error into an AppError, preserving existing AppErrors.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
