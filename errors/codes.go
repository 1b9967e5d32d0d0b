package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Registration errors
const (
	// ErrCodeAlreadyRegistered indicates a duplicate (type, selector) registration.
	ErrCodeAlreadyRegistered ErrorCode = "ALREADY_REGISTERED"
	// ErrCodeNotFound indicates no registration matched the request.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeTypeMismatch indicates a resolved value is not assignable to the requested type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
)

// Tracking errors
const (
	// ErrCodeAlreadyTracked indicates the resource instance is already watched in the slot.
	ErrCodeAlreadyTracked ErrorCode = "ALREADY_TRACKED"
	// ErrCodeNotTracked indicates the resource instance is not watched in the slot.
	ErrCodeNotTracked ErrorCode = "NOT_TRACKED"
)

// Lifecycle errors
const (
	// ErrCodeDisposed indicates use of a component past its Disposed transition.
	ErrCodeDisposed ErrorCode = "DISPOSED"
	// ErrCodeAlreadyInitialized indicates a second create on a Created component.
	ErrCodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	// ErrCodeNotInitialized indicates use of a component before create.
	ErrCodeNotInitialized ErrorCode = "NOT_INITIALIZED"
	// ErrCodeReentrantSingleton indicates the process-wide domain was observed
	// before it was installed. It is fatal.
	ErrCodeReentrantSingleton ErrorCode = "REENTRANT_SINGLETON"
	// ErrCodeCanceled indicates a cooperative call gave up waiting for a lock.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// General errors
const (
	// ErrCodeInvalidInput indicates the arguments of a call are invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeCallbackFailed indicates a convention callback returned an error or panicked.
	ErrCodeCallbackFailed ErrorCode = "CALLBACK_FAILED"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// fatalCodes are never recoverable by the caller.
var fatalCodes = map[ErrorCode]bool{
	ErrCodeReentrantSingleton: true,
}

// IsFatalCode returns true if the error code denotes an unrecoverable condition.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
