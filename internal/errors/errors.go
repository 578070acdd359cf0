package errors

import (
	"fmt"
)

// EngineError is the structured error type returned by every public
// operation of the engine, storage, codec, quantizer, writer, and
// retriever packages.
type EngineError struct {
	// Kind is the error kind (e.g. DimensionMismatch).
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Details contains additional context as key-value pairs, e.g.
	// "expected": "128", "got": "96".
	Details map[string]string

	// Cause is the underlying error that caused this error, if any.
	Cause error

	// Retryable indicates whether the caller may retry the operation.
	Retryable bool
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *EngineError with the same Kind,
// enabling errors.Is(err, &EngineError{Kind: KindDimensionMismatch}).
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail adds a key-value detail to the error and returns it for chaining.
func (e *EngineError) WithDetail(key, value string) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an EngineError of the given kind.
func New(kind Kind, message string, cause error) *EngineError {
	return &EngineError{
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		Retryable: retryable(kind),
	}
}

// Wrap creates an EngineError from an existing error. Returns nil if
// err is nil, so call sites can write `return errors.Wrap(Kind, err)`
// unconditionally.
func Wrap(kind Kind, err error) *EngineError {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// InvalidSchema creates a KindInvalidSchema error.
func InvalidSchema(message string, cause error) *EngineError {
	return New(KindInvalidSchema, message, cause)
}

// IndexUntrained creates a KindIndexUntrained error.
func IndexUntrained(message string) *EngineError {
	return New(KindIndexUntrained, message, nil)
}

// DimensionMismatch creates a KindDimensionMismatch error with the
// expected and actual dimensionality recorded as details.
func DimensionMismatch(expected, got int) *EngineError {
	return New(KindDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil).
		WithDetail("expected", fmt.Sprintf("%d", expected)).
		WithDetail("got", fmt.Sprintf("%d", got))
}

// UnknownField creates a KindUnknownField error.
func UnknownField(name string) *EngineError {
	return New(KindUnknownField, fmt.Sprintf("unknown field %q", name), nil).
		WithDetail("field", name)
}

// VersionTooNew creates a KindVersionTooNew error.
func VersionTooNew(onDisk, supported string) *EngineError {
	return New(KindVersionTooNew,
		fmt.Sprintf("on-disk version %s is newer than supported version %s", onDisk, supported), nil).
		WithDetail("on_disk", onDisk).
		WithDetail("supported", supported)
}

// StorageError wraps an underlying storage engine failure.
func StorageError(message string, cause error) *EngineError {
	return New(KindStorageError, message, cause)
}

// Cancelled creates a KindCancelled error.
func Cancelled() *EngineError {
	return New(KindCancelled, "operation cancelled", nil)
}

// MergeIncompatible creates a KindMergeIncompatible error.
func MergeIncompatible(message string) *EngineError {
	return New(KindMergeIncompatible, message, nil)
}

// IsRetryable reports whether err is an EngineError with Retryable set.
func IsRetryable(err error) bool {
	var ee *EngineError
	if asEngine(err, &ee) {
		return ee.Retryable
	}
	return false
}

// GetKind extracts the Kind from err, returning "" if err is not an EngineError.
func GetKind(err error) Kind {
	var ee *EngineError
	if asEngine(err, &ee) {
		return ee.Kind
	}
	return ""
}

// asEngine is a small local helper mirroring errors.As without importing
// the standard library package under the same name as this package.
func asEngine(err error, target **EngineError) bool {
	for err != nil {
		if ee, ok := err.(*EngineError); ok {
			*target = ee
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
