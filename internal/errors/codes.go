// Package errors provides the structured error type used across the
// engine, storage, codec, quantizer, writer, and retriever packages.
//
// Every error surfaced to a caller carries one of the eight Kinds
// named by the error handling design: InvalidSchema, IndexUntrained,
// DimensionMismatch, UnknownField, VersionTooNew, StorageError,
// Cancelled, and MergeIncompatible.
package errors

// Kind classifies an EngineError for programmatic handling.
type Kind string

const (
	// KindInvalidSchema is returned by create when the schema is malformed
	// (duplicate field names, missing parameters for a field's kind, ...).
	KindInvalidSchema Kind = "InvalidSchema"

	// KindIndexUntrained is returned by add/search when a field's
	// centroid table has not yet been produced by train.
	KindIndexUntrained Kind = "IndexUntrained"

	// KindDimensionMismatch is returned when an input tensor's column
	// count does not match the field's declared dimensionality.
	KindDimensionMismatch Kind = "DimensionMismatch"

	// KindUnknownField is returned when a query or document references
	// a field name absent from the schema.
	KindUnknownField Kind = "UnknownField"

	// KindVersionTooNew is returned by open when the on-disk major
	// version exceeds what this build understands.
	KindVersionTooNew Kind = "VersionTooNew"

	// KindStorageError wraps a failure from the storage engine,
	// including I/O errors and detected corruption.
	KindStorageError Kind = "StorageError"

	// KindCancelled is returned when a caller's cooperative cancel
	// predicate fires mid-retrieval.
	KindCancelled Kind = "Cancelled"

	// KindMergeIncompatible is returned by merge when the foreign
	// index's centroid tables or schema do not match.
	KindMergeIncompatible Kind = "MergeIncompatible"
)

// retryable reports whether a caller may reasonably retry an operation
// that failed with this kind. The engine itself never retries
// internally; this only advises callers.
func retryable(k Kind) bool {
	return k == KindStorageError
}
