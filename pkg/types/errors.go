package types

import "errors"

// Entity access errors.
var (
	ErrUninitializedObject = errors.New("object used before initialization")
	ErrDeletedObject       = errors.New("object has been deleted")
	ErrUnusableStore       = errors.New("store is closed or unusable")
	ErrNotFound            = errors.New("object not found")
)

// Field and schema errors.
var (
	ErrInvalidField      = errors.New("invalid field")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUnknownClass      = errors.New("unknown class")
	ErrReferenceRejected = errors.New("field signature rejects referenced object")
)

// Graph structure errors.
var (
	ErrInvalidOwnership = errors.New("invalid ownership")
	// ErrClassMismatch names a merge between different classes. The engine
	// logs such merges and skips them without returning it; callers that
	// want a failure check classes themselves and wrap this error.
	ErrClassMismatch = errors.New("class mismatch")
)

// Backend lifecycle errors.
var (
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrLogLevelUnknown = errors.New("unknown log level")
)
