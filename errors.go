package fsbackend

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is delivered to create callbacks issued after Close.
	ErrClosed = errors.New("fsbackend: backend closed")
	// ErrDiscarded is delivered to callbacks whose pending keys were dropped by Discard.
	ErrDiscarded = errors.New("fsbackend: pending write discarded")
	// ErrReadOnlyFormat is returned when writing to a format that can only be read.
	ErrReadOnlyFormat = errors.New("fsbackend: format is read-only")
	// ErrUnsupportedFormat is returned when no codec is registered for a file extension.
	ErrUnsupportedFormat = errors.New("fsbackend: unsupported resource format")
)

// ConfigError reports an invalid or missing backend option.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fsbackend: invalid option %s: %s", e.Field, e.Reason)
}

// ResourceEvaluationError means a resource file exists but could not be turned
// into a mapping: malformed structured data or a failing expression.
// Callers get no data alongside it, unlike a missing file which yields an empty Resource.
type ResourceEvaluationError struct {
	Path string
	Err  error
}

func (e *ResourceEvaluationError) Error() string {
	return fmt.Sprintf("fsbackend: evaluate %s: %v", e.Path, e.Err)
}

func (e *ResourceEvaluationError) Unwrap() error { return e.Err }

// FilesystemError wraps a read or write failure of the underlying file system.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("fsbackend: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }
