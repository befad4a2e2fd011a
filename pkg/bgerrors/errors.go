// Package bgerrors defines the error kinds of spec §7 as typed errors
// rather than exceptions, matching the propagation policy: inspection and
// binding never propagate exceptions to the graph builder — failures are
// either logged (binding warnings) or captured into a ModuleData's
// LoaderError field (inspection failures).
package bgerrors

import "fmt"

// FileNotFound is raised to the caller when an inspection target is
// missing.
type FileNotFound struct {
	Path string
}

func (e *FileNotFound) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// InspectorFailure wraps an individual inspector's failure. The pipeline
// catches these and records them as a ModuleData's LoaderError string; it
// is exported so callers assembling that string can still distinguish the
// originating inspector.
type InspectorFailure struct {
	InspectorName string
	Err           error
}

func (e *InspectorFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.InspectorName, e.Err)
}

func (e *InspectorFailure) Unwrap() error { return e.Err }

// SerializationFailure is a recoverable failure decoding or encoding a
// ModuleData; it surfaces as a LoaderError, never as a panic.
type SerializationFailure struct {
	Err error
}

func (e *SerializationFailure) Error() string {
	return fmt.Sprintf("serialization failure: %v", e.Err)
}

func (e *SerializationFailure) Unwrap() error { return e.Err }
