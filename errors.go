package cmaa

import (
	"errors"
	"fmt"

	"github.com/gogpu/cmaa/gpucore"
)

// Errors returned by the Manager.
var (
	// ErrPrecondition is wrapped by every error reporting a call made in the
	// wrong lifecycle state.
	ErrPrecondition = errors.New("cmaa: precondition violated")

	// ErrNotInitialized is returned by apply calls before a successful Initialize.
	ErrNotInitialized = fmt.Errorf("%w: manager not initialized", ErrPrecondition)

	// ErrDestroyed is returned by every call after Destroy.
	ErrDestroyed = fmt.Errorf("%w: manager destroyed", ErrPrecondition)

	// ErrUnsupportedFormat is returned for source or destination formats the
	// manager cannot process.
	ErrUnsupportedFormat = errors.New("cmaa: unsupported texture format")

	// ErrSizeMismatch is returned when the source or destination does not
	// match the requested dimensions.
	ErrSizeMismatch = errors.New("cmaa: texture size mismatch")

	// ErrNilDevice is returned by New for a nil device.
	ErrNilDevice = errors.New("cmaa: nil device")
)

// ShaderBuildError reports a program that failed to compile or link.
// Initialization failed as a whole; no program of the set was kept.
type ShaderBuildError struct {
	// Variant is the program that failed.
	Variant gpucore.Variant

	// Log is the compiler or linker diagnostic text.
	Log string

	// Err is the underlying device error.
	Err error
}

func (e *ShaderBuildError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("cmaa: build %v program: %v", e.Variant, e.Err)
	}
	return fmt.Sprintf("cmaa: build %v program: %s", e.Variant, e.Log)
}

func (e *ShaderBuildError) Unwrap() error { return e.Err }

// AllocationError reports a pooled resource that could not be created, or a
// framebuffer that failed its completeness check. The frame it occurred in
// was dropped.
type AllocationError struct {
	// Resource names the pooled resource, e.g. "edges0" or "framebuffer".
	Resource string

	// Stage is the step that failed: "create", "attach" or "complete".
	Stage string

	// Width and Height are the pool dimensions being allocated.
	Width, Height int

	// Err is the underlying device error.
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("cmaa: %s %s at %dx%d: %v", e.Stage, e.Resource, e.Width, e.Height, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }
