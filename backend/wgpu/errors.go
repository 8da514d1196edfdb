//go:build !nogpu

package wgpu

import "errors"

// Device errors.
var (
	// ErrNilDevice is returned when a nil HAL device or queue is supplied.
	ErrNilDevice = errors.New("wgpu: nil HAL device or queue")

	// ErrNoAdapter is returned when no GPU adapter is found.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrNoHAL is returned by NewFromProvider for providers that do not
	// expose their HAL device and queue.
	ErrNoHAL = errors.New("wgpu: provider does not expose HAL device")

	// ErrUnknownTexture is returned for texture IDs the device does not hold.
	ErrUnknownTexture = errors.New("wgpu: unknown texture")

	// ErrUnknownFramebuffer is returned for unknown framebuffer IDs.
	ErrUnknownFramebuffer = errors.New("wgpu: unknown framebuffer")

	// ErrUnknownProgram is returned for unknown program IDs or entry points.
	ErrUnknownProgram = errors.New("wgpu: unknown program")

	// ErrInvalidUsage is returned when a texture lacks the usage an
	// operation needs.
	ErrInvalidUsage = errors.New("wgpu: texture usage does not allow operation")

	// ErrFormatMismatch is returned for incompatible formats.
	ErrFormatMismatch = errors.New("wgpu: format mismatch")

	// ErrSizeMismatch is returned for textures of different sizes.
	ErrSizeMismatch = errors.New("wgpu: size mismatch")

	// ErrFeedbackLoop is returned when a draw reads a texture it writes.
	ErrFeedbackLoop = errors.New("wgpu: texture both read and written by draw")

	// ErrGPUTimeout is returned when submitted work does not finish in time.
	ErrGPUTimeout = errors.New("wgpu: timed out waiting for GPU")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("wgpu: device closed")
)
