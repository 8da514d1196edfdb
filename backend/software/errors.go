package software

import "errors"

// Package errors for the software device.
var (
	// ErrUnknownTexture is returned for texture IDs the device does not hold.
	ErrUnknownTexture = errors.New("software: unknown texture")

	// ErrUnknownFramebuffer is returned for framebuffer IDs the device does not hold.
	ErrUnknownFramebuffer = errors.New("software: unknown framebuffer")

	// ErrUnknownProgram is returned for program IDs the device does not hold.
	ErrUnknownProgram = errors.New("software: unknown program")

	// ErrInvalidUsage is returned when a texture is used in a way its usage
	// flags do not allow.
	ErrInvalidUsage = errors.New("software: texture usage not allowed")

	// ErrFormatMismatch is returned when texture formats cannot be combined in
	// the requested operation.
	ErrFormatMismatch = errors.New("software: incompatible texture formats")

	// ErrSizeMismatch is returned when texture sizes cannot be combined in
	// the requested operation.
	ErrSizeMismatch = errors.New("software: texture sizes differ")

	// ErrFeedbackLoop is returned when a draw reads a texture it also renders to.
	ErrFeedbackLoop = errors.New("software: texture bound as input and attachment")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("software: device closed")
)
