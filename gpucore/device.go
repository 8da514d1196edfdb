package gpucore

import (
	"errors"
	"fmt"
)

// Errors shared by Device implementations.
var (
	// ErrFramebufferIncomplete is returned when a framebuffer's attachments
	// cannot be drawn to together.
	ErrFramebufferIncomplete = errors.New("gpucore: framebuffer incomplete")

	// ErrInvalidTextureSize is returned for non-positive texture dimensions.
	ErrInvalidTextureSize = errors.New("gpucore: texture dimensions must be positive")
)

// CompileError carries the diagnostic log of a failed program build.
type CompileError struct {
	// Stage names the failing step, e.g. "compile" or "link".
	Stage string

	// Log is the compiler or linker output.
	Log string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpucore: %s stage failed: %s", e.Stage, e.Log)
}

// Device abstracts the graphics API the CMAA passes run on.
//
// Commands are recorded in call order on a single command stream. Draw,
// CopyTexture and BlitFramebuffer may be deferred until Submit; an
// implementation must make every texture a pass reads reflect the most recent
// write recorded before it. Discard drops commands recorded since the last
// Submit.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - IDs become invalid after destruction and are never reused
//
// A Device is not safe for concurrent use.
type Device interface {
	// === Context ===

	// Info describes the graphics context. It is queried once per manager.
	Info() ContextInfo

	// === Textures ===

	// CreateTexture allocates a texture.
	CreateTexture(desc TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture. Unknown IDs are ignored.
	DestroyTexture(id TextureID)

	// TextureInfo returns the descriptor a texture was created with.
	TextureInfo(id TextureID) (TextureDesc, bool)

	// WriteTexture uploads tightly packed texel data covering the whole texture.
	WriteTexture(id TextureID, data []byte) error

	// ReadTexture submits pending work and returns tightly packed texel data.
	ReadTexture(id TextureID) ([]byte, error)

	// === Framebuffers ===

	// CreateFramebuffer creates a framebuffer with no attachments.
	CreateFramebuffer(label string) (FramebufferID, error)

	// AttachColor attaches tex at the given color attachment index.
	// InvalidID detaches.
	AttachColor(fb FramebufferID, index int, tex TextureID) error

	// CheckFramebuffer verifies the framebuffer can be drawn to. Failures
	// wrap ErrFramebufferIncomplete.
	CheckFramebuffer(fb FramebufferID) error

	// DestroyFramebuffer detaches everything and releases the framebuffer.
	DestroyFramebuffer(fb FramebufferID)

	// === Programs ===

	// CreateProgram compiles and links a program. Diagnostics are returned
	// as a *CompileError.
	CreateProgram(desc ProgramDesc) (ProgramID, error)

	// DestroyProgram releases a program.
	DestroyProgram(id ProgramID)

	// === Commands ===

	// Draw records a full-screen draw.
	Draw(desc DrawDesc) error

	// CopyTexture records a texel copy of the full source into dst.
	// The formats must be CopyCompatible and the sizes equal.
	CopyTexture(src, dst TextureID) error

	// BlitFramebuffer records a draw-based transfer of color attachment 0
	// of fb into dst, converting channel order and encoding as needed.
	BlitFramebuffer(fb FramebufferID, dst TextureID) error

	// Submit flushes recorded commands to the device.
	Submit() error

	// Discard drops commands recorded since the last Submit.
	Discard()
}
