package software

import "github.com/gogpu/cmaa/gpucore"

// Option configures a Device during creation.
//
// Example:
//
//	// Default OpenGL ES 3.2 style context
//	dev := software.New()
//
//	// A context without the API tier, exercising the full-resolution path
//	dev := software.New(software.WithInfo(gpucore.ContextInfo{Version: "OpenGL ES 3.0"}))
type Option func(*options)

type options struct {
	info     gpucore.ContextInfo
	workers  int
	failures Failures
}

// DefaultInfo is the context description reported when WithInfo is not used.
// It grants every capability except gamma-correct mode.
var DefaultInfo = gpucore.ContextInfo{
	Renderer:   "cmaa software rasterizer",
	Version:    "OpenGL ES 3.2 software",
	Extensions: []string{"GL_EXT_gpu_shader4", "GL_NV_image_formats"},
}

func defaultOptions() options {
	return options{info: DefaultInfo}
}

// WithInfo sets the context description the device reports. Capability
// detection runs on it, so tests use it to select shader variants.
func WithInfo(info gpucore.ContextInfo) Option {
	return func(o *options) {
		o.info = info
	}
}

// WithWorkers sets the number of pass workers. Zero or negative uses
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithFailures installs fault injection hooks.
func WithFailures(f Failures) Option {
	return func(o *options) {
		o.failures = f
	}
}

// Failures holds optional hooks consulted before the matching operation.
// A non-nil error from a hook fails the operation with that error.
type Failures struct {
	// Texture is consulted by CreateTexture.
	Texture func(desc gpucore.TextureDesc) error

	// Program is consulted by CreateProgram. Errors that are not a
	// *gpucore.CompileError are wrapped in one with Stage "link".
	Program func(desc gpucore.ProgramDesc) error

	// Framebuffer is consulted by CheckFramebuffer and by every draw with
	// the descriptors of the attached textures.
	Framebuffer func(attachments []gpucore.TextureDesc) error
}
