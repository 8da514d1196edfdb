//go:build !nogpu

package wgpu

import "time"

// Option configures a Device during creation.
type Option func(*options)

type options struct {
	spirv           bool
	framebufferSRGB *bool
	timeout         time.Duration
	label           string
}

func defaultOptions() options {
	return options{timeout: 5 * time.Second, label: "cmaa"}
}

// WithSPIRV compiles program sources to SPIR-V with naga before creating
// shader modules. By default WGSL is passed to the HAL.
func WithSPIRV(enabled bool) Option {
	return func(o *options) {
		o.spirv = enabled
	}
}

// WithFramebufferSRGB overrides whether the device reports an sRGB
// presentation framebuffer. NewFromProvider otherwise derives it from the
// surface format; the other constructors default to false.
func WithFramebufferSRGB(enabled bool) Option {
	return func(o *options) {
		o.framebufferSRGB = &enabled
	}
}

// WithTimeout sets how long Submit waits for the GPU. Non-positive values
// are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLabel sets the prefix of HAL object labels.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}
