package cmaa

import "log/slog"

// Option configures a Manager during creation.
//
// Example:
//
//	// Defaults: blit transfer, no debug program, package logger
//	m, err := cmaa.New(dev)
//
//	// Visualize edges and transfer with texel copies
//	m, err := cmaa.New(dev, cmaa.WithDebugEdges(true), cmaa.WithCopyTransfer(true))
type Option func(*options)

type options struct {
	logger         *slog.Logger
	debugEdges     bool
	copyTransfer   bool
	edgeThreshold  float32
	contrastFactor float32
}

func defaultOptions() options {
	return options{
		edgeThreshold:  EdgeThreshold,
		contrastFactor: LocalContrastFactor,
	}
}

// WithLogger sets the logger of the manager. Without it the manager logs to
// the package logger (see SetLogger) as it is at New.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDebugEdges builds the debug program and replaces the blended output
// with a visualization of the refined edges.
func WithDebugEdges(enabled bool) Option {
	return func(o *options) {
		o.debugEdges = enabled
	}
}

// WithCopyTransfer selects the texel copy as the final transfer of
// ApplyFramebufferAttachment. The default is a blit.
func WithCopyTransfer(enabled bool) Option {
	return func(o *options) {
		o.copyTransfer = enabled
	}
}

// WithEdgeThreshold overrides EdgeThreshold. Values outside (0, 1) are ignored.
func WithEdgeThreshold(v float32) Option {
	return func(o *options) {
		if v > 0 && v < 1 {
			o.edgeThreshold = v
		}
	}
}

// WithLocalContrastFactor overrides LocalContrastFactor. Values outside
// [0, 1] are ignored.
func WithLocalContrastFactor(v float32) Option {
	return func(o *options) {
		if v >= 0 && v <= 1 {
			o.contrastFactor = v
		}
	}
}
