package cmaa

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gogpu/cmaa/gpucore"
)

// Manager owns the CMAA programs and intermediate resources of one device.
//
// A Manager is not safe for concurrent use; callers serialize calls.
type Manager struct {
	dev  gpucore.Device
	opts options
	log  *slog.Logger
	id   uuid.UUID

	state    State
	caps     Capabilities
	defines  gpucore.Defines
	programs *programSet
	pool     *resourcePool
	frame    uint64
}

// New creates a manager for dev. No device resources are created until
// Initialize.
func New(dev gpucore.Device, opts ...Option) (*Manager, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}
	id := uuid.New()
	return &Manager{
		dev:  dev,
		opts: o,
		log:  log.With("manager", id.String()),
		id:   id,
	}, nil
}

// ID returns the instance id used in log records and resource labels.
func (m *Manager) ID() uuid.UUID { return m.id }

// State returns the lifecycle state.
func (m *Manager) State() State { return m.state }

// Capabilities returns the detected feature set. It is the zero value
// before Initialize succeeds.
func (m *Manager) Capabilities() Capabilities { return m.caps }

// Frame returns the number of apply calls made so far.
func (m *Manager) Frame() uint64 { return m.frame }

// Size returns the dimensions of the resource pool, or zeros when it holds
// no resources.
func (m *Manager) Size() (width, height int) {
	if m.pool == nil || !m.pool.allocated {
		return 0, 0
	}
	return m.pool.width, m.pool.height
}

func (m *Manager) labelPrefix() string {
	return "cmaa-" + m.id.String()[:8]
}

// Initialize detects the device capabilities and builds the programs.
// Calling it on an initialized manager does nothing. A failed build leaves
// the manager uninitialized and returns a *ShaderBuildError.
func (m *Manager) Initialize() error {
	switch m.state {
	case StateDestroyed:
		return ErrDestroyed
	case StateInitialized, StateReady:
		return nil
	}

	caps := Detect(m.dev.Info())
	defines := caps.defines(m.opts)
	if !caps.Tier {
		m.log.Warn("cmaa: API tier not met, mini buffer culling disabled", "version", m.dev.Info().Version)
	}

	programs, err := buildPrograms(m.dev, defines, m.opts.debugEdges, m.log)
	if err != nil {
		return err
	}
	caps.Initialized = true
	m.caps = caps
	m.defines = defines
	m.programs = programs
	m.pool = newResourcePool(m.dev, defines, m.labelPrefix(), m.log)
	m.state = StateInitialized
	m.log.Info("cmaa: initialized", "caps", caps, "renderer", m.dev.Info().Renderer, "debug", m.opts.debugEdges)
	return nil
}

// Destroy releases the resource pool, then the programs. Destroy is
// idempotent; the manager cannot be used afterwards.
func (m *Manager) Destroy() {
	if m.state == StateDestroyed {
		return
	}
	if m.pool != nil {
		m.pool.release()
		m.pool = nil
	}
	if m.programs != nil {
		m.programs.destroy(m.dev)
		m.programs = nil
	}
	m.caps.Initialized = false
	m.state = StateDestroyed
	m.log.Info("cmaa: destroyed", "frames", m.frame)
}

// ensure sizes the pool and moves the state accordingly.
func (m *Manager) ensure(w, h int) error {
	err := m.pool.ensure(w, h)
	if err != nil {
		m.state = StateInitialized
		return err
	}
	m.state = StateReady
	return nil
}

func (m *Manager) textureInfo(role string, id gpucore.TextureID) (gpucore.TextureDesc, error) {
	desc, ok := m.dev.TextureInfo(id)
	if !ok {
		return desc, fmt.Errorf("cmaa: %s texture %d does not exist", role, id)
	}
	return desc, nil
}

// ApplyEffectTexture anti-aliases source into destination. source must be
// an RGBA8Unorm texture; destination must have the same size and any 8-bit
// color format it can be drawn or copied into. When copyRequested, the final
// transfer is a texel copy if the formats allow it, otherwise a blit.
//
// The pool is (re)allocated to the source size as needed. source is never
// written. On error the frame is dropped and destination keeps its previous
// contents.
func (m *Manager) ApplyEffectTexture(source, destination gpucore.TextureID, copyRequested bool) error {
	if err := m.state.canApply(); err != nil {
		return err
	}
	src, err := m.textureInfo("source", source)
	if err != nil {
		return err
	}
	if src.Format != gpucore.TextureFormatRGBA8Unorm {
		return fmt.Errorf("%w: source is %v, want %v", ErrUnsupportedFormat, src.Format, gpucore.TextureFormatRGBA8Unorm)
	}
	if err := m.checkDestination(source, destination, src.Width, src.Height); err != nil {
		return err
	}
	if err := m.ensure(src.Width, src.Height); err != nil {
		return err
	}
	return m.run(source, destination, copyRequested)
}

func (m *Manager) checkDestination(source, destination gpucore.TextureID, w, h int) error {
	if source == destination {
		return fmt.Errorf("%w: source and destination are the same texture", ErrPrecondition)
	}
	dst, err := m.textureInfo("destination", destination)
	if err != nil {
		return err
	}
	if dst.Width != w || dst.Height != h {
		return fmt.Errorf("%w: destination is %dx%d, want %dx%d", ErrSizeMismatch, dst.Width, dst.Height, w, h)
	}
	if SelectTransfer(gpucore.TextureFormatRGBA8Unorm, dst, false) == TransferNotCopyable {
		return fmt.Errorf("%w: destination %v cannot be drawn or copied into", ErrUnsupportedFormat, dst.Format)
	}
	return nil
}

// ApplyFramebufferAttachment anti-aliases the color attachment source, of
// internal format format and size width x height, into destination.
// RGBA8Unorm sources are processed directly; BGRA8 and sRGB variants are
// first converted into a staging texture owned by the pool. The final
// transfer follows WithCopyTransfer.
func (m *Manager) ApplyFramebufferAttachment(source, destination gpucore.TextureID, width, height int, format gpucore.TextureFormat) error {
	if err := m.state.canApply(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrSizeMismatch, width, height)
	}
	if !format.IsColor() {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	src, err := m.textureInfo("source", source)
	if err != nil {
		return err
	}
	if src.Format != format {
		return fmt.Errorf("%w: source is %v, caller reported %v", ErrUnsupportedFormat, src.Format, format)
	}
	if src.Width != width || src.Height != height {
		return fmt.Errorf("%w: source is %dx%d, want %dx%d", ErrSizeMismatch, src.Width, src.Height, width, height)
	}
	if err := m.checkDestination(source, destination, width, height); err != nil {
		return err
	}
	if err := m.ensure(width, height); err != nil {
		return err
	}

	input := source
	if format != gpucore.TextureFormatRGBA8Unorm {
		input, err = m.stage(source, src)
		if err != nil {
			m.dev.Discard()
			return err
		}
	}
	return m.run(input, destination, m.opts.copyTransfer)
}

// stage records the conversion of source into the RGBA8 staging texture.
func (m *Manager) stage(source gpucore.TextureID, desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	staging, err := m.pool.stagingTexture()
	if err != nil {
		return gpucore.InvalidID, err
	}
	if gpucore.CopyCompatible(desc.Format, gpucore.TextureFormatRGBA8Unorm) && desc.Usage&gpucore.TextureUsageCopySrc != 0 {
		m.log.Warn("cmaa: staging source by copy", "format", desc.Format)
		if err := m.dev.CopyTexture(source, staging); err != nil {
			return gpucore.InvalidID, fmt.Errorf("cmaa: stage %v source: %w", desc.Format, err)
		}
		return staging, nil
	}

	m.log.Warn("cmaa: staging source by blit", "format", desc.Format)
	if err := m.pool.target(resStaging, source); err != nil {
		return gpucore.InvalidID, err
	}
	if err := m.dev.BlitFramebuffer(m.pool.fb, staging); err != nil {
		return gpucore.InvalidID, fmt.Errorf("cmaa: stage %v source: %w", desc.Format, err)
	}
	return staging, nil
}
