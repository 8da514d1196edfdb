package software

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/cmaa/backend"
	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/parallel"
)

func init() {
	backend.Register(backend.BackendSoftware, func() (backend.Device, error) {
		return New(), nil
	})
}

type texture struct {
	desc gpucore.TextureDesc
	data []byte
}

type framebuffer struct {
	label  string
	colors [gpucore.MaxColorAttachments]gpucore.TextureID
}

type program struct {
	desc gpucore.ProgramDesc
}

// Device is a CPU implementation of gpucore.Device.
//
// Draws, copies and blits are recorded and executed in order on Submit.
// WriteTexture takes effect immediately.
type Device struct {
	opts options
	pool *parallel.Pool

	textures     map[gpucore.TextureID]*texture
	framebuffers map[gpucore.FramebufferID]*framebuffer
	programs     map[gpucore.ProgramID]*program
	nextID       uint64

	pending []func()
	stats   Stats
	closed  bool
}

var _ backend.Device = (*Device)(nil)

// New creates a software device.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Device{
		opts:         o,
		pool:         parallel.NewPool(o.workers),
		textures:     make(map[gpucore.TextureID]*texture),
		framebuffers: make(map[gpucore.FramebufferID]*framebuffer),
		programs:     make(map[gpucore.ProgramID]*program),
	}
}

// Close stops the pass workers. Resources still alive are dropped.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.pending = nil
	d.pool.Close()
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// Info returns the configured context description.
func (d *Device) Info() gpucore.ContextInfo {
	return d.opts.info
}

// CreateTexture allocates a zeroed texture.
func (d *Device) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %dx%d", gpucore.ErrInvalidTextureSize, desc.Width, desc.Height)
	}
	bpp := desc.Format.BytesPerPixel()
	if bpp == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %v", ErrFormatMismatch, desc.Format)
	}
	if f := d.opts.failures.Texture; f != nil {
		if err := f(desc); err != nil {
			return gpucore.InvalidID, err
		}
	}

	id := gpucore.TextureID(d.id())
	d.textures[id] = &texture{desc: desc, data: make([]byte, desc.Width*desc.Height*bpp)}
	d.stats.TexturesCreated++
	d.stats.PeakTextures = max(d.stats.PeakTextures, len(d.textures))
	return id, nil
}

// DestroyTexture releases a texture. Framebuffers still referencing it
// become incomplete.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	delete(d.textures, id)
}

// TextureInfo returns the descriptor of a live texture.
func (d *Device) TextureInfo(id gpucore.TextureID) (gpucore.TextureDesc, bool) {
	t, ok := d.textures[id]
	if !ok {
		return gpucore.TextureDesc{}, false
	}
	return t.desc, true
}

func (d *Device) texture(id gpucore.TextureID) (*texture, error) {
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	return t, nil
}

// WriteTexture replaces the whole texture contents.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte) error {
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	if t.desc.Usage&gpucore.TextureUsageCopyDst == 0 {
		return fmt.Errorf("%w: write to %q", ErrInvalidUsage, t.desc.Label)
	}
	if len(data) != len(t.data) {
		return fmt.Errorf("%w: %d bytes for %q, want %d", ErrSizeMismatch, len(data), t.desc.Label, len(t.data))
	}
	copy(t.data, data)
	return nil
}

// ReadTexture submits pending commands and returns a copy of the contents.
func (d *Device) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	if err := d.Submit(); err != nil {
		return nil, err
	}
	t, err := d.texture(id)
	if err != nil {
		return nil, err
	}
	if t.desc.Usage&gpucore.TextureUsageCopySrc == 0 {
		return nil, fmt.Errorf("%w: read from %q", ErrInvalidUsage, t.desc.Label)
	}
	out := make([]byte, len(t.data))
	copy(out, t.data)
	return out, nil
}

// CreateFramebuffer creates an empty framebuffer.
func (d *Device) CreateFramebuffer(label string) (gpucore.FramebufferID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.FramebufferID(d.id())
	d.framebuffers[id] = &framebuffer{label: label}
	return id, nil
}

func (d *Device) framebuffer(id gpucore.FramebufferID) (*framebuffer, error) {
	fb, ok := d.framebuffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFramebuffer, id)
	}
	return fb, nil
}

// AttachColor sets color attachment index of fb.
func (d *Device) AttachColor(fb gpucore.FramebufferID, index int, tex gpucore.TextureID) error {
	f, err := d.framebuffer(fb)
	if err != nil {
		return err
	}
	if index < 0 || index >= gpucore.MaxColorAttachments {
		return fmt.Errorf("software: color attachment %d out of range", index)
	}
	if tex != gpucore.InvalidID {
		t, err := d.texture(tex)
		if err != nil {
			return err
		}
		if t.desc.Usage&gpucore.TextureUsageRenderAttachment == 0 {
			return fmt.Errorf("%w: attach %q", ErrInvalidUsage, t.desc.Label)
		}
	}
	f.colors[index] = tex
	return nil
}

// attachments resolves the attached textures of fb up to the last used
// attachment point.
func (d *Device) attachments(f *framebuffer) ([]*texture, error) {
	last := -1
	for i, id := range f.colors {
		if id != gpucore.InvalidID {
			last = i
		}
	}
	if last < 0 {
		return nil, fmt.Errorf("%w: %q has no attachments", gpucore.ErrFramebufferIncomplete, f.label)
	}
	out := make([]*texture, last+1)
	for i := 0; i <= last; i++ {
		id := f.colors[i]
		if id == gpucore.InvalidID {
			continue
		}
		t, ok := d.textures[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q attachment %d was destroyed", gpucore.ErrFramebufferIncomplete, f.label, i)
		}
		out[i] = t
	}
	return out, nil
}

func (d *Device) checkComplete(f *framebuffer) ([]*texture, error) {
	atts, err := d.attachments(f)
	if err != nil {
		return nil, err
	}
	var w, h int
	descs := make([]gpucore.TextureDesc, 0, len(atts))
	for i, t := range atts {
		if t == nil {
			continue
		}
		if w == 0 {
			w, h = t.desc.Width, t.desc.Height
		} else if t.desc.Width != w || t.desc.Height != h {
			return nil, fmt.Errorf("%w: %q attachment %d is %dx%d, want %dx%d",
				gpucore.ErrFramebufferIncomplete, f.label, i, t.desc.Width, t.desc.Height, w, h)
		}
		descs = append(descs, t.desc)
	}
	if hook := d.opts.failures.Framebuffer; hook != nil {
		if err := hook(descs); err != nil {
			return nil, fmt.Errorf("%w: %w", gpucore.ErrFramebufferIncomplete, err)
		}
	}
	return atts, nil
}

// CheckFramebuffer verifies fb has live attachments of a single size.
func (d *Device) CheckFramebuffer(fb gpucore.FramebufferID) error {
	f, err := d.framebuffer(fb)
	if err != nil {
		return err
	}
	_, err = d.checkComplete(f)
	return err
}

// DestroyFramebuffer releases fb.
func (d *Device) DestroyFramebuffer(fb gpucore.FramebufferID) {
	delete(d.framebuffers, fb)
}

// CreateProgram validates desc. The source must define the vertex entry and
// every fragment entry.
func (d *Device) CreateProgram(desc gpucore.ProgramDesc) (gpucore.ProgramID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if desc.Variant >= gpucore.VariantCount {
		return gpucore.InvalidID, &gpucore.CompileError{Stage: "link", Log: fmt.Sprintf("unknown variant %v", desc.Variant)}
	}
	if len(desc.Entries) == 0 {
		return gpucore.InvalidID, &gpucore.CompileError{Stage: "link", Log: "no fragment entry points"}
	}
	for _, name := range append([]string{desc.VertexEntry}, entryNames(desc)...) {
		if !strings.Contains(desc.Source, "fn "+name+"(") {
			return gpucore.InvalidID, &gpucore.CompileError{Stage: "link", Log: fmt.Sprintf("entry point %q not found", name)}
		}
	}
	if hook := d.opts.failures.Program; hook != nil {
		if err := hook(desc); err != nil {
			var ce *gpucore.CompileError
			if errors.As(err, &ce) {
				return gpucore.InvalidID, err
			}
			return gpucore.InvalidID, &gpucore.CompileError{Stage: "link", Log: err.Error()}
		}
	}

	id := gpucore.ProgramID(d.id())
	d.programs[id] = &program{desc: desc}
	return id, nil
}

func entryNames(desc gpucore.ProgramDesc) []string {
	names := make([]string, len(desc.Entries))
	for i, e := range desc.Entries {
		names[i] = e.Name
	}
	return names
}

// DestroyProgram releases a program.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	delete(d.programs, id)
}

// CopyTexture records a raw texel copy.
func (d *Device) CopyTexture(src, dst gpucore.TextureID) error {
	s, err := d.texture(src)
	if err != nil {
		return err
	}
	t, err := d.texture(dst)
	if err != nil {
		return err
	}
	if s.desc.Usage&gpucore.TextureUsageCopySrc == 0 || t.desc.Usage&gpucore.TextureUsageCopyDst == 0 {
		return fmt.Errorf("%w: copy %q to %q", ErrInvalidUsage, s.desc.Label, t.desc.Label)
	}
	if !gpucore.CopyCompatible(s.desc.Format, t.desc.Format) {
		return fmt.Errorf("%w: copy %v to %v", ErrFormatMismatch, s.desc.Format, t.desc.Format)
	}
	if s.desc.Width != t.desc.Width || s.desc.Height != t.desc.Height {
		return fmt.Errorf("%w: copy %dx%d to %dx%d", ErrSizeMismatch, s.desc.Width, s.desc.Height, t.desc.Width, t.desc.Height)
	}
	d.pending = append(d.pending, func() {
		copy(t.data, s.data)
		d.stats.Copies++
	})
	return nil
}

// BlitFramebuffer records a transfer of attachment 0 of fb into dst. Stored
// values are preserved; channel order is converted.
func (d *Device) BlitFramebuffer(fb gpucore.FramebufferID, dst gpucore.TextureID) error {
	f, err := d.framebuffer(fb)
	if err != nil {
		return err
	}
	atts, err := d.checkComplete(f)
	if err != nil {
		return err
	}
	s := atts[0]
	if s == nil {
		return fmt.Errorf("%w: %q has no color attachment 0", gpucore.ErrFramebufferIncomplete, f.label)
	}
	t, err := d.texture(dst)
	if err != nil {
		return err
	}
	if t.desc.Usage&gpucore.TextureUsageRenderAttachment == 0 {
		return fmt.Errorf("%w: blit to %q", ErrInvalidUsage, t.desc.Label)
	}
	if !s.desc.Format.IsColor() || !t.desc.Format.IsColor() {
		return fmt.Errorf("%w: blit %v to %v", ErrFormatMismatch, s.desc.Format, t.desc.Format)
	}
	if s.desc.Width != t.desc.Width || s.desc.Height != t.desc.Height {
		return fmt.Errorf("%w: blit %dx%d to %dx%d", ErrSizeMismatch, s.desc.Width, s.desc.Height, t.desc.Width, t.desc.Height)
	}
	swap := s.desc.Format.IsBGRA() != t.desc.Format.IsBGRA()
	d.pending = append(d.pending, func() {
		blitPixels(t.data, s.data, swap)
		d.stats.Blits++
	})
	return nil
}

func blitPixels(dst, src []byte, swap bool) {
	if !swap {
		copy(dst, src)
		return
	}
	for i := 0; i+3 < len(src); i += 4 {
		dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
	}
}

// Submit executes recorded commands in order.
func (d *Device) Submit() error {
	if d.closed {
		return ErrClosed
	}
	if len(d.pending) == 0 {
		return nil
	}
	cmds := d.pending
	d.pending = nil
	for _, cmd := range cmds {
		cmd()
	}
	d.stats.Submits++
	return nil
}

// Discard drops recorded commands.
func (d *Device) Discard() {
	d.pending = nil
}
