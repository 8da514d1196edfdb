//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan HAL backend for New.
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/cmaa/backend"
	"github.com/gogpu/cmaa/gpucore"
)

func init() {
	backend.Register(backend.BackendWGPU, func() (backend.Device, error) {
		return New()
	})
}

// texture is a HAL texture with its default view. usage is the usage the
// texture was last transitioned to by encoded commands.
type texture struct {
	desc  gpucore.TextureDesc
	raw   hal.Texture
	view  hal.TextureView
	usage gputypes.TextureUsage
}

type framebuffer struct {
	label  string
	colors [gpucore.MaxColorAttachments]gpucore.TextureID
}

// Device is a gpucore.Device backed by a HAL device and queue.
//
// A Device is not safe for concurrent use.
type Device struct {
	opts     options
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance // set when the device was opened by New
	info     gpucore.ContextInfo

	nextID       uint64
	textures     map[gpucore.TextureID]*texture
	framebuffers map[gpucore.FramebufferID]*framebuffer
	programs     map[gpucore.ProgramID]*program
	blits        map[blitKey]*program

	pending []command
	// graveyard holds releases deferred until pending work is submitted
	// or discarded.
	graveyard []func()
	closed    bool
}

var _ backend.Device = (*Device)(nil)

// New opens a standalone device on the first discrete or integrated GPU
// found by the Vulkan HAL backend.
func New(opts ...Option) (*Device, error) {
	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan HAL backend", backend.ErrBackendNotAvailable)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	d := newDevice(openDev.Device, openDev.Queue, selected.Info.Name, buildOptions(opts))
	d.instance = instance
	slogger().Info("wgpu: device opened", "adapter", selected.Info.Name, "backend", "vulkan")
	return d, nil
}

// NewFromHAL wraps an opened HAL device and queue. The device is not
// destroyed by Close. renderer is reported in Info.
func NewFromHAL(device hal.Device, queue hal.Queue, renderer string, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return newDevice(device, queue, renderer, buildOptions(opts)), nil
}

// NewFromProvider uses the device of a host framework. The provider must
// expose its HAL objects through HalDevice and HalQueue methods, as gogpu
// does. Unless WithFramebufferSRGB is given, the presentation framebuffer is
// reported as sRGB when the surface format is.
func NewFromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	if p == nil {
		return nil, ErrNilDevice
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}

	o := buildOptions(opts)
	if o.framebufferSRGB == nil {
		srgb := isSRGBSurface(p.SurfaceFormat())
		o.framebufferSRGB = &srgb
	}
	return newDevice(device, queue, "shared device", o), nil
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newDevice(device hal.Device, queue hal.Queue, renderer string, o options) *Device {
	srgb := o.framebufferSRGB != nil && *o.framebufferSRGB
	return &Device{
		opts:   o,
		device: device,
		queue:  queue,
		info: gpucore.ContextInfo{
			Renderer:        renderer,
			Version:         "WebGPU",
			FramebufferSRGB: srgb,
		},
		textures:     make(map[gpucore.TextureID]*texture),
		framebuffers: make(map[gpucore.FramebufferID]*framebuffer),
		programs:     make(map[gpucore.ProgramID]*program),
		blits:        make(map[blitKey]*program),
	}
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) label(s string) string {
	if s == "" {
		return d.opts.label
	}
	return d.opts.label + ":" + s
}

// Info returns the context description. The version is always "WebGPU".
func (d *Device) Info() gpucore.ContextInfo { return d.info }

// Close releases every resource the device holds, and the HAL device itself
// when New opened it. Close is idempotent.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.Discard()
	for id, p := range d.programs {
		d.destroyProgram(p)
		delete(d.programs, id)
	}
	for k, p := range d.blits {
		d.destroyProgram(p)
		delete(d.blits, k)
	}
	for id, t := range d.textures {
		d.destroyTexture(t)
		delete(d.textures, id)
	}
	clear(d.framebuffers)
	if d.instance != nil {
		d.device.Destroy()
		d.instance.Destroy()
		d.instance = nil
	}
	d.closed = true
	slogger().Debug("wgpu: device closed", "renderer", d.info.Renderer)
}

// CreateTexture creates a 2D texture with a default view.
func (d *Device) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %q is %dx%d", gpucore.ErrInvalidTextureSize, desc.Label, desc.Width, desc.Height)
	}
	format, ok := convertTextureFormat(desc.Format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %q has format %v", ErrFormatMismatch, desc.Label, desc.Format)
	}

	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: d.label(desc.Label),
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         convertTextureUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         d.label(desc.Label + "_view"),
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture view %q: %w", desc.Label, err)
	}

	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{desc: desc, raw: raw, view: view}
	return id, nil
}

func (d *Device) texture(id gpucore.TextureID) (*texture, error) {
	if d.closed {
		return nil, ErrClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	return t, nil
}

// DestroyTexture releases a texture. While recorded work is pending the
// release is deferred until Submit or Discard.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.release(func() { d.destroyTexture(t) })
}

func (d *Device) destroyTexture(t *texture) {
	if t.view != nil {
		d.device.DestroyTextureView(t.view)
	}
	if t.raw != nil {
		d.device.DestroyTexture(t.raw)
	}
}

// release runs fn now, or after the pending work when there is any.
func (d *Device) release(fn func()) {
	if len(d.pending) == 0 {
		fn()
		return
	}
	d.graveyard = append(d.graveyard, fn)
}

func (d *Device) bury() {
	for _, fn := range d.graveyard {
		fn()
	}
	d.graveyard = nil
}

// TextureInfo returns the descriptor a live texture was created with.
func (d *Device) TextureInfo(id gpucore.TextureID) (gpucore.TextureDesc, bool) {
	t, ok := d.textures[id]
	if !ok {
		return gpucore.TextureDesc{}, false
	}
	return t.desc, true
}

// WriteTexture uploads tightly packed texels through the queue. The upload
// is not ordered with pending recorded work.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte) error {
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	if t.desc.Usage&gpucore.TextureUsageCopyDst == 0 {
		return fmt.Errorf("%w: write to %q", ErrInvalidUsage, t.desc.Label)
	}
	bpp := t.desc.Format.BytesPerPixel()
	if want := t.desc.Width * t.desc.Height * bpp; len(data) != want {
		return fmt.Errorf("%w: %d bytes for %q, want %d", ErrSizeMismatch, len(data), t.desc.Label, want)
	}

	w, h := uint32(t.desc.Width), uint32(t.desc.Height)
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.raw, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * uint32(bpp), RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	t.usage = gputypes.TextureUsageCopyDst
	return nil
}

// copyPitchAlignment is the row alignment of texture to buffer copies.
const copyPitchAlignment = 256

// ReadTexture submits pending work, then reads the texture back through a
// staging buffer.
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

	w, h := uint32(t.desc.Width), uint32(t.desc.Height)
	rowBytes := w * uint32(t.desc.Format.BytesPerPixel())
	aligned := (rowBytes + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(aligned) * uint64(h)

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.label("readback"),
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create readback buffer: %w", err)
	}
	defer d.device.DestroyBuffer(buf)

	err = d.run("readback", []command{func(e *encoder) error {
		e.use(t, gputypes.TextureUsageCopySrc)
		e.enc.CopyTextureToBuffer(t.raw, buf, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: aligned, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: t.raw, MipLevel: 0},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
		return nil
	}})
	if err != nil {
		return nil, err
	}

	staged := make([]byte, size)
	if err := d.queue.ReadBuffer(buf, 0, staged); err != nil {
		return nil, fmt.Errorf("wgpu: read back %q: %w", t.desc.Label, err)
	}
	if aligned == rowBytes {
		return staged, nil
	}
	tight := make([]byte, int(rowBytes)*int(h))
	for row := range int(h) {
		copy(tight[row*int(rowBytes):(row+1)*int(rowBytes)], staged[row*int(aligned):])
	}
	return tight, nil
}

// CreateFramebuffer creates an empty attachment set.
func (d *Device) CreateFramebuffer(label string) (gpucore.FramebufferID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.FramebufferID(d.newID())
	d.framebuffers[id] = &framebuffer{label: label}
	return id, nil
}

func (d *Device) framebuffer(id gpucore.FramebufferID) (*framebuffer, error) {
	if d.closed {
		return nil, ErrClosed
	}
	f, ok := d.framebuffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFramebuffer, id)
	}
	return f, nil
}

// AttachColor sets color attachment index of fb. gpucore.InvalidID detaches.
func (d *Device) AttachColor(fb gpucore.FramebufferID, index int, tex gpucore.TextureID) error {
	f, err := d.framebuffer(fb)
	if err != nil {
		return err
	}
	if index < 0 || index >= gpucore.MaxColorAttachments {
		return fmt.Errorf("wgpu: attachment index %d out of range", index)
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

// checkComplete returns the attached textures indexed by attachment point.
func (d *Device) checkComplete(f *framebuffer) ([gpucore.MaxColorAttachments]*texture, error) {
	var atts [gpucore.MaxColorAttachments]*texture
	first := -1
	for i, id := range f.colors {
		if id == gpucore.InvalidID {
			continue
		}
		t, ok := d.textures[id]
		if !ok {
			return atts, fmt.Errorf("%w: %q attachment %d was destroyed", gpucore.ErrFramebufferIncomplete, f.label, i)
		}
		if first >= 0 {
			if s := atts[first].desc; s.Width != t.desc.Width || s.Height != t.desc.Height {
				return atts, fmt.Errorf("%w: %q attachments differ in size", gpucore.ErrFramebufferIncomplete, f.label)
			}
		} else {
			first = i
		}
		atts[i] = t
	}
	if first < 0 {
		return atts, fmt.Errorf("%w: %q has no attachments", gpucore.ErrFramebufferIncomplete, f.label)
	}
	return atts, nil
}

// CheckFramebuffer reports whether fb can be drawn to.
func (d *Device) CheckFramebuffer(fb gpucore.FramebufferID) error {
	f, err := d.framebuffer(fb)
	if err != nil {
		return err
	}
	_, err = d.checkComplete(f)
	return err
}

// DestroyFramebuffer releases fb. Attached textures are not affected.
func (d *Device) DestroyFramebuffer(fb gpucore.FramebufferID) {
	delete(d.framebuffers, fb)
}

// Submit encodes the pending commands into one command buffer, submits it
// and waits for completion.
func (d *Device) Submit() error {
	if d.closed {
		return ErrClosed
	}
	cmds := d.pending
	d.pending = nil
	defer d.bury()
	if len(cmds) == 0 {
		return nil
	}
	if err := d.run("frame", cmds); err != nil {
		return err
	}
	slogger().Debug("wgpu: submitted", "commands", len(cmds))
	return nil
}

// Discard drops the pending commands.
func (d *Device) Discard() {
	d.pending = nil
	d.bury()
}
