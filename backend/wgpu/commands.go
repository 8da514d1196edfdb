//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cmaa/gpucore"
)

// command is one recorded operation, encoded on Submit. Resources it
// captures were resolved when it was recorded.
type command func(e *encoder) error

// encoder wraps the HAL command encoder of one submission.
type encoder struct {
	dev *Device
	enc hal.CommandEncoder
	// release runs after the submission completes.
	release []func()
}

// use transitions t to usage u if it is not there already.
func (e *encoder) use(t *texture, u gputypes.TextureUsage) {
	if t.usage == u {
		return
	}
	e.enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.raw,
		Usage: hal.TextureUsageTransition{
			OldUsage: t.usage,
			NewUsage: u,
		},
	}})
	t.usage = u
}

// draw encodes one full-screen triangle into targets.
func (e *encoder) draw(label string, bgl hal.BindGroupLayout, pipeline hal.RenderPipeline, targets []*texture, inputs []boundInput) error {
	d := e.dev
	entries := make([]gputypes.BindGroupEntry, len(inputs))
	for i, in := range inputs {
		e.use(in.tex, gputypes.TextureUsageTextureBinding)
		entries[i] = gputypes.BindGroupEntry{
			Binding:  in.binding,
			Resource: gputypes.TextureViewBinding{TextureView: in.tex.view.NativeHandle()},
		}
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   d.label(label + "_bg"),
		Layout:  bgl,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: %s bind group: %w", label, err)
	}
	e.release = append(e.release, func() { d.device.DestroyBindGroup(bg) })

	colors := make([]hal.RenderPassColorAttachment, len(targets))
	for i, t := range targets {
		e.use(t, gputypes.TextureUsageRenderAttachment)
		colors[i] = hal.RenderPassColorAttachment{
			View:       t.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{},
		}
	}

	rp := e.enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            d.label(label),
		ColorAttachments: colors,
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()
	return nil
}

func (d *Device) usages() map[*texture]gputypes.TextureUsage {
	m := make(map[*texture]gputypes.TextureUsage, len(d.textures))
	for _, t := range d.textures {
		m[t] = t.usage
	}
	return m
}

// run encodes cmds into one command buffer, submits it and waits for the
// fence. On failure tracked texture usages are rolled back.
func (d *Device) run(label string, cmds []command) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: d.label(label)})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(d.label(label)); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	e := &encoder{dev: d, enc: enc}
	defer func() {
		for _, fn := range e.release {
			fn()
		}
	}()

	saved := d.usages()
	rollback := func() {
		for t, u := range saved {
			t.usage = u
		}
	}
	for _, cmd := range cmds {
		if err := cmd(e); err != nil {
			enc.DiscardEncoding()
			rollback()
			return err
		}
	}
	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		rollback()
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		rollback()
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		rollback()
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, d.opts.timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrGPUTimeout, d.opts.timeout)
	}
	return nil
}

// CopyTexture records a texture to texture copy.
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
	if s == t {
		return fmt.Errorf("%w: copy %q onto itself", ErrFeedbackLoop, s.desc.Label)
	}

	d.pending = append(d.pending, func(e *encoder) error {
		e.use(s, gputypes.TextureUsageCopySrc)
		e.use(t, gputypes.TextureUsageCopyDst)
		e.enc.CopyTextureToTexture(s.raw, t.raw, []hal.TextureCopy{{
			SrcBase: hal.ImageCopyTexture{Texture: s.raw, MipLevel: 0},
			DstBase: hal.ImageCopyTexture{Texture: t.raw, MipLevel: 0},
			Size: hal.Extent3D{
				Width:              uint32(s.desc.Width),
				Height:             uint32(s.desc.Height),
				DepthOrArrayLayers: 1,
			},
		}})
		return nil
	})
	return nil
}

// BlitFramebuffer records a draw of attachment 0 of fb into dst through a
// transfer program specialized for the two encodings. Channel order follows
// from the view formats.
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
	if t.desc.Usage&gpucore.TextureUsageRenderAttachment == 0 || s.desc.Usage&gpucore.TextureUsageTextureBinding == 0 {
		return fmt.Errorf("%w: blit %q to %q", ErrInvalidUsage, s.desc.Label, t.desc.Label)
	}
	if !s.desc.Format.IsColor() || !t.desc.Format.IsColor() {
		return fmt.Errorf("%w: blit %v to %v", ErrFormatMismatch, s.desc.Format, t.desc.Format)
	}
	if s.desc.Width != t.desc.Width || s.desc.Height != t.desc.Height {
		return fmt.Errorf("%w: blit %dx%d to %dx%d", ErrSizeMismatch, s.desc.Width, s.desc.Height, t.desc.Width, t.desc.Height)
	}
	if s == t {
		return fmt.Errorf("%w: blit %q onto itself", ErrFeedbackLoop, s.desc.Label)
	}

	p, err := d.blitProgram(blitKey{srcSRGB: s.desc.Format.IsSRGB(), dst: t.desc.Format})
	if err != nil {
		return err
	}
	ep := p.entries[gpucore.EntryMain]
	pipeline := ep.pipelines[declaredFormats(ep.desc)]
	label := "blit " + f.label
	inputs := []boundInput{{binding: 0, tex: s}}
	d.pending = append(d.pending, func(e *encoder) error {
		return e.draw(label, ep.bgl, pipeline, []*texture{t}, inputs)
	})
	return nil
}
