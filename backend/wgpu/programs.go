//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/shader"
)

// targetFormats keys pipelines by the formats of the attachments they
// write, indexed by location.
type targetFormats [gpucore.MaxColorAttachments]gpucore.TextureFormat

// entryPipeline holds the HAL objects of one fragment entry point. Render
// pipelines are created per attachment format set: the declared set at
// program creation, compatible ones on first draw.
type entryPipeline struct {
	desc      gpucore.EntryDesc
	vertex    string
	module    hal.ShaderModule
	bgl       hal.BindGroupLayout
	layout    hal.PipelineLayout
	pipelines map[targetFormats]hal.RenderPipeline
}

type program struct {
	desc    gpucore.ProgramDesc
	module  hal.ShaderModule
	entries map[string]*entryPipeline
}

func declaredFormats(e gpucore.EntryDesc) targetFormats {
	var f targetFormats
	for _, t := range e.Targets {
		f[t.Location] = t.Format
	}
	return f
}

// CreateProgram creates the shader module and one render pipeline per
// fragment entry point. Module errors are reported as a "compile"
// CompileError, layout and pipeline errors as "link".
func (d *Device) CreateProgram(desc gpucore.ProgramDesc) (gpucore.ProgramID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if len(desc.Entries) == 0 {
		return gpucore.InvalidID, &gpucore.CompileError{Stage: "link", Log: "no fragment entry points"}
	}
	p, err := d.buildProgram(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ProgramID(d.newID())
	d.programs[id] = p
	slogger().Debug("wgpu: program created", "label", desc.Label, "entries", len(desc.Entries), "spirv", d.opts.spirv)
	return id, nil
}

func (d *Device) buildProgram(desc gpucore.ProgramDesc) (*program, error) {
	module, err := d.createModule(desc.Label, desc.Source)
	if err != nil {
		return nil, err
	}
	p := &program{
		desc:    desc,
		module:  module,
		entries: make(map[string]*entryPipeline, len(desc.Entries)),
	}
	for _, e := range desc.Entries {
		ep, err := d.createEntry(desc.Label, module, desc.VertexEntry, e)
		if err != nil {
			d.destroyProgram(p)
			return nil, err
		}
		p.entries[e.Name] = ep
	}
	return p, nil
}

func (d *Device) createModule(label, source string) (hal.ShaderModule, error) {
	src := hal.ShaderSource{WGSL: source}
	if d.opts.spirv {
		words, err := shader.CompileSPIRV(source)
		if err != nil {
			return nil, err
		}
		src = hal.ShaderSource{SPIRV: words}
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  d.label(label),
		Source: src,
	})
	if err != nil {
		return nil, &gpucore.CompileError{Stage: "compile", Log: err.Error()}
	}
	return module, nil
}

func linkError(label, what string, err error) error {
	return &gpucore.CompileError{Stage: "link", Log: fmt.Sprintf("%s %s: %v", label, what, err)}
}

func (d *Device) createEntry(label string, module hal.ShaderModule, vertex string, e gpucore.EntryDesc) (*entryPipeline, error) {
	for _, t := range e.Targets {
		if t.Location >= gpucore.MaxColorAttachments {
			return nil, &gpucore.CompileError{Stage: "link", Log: fmt.Sprintf("%s/%s writes location %d", label, e.Name, t.Location)}
		}
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(e.Inputs))
	for i, slot := range e.Inputs {
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    slot.Binding,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    convertSampleKind(slot.Kind),
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		}
	}

	name := label + "/" + e.Name
	ep := &entryPipeline{
		desc:      e,
		vertex:    vertex,
		module:    module,
		pipelines: make(map[targetFormats]hal.RenderPipeline),
	}
	bgl, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   d.label(name + "_bgl"),
		Entries: entries,
	})
	if err != nil {
		return nil, linkError(name, "bind group layout", err)
	}
	ep.bgl = bgl

	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            d.label(name + "_layout"),
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		d.destroyEntry(ep)
		return nil, linkError(name, "pipeline layout", err)
	}
	ep.layout = layout

	if _, err := d.pipeline(name, ep, declaredFormats(e)); err != nil {
		d.destroyEntry(ep)
		return nil, err
	}
	return ep, nil
}

// pipeline returns the render pipeline of ep writing attachments of the
// given formats, creating it on first use.
func (d *Device) pipeline(name string, ep *entryPipeline, formats targetFormats) (hal.RenderPipeline, error) {
	if p, ok := ep.pipelines[formats]; ok {
		return p, nil
	}
	targets := make([]gputypes.ColorTargetState, 0, len(ep.desc.Targets))
	for loc := range gpucore.MaxColorAttachments {
		if formats[loc] == gpucore.TextureFormatUndefined {
			continue
		}
		f, ok := convertTextureFormat(formats[loc])
		if !ok {
			return nil, linkError(name, "target", fmt.Errorf("%w: %v", ErrFormatMismatch, formats[loc]))
		}
		for len(targets) < loc {
			targets = append(targets, gputypes.ColorTargetState{})
		}
		targets = append(targets, gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskAll})
	}

	p, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  d.label(name),
		Layout: ep.layout,
		Vertex: hal.VertexState{
			Module:     ep.module,
			EntryPoint: ep.vertex,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     ep.module,
			EntryPoint: ep.desc.Name,
			Targets:    targets,
		},
	})
	if err != nil {
		return nil, linkError(name, "render pipeline", err)
	}
	ep.pipelines[formats] = p
	return p, nil
}

func (d *Device) destroyEntry(ep *entryPipeline) {
	for k, p := range ep.pipelines {
		d.device.DestroyRenderPipeline(p)
		delete(ep.pipelines, k)
	}
	if ep.layout != nil {
		d.device.DestroyPipelineLayout(ep.layout)
		ep.layout = nil
	}
	if ep.bgl != nil {
		d.device.DestroyBindGroupLayout(ep.bgl)
		ep.bgl = nil
	}
}

func (d *Device) destroyProgram(p *program) {
	for _, ep := range p.entries {
		d.destroyEntry(ep)
	}
	if p.module != nil {
		d.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// DestroyProgram releases a program once no pending draw uses it.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	p, ok := d.programs[id]
	if !ok {
		return
	}
	delete(d.programs, id)
	d.release(func() { d.destroyProgram(p) })
}

// boundInput is a texture bound to a slot for one draw.
type boundInput struct {
	binding uint32
	tex     *texture
}

// Draw validates desc like the other devices do and records the pass.
// Attachments must have the formats the entry point declares, up to sRGB
// encoding.
func (d *Device) Draw(desc gpucore.DrawDesc) error {
	if d.closed {
		return ErrClosed
	}
	p, ok := d.programs[desc.Program]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownProgram, desc.Program)
	}
	ep, ok := p.entries[desc.Entry]
	if !ok {
		return fmt.Errorf("%w: %s has no entry point %q", ErrUnknownProgram, p.desc.Label, desc.Entry)
	}
	f, err := d.framebuffer(desc.Framebuffer)
	if err != nil {
		return err
	}
	atts, err := d.checkComplete(f)
	if err != nil {
		return fmt.Errorf("%s: %w", desc.Label, err)
	}

	var formats targetFormats
	targets := make([]*texture, 0, len(ep.desc.Targets))
	for _, target := range ep.desc.Targets {
		t := atts[target.Location]
		if t == nil {
			return fmt.Errorf("%w: %s target %d is not attached", gpucore.ErrFramebufferIncomplete, desc.Label, target.Location)
		}
		if !targetCompatible(target.Format, t.desc.Format) {
			return fmt.Errorf("%w: %s target %d is %v, program writes %v",
				ErrFormatMismatch, desc.Label, target.Location, t.desc.Format, target.Format)
		}
		formats[target.Location] = t.desc.Format
		targets = append(targets, t)
	}

	inputs := make([]boundInput, 0, len(ep.desc.Inputs))
	for _, slot := range ep.desc.Inputs {
		t, err := d.bound(desc, slot)
		if err != nil {
			return err
		}
		for _, a := range atts {
			if a == t {
				return fmt.Errorf("%w: %s slot %s", ErrFeedbackLoop, desc.Label, slot.Name)
			}
		}
		inputs = append(inputs, boundInput{binding: slot.Binding, tex: t})
	}

	label := desc.Label
	if label == "" {
		label = p.desc.Label + "/" + desc.Entry
	}
	pipeline, err := d.pipeline(label, ep, formats)
	if err != nil {
		return err
	}
	d.pending = append(d.pending, func(e *encoder) error {
		return e.draw(label, ep.bgl, pipeline, targets, inputs)
	})
	return nil
}

func (d *Device) bound(desc gpucore.DrawDesc, slot gpucore.SlotDesc) (*texture, error) {
	for _, b := range desc.Inputs {
		if b.Binding != slot.Binding {
			continue
		}
		t, err := d.texture(b.Texture)
		if err != nil {
			return nil, fmt.Errorf("%s slot %s: %w", desc.Label, slot.Name, err)
		}
		if t.desc.Usage&gpucore.TextureUsageTextureBinding == 0 {
			return nil, fmt.Errorf("%w: %s binds %q", ErrInvalidUsage, desc.Label, t.desc.Label)
		}
		if !slot.Kind.Accepts(t.desc.Format) {
			return nil, fmt.Errorf("%w: %s slot %s reads %v", ErrFormatMismatch, desc.Label, slot.Name, t.desc.Format)
		}
		return t, nil
	}
	return nil, fmt.Errorf("wgpu: %s slot %s (binding %d) is unbound", desc.Label, slot.Name, slot.Binding)
}

func targetCompatible(want, got gpucore.TextureFormat) bool {
	if want.IsColor() {
		return gpucore.CopyCompatible(want, got)
	}
	return want == got
}

// blitKey selects a transfer program: sRGB-ness of the source and the
// destination format.
type blitKey struct {
	srcSRGB bool
	dst     gpucore.TextureFormat
}

func (d *Device) blitProgram(k blitKey) (*program, error) {
	if p, ok := d.blits[k]; ok {
		return p, nil
	}
	src, err := shader.BlitSource(k.srcSRGB, k.dst.IsSRGB())
	if err != nil {
		return nil, err
	}
	p, err := d.buildProgram(gpucore.ProgramDesc{
		Label:       "blit-" + k.dst.String(),
		Source:      src,
		VertexEntry: gpucore.EntryVertex,
		Entries: []gpucore.EntryDesc{{
			Name: gpucore.EntryMain,
			Inputs: []gpucore.SlotDesc{{
				Name:    shader.SlotSourceColor,
				Binding: shader.BindingSourceColor,
				Kind:    gpucore.SampleKindFloat,
			}},
			Targets: []gpucore.TargetDesc{{Location: 0, Format: k.dst}},
		}},
	})
	if err != nil {
		return nil, err
	}
	d.blits[k] = p
	return p, nil
}
