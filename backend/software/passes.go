package software

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/kernel"
	"github.com/gogpu/cmaa/internal/shader"
)

// Draw validates the bindings of desc against the program entry and the
// framebuffer, then records the pass.
func (d *Device) Draw(desc gpucore.DrawDesc) error {
	p, ok := d.programs[desc.Program]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownProgram, desc.Program)
	}
	entry, ok := p.desc.Entry(desc.Entry)
	if !ok {
		return fmt.Errorf("software: %s has no entry point %q", p.desc.Label, desc.Entry)
	}
	f, err := d.framebuffer(desc.Framebuffer)
	if err != nil {
		return err
	}
	atts, err := d.checkComplete(f)
	if err != nil {
		return fmt.Errorf("%s: %w", desc.Label, err)
	}
	if len(atts) < len(entry.Targets) {
		return fmt.Errorf("%w: %s writes %d targets, %q has %d",
			gpucore.ErrFramebufferIncomplete, desc.Label, len(entry.Targets), f.label, len(atts))
	}
	for _, target := range entry.Targets {
		t := atts[target.Location]
		if t == nil {
			return fmt.Errorf("%w: %s target %d is not attached", gpucore.ErrFramebufferIncomplete, desc.Label, target.Location)
		}
		if !targetCompatible(target.Format, t.desc.Format) {
			return fmt.Errorf("%w: %s target %d is %v, program writes %v",
				ErrFormatMismatch, desc.Label, target.Location, t.desc.Format, target.Format)
		}
	}

	inputs := make(map[string]*texture, len(entry.Inputs))
	for _, slot := range entry.Inputs {
		t, err := d.bound(desc, slot)
		if err != nil {
			return err
		}
		for _, a := range atts {
			if a == t {
				return fmt.Errorf("%w: %s slot %s", ErrFeedbackLoop, desc.Label, slot.Name)
			}
		}
		inputs[slot.Name] = t
	}

	pass := passFunc(p.desc.Variant, desc.Entry)
	if pass == nil {
		return fmt.Errorf("software: no kernel for %v/%s", p.desc.Variant, desc.Entry)
	}
	ctx := &passContext{
		dev:     d,
		defines: p.desc.Defines,
		inputs:  inputs,
		targets: atts,
	}
	if err := ctx.validate(p.desc.Variant, desc.Entry); err != nil {
		return fmt.Errorf("%s: %w", desc.Label, err)
	}
	d.pending = append(d.pending, func() {
		pass(ctx)
		d.stats.Draws++
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
	return nil, fmt.Errorf("software: %s slot %s (binding %d) is unbound", desc.Label, slot.Name, slot.Binding)
}

func targetCompatible(want, got gpucore.TextureFormat) bool {
	if want.IsColor() {
		return gpucore.CopyCompatible(want, got)
	}
	return want == got
}

// passContext is one recorded draw.
type passContext struct {
	dev     *Device
	defines gpucore.Defines
	inputs  map[string]*texture
	targets []*texture
}

func (c *passContext) params() kernel.Params {
	return kernel.Params{
		EdgeThreshold:  c.defines.EdgeThreshold,
		ContrastFactor: c.defines.ContrastFactor,
		GammaCorrect:   c.defines.GammaCorrect,
	}
}

// validate checks the size relations between inputs and targets that the
// kernels rely on.
func (c *passContext) validate(v gpucore.Variant, entry string) error {
	t := c.targets[0]
	w, h := t.desc.Width, t.desc.Height
	if v == gpucore.VariantEdgesB && entry == gpucore.EntryReduce {
		edges := c.inputs[shader.SlotEdges]
		w, h = edges.desc.Width, edges.desc.Height
		mw, mh := kernel.MiniSize(w, h)
		if t.desc.Width != mw || t.desc.Height != mh {
			return fmt.Errorf("%w: mini target %dx%d for %dx%d edges", ErrSizeMismatch, t.desc.Width, t.desc.Height, w, h)
		}
	}
	for name, in := range c.inputs {
		if name == shader.SlotMiniColor || name == shader.SlotMiniDepth {
			mw, mh := kernel.MiniSize(w, h)
			if in.desc.Width != mw || in.desc.Height != mh {
				return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrSizeMismatch, name, in.desc.Width, in.desc.Height, mw, mh)
			}
			continue
		}
		if in.desc.Width != w || in.desc.Height != h {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrSizeMismatch, name, in.desc.Width, in.desc.Height, w, h)
		}
	}
	return nil
}

func passFunc(v gpucore.Variant, entry string) func(*passContext) {
	switch {
	case v == gpucore.VariantEdgesA && entry == gpucore.EntryMain:
		return runDetect
	case v == gpucore.VariantEdgesB && entry == gpucore.EntryMain:
		return runRefine
	case v == gpucore.VariantEdgesB && entry == gpucore.EntryReduce:
		return runReduce
	case v == gpucore.VariantCombine && entry == gpucore.EntryMain:
		return runCombine
	case v == gpucore.VariantApply && entry == gpucore.EntryMain:
		return runApply
	case v == gpucore.VariantDebug && entry == gpucore.EntryMain:
		return runDebug
	}
	return nil
}

// colorImage returns t as an RGBA image. RGBA textures are shared, BGRA
// textures are converted into a copy.
func colorImage(t *texture) *kernel.Image {
	img := &kernel.Image{W: t.desc.Width, H: t.desc.Height, Pix: t.data}
	if !t.desc.Format.IsBGRA() {
		return img
	}
	pix := make([]byte, len(t.data))
	blitPixels(pix, t.data, true)
	img.Pix = pix
	return img
}

func maskImage(t *texture) *kernel.Mask {
	return &kernel.Mask{W: t.desc.Width, H: t.desc.Height, Stride: t.desc.Format.BytesPerPixel(), Pix: t.data}
}

func depthImage(t *texture) *kernel.Depth {
	d := kernel.NewDepth(t.desc.Width, t.desc.Height)
	for i := range d.Pix {
		d.Pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.data[i*4:]))
	}
	return d
}

func storeDepth(t *texture, d *kernel.Depth) {
	for i, v := range d.Pix {
		binary.LittleEndian.PutUint32(t.data[i*4:], math.Float32bits(v))
	}
}

// fillAlpha sets the alpha byte of RGBA mask texels, which programs write
// as 1.
func fillAlpha(t *texture) {
	if t.desc.Format.BytesPerPixel() != 4 || t.desc.Format == gpucore.TextureFormatR32Float {
		return
	}
	for i := 3; i < len(t.data); i += 4 {
		t.data[i] = 0xFF
	}
}

func runDetect(c *passContext) {
	src := colorImage(c.inputs[shader.SlotSourceColor])
	out := maskImage(c.targets[0])
	p := c.params()
	c.dev.pool.Rows(src.H, func(y0, y1 int) {
		kernel.DetectEdges(src, out, p, y0, y1)
	})
}

func runRefine(c *passContext) {
	src := colorImage(c.inputs[shader.SlotSourceColor])
	in := maskImage(c.inputs[shader.SlotEdges])
	out := maskImage(c.targets[0])
	p := c.params()
	c.dev.pool.Rows(src.H, func(y0, y1 int) {
		kernel.RefineEdges(src, in, out, p, y0, y1)
	})
}

func runReduce(c *passContext) {
	src := colorImage(c.inputs[shader.SlotSourceColor])
	edges := maskImage(c.inputs[shader.SlotEdges])
	color := maskImage(c.targets[0])
	depth := kernel.NewDepth(c.targets[1].desc.Width, c.targets[1].desc.Height)
	c.dev.pool.Rows(color.H, func(y0, y1 int) {
		kernel.Reduce(src, edges, color, depth, y0, y1)
	})
	fillAlpha(c.targets[0])
	storeDepth(c.targets[1], depth)
}

func runCombine(c *passContext) {
	edges := maskImage(c.inputs[shader.SlotEdges])
	var mini *kernel.Mask
	if t, ok := c.inputs[shader.SlotMiniColor]; ok {
		mini = maskImage(t)
	}
	out := maskImage(c.targets[0])
	c.dev.pool.Rows(edges.H, func(y0, y1 int) {
		kernel.Combine(edges, mini, out, y0, y1)
	})
}

func runApply(c *passContext) {
	src := colorImage(c.inputs[shader.SlotSourceColor])
	weights := maskImage(c.inputs[shader.SlotWeights])
	var mini *kernel.Depth
	if t, ok := c.inputs[shader.SlotMiniDepth]; ok {
		mini = depthImage(t)
	}
	out := colorImage(c.targets[0])
	p := c.params()

	var (
		mu    sync.Mutex
		total kernel.ApplyStats
	)
	c.dev.pool.Rows(src.H, func(y0, y1 int) {
		st := kernel.Apply(src, weights, mini, out, p, y0, y1)
		mu.Lock()
		total.Add(st)
		mu.Unlock()
	})
	c.dev.stats.Apply = total
	writeBack(c.targets[0], out)
}

func runDebug(c *passContext) {
	src := colorImage(c.inputs[shader.SlotSourceColor])
	edges := maskImage(c.inputs[shader.SlotEdges])
	out := colorImage(c.targets[0])
	c.dev.pool.Rows(src.H, func(y0, y1 int) {
		kernel.Debug(src, edges, out, y0, y1)
	})
	writeBack(c.targets[0], out)
}

// writeBack stores an RGBA image rendered for t when t keeps BGRA order.
func writeBack(t *texture, img *kernel.Image) {
	if t.desc.Format.IsBGRA() {
		blitPixels(t.data, img.Pix, true)
	}
}
