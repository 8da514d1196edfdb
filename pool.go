package cmaa

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/kernel"
)

// Pooled resource names, used in labels and AllocationError.Resource.
const (
	resWorking     = "working"
	resEdges0      = "edges0"
	resEdges1      = "edges1"
	resMiniColor   = "mini-color"
	resMiniDepth   = "mini-depth"
	resStaging     = "staging"
	resTransfer    = "transfer"
	resFramebuffer = "framebuffer"
)

const (
	passUsage    = gpucore.TextureUsageRenderAttachment | gpucore.TextureUsageTextureBinding
	workingUsage = passUsage | gpucore.TextureUsageCopySrc
	stagingUsage = passUsage | gpucore.TextureUsageCopyDst
)

// resource is one entry of the creation log the pool releases in reverse.
type resource struct {
	name string
	tex  gpucore.TextureID
	fb   gpucore.FramebufferID
}

// resourcePool owns the intermediate textures and the private framebuffer.
type resourcePool struct {
	dev     gpucore.Device
	defines gpucore.Defines
	prefix  string
	log     *slog.Logger

	width, height int
	allocated     bool

	working   gpucore.TextureID
	edges0    gpucore.TextureID
	edges1    gpucore.TextureID
	miniColor gpucore.TextureID
	miniDepth gpucore.TextureID
	staging   gpucore.TextureID
	transfer  gpucore.TextureID
	fb        gpucore.FramebufferID

	// attached is the number of color attachment points in use on fb.
	attached int

	created []resource
}

func newResourcePool(dev gpucore.Device, d gpucore.Defines, prefix string, log *slog.Logger) *resourcePool {
	return &resourcePool{dev: dev, defines: d, prefix: prefix, log: log}
}

func (p *resourcePool) label(name string) string {
	return p.prefix + "-" + name
}

func (p *resourcePool) allocErr(name, stage string, err error) error {
	return &AllocationError{Resource: name, Stage: stage, Width: p.width, Height: p.height, Err: err}
}

// ensure sizes the pool to w x h. Matching dimensions are a no-op; otherwise
// held resources are released before the new set is created. On failure
// the pool is left empty.
func (p *resourcePool) ensure(w, h int) error {
	if p.allocated && p.width == w && p.height == h {
		return nil
	}
	if p.allocated {
		p.log.Info("cmaa: resizing pool", "from", fmt.Sprintf("%dx%d", p.width, p.height), "to", fmt.Sprintf("%dx%d", w, h))
	}
	p.release()
	p.width, p.height = w, h

	if err := p.allocate(); err != nil {
		p.release()
		return err
	}
	p.allocated = true
	p.log.Info("cmaa: pool allocated", "width", w, "height", h, "resources", len(p.created))
	return nil
}

func (p *resourcePool) allocate() error {
	mw, mh := kernel.MiniSize(p.width, p.height)
	edgeFormat := p.defines.EdgeFormat()
	textures := []struct {
		name   string
		dst    *gpucore.TextureID
		w, h   int
		format gpucore.TextureFormat
		usage  gpucore.TextureUsage
	}{
		{resWorking, &p.working, p.width, p.height, gpucore.TextureFormatRGBA8Unorm, workingUsage},
		{resEdges0, &p.edges0, p.width, p.height, edgeFormat, passUsage},
		{resEdges1, &p.edges1, p.width, p.height, edgeFormat, passUsage},
		{resMiniColor, &p.miniColor, mw, mh, p.defines.MiniColorFormat(), passUsage},
		{resMiniDepth, &p.miniDepth, mw, mh, p.defines.MiniDepthFormat(), passUsage},
	}
	for _, t := range textures {
		id, err := p.createTexture(t.name, t.w, t.h, t.format, t.usage)
		if err != nil {
			return err
		}
		*t.dst = id
	}

	fb, err := p.dev.CreateFramebuffer(p.label(resFramebuffer))
	if err != nil {
		return p.allocErr(resFramebuffer, "create", err)
	}
	p.fb = fb
	p.created = append(p.created, resource{name: resFramebuffer, fb: fb})

	return p.target(resWorking, p.working)
}

func (p *resourcePool) createTexture(name string, w, h int, f gpucore.TextureFormat, usage gpucore.TextureUsage) (gpucore.TextureID, error) {
	id, err := p.dev.CreateTexture(gpucore.TextureDesc{
		Label:  p.label(name),
		Width:  w,
		Height: h,
		Format: f,
		Usage:  usage,
	})
	if err != nil {
		return gpucore.InvalidID, p.allocErr(name, "create", err)
	}
	p.created = append(p.created, resource{name: name, tex: id})
	return id, nil
}

// target attaches textures to the private framebuffer in order, detaches
// the attachment points past them and checks completeness.
func (p *resourcePool) target(name string, textures ...gpucore.TextureID) error {
	for i, t := range textures {
		if err := p.dev.AttachColor(p.fb, i, t); err != nil {
			return p.allocErr(name, "attach", err)
		}
	}
	for i := len(textures); i < p.attached; i++ {
		if err := p.dev.AttachColor(p.fb, i, gpucore.InvalidID); err != nil {
			return p.allocErr(name, "attach", err)
		}
	}
	p.attached = len(textures)
	if err := p.dev.CheckFramebuffer(p.fb); err != nil {
		return p.allocErr(name, "complete", err)
	}
	return nil
}

// stagingTexture returns the RGBA8 texture sources in other formats are
// converted into, creating it on first use.
func (p *resourcePool) stagingTexture() (gpucore.TextureID, error) {
	if p.staging != gpucore.InvalidID {
		return p.staging, nil
	}
	id, err := p.createTexture(resStaging, p.width, p.height, gpucore.TextureFormatRGBA8Unorm, stagingUsage)
	if err != nil {
		return gpucore.InvalidID, err
	}
	p.staging = id
	return id, nil
}

// transferTexture returns the intermediate for draw-and-copy transfers in
// format f. A held intermediate of another format is replaced.
func (p *resourcePool) transferTexture(f gpucore.TextureFormat) (gpucore.TextureID, error) {
	if p.transfer != gpucore.InvalidID {
		if desc, ok := p.dev.TextureInfo(p.transfer); ok && desc.Format == f {
			return p.transfer, nil
		}
		p.forget(p.transfer)
		p.dev.DestroyTexture(p.transfer)
		p.transfer = gpucore.InvalidID
	}
	id, err := p.createTexture(resTransfer, p.width, p.height, f, passUsage|gpucore.TextureUsageCopySrc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	p.transfer = id
	return id, nil
}

func (p *resourcePool) forget(tex gpucore.TextureID) {
	for i, r := range p.created {
		if r.tex == tex && r.fb == gpucore.InvalidID {
			p.created = append(p.created[:i], p.created[i+1:]...)
			return
		}
	}
}

// release destroys every held resource in reverse creation order. The
// framebuffer is detached before it is deleted.
func (p *resourcePool) release() {
	for i := len(p.created) - 1; i >= 0; i-- {
		r := p.created[i]
		if r.fb != gpucore.InvalidID {
			for a := range p.attached {
				_ = p.dev.AttachColor(r.fb, a, gpucore.InvalidID)
			}
			p.dev.DestroyFramebuffer(r.fb)
			continue
		}
		p.dev.DestroyTexture(r.tex)
	}
	*p = resourcePool{dev: p.dev, defines: p.defines, prefix: p.prefix, log: p.log, created: p.created[:0]}
}
