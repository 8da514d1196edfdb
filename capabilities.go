package cmaa

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gogpu/cmaa/gpucore"
)

// Extensions the detector looks for.
const (
	ExtGPUShader4   = "GL_EXT_gpu_shader4"
	ExtImageFormats = "GL_NV_image_formats"
)

// Capabilities is the feature set detected from a graphics context. It is
// fixed for the lifetime of a Manager.
type Capabilities struct {
	// GammaCorrect is set when the framebuffer stores sRGB-encoded values;
	// the apply pass then blends in linear space.
	GammaCorrect bool

	// Usampler is set when edge masks can be sampled as unsigned integers.
	Usampler bool

	// R8Image is set when single-channel 8-bit render targets are usable
	// for the mini color-class buffer.
	R8Image bool

	// Tier is set when the context meets OpenGL ES 3.1, OpenGL 4.3 or
	// WebGPU, enabling mini buffer culling.
	Tier bool

	// Initialized is set once the program set was built.
	Initialized bool
}

// LogValue implements slog.LogValuer.
func (c Capabilities) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("gamma", c.GammaCorrect),
		slog.Bool("usampler", c.Usampler),
		slog.Bool("r8_image", c.R8Image),
		slog.Bool("tier", c.Tier),
	)
}

type apiKind uint8

const (
	apiUnknown apiKind = iota
	apiGL
	apiGLES
	apiWebGPU
)

type apiVersion struct {
	kind         apiKind
	major, minor int
}

func (v apiVersion) atLeast(major, minor int) bool {
	return v.major > major || (v.major == major && v.minor >= minor)
}

// parseVersion recognizes "OpenGL ES x.y ...", "x.y[.z] ..." desktop GL and
// "WebGPU" version strings.
func parseVersion(s string) apiVersion {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "WebGPU") {
		return apiVersion{kind: apiWebGPU}
	}
	kind := apiGL
	if i := strings.Index(s, "OpenGL ES"); i >= 0 {
		kind = apiGLES
		s = s[i+len("OpenGL ES"):]
		// "OpenGL ES-CM 1.1" and "OpenGL ES-CL" profiles.
		if j := strings.IndexByte(s, ' '); j >= 0 && strings.HasPrefix(s, "-") {
			s = s[j:]
		}
	} else {
		s = strings.TrimPrefix(s, "OpenGL ")
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return apiVersion{}
	}
	parts := strings.SplitN(fields[0], ".", 3)
	if len(parts) < 2 {
		return apiVersion{}
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return apiVersion{}
	}
	return apiVersion{kind: kind, major: major, minor: minor}
}

// Detect derives the capability set from info. Missing features select
// fallbacks; detection never fails.
func Detect(info gpucore.ContextInfo) Capabilities {
	v := parseVersion(info.Version)
	var c Capabilities
	c.GammaCorrect = info.FramebufferSRGB

	switch v.kind {
	case apiWebGPU:
		c.Tier, c.Usampler, c.R8Image = true, true, true
	case apiGLES:
		c.Tier = v.atLeast(3, 1)
		c.Usampler = v.atLeast(3, 0)
		c.R8Image = c.Tier && info.HasExtension(ExtImageFormats)
	case apiGL:
		c.Tier = v.atLeast(4, 3)
		c.Usampler = v.atLeast(3, 0)
		c.R8Image = v.atLeast(4, 2) || info.HasExtension(ExtImageFormats)
	}
	if info.HasExtension(ExtGPUShader4) {
		c.Usampler = true
	}
	return c
}

func (c Capabilities) defines(o options) gpucore.Defines {
	return gpucore.Defines{
		GammaCorrect:   c.GammaCorrect,
		Usampler:       c.Usampler,
		R8Image:        c.R8Image,
		MiniCulling:    c.Tier,
		EdgeThreshold:  o.edgeThreshold,
		ContrastFactor: o.contrastFactor,
	}
}
