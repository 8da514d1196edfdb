package gpucore

import "fmt"

// Variant is the closed set of CMAA programs.
type Variant uint8

// Program variants, in build order.
const (
	// VariantEdgesA detects luminance edges from the source color.
	VariantEdgesA Variant = iota

	// VariantEdgesB refines the edge mask and reduces it into the mini buffers.
	VariantEdgesB

	// VariantCombine turns refined edges into per-pixel blend weights.
	VariantCombine

	// VariantApply blends the source along the weighted edges.
	VariantApply

	// VariantDebug visualizes the refined edges over the source.
	VariantDebug

	// VariantCount is the number of variants.
	VariantCount
)

var variantNames = [...]string{
	VariantEdgesA:  "edges-a",
	VariantEdgesB:  "edges-b",
	VariantCombine: "combine",
	VariantApply:   "apply",
	VariantDebug:   "debug",
}

func (v Variant) String() string {
	if v < VariantCount {
		return variantNames[v]
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

// Fragment entry point names shared by the programs.
const (
	EntryMain   = "fs_main"
	EntryReduce = "fs_reduce"
	EntryVertex = "vs_main"
)

// Defines is the capability-derived configuration a program is specialized
// for. It plays the role of a preprocessor defines block.
type Defines struct {
	// GammaCorrect selects linear-space blending in the apply pass.
	GammaCorrect bool

	// Usampler stores edge masks as unsigned integer textures.
	Usampler bool

	// R8Image stores the mini color-class buffer in a single channel.
	R8Image bool

	// MiniCulling enables the 4x4 coarse skip path.
	MiniCulling bool

	// EdgeThreshold is the luma difference above which a boundary is an edge.
	EdgeThreshold float32

	// ContrastFactor is the local contrast adaptation factor.
	ContrastFactor float32
}

// EdgeFormat returns the texture format edge masks are stored in.
func (d Defines) EdgeFormat() TextureFormat {
	if d.Usampler {
		return TextureFormatR8Uint
	}
	return TextureFormatR8Unorm
}

// EdgeSampleKind returns the sample kind programs read edge masks with.
func (d Defines) EdgeSampleKind() SampleKind {
	if d.Usampler {
		return SampleKindUint
	}
	return SampleKindFloat
}

// MiniColorFormat returns the mini color-class buffer format.
func (d Defines) MiniColorFormat() TextureFormat {
	if d.R8Image {
		return TextureFormatR8Unorm
	}
	return TextureFormatRGBA8Unorm
}

// MiniDepthFormat returns the mini depth-class buffer format.
func (Defines) MiniDepthFormat() TextureFormat {
	return TextureFormatR32Float
}

// ContextInfo describes the graphics context a Device runs on.
type ContextInfo struct {
	// Renderer is the adapter or renderer name.
	Renderer string

	// Version is the API version string, e.g. "OpenGL ES 3.1" or "WebGPU".
	Version string

	// Extensions lists the extension names the context exposes.
	Extensions []string

	// FramebufferSRGB reports whether the presented framebuffer expects
	// sRGB-encoded values.
	FramebufferSRGB bool
}

// HasExtension reports whether name is among the context's extensions.
func (c ContextInfo) HasExtension(name string) bool {
	for _, e := range c.Extensions {
		if e == name {
			return true
		}
	}
	return false
}
