package gpucore

import "fmt"

// Resource IDs
//
// These opaque IDs represent device resources. Each Device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// TextureID is an opaque handle to a texture.
type TextureID uint64

// FramebufferID is an opaque handle to a framebuffer (a set of color
// attachments drawn to by a single pass).
type FramebufferID uint64

// ProgramID is an opaque handle to a linked shader program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// MaxColorAttachments is the number of color attachment points a framebuffer has.
const MaxColorAttachments = 4

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatUndefined is the zero format. It is never valid for allocation.
	TextureFormatUndefined TextureFormat = iota

	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm

	// TextureFormatRGBA8UnormSRGB is 8-bit RGBA, normalized unsigned integer in sRGB color space.
	TextureFormatRGBA8UnormSRGB

	// TextureFormatBGRA8Unorm is 8-bit BGRA, normalized unsigned integer.
	TextureFormatBGRA8Unorm

	// TextureFormatBGRA8UnormSRGB is 8-bit BGRA, normalized unsigned integer in sRGB color space.
	TextureFormatBGRA8UnormSRGB

	// TextureFormatR8Unorm is 8-bit red channel only, normalized unsigned integer.
	TextureFormatR8Unorm

	// TextureFormatR8Uint is 8-bit red channel only, unsigned integer.
	TextureFormatR8Uint

	// TextureFormatR32Float is 32-bit red channel only, floating point.
	TextureFormatR32Float
)

var textureFormatNames = [...]string{
	TextureFormatUndefined:      "undefined",
	TextureFormatRGBA8Unorm:     "rgba8unorm",
	TextureFormatRGBA8UnormSRGB: "rgba8unorm-srgb",
	TextureFormatBGRA8Unorm:     "bgra8unorm",
	TextureFormatBGRA8UnormSRGB: "bgra8unorm-srgb",
	TextureFormatR8Unorm:        "r8unorm",
	TextureFormatR8Uint:         "r8uint",
	TextureFormatR32Float:       "r32float",
}

// String returns the WebGPU-style name of the format.
func (f TextureFormat) String() string {
	if int(f) < len(textureFormatNames) {
		return textureFormatNames[f]
	}
	return fmt.Sprintf("TextureFormat(%d)", uint32(f))
}

// BytesPerPixel returns the texel size in bytes, or 0 for unknown formats.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSRGB,
		TextureFormatBGRA8Unorm, TextureFormatBGRA8UnormSRGB,
		TextureFormatR32Float:
		return 4
	case TextureFormatR8Unorm, TextureFormatR8Uint:
		return 1
	default:
		return 0
	}
}

// IsSRGB reports whether texel values are stored sRGB-encoded.
func (f TextureFormat) IsSRGB() bool {
	return f == TextureFormatRGBA8UnormSRGB || f == TextureFormatBGRA8UnormSRGB
}

// IsBGRA reports whether the red and blue channels are stored swapped.
func (f TextureFormat) IsBGRA() bool {
	return f == TextureFormatBGRA8Unorm || f == TextureFormatBGRA8UnormSRGB
}

// IsColor reports whether the format is a four-channel 8-bit color format.
func (f TextureFormat) IsColor() bool {
	switch f {
	case TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSRGB,
		TextureFormatBGRA8Unorm, TextureFormatBGRA8UnormSRGB:
		return true
	}
	return false
}

// CopyCompatible reports whether a raw texel copy between the two formats
// preserves pixel values. Formats that differ only in sRGB-ness are
// compatible; a channel order change is not.
func CopyCompatible(a, b TextureFormat) bool {
	if a == b {
		return a != TextureFormatUndefined
	}
	if !a.IsColor() || !b.IsColor() {
		return false
	}
	return a.IsBGRA() == b.IsBGRA()
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	// TextureUsageCopySrc indicates the texture can be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << 0

	// TextureUsageCopyDst indicates the texture can be used as a copy destination.
	TextureUsageCopyDst TextureUsage = 1 << 1

	// TextureUsageTextureBinding indicates the texture can be read by a program.
	TextureUsageTextureBinding TextureUsage = 1 << 2

	// TextureUsageRenderAttachment indicates the texture can be attached to a framebuffer.
	TextureUsageRenderAttachment TextureUsage = 1 << 3
)

// TextureUsageAll is every usage flag combined.
const TextureUsageAll = TextureUsageCopySrc | TextureUsageCopyDst |
	TextureUsageTextureBinding | TextureUsageRenderAttachment

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the texture size in pixels. Both must be positive.
	Width  int
	Height int

	// Format is the texel format.
	Format TextureFormat

	// Usage specifies how the texture will be used.
	Usage TextureUsage
}

// SampleKind is the component type a program reads from a bound texture.
type SampleKind uint32

// Sample kinds.
const (
	// SampleKindFloat reads normalized or float components.
	SampleKindFloat SampleKind = iota

	// SampleKindUint reads unsigned integer components.
	SampleKindUint

	// SampleKindUnfilterableFloat reads 32-bit float components.
	SampleKindUnfilterableFloat
)

// Accepts reports whether a texture of format f can be bound to a slot of
// kind k.
func (k SampleKind) Accepts(f TextureFormat) bool {
	switch k {
	case SampleKindUint:
		return f == TextureFormatR8Uint
	case SampleKindUnfilterableFloat:
		return f == TextureFormatR32Float
	default:
		return f.IsColor() || f == TextureFormatR8Unorm
	}
}

// SlotDesc describes one texture input of a program.
type SlotDesc struct {
	// Name is the variable name the slot has in the shader source.
	Name string

	// Binding is the binding index within group 0.
	Binding uint32

	// Kind is the sample type of the texture bound here.
	Kind SampleKind
}

// TargetDesc describes one color output of a fragment entry point.
type TargetDesc struct {
	// Location is the fragment output location.
	Location uint32

	// Format is the format of the attachment the output is written to.
	Format TextureFormat
}

// EntryDesc describes a fragment entry point of a program. A program may
// expose several entry points that share its inputs.
type EntryDesc struct {
	// Name is the fragment entry point function name.
	Name string

	// Inputs lists the texture slots read by this entry point.
	Inputs []SlotDesc

	// Targets lists the color outputs written by this entry point.
	Targets []TargetDesc
}

// ProgramDesc describes a shader program.
type ProgramDesc struct {
	// Label is an optional debug label.
	Label string

	// Variant identifies which pass the program performs.
	Variant Variant

	// Defines is the capability-derived configuration the source was
	// specialized for.
	Defines Defines

	// Source is the complete WGSL source (vertex and fragment stages).
	Source string

	// VertexEntry is the vertex entry point function name.
	VertexEntry string

	// Entries lists the fragment entry points.
	Entries []EntryDesc
}

// Entry returns the entry point with the given name.
func (d *ProgramDesc) Entry(name string) (EntryDesc, bool) {
	for _, e := range d.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return EntryDesc{}, false
}

// TextureBinding binds a texture to a program input.
type TextureBinding struct {
	// Binding is the slot binding index.
	Binding uint32

	// Texture is the bound texture.
	Texture TextureID
}

// DrawDesc describes one full-screen draw.
type DrawDesc struct {
	// Label is an optional debug label.
	Label string

	// Program is the program to draw with.
	Program ProgramID

	// Entry is the fragment entry point to use.
	Entry string

	// Framebuffer is the draw target. The viewport covers its attachments.
	Framebuffer FramebufferID

	// Inputs are the textures bound to the entry point's slots.
	Inputs []TextureBinding
}
