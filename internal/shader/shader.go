// Package shader assembles the WGSL sources of the CMAA programs.
//
// Each program is the shared prelude (shaders/common.wgsl) followed by the
// fragment template of its variant, both specialized by a gpucore.Defines
// block. The result also carries the slot and target layout of every entry
// point so devices can build bind group layouts without parsing WGSL.
package shader

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/cache"
	"github.com/gogpu/naga"
)

//go:embed shaders/*.wgsl
var sources embed.FS

// Slot names, shared by every program that declares them.
const (
	SlotSourceColor = "src_color"
	SlotEdges       = "edges_in"
	SlotWeights     = "weights"
	SlotMiniColor   = "mini_color"
	SlotMiniDepth   = "mini_depth"
)

// Slot bindings within group 0.
const (
	BindingSourceColor uint32 = 0
	BindingEdges       uint32 = 1
	BindingWeights     uint32 = 1
	BindingMiniColor   uint32 = 2
	BindingMiniDepth   uint32 = 3
)

var variantFiles = [gpucore.VariantCount]string{
	gpucore.VariantEdgesA:  "shaders/edges_a.wgsl",
	gpucore.VariantEdgesB:  "shaders/edges_b.wgsl",
	gpucore.VariantCombine: "shaders/combine.wgsl",
	gpucore.VariantApply:   "shaders/apply.wgsl",
	gpucore.VariantDebug:   "shaders/debug.wgsl",
}

var (
	prelude   = mustParse("shaders/common.wgsl")
	blit      = mustParse("shaders/blit.wgsl")
	fragments [gpucore.VariantCount]*template.Template
)

func init() {
	for v, file := range variantFiles {
		fragments[v] = mustParse(file)
	}
}

func mustParse(name string) *template.Template {
	src, err := sources.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("shader: missing embedded source %s: %v", name, err))
	}
	return template.Must(template.New(name).Option("missingkey=error").Parse(string(src)))
}

// templateData is the defines block as seen by the templates.
type templateData struct {
	GammaCorrect   bool
	MiniCulling    bool
	Usampler       bool
	R8Image        bool
	EdgeThreshold  string
	ContrastFactor string
	MaskType       string

	// Loader returns a WGSL function load_<name>(p) -> u32 decoding the
	// mask texture bound to the global <name>.
	Loader func(name string) string
}

func newTemplateData(d gpucore.Defines) templateData {
	mask := "f32"
	if d.Usampler {
		mask = "u32"
	}
	return templateData{
		GammaCorrect:   d.GammaCorrect,
		MiniCulling:    d.MiniCulling,
		Usampler:       d.Usampler,
		R8Image:        d.R8Image,
		EdgeThreshold:  floatLiteral(d.EdgeThreshold),
		ContrastFactor: floatLiteral(d.ContrastFactor),
		MaskType:       mask,
		Loader:         maskLoader(d.Usampler),
	}
}

func maskLoader(usampler bool) func(string) string {
	return func(name string) string {
		if usampler {
			return fmt.Sprintf("\nfn load_%s(p: vec2<i32>) -> u32 {\n    return textureLoad(%s, p, 0).x;\n}", name, name)
		}
		return fmt.Sprintf("\nfn load_%s(p: vec2<i32>) -> u32 {\n    return u32(round(textureLoad(%s, p, 0).x * 255.0));\n}", name, name)
	}
}

// floatLiteral formats v as a WGSL f32 literal that always has a decimal point.
func floatLiteral(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

type sourceKey struct {
	variant gpucore.Variant
	defines gpucore.Defines
}

// Generated sources and SPIR-V are shared by every manager on the same
// capabilities.
var (
	generated = cache.New[sourceKey, string](64)
	spirv     = cache.New[string, []uint32](32)
)

// Source returns the complete WGSL source of variant v specialized for d.
func Source(v gpucore.Variant, d gpucore.Defines) (string, error) {
	if v >= gpucore.VariantCount {
		return "", fmt.Errorf("shader: unknown variant %v", v)
	}
	return generated.GetOrCreate(sourceKey{v, d}, func() (string, error) {
		return expand(v, d)
	})
}

func expand(v gpucore.Variant, d gpucore.Defines) (string, error) {
	data := newTemplateData(d)

	var b strings.Builder
	if err := prelude.Execute(&b, data); err != nil {
		return "", fmt.Errorf("shader: %v prelude: %w", v, err)
	}
	b.WriteByte('\n')
	if err := fragments[v].Execute(&b, data); err != nil {
		return "", fmt.Errorf("shader: %v fragment: %w", v, err)
	}
	return b.String(), nil
}

// Build returns the program descriptor of variant v specialized for d.
func Build(v gpucore.Variant, d gpucore.Defines) (gpucore.ProgramDesc, error) {
	src, err := Source(v, d)
	if err != nil {
		return gpucore.ProgramDesc{}, err
	}
	return gpucore.ProgramDesc{
		Label:       "cmaa_" + v.String(),
		Variant:     v,
		Defines:     d,
		Source:      src,
		VertexEntry: gpucore.EntryVertex,
		Entries:     entries(v, d),
	}, nil
}

func entries(v gpucore.Variant, d gpucore.Defines) []gpucore.EntryDesc {
	color := gpucore.SlotDesc{Name: SlotSourceColor, Binding: BindingSourceColor, Kind: gpucore.SampleKindFloat}
	edges := gpucore.SlotDesc{Name: SlotEdges, Binding: BindingEdges, Kind: d.EdgeSampleKind()}
	edgeOut := []gpucore.TargetDesc{{Location: 0, Format: d.EdgeFormat()}}
	colorOut := []gpucore.TargetDesc{{Location: 0, Format: gpucore.TextureFormatRGBA8Unorm}}

	switch v {
	case gpucore.VariantEdgesA:
		return []gpucore.EntryDesc{{
			Name:    gpucore.EntryMain,
			Inputs:  []gpucore.SlotDesc{color},
			Targets: edgeOut,
		}}
	case gpucore.VariantEdgesB:
		return []gpucore.EntryDesc{
			{
				Name:    gpucore.EntryMain,
				Inputs:  []gpucore.SlotDesc{color, edges},
				Targets: edgeOut,
			},
			{
				Name:   gpucore.EntryReduce,
				Inputs: []gpucore.SlotDesc{color, edges},
				Targets: []gpucore.TargetDesc{
					{Location: 0, Format: d.MiniColorFormat()},
					{Location: 1, Format: d.MiniDepthFormat()},
				},
			},
		}
	case gpucore.VariantCombine:
		inputs := []gpucore.SlotDesc{edges}
		if d.MiniCulling {
			inputs = append(inputs, gpucore.SlotDesc{Name: SlotMiniColor, Binding: BindingMiniColor, Kind: gpucore.SampleKindFloat})
		}
		return []gpucore.EntryDesc{{Name: gpucore.EntryMain, Inputs: inputs, Targets: edgeOut}}
	case gpucore.VariantApply:
		inputs := []gpucore.SlotDesc{
			color,
			{Name: SlotWeights, Binding: BindingWeights, Kind: d.EdgeSampleKind()},
		}
		if d.MiniCulling {
			inputs = append(inputs, gpucore.SlotDesc{Name: SlotMiniDepth, Binding: BindingMiniDepth, Kind: gpucore.SampleKindUnfilterableFloat})
		}
		return []gpucore.EntryDesc{{Name: gpucore.EntryMain, Inputs: inputs, Targets: colorOut}}
	default:
		return []gpucore.EntryDesc{{
			Name:    gpucore.EntryMain,
			Inputs:  []gpucore.SlotDesc{color, edges},
			Targets: colorOut,
		}}
	}
}

// BlitSource returns the WGSL of the transfer program between attachments of
// the given encodings.
func BlitSource(srcSRGB, dstSRGB bool) (string, error) {
	var b strings.Builder
	err := blit.Execute(&b, struct{ SrcSRGB, DstSRGB bool }{srcSRGB, dstSRGB})
	if err != nil {
		return "", fmt.Errorf("shader: blit: %w", err)
	}
	return b.String(), nil
}

// CompileSPIRV compiles WGSL source to SPIR-V words. Results are cached by
// source; callers must not modify the returned slice.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	return spirv.GetOrCreate(wgsl, func() ([]uint32, error) {
		return compile(wgsl)
	})
}

func compile(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, &gpucore.CompileError{Stage: "compile", Log: err.Error()}
	}
	if len(spirvBytes)%4 != 0 {
		return nil, &gpucore.CompileError{Stage: "link", Log: fmt.Sprintf("SPIR-V length %d is not word aligned", len(spirvBytes))}
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
