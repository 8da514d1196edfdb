package cmaa

import (
	"testing"

	"github.com/gogpu/cmaa/gpucore"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in           string
		kind         apiKind
		major, minor int
	}{
		{"OpenGL ES 3.2 NVIDIA 535.54", apiGLES, 3, 2},
		{"OpenGL ES 3.0 Mesa 22.3.6", apiGLES, 3, 0},
		{"OpenGL ES-CM 1.1", apiGLES, 1, 1},
		{"4.6.0 NVIDIA 535.54.03", apiGL, 4, 6},
		{"OpenGL 4.1 Metal - 83.1", apiGL, 4, 1},
		{"  3.3 (Core Profile) Mesa 23.1.0", apiGL, 3, 3},
		{"WebGPU", apiWebGPU, 0, 0},
		{"", apiUnknown, 0, 0},
		{"garbage", apiUnknown, 0, 0},
		{"OpenGL ES x.y", apiUnknown, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v := parseVersion(tt.in)
			if v.kind != tt.kind || v.major != tt.major || v.minor != tt.minor {
				t.Errorf("parseVersion(%q) = %+v, want kind %d %d.%d", tt.in, v, tt.kind, tt.major, tt.minor)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		info gpucore.ContextInfo
		want Capabilities
	}{
		{
			name: "webgpu",
			info: gpucore.ContextInfo{Version: "WebGPU"},
			want: Capabilities{Usampler: true, R8Image: true, Tier: true},
		},
		{
			name: "es32 with image formats",
			info: gpucore.ContextInfo{Version: "OpenGL ES 3.2", Extensions: []string{ExtImageFormats}},
			want: Capabilities{Usampler: true, R8Image: true, Tier: true},
		},
		{
			name: "es31 without image formats",
			info: gpucore.ContextInfo{Version: "OpenGL ES 3.1"},
			want: Capabilities{Usampler: true, Tier: true},
		},
		{
			name: "es30 extension without tier",
			info: gpucore.ContextInfo{Version: "OpenGL ES 3.0", Extensions: []string{ExtImageFormats}},
			want: Capabilities{Usampler: true},
		},
		{
			name: "es20 gpu_shader4",
			info: gpucore.ContextInfo{Version: "OpenGL ES 2.0", Extensions: []string{ExtGPUShader4}},
			want: Capabilities{Usampler: true},
		},
		{
			name: "gl43",
			info: gpucore.ContextInfo{Version: "4.3.0"},
			want: Capabilities{Usampler: true, R8Image: true, Tier: true},
		},
		{
			name: "gl42",
			info: gpucore.ContextInfo{Version: "4.2.0"},
			want: Capabilities{Usampler: true, R8Image: true},
		},
		{
			name: "gl33 image formats",
			info: gpucore.ContextInfo{Version: "3.3.0", Extensions: []string{ExtImageFormats}},
			want: Capabilities{Usampler: true, R8Image: true},
		},
		{
			name: "gl21",
			info: gpucore.ContextInfo{Version: "2.1 Mesa"},
			want: Capabilities{},
		},
		{
			name: "srgb framebuffer",
			info: gpucore.ContextInfo{Version: "OpenGL ES 3.1", FramebufferSRGB: true},
			want: Capabilities{GammaCorrect: true, Usampler: true, Tier: true},
		},
		{
			name: "unknown",
			info: gpucore.ContextInfo{Version: "Direct3D 12", FramebufferSRGB: true},
			want: Capabilities{GammaCorrect: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.info); got != tt.want {
				t.Errorf("Detect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCapabilitiesDefines(t *testing.T) {
	o := defaultOptions()
	WithEdgeThreshold(0.1)(&o)

	d := Capabilities{GammaCorrect: true, Usampler: true, Tier: false}.defines(o)
	if !d.GammaCorrect || !d.Usampler || d.R8Image || d.MiniCulling {
		t.Errorf("defines = %+v", d)
	}
	if d.EdgeThreshold != 0.1 || d.ContrastFactor != LocalContrastFactor {
		t.Errorf("thresholds = %v, %v", d.EdgeThreshold, d.ContrastFactor)
	}
	if d.EdgeFormat() != gpucore.TextureFormatR8Uint {
		t.Errorf("edge format = %v", d.EdgeFormat())
	}
}
