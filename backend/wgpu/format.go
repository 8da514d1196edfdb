//go:build !nogpu

package wgpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmaa/gpucore"
)

// convertTextureFormat maps a gpucore format onto its HAL equivalent.
func convertTextureFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, bool) {
	switch f {
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case gpucore.TextureFormatRGBA8UnormSRGB:
		return gputypes.TextureFormatRGBA8UnormSrgb, true
	case gpucore.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, true
	case gpucore.TextureFormatBGRA8UnormSRGB:
		return gputypes.TextureFormatBGRA8UnormSrgb, true
	case gpucore.TextureFormatR8Unorm:
		return gputypes.TextureFormatR8Unorm, true
	case gpucore.TextureFormatR8Uint:
		return gputypes.TextureFormatR8Uint, true
	case gpucore.TextureFormatR32Float:
		return gputypes.TextureFormatR32Float, true
	}
	return gputypes.TextureFormatUndefined, false
}

func isSRGBSurface(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatRGBA8UnormSrgb || f == gputypes.TextureFormatBGRA8UnormSrgb
}

func convertTextureUsage(u gpucore.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gpucore.TextureUsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.TextureUsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&gpucore.TextureUsageTextureBinding != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&gpucore.TextureUsageRenderAttachment != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

func convertSampleKind(k gpucore.SampleKind) gputypes.TextureSampleType {
	switch k {
	case gpucore.SampleKindUint:
		return gputypes.TextureSampleTypeUint
	case gpucore.SampleKindUnfilterableFloat:
		return gputypes.TextureSampleTypeUnfilterableFloat
	}
	return gputypes.TextureSampleTypeFloat
}
