//go:build !nogpu

package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cmaa"
	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/shader"
)

// createNoopDevice opens a device on the noop HAL backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newTestDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	device, queue := createNoopDevice(t)
	d, err := NewFromHAL(device, queue, "noop", opts...)
	if err != nil {
		t.Fatalf("NewFromHAL: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func mustTexture(t *testing.T, d *Device, label string, w, h int, f gpucore.TextureFormat, usage gpucore.TextureUsage) gpucore.TextureID {
	t.Helper()
	id, err := d.CreateTexture(gpucore.TextureDesc{Label: label, Width: w, Height: h, Format: f, Usage: usage})
	if err != nil {
		t.Fatalf("CreateTexture(%s): %v", label, err)
	}
	return id
}

func TestNewFromHALNil(t *testing.T) {
	if _, err := NewFromHAL(nil, nil, "x"); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewFromHAL(nil) = %v, want ErrNilDevice", err)
	}
}

func TestInfo(t *testing.T) {
	d := newTestDevice(t)
	info := d.Info()
	if info.Renderer != "noop" || info.Version != "WebGPU" || info.FramebufferSRGB {
		t.Errorf("Info() = %+v", info)
	}
	caps := cmaa.Detect(info)
	if !caps.Usampler || !caps.R8Image || !caps.Tier || caps.GammaCorrect {
		t.Errorf("Detect() = %+v", caps)
	}

	d = newTestDevice(t, WithFramebufferSRGB(true))
	if !d.Info().FramebufferSRGB {
		t.Error("WithFramebufferSRGB(true) not reported")
	}
}

type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8UnormSrgb }

type halProvider struct {
	plainProvider
	device hal.Device
	queue  hal.Queue
}

func (p halProvider) HalDevice() any { return p.device }
func (p halProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	if _, err := NewFromProvider(nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil provider: %v", err)
	}
	if _, err := NewFromProvider(plainProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("provider without HAL: %v", err)
	}
	if _, err := NewFromProvider(halProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("provider with nil HAL: %v", err)
	}

	device, queue := createNoopDevice(t)
	d, err := NewFromProvider(halProvider{device: device, queue: queue})
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer d.Close()
	if !d.Info().FramebufferSRGB {
		t.Error("sRGB surface format not reported")
	}

	d2, err := NewFromProvider(halProvider{device: device, queue: queue}, WithFramebufferSRGB(false))
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer d2.Close()
	if d2.Info().FramebufferSRGB {
		t.Error("WithFramebufferSRGB(false) ignored")
	}
}

func TestCreateTexture(t *testing.T) {
	d := newTestDevice(t)

	tests := []struct {
		name    string
		desc    gpucore.TextureDesc
		wantErr error
	}{
		{"rgba", gpucore.TextureDesc{Width: 8, Height: 8, Format: gpucore.TextureFormatRGBA8Unorm, Usage: gpucore.TextureUsageAll}, nil},
		{"r8uint", gpucore.TextureDesc{Width: 2, Height: 2, Format: gpucore.TextureFormatR8Uint, Usage: gpucore.TextureUsageAll}, nil},
		{"r32float", gpucore.TextureDesc{Width: 2, Height: 2, Format: gpucore.TextureFormatR32Float, Usage: gpucore.TextureUsageAll}, nil},
		{"zero width", gpucore.TextureDesc{Width: 0, Height: 8, Format: gpucore.TextureFormatRGBA8Unorm}, gpucore.ErrInvalidTextureSize},
		{"undefined", gpucore.TextureDesc{Width: 8, Height: 8}, ErrFormatMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := d.CreateTexture(tt.desc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateTexture() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateTexture() error = %v", err)
			}
			got, ok := d.TextureInfo(id)
			if !ok || got != tt.desc {
				t.Errorf("TextureInfo() = %+v, %v", got, ok)
			}
			d.DestroyTexture(id)
			if _, ok := d.TextureInfo(id); ok {
				t.Error("texture alive after DestroyTexture")
			}
		})
	}
}

func TestWriteTextureValidation(t *testing.T) {
	d := newTestDevice(t)
	id := mustTexture(t, d, "tex", 4, 4, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	if err := d.WriteTexture(id, make([]byte, 4*4*4)); err != nil {
		t.Errorf("WriteTexture() error = %v", err)
	}
	if err := d.WriteTexture(id, make([]byte, 10)); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("short write: %v", err)
	}
	ro := mustTexture(t, d, "ro", 4, 4, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageTextureBinding)
	if err := d.WriteTexture(ro, make([]byte, 64)); !errors.Is(err, ErrInvalidUsage) {
		t.Errorf("write without CopyDst: %v", err)
	}
	if err := d.WriteTexture(999, nil); !errors.Is(err, ErrUnknownTexture) {
		t.Errorf("unknown texture: %v", err)
	}
}

func TestReadTexturePadding(t *testing.T) {
	d := newTestDevice(t)
	// 10 RGBA texels per row need row padding to 256 bytes.
	id := mustTexture(t, d, "odd", 10, 3, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	pix, err := d.ReadTexture(id)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if len(pix) != 10*3*4 {
		t.Errorf("len = %d, want %d", len(pix), 10*3*4)
	}
	noRead := mustTexture(t, d, "no-read", 4, 4, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageCopyDst)
	if _, err := d.ReadTexture(noRead); !errors.Is(err, ErrInvalidUsage) {
		t.Errorf("read without CopySrc: %v", err)
	}
}

func TestFramebufferCompleteness(t *testing.T) {
	d := newTestDevice(t)
	a := mustTexture(t, d, "a", 8, 8, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	b := mustTexture(t, d, "b", 4, 4, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	sampled := mustTexture(t, d, "s", 8, 8, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageTextureBinding)

	fb, err := d.CreateFramebuffer("fb")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.CheckFramebuffer(fb); !errors.Is(err, gpucore.ErrFramebufferIncomplete) {
		t.Errorf("empty framebuffer: %v", err)
	}
	if err := d.AttachColor(fb, 0, sampled); !errors.Is(err, ErrInvalidUsage) {
		t.Errorf("attach sampled-only: %v", err)
	}
	if err := d.AttachColor(fb, gpucore.MaxColorAttachments, a); err == nil {
		t.Error("attachment index out of range accepted")
	}
	if err := d.AttachColor(fb, 0, a); err != nil {
		t.Fatal(err)
	}
	if err := d.CheckFramebuffer(fb); err != nil {
		t.Errorf("complete framebuffer: %v", err)
	}
	if err := d.AttachColor(fb, 1, b); err != nil {
		t.Fatal(err)
	}
	if err := d.CheckFramebuffer(fb); !errors.Is(err, gpucore.ErrFramebufferIncomplete) {
		t.Errorf("mixed sizes: %v", err)
	}
	if err := d.AttachColor(fb, 1, gpucore.InvalidID); err != nil {
		t.Fatal(err)
	}
	d.DestroyTexture(a)
	if err := d.CheckFramebuffer(fb); !errors.Is(err, gpucore.ErrFramebufferIncomplete) {
		t.Errorf("destroyed attachment: %v", err)
	}
	d.DestroyFramebuffer(fb)
	if err := d.CheckFramebuffer(fb); !errors.Is(err, ErrUnknownFramebuffer) {
		t.Errorf("destroyed framebuffer: %v", err)
	}
}

func TestCreateProgramEveryVariant(t *testing.T) {
	d := newTestDevice(t)
	for v := range gpucore.VariantCount {
		desc, err := shader.Build(v, gpucore.Defines{Usampler: true, R8Image: true, MiniCulling: true, EdgeThreshold: cmaa.EdgeThreshold})
		if err != nil {
			t.Fatalf("Build(%v): %v", v, err)
		}
		id, err := d.CreateProgram(desc)
		if err != nil {
			t.Fatalf("CreateProgram(%v): %v", v, err)
		}
		p := d.programs[id]
		if len(p.entries) != len(desc.Entries) {
			t.Errorf("%v: %d entry pipelines, want %d", v, len(p.entries), len(desc.Entries))
		}
		d.DestroyProgram(id)
		if _, ok := d.programs[id]; ok {
			t.Errorf("%v: program alive after DestroyProgram", v)
		}
	}

	if _, err := d.CreateProgram(gpucore.ProgramDesc{Label: "empty"}); err == nil {
		t.Error("program without entries accepted")
	} else {
		var ce *gpucore.CompileError
		if !errors.As(err, &ce) || ce.Stage != "link" {
			t.Errorf("error = %v, want link CompileError", err)
		}
	}
}

func TestCreateProgramSPIRV(t *testing.T) {
	d := newTestDevice(t, WithSPIRV(true))
	desc, err := shader.Build(gpucore.VariantEdgesA, gpucore.Defines{Usampler: true, EdgeThreshold: cmaa.EdgeThreshold})
	if err != nil {
		t.Fatal(err)
	}
	id, err := d.CreateProgram(desc)
	var ce *gpucore.CompileError
	if errors.As(err, &ce) {
		t.Skipf("naga rejected the source: %v", ce)
	}
	if err != nil {
		t.Fatalf("CreateProgram() error = %v", err)
	}
	d.DestroyProgram(id)
}

func TestDrawValidation(t *testing.T) {
	d := newTestDevice(t)
	desc, err := shader.Build(gpucore.VariantApply, gpucore.Defines{Usampler: true, EdgeThreshold: cmaa.EdgeThreshold})
	if err != nil {
		t.Fatal(err)
	}
	prog, err := d.CreateProgram(desc)
	if err != nil {
		t.Fatal(err)
	}
	color := mustTexture(t, d, "color", 8, 8, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	weights := mustTexture(t, d, "weights", 8, 8, gpucore.TextureFormatR8Uint, gpucore.TextureUsageAll)
	out := mustTexture(t, d, "out", 8, 8, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	fb, _ := d.CreateFramebuffer("apply")
	if err := d.AttachColor(fb, 0, out); err != nil {
		t.Fatal(err)
	}

	inputs := []gpucore.TextureBinding{
		{Binding: shader.BindingSourceColor, Texture: color},
		{Binding: shader.BindingWeights, Texture: weights},
	}
	draw := gpucore.DrawDesc{Label: "apply", Program: prog, Entry: gpucore.EntryMain, Framebuffer: fb, Inputs: inputs}
	if err := d.Draw(draw); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := d.Submit(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	bad := draw
	bad.Entry = "fs_missing"
	if err := d.Draw(bad); !errors.Is(err, ErrUnknownProgram) {
		t.Errorf("missing entry: %v", err)
	}
	bad = draw
	bad.Inputs = inputs[:1]
	if err := d.Draw(bad); err == nil {
		t.Error("unbound slot accepted")
	}
	bad = draw
	bad.Inputs = []gpucore.TextureBinding{{Binding: shader.BindingSourceColor, Texture: out}, inputs[1]}
	if err := d.Draw(bad); !errors.Is(err, ErrFeedbackLoop) {
		t.Errorf("feedback loop: %v", err)
	}
	bad = draw
	bad.Inputs = []gpucore.TextureBinding{inputs[0], {Binding: shader.BindingWeights, Texture: color}}
	if err := d.Draw(bad); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("wrong sample kind: %v", err)
	}

	// An sRGB attachment gets its own pipeline.
	srgb := mustTexture(t, d, "srgb", 8, 8, gpucore.TextureFormatRGBA8UnormSRGB, gpucore.TextureUsageAll)
	if err := d.AttachColor(fb, 0, srgb); err != nil {
		t.Fatal(err)
	}
	if err := d.Draw(draw); err != nil {
		t.Fatalf("Draw() to sRGB error = %v", err)
	}
	if got := len(d.programs[prog].entries[gpucore.EntryMain].pipelines); got != 2 {
		t.Errorf("pipelines = %d, want 2", got)
	}
	d.Discard()
}

func TestCopyAndBlit(t *testing.T) {
	d := newTestDevice(t)
	rgba := mustTexture(t, d, "rgba", 8, 8, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	srgb := mustTexture(t, d, "srgb", 8, 8, gpucore.TextureFormatRGBA8UnormSRGB, gpucore.TextureUsageAll)
	bgra := mustTexture(t, d, "bgra", 8, 8, gpucore.TextureFormatBGRA8Unorm, gpucore.TextureUsageAll)
	small := mustTexture(t, d, "small", 4, 4, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)

	if err := d.CopyTexture(rgba, srgb); err != nil {
		t.Errorf("copy across sRGB-ness: %v", err)
	}
	if err := d.CopyTexture(rgba, bgra); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("copy across channel order: %v", err)
	}
	if err := d.CopyTexture(rgba, small); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("copy across sizes: %v", err)
	}

	fb, _ := d.CreateFramebuffer("blit")
	if err := d.AttachColor(fb, 0, srgb); err != nil {
		t.Fatal(err)
	}
	if err := d.BlitFramebuffer(fb, bgra); err != nil {
		t.Errorf("BlitFramebuffer() error = %v", err)
	}
	if err := d.BlitFramebuffer(fb, rgba); err != nil {
		t.Errorf("BlitFramebuffer() error = %v", err)
	}
	if err := d.BlitFramebuffer(fb, small); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("blit across sizes: %v", err)
	}
	if err := d.BlitFramebuffer(fb, srgb); !errors.Is(err, ErrFeedbackLoop) {
		t.Errorf("blit onto source: %v", err)
	}
	if len(d.blits) != 2 {
		t.Errorf("blit programs = %d, want 2", len(d.blits))
	}
	if err := d.Submit(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

func TestDestroyDeferredWhilePending(t *testing.T) {
	d := newTestDevice(t)
	a := mustTexture(t, d, "a", 4, 4, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	b := mustTexture(t, d, "b", 4, 4, gpucore.TextureFormatRGBA8UnormSRGB, gpucore.TextureUsageAll)
	if err := d.CopyTexture(a, b); err != nil {
		t.Fatal(err)
	}
	d.DestroyTexture(a)
	if len(d.graveyard) != 1 {
		t.Fatalf("graveyard = %d, want 1", len(d.graveyard))
	}
	if err := d.Submit(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(d.graveyard) != 0 {
		t.Error("graveyard not emptied by Submit")
	}
}

func TestClose(t *testing.T) {
	device, queue := createNoopDevice(t)
	d, err := NewFromHAL(device, queue, "noop")
	if err != nil {
		t.Fatal(err)
	}
	mustTexture(t, d, "a", 4, 4, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	d.Close()
	d.Close()
	if len(d.textures) != 0 {
		t.Error("textures survive Close")
	}
	if _, err := d.CreateTexture(gpucore.TextureDesc{Width: 1, Height: 1, Format: gpucore.TextureFormatRGBA8Unorm}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateTexture after Close: %v", err)
	}
	if err := d.Submit(); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close: %v", err)
	}
}

func TestManagerFrame(t *testing.T) {
	d := newTestDevice(t)
	m, err := cmaa.New(d)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer m.Destroy()
	if !m.Capabilities().Tier {
		t.Error("WebGPU device does not enable mini buffer culling")
	}

	src := mustTexture(t, d, "src", 32, 24, gpucore.TextureFormatRGBA8Unorm, gpucore.TextureUsageAll)
	dst := mustTexture(t, d, "dst", 32, 24, gpucore.TextureFormatBGRA8Unorm, gpucore.TextureUsageAll)
	if err := d.WriteTexture(src, make([]byte, 32*24*4)); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := m.ApplyEffectTexture(src, dst, false); err != nil {
			t.Fatalf("ApplyEffectTexture() error = %v", err)
		}
	}
	if m.Frame() != 2 || m.State() != cmaa.StateReady {
		t.Errorf("Frame() = %d, State() = %v", m.Frame(), m.State())
	}
	if _, err := d.ReadTexture(dst); err != nil {
		t.Errorf("ReadTexture() error = %v", err)
	}
}
