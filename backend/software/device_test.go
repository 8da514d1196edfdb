package software

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/shader"
)

func newTestDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	d := New(append([]Option{WithWorkers(2)}, opts...)...)
	t.Cleanup(d.Close)
	return d
}

func mustTexture(t *testing.T, d *Device, label string, w, h int, f gpucore.TextureFormat) gpucore.TextureID {
	t.Helper()
	id, err := d.CreateTexture(gpucore.TextureDesc{Label: label, Width: w, Height: h, Format: f, Usage: gpucore.TextureUsageAll})
	if err != nil {
		t.Fatalf("CreateTexture(%s): %v", label, err)
	}
	return id
}

func TestCreateTextureValidation(t *testing.T) {
	d := newTestDevice(t)

	tests := []struct {
		name string
		desc gpucore.TextureDesc
		want error
	}{
		{"zero width", gpucore.TextureDesc{Width: 0, Height: 4, Format: gpucore.TextureFormatRGBA8Unorm}, gpucore.ErrInvalidTextureSize},
		{"negative height", gpucore.TextureDesc{Width: 4, Height: -1, Format: gpucore.TextureFormatRGBA8Unorm}, gpucore.ErrInvalidTextureSize},
		{"undefined format", gpucore.TextureDesc{Width: 4, Height: 4}, ErrFormatMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.CreateTexture(tt.desc); !errors.Is(err, tt.want) {
				t.Errorf("CreateTexture() error = %v, want %v", err, tt.want)
			}
		})
	}
	if s := d.Stats(); s.Textures != 0 || s.TexturesCreated != 0 {
		t.Errorf("failed creations were counted: %+v", s)
	}
}

func TestResourceAccounting(t *testing.T) {
	d := newTestDevice(t)

	a := mustTexture(t, d, "a", 4, 4, gpucore.TextureFormatRGBA8Unorm)
	b := mustTexture(t, d, "b", 4, 4, gpucore.TextureFormatR8Uint)
	fb, err := d.CreateFramebuffer("fb")
	if err != nil {
		t.Fatal(err)
	}
	if a == b || gpucore.TextureID(fb) == a || gpucore.TextureID(fb) == b {
		t.Errorf("IDs reused: a=%d b=%d fb=%d", a, b, fb)
	}

	s := d.Stats()
	if s.Textures != 2 || s.Framebuffers != 1 || s.PeakTextures != 2 {
		t.Errorf("Stats() = %+v", s)
	}

	d.DestroyTexture(a)
	d.DestroyTexture(a) // unknown IDs are ignored
	d.DestroyFramebuffer(fb)
	c := mustTexture(t, d, "c", 4, 4, gpucore.TextureFormatR8Uint)
	if c == a {
		t.Error("destroyed ID reused")
	}
	s = d.Stats()
	if s.Textures != 2 || s.Framebuffers != 0 || s.PeakTextures != 2 || s.TexturesCreated != 3 {
		t.Errorf("Stats() after destroy = %+v", s)
	}
	if _, ok := d.TextureInfo(a); ok {
		t.Error("TextureInfo() found destroyed texture")
	}
	if info, ok := d.TextureInfo(c); !ok || info.Label != "c" || info.Format != gpucore.TextureFormatR8Uint {
		t.Errorf("TextureInfo(c) = %+v, %v", info, ok)
	}
}

func TestWriteReadTexture(t *testing.T) {
	d := newTestDevice(t)
	id := mustTexture(t, d, "rgba", 2, 1, gpucore.TextureFormatRGBA8Unorm)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := d.WriteTexture(id, data); err != nil {
		t.Fatal(err)
	}
	got, err := d.ReadTexture(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("ReadTexture() = %v, want %v", got, data)
	}

	if err := d.WriteTexture(id, data[:4]); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("short write error = %v, want ErrSizeMismatch", err)
	}
	if _, err := d.ReadTexture(gpucore.TextureID(999)); !errors.Is(err, ErrUnknownTexture) {
		t.Errorf("ReadTexture(unknown) error = %v", err)
	}

	ro, err := d.CreateTexture(gpucore.TextureDesc{Width: 1, Height: 1, Format: gpucore.TextureFormatR8Unorm, Usage: gpucore.TextureUsageTextureBinding})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteTexture(ro, []byte{1}); !errors.Is(err, ErrInvalidUsage) {
		t.Errorf("write without CopyDst error = %v, want ErrInvalidUsage", err)
	}
}

func TestCopyTextureDeferredAndDiscard(t *testing.T) {
	d := newTestDevice(t)
	src := mustTexture(t, d, "src", 1, 1, gpucore.TextureFormatRGBA8Unorm)
	dst := mustTexture(t, d, "dst", 1, 1, gpucore.TextureFormatRGBA8UnormSRGB)
	if err := d.WriteTexture(src, []byte{10, 20, 30, 40}); err != nil {
		t.Fatal(err)
	}

	if err := d.CopyTexture(src, dst); err != nil {
		t.Fatal(err)
	}
	d.Discard()
	got, _ := d.ReadTexture(dst)
	if !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Errorf("discarded copy was executed: %v", got)
	}

	if err := d.CopyTexture(src, dst); err != nil {
		t.Fatal(err)
	}
	got, _ = d.ReadTexture(dst)
	if !bytes.Equal(got, []byte{10, 20, 30, 40}) {
		t.Errorf("copy result = %v", got)
	}
	if s := d.Stats(); s.Copies != 1 || s.Submits != 1 {
		t.Errorf("Stats() = %+v, want one copy in one submit", s)
	}
}

func TestCopyTextureRejects(t *testing.T) {
	d := newTestDevice(t)
	rgba := mustTexture(t, d, "rgba", 2, 2, gpucore.TextureFormatRGBA8Unorm)
	bgra := mustTexture(t, d, "bgra", 2, 2, gpucore.TextureFormatBGRA8Unorm)
	small := mustTexture(t, d, "small", 1, 1, gpucore.TextureFormatRGBA8Unorm)

	if err := d.CopyTexture(rgba, bgra); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("copy rgba->bgra error = %v, want ErrFormatMismatch", err)
	}
	if err := d.CopyTexture(rgba, small); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("copy 2x2->1x1 error = %v, want ErrSizeMismatch", err)
	}
}

func TestBlitSwapsChannelOrder(t *testing.T) {
	d := newTestDevice(t)
	src := mustTexture(t, d, "src", 1, 1, gpucore.TextureFormatRGBA8Unorm)
	dst := mustTexture(t, d, "dst", 1, 1, gpucore.TextureFormatBGRA8UnormSRGB)
	if err := d.WriteTexture(src, []byte{10, 20, 30, 40}); err != nil {
		t.Fatal(err)
	}
	fb, _ := d.CreateFramebuffer("fb")
	if err := d.AttachColor(fb, 0, src); err != nil {
		t.Fatal(err)
	}
	if err := d.BlitFramebuffer(fb, dst); err != nil {
		t.Fatal(err)
	}
	got, _ := d.ReadTexture(dst)
	if !bytes.Equal(got, []byte{30, 20, 10, 40}) {
		t.Errorf("blit result = %v, want BGRA order of source", got)
	}
}

func TestFramebufferCompleteness(t *testing.T) {
	d := newTestDevice(t)
	fb, _ := d.CreateFramebuffer("fb")

	if err := d.CheckFramebuffer(fb); !errors.Is(err, gpucore.ErrFramebufferIncomplete) {
		t.Errorf("empty framebuffer error = %v", err)
	}

	big := mustTexture(t, d, "big", 8, 8, gpucore.TextureFormatRGBA8Unorm)
	small := mustTexture(t, d, "small", 2, 2, gpucore.TextureFormatR32Float)
	if err := d.AttachColor(fb, 0, big); err != nil {
		t.Fatal(err)
	}
	if err := d.CheckFramebuffer(fb); err != nil {
		t.Errorf("single attachment error = %v", err)
	}
	if err := d.AttachColor(fb, 1, small); err != nil {
		t.Fatal(err)
	}
	if err := d.CheckFramebuffer(fb); !errors.Is(err, gpucore.ErrFramebufferIncomplete) {
		t.Errorf("mixed sizes error = %v", err)
	}
	if err := d.AttachColor(fb, 1, gpucore.InvalidID); err != nil {
		t.Fatal(err)
	}
	d.DestroyTexture(big)
	if err := d.CheckFramebuffer(fb); !errors.Is(err, gpucore.ErrFramebufferIncomplete) {
		t.Errorf("destroyed attachment error = %v", err)
	}
	if err := d.AttachColor(fb, gpucore.MaxColorAttachments, small); err == nil {
		t.Error("out of range attachment index accepted")
	}
}

func TestFramebufferFailureHook(t *testing.T) {
	errBoom := errors.New("boom")
	d := newTestDevice(t, WithFailures(Failures{
		Framebuffer: func(atts []gpucore.TextureDesc) error {
			for _, a := range atts {
				if a.Label == "bad" {
					return errBoom
				}
			}
			return nil
		},
	}))
	fb, _ := d.CreateFramebuffer("fb")
	_ = d.AttachColor(fb, 0, mustTexture(t, d, "bad", 1, 1, gpucore.TextureFormatRGBA8Unorm))
	err := d.CheckFramebuffer(fb)
	if !errors.Is(err, gpucore.ErrFramebufferIncomplete) || !errors.Is(err, errBoom) {
		t.Errorf("CheckFramebuffer() error = %v, want both sentinels", err)
	}
}

func TestCreateProgramValidation(t *testing.T) {
	d := newTestDevice(t)

	desc, err := shader.Build(gpucore.VariantEdgesA, gpucore.Defines{EdgeThreshold: 0.05})
	if err != nil {
		t.Fatal(err)
	}
	id, err := d.CreateProgram(desc)
	if err != nil {
		t.Fatalf("CreateProgram() error = %v", err)
	}
	if d.Stats().Programs != 1 {
		t.Error("program not counted")
	}
	d.DestroyProgram(id)
	if d.Stats().Programs != 0 {
		t.Error("program not released")
	}

	broken := desc
	broken.Source = strings.ReplaceAll(desc.Source, "fn fs_main(", "fn fs_other(")
	_, err = d.CreateProgram(broken)
	var ce *gpucore.CompileError
	if !errors.As(err, &ce) || ce.Stage != "link" || !strings.Contains(ce.Log, "fs_main") {
		t.Errorf("CreateProgram(missing entry) error = %v", err)
	}
}

func TestProgramFailureHookWrapsCompileError(t *testing.T) {
	d := newTestDevice(t, WithFailures(Failures{
		Program: func(desc gpucore.ProgramDesc) error {
			if desc.Variant == gpucore.VariantCombine {
				return errors.New("out of registers")
			}
			return nil
		},
	}))
	desc, _ := shader.Build(gpucore.VariantCombine, gpucore.Defines{})
	_, err := d.CreateProgram(desc)
	var ce *gpucore.CompileError
	if !errors.As(err, &ce) || ce.Log != "out of registers" {
		t.Errorf("CreateProgram() error = %v, want CompileError from hook", err)
	}
}

func TestTextureFailureHook(t *testing.T) {
	errOOM := errors.New("out of memory")
	d := newTestDevice(t, WithFailures(Failures{
		Texture: func(desc gpucore.TextureDesc) error {
			if desc.Width > 64 {
				return errOOM
			}
			return nil
		},
	}))
	if _, err := d.CreateTexture(gpucore.TextureDesc{Width: 128, Height: 1, Format: gpucore.TextureFormatR8Unorm}); !errors.Is(err, errOOM) {
		t.Errorf("CreateTexture() error = %v, want injected error", err)
	}
	mustTexture(t, d, "ok", 64, 1, gpucore.TextureFormatR8Unorm)
}

func TestClosedDevice(t *testing.T) {
	d := New()
	d.Close()
	d.Close()
	if _, err := d.CreateTexture(gpucore.TextureDesc{Width: 1, Height: 1, Format: gpucore.TextureFormatR8Unorm}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateTexture() after Close error = %v", err)
	}
	if err := d.Submit(); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v", err)
	}
}

func TestDefaultInfo(t *testing.T) {
	d := newTestDevice(t)
	info := d.Info()
	if !strings.HasPrefix(info.Version, "OpenGL ES 3.2") {
		t.Errorf("Version = %q", info.Version)
	}
	if !info.HasExtension("GL_NV_image_formats") {
		t.Error("default info lacks GL_NV_image_formats")
	}

	custom := gpucore.ContextInfo{Version: "OpenGL ES 3.0"}
	if got := newTestDevice(t, WithInfo(custom)).Info(); got.Version != custom.Version {
		t.Errorf("WithInfo not applied: %+v", got)
	}
}
