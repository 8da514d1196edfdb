package cmaa

import (
	"testing"

	"github.com/gogpu/cmaa/backend/software"
	"github.com/gogpu/cmaa/gpucore"
)

func newDevice(t *testing.T, opts ...software.Option) *software.Device {
	t.Helper()
	dev := software.New(append([]software.Option{software.WithWorkers(4)}, opts...)...)
	t.Cleanup(dev.Close)
	return dev
}

func newManager(t *testing.T, dev gpucore.Device, opts ...Option) *Manager {
	t.Helper()
	m, err := New(dev, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(m.Destroy)
	return m
}

func newTexture(t *testing.T, dev gpucore.Device, label string, w, h int, f gpucore.TextureFormat, pix []byte) gpucore.TextureID {
	t.Helper()
	return newTextureUsage(t, dev, label, w, h, f, gpucore.TextureUsageAll, pix)
}

func newTextureUsage(t *testing.T, dev gpucore.Device, label string, w, h int, f gpucore.TextureFormat, usage gpucore.TextureUsage, pix []byte) gpucore.TextureID {
	t.Helper()
	id, err := dev.CreateTexture(gpucore.TextureDesc{Label: label, Width: w, Height: h, Format: f, Usage: usage})
	if err != nil {
		t.Fatalf("CreateTexture(%s) error = %v", label, err)
	}
	if pix != nil {
		if err := dev.WriteTexture(id, pix); err != nil {
			t.Fatalf("WriteTexture(%s) error = %v", label, err)
		}
	}
	return id
}

func readback(t *testing.T, dev gpucore.Device, id gpucore.TextureID) []byte {
	t.Helper()
	pix, err := dev.ReadTexture(id)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	return pix
}

// fillRGBA returns a w x h RGBA image colored by fn.
func fillRGBA(w, h int, fn func(x, y int) [4]byte) []byte {
	pix := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			c := fn(x, y)
			copy(pix[(y*w+x)*4:], c[:])
		}
	}
	return pix
}

var (
	white = [4]byte{255, 255, 255, 255}
	black = [4]byte{0, 0, 0, 255}
	red   = [4]byte{255, 0, 0, 255}
	blue  = [4]byte{0, 0, 255, 255}
)

func flatImage(w, h int) []byte {
	return fillRGBA(w, h, func(int, int) [4]byte { return [4]byte{90, 140, 200, 255} })
}

// verticalEdge is white left of column w/2 and black from it on.
func verticalEdge(w, h int) []byte {
	return fillRGBA(w, h, func(x, _ int) [4]byte {
		if x < w/2 {
			return white
		}
		return black
	})
}

func checkerboard(w, h, block int) []byte {
	return fillRGBA(w, h, func(x, y int) [4]byte {
		if (x/block+y/block)%2 == 0 {
			return white
		}
		return black
	})
}

// swapRB converts between RGBA and BGRA channel order.
func swapRB(pix []byte) []byte {
	out := make([]byte, len(pix))
	for i := 0; i+3 < len(pix); i += 4 {
		out[i], out[i+1], out[i+2], out[i+3] = pix[i+2], pix[i+1], pix[i], pix[i+3]
	}
	return out
}

// pixelDiff returns the summed absolute channel difference at pixel i.
func pixelDiff(a, b []byte, i int) int {
	var d int
	for k := range 4 {
		v := int(a[i*4+k]) - int(b[i*4+k])
		if v < 0 {
			v = -v
		}
		d += v
	}
	return d
}

func totalDiff(a, b []byte) int {
	var d int
	for i := range len(a) / 4 {
		d += pixelDiff(a, b, i)
	}
	return d
}

// applyImage runs ApplyEffectTexture on pix and returns the destination.
func applyImage(t *testing.T, dev gpucore.Device, m *Manager, w, h int, pix []byte, copyRequested bool) []byte {
	t.Helper()
	src := newTexture(t, dev, "source", w, h, gpucore.TextureFormatRGBA8Unorm, pix)
	dst := newTexture(t, dev, "destination", w, h, gpucore.TextureFormatRGBA8Unorm, nil)
	defer dev.DestroyTexture(src)
	defer dev.DestroyTexture(dst)
	if err := m.ApplyEffectTexture(src, dst, copyRequested); err != nil {
		t.Fatalf("ApplyEffectTexture() error = %v", err)
	}
	return readback(t, dev, dst)
}
