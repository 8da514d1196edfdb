// Package kernel implements the CMAA passes on the CPU.
//
// Every function processes the rows [y0, y1) of its output and reads its
// inputs only, so disjoint row bands can run concurrently. These are the
// reference semantics the WGSL programs in internal/shader mirror.
package kernel

import "math"

// Image is a tightly packed RGBA image with 8 bits per channel.
type Image struct {
	W, H int
	Pix  []uint8
}

// NewImage allocates a zeroed w x h image.
func NewImage(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]uint8, w*h*4)}
}

// At returns the normalized color at (x, y).
func (m *Image) At(x, y int) [4]float32 {
	i := (y*m.W + x) * 4
	p := m.Pix[i : i+4 : i+4]
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

// Set stores a normalized color at (x, y), rounding to the nearest 8-bit value.
func (m *Image) Set(x, y int, c [4]float32) {
	i := (y*m.W + x) * 4
	p := m.Pix[i : i+4 : i+4]
	for k := range 4 {
		p[k] = unorm8(c[k])
	}
}

// copyPixel copies the texel at (x, y) from src unchanged.
func (m *Image) copyPixel(src *Image, x, y int) {
	i := (y*m.W + x) * 4
	copy(m.Pix[i:i+4], src.Pix[i:i+4])
}

// Luma returns the BT.601 luminance of the stored (encoded) color at (x, y).
func (m *Image) Luma(x, y int) float32 {
	i := (y*m.W + x) * 4
	return Luma(m.Pix[i], m.Pix[i+1], m.Pix[i+2])
}

// Luma returns the BT.601 luminance of an 8-bit color, normalized to [0, 1].
func Luma(r, g, b uint8) float32 {
	return (0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)) / 255
}

// Mask is a single-value-per-texel 8-bit image. Stride is the texel size in
// bytes; the value lives in the first byte of each texel.
type Mask struct {
	W, H, Stride int
	Pix          []uint8
}

// NewMask allocates a zeroed w x h mask with the given texel stride.
func NewMask(w, h, stride int) *Mask {
	return &Mask{W: w, H: h, Stride: stride, Pix: make([]uint8, w*h*stride)}
}

// Get returns the value at (x, y).
func (m *Mask) Get(x, y int) uint8 {
	return m.Pix[(y*m.W+x)*m.Stride]
}

// Set stores v at (x, y).
func (m *Mask) Set(x, y int, v uint8) {
	m.Pix[(y*m.W+x)*m.Stride] = v
}

// Depth is a single float32 per texel image.
type Depth struct {
	W, H int
	Pix  []float32
}

// NewDepth allocates a zeroed w x h depth image.
func NewDepth(w, h int) *Depth {
	return &Depth{W: w, H: h, Pix: make([]float32, w*h)}
}

// Get returns the value at (x, y).
func (d *Depth) Get(x, y int) float32 {
	return d.Pix[y*d.W+x]
}

// Set stores v at (x, y).
func (d *Depth) Set(x, y int, v float32) {
	d.Pix[y*d.W+x] = v
}

// MiniSize returns the coarse buffer size for a w x h image: one texel per
// 4x4 block, rounded up.
func MiniSize(w, h int) (int, int) {
	return (w + BlockSize - 1) / BlockSize, (h + BlockSize - 1) / BlockSize
}

func unorm8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
