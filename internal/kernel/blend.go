package kernel

import colorful "github.com/lucasb-eyer/go-colorful"

// Blend weight classes, stored as 2-bit codes per direction. The code for
// the edge with bit position i lives at bits 2i and 2i+1 of a weight texel.
const (
	WeightNone uint8 = iota
	WeightStraight
	WeightRunEnd
	WeightCorner
)

// Weights maps a weight class to the fraction of the neighbor mixed in.
var Weights = [4]float32{
	WeightNone:     0,
	WeightStraight: 1.0 / 8,
	WeightRunEnd:   3.0 / 16,
	WeightCorner:   1.0 / 4,
}

// MaxBlend caps the total weight of all neighbors of one pixel.
const MaxBlend = 0.5

// WeightCode returns the class stored for direction bit position i.
func WeightCode(w uint8, i int) uint8 {
	return (w >> (2 * i)) & 3
}

// perpendicular returns the edge bits orthogonal to direction i.
func perpendicular(i int) uint8 {
	if dirs[i].dx != 0 {
		return EdgeTop | EdgeBottom
	}
	return EdgeLeft | EdgeRight
}

// Combine classifies every refined edge of rows [y0, y1) and writes packed
// weight codes. An edge meeting a perpendicular edge on the same pixel is a
// corner. An edge whose run stops at an in-image neighbor along it is a run
// end. Anything else is a straight run. The image border continues a run.
// When mini is non-nil, pixels in zero blocks are written as zero without
// inspection.
func Combine(edges, mini, out *Mask, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < edges.W; x++ {
			if mini != nil && mini.Get(x/BlockSize, y/BlockSize) == 0 {
				out.Set(x, y, 0)
				continue
			}
			m := edges.Get(x, y)
			var code uint8
			for i, d := range dirs {
				if m&d.bit == 0 {
					continue
				}
				class := WeightStraight
				switch {
				case m&perpendicular(i) != 0:
					class = WeightCorner
				case runEnds(edges, x, y, i):
					class = WeightRunEnd
				}
				code |= class << (2 * i)
			}
			out.Set(x, y, code)
		}
	}
}

// runEnds reports whether a neighbor along edge i lacks the same edge.
func runEnds(edges *Mask, x, y, i int) bool {
	ax, ay := dirs[i].dy, dirs[i].dx
	bit := dirs[i].bit
	for _, s := range [2]int{-1, 1} {
		nx, ny := x+s*ax, y+s*ay
		if !inBounds(nx, ny, edges.W, edges.H) {
			continue
		}
		if edges.Get(nx, ny)&bit == 0 {
			return true
		}
	}
	return false
}

// ApplyStats counts how the apply pass treated each pixel.
type ApplyStats struct {
	Blended   int // pixels mixed with neighbors
	Unchanged int // processed pixels with zero weight
	Skipped   int // pixels culled by the mini buffer
}

// Add accumulates o into s.
func (s *ApplyStats) Add(o ApplyStats) {
	s.Blended += o.Blended
	s.Unchanged += o.Unchanged
	s.Skipped += o.Skipped
}

// Apply blends rows [y0, y1) of src into out according to weights. Pixels of
// blocks whose miniDepth texel is zero, and pixels with zero weight, are the
// exact source texel. miniDepth may be nil to process every pixel.
func Apply(src *Image, weights *Mask, miniDepth *Depth, out *Image, p Params, y0, y1 int) ApplyStats {
	var st ApplyStats
	for y := y0; y < y1; y++ {
		for x := 0; x < src.W; x++ {
			if miniDepth != nil && miniDepth.Get(x/BlockSize, y/BlockSize) == 0 {
				out.copyPixel(src, x, y)
				st.Skipped++
				continue
			}
			w := weights.Get(x, y)
			if w == 0 {
				out.copyPixel(src, x, y)
				st.Unchanged++
				continue
			}
			out.Set(x, y, blendPixel(src, w, x, y, p.GammaCorrect))
			st.Blended++
		}
	}
	return st
}

func blendPixel(src *Image, w uint8, x, y int, gamma bool) [4]float32 {
	var total float32
	for i := range dirs {
		total += Weights[WeightCode(w, i)]
	}
	scale := float32(1)
	if total > MaxBlend {
		scale = MaxBlend / total
		total = MaxBlend
	}

	c := decode(src.At(x, y), gamma)
	var acc [4]float32
	for k := range 4 {
		acc[k] = c[k] * (1 - total)
	}
	for i, d := range dirs {
		wi := Weights[WeightCode(w, i)] * scale
		if wi == 0 {
			continue
		}
		n := decode(src.At(x+d.dx, y+d.dy), gamma)
		for k := range 4 {
			acc[k] += n[k] * wi
		}
	}
	return encode(acc, gamma)
}

// decode converts an sRGB-encoded color to linear space when gamma is set.
// Alpha is always linear.
func decode(c [4]float32, gamma bool) [4]float32 {
	if !gamma {
		return c
	}
	r, g, b := colorful.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])}.LinearRgb()
	return [4]float32{float32(r), float32(g), float32(b), c[3]}
}

// encode is the inverse of decode.
func encode(c [4]float32, gamma bool) [4]float32 {
	if !gamma {
		return c
	}
	s := colorful.LinearRgb(float64(c[0]), float64(c[1]), float64(c[2]))
	return [4]float32{float32(s.R), float32(s.G), float32(s.B), c[3]}
}

// Debug writes a visualization of the refined edges: pixels without edges
// are the source at half intensity, horizontal-neighbor edges light red,
// vertical-neighbor edges light green and corners also light blue.
func Debug(src *Image, edges *Mask, out *Image, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < src.W; x++ {
			m := edges.Get(x, y)
			if m == 0 {
				c := src.At(x, y)
				out.Set(x, y, [4]float32{c[0] * 0.5, c[1] * 0.5, c[2] * 0.5, 1})
				continue
			}
			var c [4]float32
			c[3] = 1
			if m&(EdgeLeft|EdgeRight) != 0 {
				c[0] = 1
			}
			if m&(EdgeTop|EdgeBottom) != 0 {
				c[1] = 1
			}
			if c[0] == 1 && c[1] == 1 {
				c[2] = 1
			}
			out.Set(x, y, c)
		}
	}
}
