package kernel

// Edge mask bits, one per cardinal neighbor boundary.
const (
	EdgeLeft uint8 = 1 << iota
	EdgeTop
	EdgeRight
	EdgeBottom

	EdgeAll = EdgeLeft | EdgeTop | EdgeRight | EdgeBottom
)

// BlockSize is the side of the square pixel block one mini texel covers.
const BlockSize = 4

// Params carries the tunable constants of the passes.
type Params struct {
	// EdgeThreshold is the luma difference above which a boundary is an edge.
	EdgeThreshold float32

	// ContrastFactor drops an edge whose contrast is below this fraction of
	// the strongest edge touching either of its two pixels.
	ContrastFactor float32

	// GammaCorrect blends in linear space.
	GammaCorrect bool
}

type direction struct {
	dx, dy int
	bit    uint8
}

// dirs is indexed by bit position.
var dirs = [4]direction{
	{-1, 0, EdgeLeft},
	{0, -1, EdgeTop},
	{1, 0, EdgeRight},
	{0, 1, EdgeBottom},
}

func inBounds(x, y, w, h int) bool {
	return x >= 0 && y >= 0 && x < w && y < h
}

// DetectEdges writes the 4-bit edge mask of every pixel in rows [y0, y1).
// Boundaries against out-of-image neighbors are never edges.
func DetectEdges(src *Image, out *Mask, p Params, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < src.W; x++ {
			l := src.Luma(x, y)
			var m uint8
			for _, d := range dirs {
				nx, ny := x+d.dx, y+d.dy
				if !inBounds(nx, ny, src.W, src.H) {
					continue
				}
				if abs32(l-src.Luma(nx, ny)) > p.EdgeThreshold {
					m |= d.bit
				}
			}
			out.Set(x, y, m)
		}
	}
}

// maxContrast returns the strongest contrast among the edges set at (x, y).
func maxContrast(src *Image, edges *Mask, x, y int) float32 {
	m := edges.Get(x, y)
	if m == 0 {
		return 0
	}
	l := src.Luma(x, y)
	var best float32
	for _, d := range dirs {
		if m&d.bit == 0 {
			continue
		}
		if c := abs32(l - src.Luma(x+d.dx, y+d.dy)); c > best {
			best = c
		}
	}
	return best
}

// RefineEdges applies local contrast adaptation to the mask produced by
// DetectEdges and clears fully enclosed single pixels. The decision for a
// boundary depends only on the two pixels sharing it, so the refined mask
// stays symmetric.
func RefineEdges(src *Image, in, out *Mask, p Params, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < src.W; x++ {
			m := in.Get(x, y)
			if m == 0 {
				out.Set(x, y, 0)
				continue
			}
			l := src.Luma(x, y)
			local := maxContrast(src, in, x, y)
			var kept uint8
			for _, d := range dirs {
				if m&d.bit == 0 {
					continue
				}
				nx, ny := x+d.dx, y+d.dy
				if m == EdgeAll || in.Get(nx, ny) == EdgeAll {
					continue
				}
				c := abs32(l - src.Luma(nx, ny))
				limit := max(local, maxContrast(src, in, nx, ny))
				if c >= p.ContrastFactor*limit {
					kept |= d.bit
				}
			}
			out.Set(x, y, kept)
		}
	}
}

// Reduce writes, for every mini texel in rows [y0, y1) of the mini buffers,
// the OR of the refined masks of its 4x4 block (color class) and the
// strongest edge contrast inside the block (depth class). A zero texel marks
// a block that needs no processing.
func Reduce(src *Image, edges, miniColor *Mask, miniDepth *Depth, y0, y1 int) {
	for by := y0; by < y1; by++ {
		for bx := 0; bx < miniColor.W; bx++ {
			var or uint8
			var peak float32
			for y := by * BlockSize; y < min((by+1)*BlockSize, edges.H); y++ {
				for x := bx * BlockSize; x < min((bx+1)*BlockSize, edges.W); x++ {
					if m := edges.Get(x, y); m != 0 {
						or |= m
						peak = max(peak, maxContrast(src, edges, x, y))
					}
				}
			}
			miniColor.Set(bx, by, or)
			miniDepth.Set(bx, by, peak)
		}
	}
}
