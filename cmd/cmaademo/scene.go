package main

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/vector"
)

// Cube corner i has x, y and z set from bits 0, 1 and 2.
var cubeVertices = func() [8][3]float64 {
	var v [8][3]float64
	for i := range v {
		for axis := range 3 {
			v[i][axis] = -1
			if i&(1<<axis) != 0 {
				v[i][axis] = 1
			}
		}
	}
	return v
}()

// Faces wind counter-clockwise seen from outside the cube.
var cubeFaces = [6][4]int{
	{4, 5, 7, 6}, // +z
	{1, 0, 2, 3}, // -z
	{5, 1, 3, 7}, // +x
	{0, 4, 6, 2}, // -x
	{6, 7, 3, 2}, // +y
	{0, 1, 5, 4}, // -y
}

var (
	background = color.RGBA{R: 24, G: 26, B: 32, A: 255}
	faceColors = func() [6]color.RGBA {
		var c [6]color.RGBA
		for i := range c {
			r, g, b := colorful.Hsv(float64(i)*60, 0.65, 0.95).RGB255()
			c[i] = color.RGBA{R: r, G: g, B: b, A: 255}
		}
		return c
	}()
)

// cubePitch tilts the cube towards the viewer so three faces show.
const cubePitch = 0.55

// renderCube rasterizes a flat-shaded cube rotated by yaw radians about the
// vertical axis. Coverage is thresholded, so every edge is aliased.
func renderCube(size int, yaw float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = background.R, background.G, background.B, background.A
	}

	sy, cy := math.Sincos(yaw)
	sp, cp := math.Sincos(cubePitch)
	var rotated [8][3]float64
	for i, v := range cubeVertices {
		x := v[0]*cy + v[2]*sy
		z := -v[0]*sy + v[2]*cy
		rotated[i] = [3]float64{x, v[1]*cp - z*sp, v[1]*sp + z*cp}
	}

	scale := float64(size) * 0.26
	center := float64(size) / 2
	mask := image.NewAlpha(img.Bounds())
	for f, face := range cubeFaces {
		a, b, c := rotated[face[0]], rotated[face[1]], rotated[face[2]]
		// z of the face normal; faces pointing away are culled.
		nz := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
		if nz <= 0 {
			continue
		}
		var pts [4][2]float32
		for i, vi := range face {
			pts[i] = [2]float32{
				float32(center + rotated[vi][0]*scale),
				float32(center - rotated[vi][1]*scale),
			}
		}
		fillAliased(img, mask, pts[:], faceColors[f])
	}
	return img
}

// fillAliased fills the polygon pts into dst with hard edges. mask is
// scratch space of the same bounds.
func fillAliased(dst *image.RGBA, mask *image.Alpha, pts [][2]float32, c color.RGBA) {
	clear(mask.Pix)
	b := dst.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.MoveTo(pts[0][0], pts[0][1])
	for _, p := range pts[1:] {
		r.LineTo(p[0], p[1])
	}
	r.ClosePath()
	r.Draw(mask, b, image.Opaque, image.Point{})

	for i, a := range mask.Pix {
		if a < 128 {
			continue
		}
		o := i * 4
		dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2], dst.Pix[o+3] = c.R, c.G, c.B, c.A
	}
}
