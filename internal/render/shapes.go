package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

// Point is a canvas coordinate.
type Point struct {
	X, Y float64
}

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

// FillRect composites c over r.
func FillRect(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

// FillPolygon composites c over the closed polygon pts.
func FillPolygon(dst draw.Image, c color.Color, pts ...Point) {
	if len(pts) < 3 {
		return
	}
	z, clip := newRasterizer(dst)
	first := clip(pts[0])
	z.MoveTo(first.X, first.Y)
	for _, p := range pts[1:] {
		q := clip(p)
		z.LineTo(q.X, q.Y)
	}
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

// FillCircle composites c over the disc centred at (cx,cy).
func FillCircle(dst draw.Image, cx, cy, r float64, c color.Color) {
	if r <= 0 {
		return
	}
	z, clip := newRasterizer(dst)
	k := kappa * r
	move := func(p Point) { q := clip(p); z.MoveTo(q.X, q.Y) }
	cube := func(a, b, p Point) {
		ca, cb, cp := clip(a), clip(b), clip(p)
		z.CubeTo(ca.X, ca.Y, cb.X, cb.Y, cp.X, cp.Y)
	}

	move(Point{cx + r, cy})
	cube(Point{cx + r, cy + k}, Point{cx + k, cy + r}, Point{cx, cy + r})
	cube(Point{cx - k, cy + r}, Point{cx - r, cy + k}, Point{cx - r, cy})
	cube(Point{cx - r, cy - k}, Point{cx - k, cy - r}, Point{cx, cy - r})
	cube(Point{cx + k, cy - r}, Point{cx + r, cy - k}, Point{cx + r, cy})
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

type float32Point struct {
	X, Y float32
}

// newRasterizer returns a rasterizer sized to dst and a function that maps
// canvas points into rasterizer space, clamped to its bounds.
func newRasterizer(dst draw.Image) (*vector.Rasterizer, func(Point) float32Point) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	z := vector.NewRasterizer(w, h)
	clip := func(p Point) float32Point {
		x := p.X - float64(b.Min.X)
		y := p.Y - float64(b.Min.Y)
		return float32Point{X: float32(clampTo(x, float64(w))), Y: float32(clampTo(y, float64(h)))}
	}
	return z, clip
}

func clampTo(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
