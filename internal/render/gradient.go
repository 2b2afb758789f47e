package render

import (
	"image"
	"image/color"
)

// Stop is a gradient color stop at Offset in [0,1].
type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// FillLinearGradient paints dst with a gradient running from (x0,y0) to
// (x1,y1). Pixels are projected onto that axis and clamped at both ends.
// Stops must be sorted by offset and opaque.
func FillLinearGradient(dst *image.RGBA, x0, y0, x1, y1 float64, stops ...Stop) {
	if len(stops) == 0 {
		return
	}

	dx, dy := x1-x0, y1-y0
	length2 := dx*dx + dy*dy
	b := dst.Bounds()

	for py := b.Min.Y; py < b.Max.Y; py++ {
		for px := b.Min.X; px < b.Max.X; px++ {
			t := 0.0
			if length2 > 0 {
				t = ((float64(px)+0.5-x0)*dx + (float64(py)+0.5-y0)*dy) / length2
			}
			c := colorAt(stops, clamp01(t))
			i := dst.PixOffset(px, py)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = 255
		}
	}
}

func colorAt(stops []Stop, t float64) color.NRGBA {
	if t <= stops[0].Offset {
		return stops[0].Color
	}
	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		if t <= b.Offset {
			span := b.Offset - a.Offset
			if span <= 0 {
				return b.Color
			}
			return lerp(a.Color, b.Color, (t-a.Offset)/span)
		}
	}
	return stops[len(stops)-1].Color
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// diagonal fills the whole of dst from its top-left to bottom-right corner.
func diagonal(dst *image.RGBA, stops ...Stop) {
	b := dst.Bounds()
	FillLinearGradient(dst, float64(b.Min.X), float64(b.Min.Y), float64(b.Max.X), float64(b.Max.Y), stops...)
}
