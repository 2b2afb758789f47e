package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Align is the horizontal anchor of a text run.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Fonts holds the parsed regular and bold typefaces. Parsed fonts are safe
// for concurrent use; faces are not, so Face returns a fresh one each call.
type Fonts struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// LoadFonts parses the embedded Go fonts.
func LoadFonts() (*Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	return &Fonts{regular: regular, bold: bold}, nil
}

// Face returns a face of the given pixel size.
func (f *Fonts) Face(size float64, bold bool) (font.Face, error) {
	src := f.regular
	if bold {
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %.0fpx face: %w", size, err)
	}
	return face, nil
}

// Measure returns the advance width of s in pixels.
func Measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// Wrap greedily packs the words of text into lines whose measured width
// stays within budget. A single word wider than budget gets a line of its
// own. Blank text yields no lines.
func Wrap(text string, budget int, measure func(string) int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if current != "" && measure(candidate) > budget {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// DrawText draws s with its vertical middle at y, anchored at x by align.
func DrawText(dst draw.Image, face font.Face, s string, x, y int, align Align, c color.Color) {
	width := font.MeasureString(face, s)
	dot := fixed.I(x)
	switch align {
	case AlignCenter:
		dot -= width / 2
	case AlignRight:
		dot -= width
	}

	m := face.Metrics()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: dot, Y: fixed.I(y) + (m.Ascent-m.Descent)/2},
	}
	d.DrawString(s)
}

// DrawLines draws lines as a block centred vertically on centerY.
func DrawLines(dst draw.Image, face font.Face, lines []string, x, centerY, lineHeight int, align Align, c color.Color) {
	for i, y := range lineOffsets(len(lines), centerY, lineHeight) {
		DrawText(dst, face, lines[i], x, y, align, c)
	}
}

// lineOffsets returns the y coordinate of each of n lines so the block is
// centred on centerY: the first line sits at centerY-(n-1)*lineHeight/2.
func lineOffsets(n, centerY, lineHeight int) []int {
	ys := make([]int, n)
	start := float64(centerY) - float64((n-1)*lineHeight)/2
	for i := range ys {
		ys[i] = int(start + float64(i*lineHeight))
	}
	return ys
}

// measurer binds a face to the Wrap measure signature.
func measurer(face font.Face) func(string) int {
	return func(s string) int { return Measure(face, s) }
}
