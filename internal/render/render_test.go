package render

import (
	"image"
	"image/color"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
)

// tenPx measures every rune as ten pixels wide.
func tenPx(s string) int { return len([]rune(s)) * 10 }

func TestWrap(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		budget int
		want   []string
	}{
		{"empty", "", 100, nil},
		{"blank", "   ", 100, nil},
		{"fits", "a quiet village", 150, []string{"a quiet village"}},
		{"breaks", "a quiet village at dusk", 100, []string{"a quiet", "village at", "dusk"}},
		{"long word alone", "supercalifragilistic tale", 100, []string{"supercalifragilistic", "tale"}},
		{"collapses spaces", "one   two", 100, []string{"one two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.budget, tenPx)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q, %d) = %q, want %q", tt.text, tt.budget, got, tt.want)
			}
		})
	}
}

func TestWrap_NoLineExceedsBudgetUnlessSingleWord(t *testing.T) {
	text := "Central conflict: The pivotal story moment with Hindi cultural symbolism and dramatic tension"
	for budget := 20; budget <= 400; budget += 37 {
		for _, line := range Wrap(text, budget, tenPx) {
			if tenPx(line) > budget && strings.Contains(line, " ") {
				t.Errorf("budget %d: line %q is %dpx", budget, line, tenPx(line))
			}
		}
	}
}

func TestLineOffsets(t *testing.T) {
	if got := lineOffsets(1, 937, 35); !reflect.DeepEqual(got, []int{937}) {
		t.Errorf("single line = %v", got)
	}
	if got := lineOffsets(3, 937, 35); !reflect.DeepEqual(got, []int{902, 937, 972}) {
		t.Errorf("three lines = %v", got)
	}
	if got := lineOffsets(2, 540, 100); !reflect.DeepEqual(got, []int{490, 590}) {
		t.Errorf("two lines = %v", got)
	}
}

func TestPaletteFor(t *testing.T) {
	tests := []struct {
		desc    string
		ordinal int
		want    string
	}{
		{"A small VILLAGE by the river", 1, "#ff9a9e"},
		{"Deep forest at night", 2, "#a8edea"},
		{"Mountain peak", 3, "#667eea"},
		{"The river bends", 4, "#4facfe"},
		{"A golden sunrise", 1, "#fa709a"},
		{"Under the moon", 1, "#2c3e50"},
		{"A quiet conversation", 0, "#667eea"},
		{"A quiet conversation", 1, "#f093fb"},
		{"A quiet conversation", 2, "#43e97b"},
		{"A quiet conversation", 3, "#fa709a"},
		{"A quiet conversation", 5, "#f093fb"},
	}

	for _, tt := range tests {
		got := PaletteFor(tt.desc, tt.ordinal).Start
		if got != mustHex(tt.want) {
			t.Errorf("PaletteFor(%q, %d).Start = %v, want %s", tt.desc, tt.ordinal, got, tt.want)
		}
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#4facfe")
	if err != nil {
		t.Fatalf("ParseHex failed: %v", err)
	}
	if c != (color.NRGBA{R: 0x4f, G: 0xac, B: 0xfe, A: 255}) {
		t.Errorf("ParseHex = %v", c)
	}
	if _, err := ParseHex("#fff"); err == nil {
		t.Error("expected error for short hex")
	}
	if _, err := ParseHex("zzzzzz"); err == nil {
		t.Error("expected error for non-hex")
	}
}

func TestFillLinearGradient_Endpoints(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	start, end := mustHex("#000000"), mustHex("#ffffff")
	diagonal(img, Stop{0, start}, Stop{1, end})

	tl := img.RGBAAt(0, 0)
	br := img.RGBAAt(99, 99)
	mid := img.RGBAAt(50, 50)

	if tl.R > 5 {
		t.Errorf("top-left should be near start color, got %v", tl)
	}
	if br.R < 250 {
		t.Errorf("bottom-right should be near end color, got %v", br)
	}
	if mid.R < 120 || mid.R > 135 {
		t.Errorf("centre should be mid-grey, got %v", mid)
	}
	if tl.A != 255 || br.A != 255 {
		t.Error("gradient must be opaque")
	}
}

func TestFillCircleAndPolygon(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	FillCircle(img, 100, 100, 50, color.NRGBA{R: 255, A: 255})
	if got := img.RGBAAt(100, 100); got.R != 255 {
		t.Errorf("circle centre not filled: %v", got)
	}
	if got := img.RGBAAt(5, 5); got.A != 0 {
		t.Errorf("outside circle touched: %v", got)
	}
	for _, p := range []image.Point{{145, 100}, {100, 145}, {55, 100}, {100, 55}} {
		if got := img.RGBAAt(p.X, p.Y); got.R != 255 {
			t.Errorf("inside edge %v not filled: %v", p, got)
		}
	}
	if got := img.RGBAAt(140, 140); got.A != 0 {
		t.Errorf("corner outside the curve touched: %v", got)
	}

	// Partially off-canvas shapes must not panic.
	FillCircle(img, 190, 190, 150, color.NRGBA{G: 255, A: 128})
	FillPolygon(img, color.NRGBA{B: 255, A: 255}, Point{-50, -50}, Point{20, 10}, Point{10, 20})
}

func loadTestFonts(t *testing.T) *Fonts {
	t.Helper()
	fonts, err := LoadFonts()
	if err != nil {
		t.Fatalf("LoadFonts failed: %v", err)
	}
	return fonts
}

func TestSceneRenderer_Draw(t *testing.T) {
	fonts := loadTestFonts(t)
	r := NewSceneRenderer(fonts, rand.New(rand.NewPCG(1, 2)))

	img, err := r.Draw("Opening scene: a village house in nature on a long journey", 1, "English")
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, SceneSize, SceneSize) {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	// Caption band darkens the lower strip relative to the gradient above it.
	above := img.RGBAAt(5, 840)
	band := img.RGBAAt(5, 860)
	if int(band.R)+int(band.G)+int(band.B) >= int(above.R)+int(above.G)+int(above.B) {
		t.Errorf("caption band not darker: above=%v band=%v", above, band)
	}

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Error("output is not a PNG")
	}
}

func TestTitleCardAndPreview(t *testing.T) {
	fonts := loadTestFonts(t)

	card, err := TitleCard(fonts, "The Clever Crow and the Long Summer Drought of the Northern Plains", "AI StoryWeaver")
	if err != nil {
		t.Fatalf("TitleCard failed: %v", err)
	}
	if card.Bounds().Dx() != FrameWidth || card.Bounds().Dy() != FrameHeight {
		t.Errorf("title card bounds = %v", card.Bounds())
	}

	preview, err := Preview(fonts, "Tale", 180, []PreviewScene{{"one"}, {"two"}, {"three"}, {"four"}, {"five"}})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if preview.Bounds().Dx() != FrameWidth {
		t.Errorf("preview bounds = %v", preview.Bounds())
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name string
		src  image.Point
		want image.Rectangle
	}{
		{"square is pillarboxed", image.Pt(1024, 1024), image.Rect(420, 0, 1500, 1080)},
		{"wide is letterboxed", image.Pt(2000, 500), image.Rect(0, 300, 1920, 780)},
		{"exact frame", image.Pt(1920, 1080), image.Rect(0, 0, 1920, 1080)},
		{"empty", image.Pt(0, 10), image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fit(tt.src); got != tt.want {
				t.Errorf("Fit(%v) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestSceneFrame(t *testing.T) {
	fonts := loadTestFonts(t)
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	FillRect(src, src.Bounds(), white)

	frame, err := SceneFrame(fonts, src, "The hero crosses the river at dawn")
	if err != nil {
		t.Fatalf("SceneFrame failed: %v", err)
	}

	if c := frame.RGBAAt(100, 500); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("pillarbox should be black, got %v", c)
	}
	if c := frame.RGBAAt(960, 500); c.R < 250 {
		t.Errorf("image area should be white, got %v", c)
	}
	if c := frame.RGBAAt(600, 1070); c.R > 100 {
		t.Errorf("caption band should darken the image, got %v", c)
	}

	if _, err := SceneFrame(fonts, image.NewRGBA(image.Rectangle{}), "x"); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestFallbackFrame(t *testing.T) {
	frame, err := FallbackFrame(loadTestFonts(t), 2, "A storm over the hills")
	if err != nil {
		t.Fatalf("FallbackFrame failed: %v", err)
	}
	if frame.Bounds().Dx() != FrameWidth || frame.Bounds().Dy() != FrameHeight {
		t.Errorf("bounds = %v", frame.Bounds())
	}
	if c := frame.RGBAAt(0, 0); c.B < 200 {
		t.Errorf("top-left should be the gradient start, got %v", c)
	}
}
