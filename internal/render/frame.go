package render

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

var (
	fallbackStart = mustHex("#4facfe")
	fallbackEnd   = mustHex("#00f2fe")
)

// Fit returns where an image of size src lands when scaled to fit inside
// a FrameWidth x FrameHeight canvas, centred, aspect preserved.
func Fit(src image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return image.Rectangle{}
	}
	aspect := float64(src.X) / float64(src.Y)
	if aspect > float64(FrameWidth)/float64(FrameHeight) {
		h := int(float64(FrameWidth)/aspect + 0.5)
		y := (FrameHeight - h) / 2
		return image.Rect(0, y, FrameWidth, y+h)
	}
	w := int(float64(FrameHeight)*aspect + 0.5)
	x := (FrameWidth - w) / 2
	return image.Rect(x, 0, x+w, FrameHeight)
}

// SceneFrame letterboxes src onto a black video frame and overlays the
// wrapped description in a caption band.
func SceneFrame(fonts *Fonts, src image.Image, description string) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	dst := Fit(src.Bounds().Size())
	if dst.Empty() {
		return nil, fmt.Errorf("image has no area: %v", src.Bounds())
	}
	xdraw.CatmullRom.Scale(img, dst, src, src.Bounds(), xdraw.Over, nil)

	face, err := fonts.Face(36, false)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	FillRect(img, image.Rect(0, 900, FrameWidth, FrameHeight), withAlpha(black, 0.7))
	lines := Wrap(description, 1800, measurer(face))
	DrawLines(img, face, lines, FrameWidth/2, 990, 45, AlignCenter, white)

	return img, nil
}

// FallbackFrame stands in for a scene whose image could not be loaded.
// The description is drawn on one line, unwrapped.
func FallbackFrame(fonts *Fonts, ordinal int, description string) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	diagonal(img, Stop{0, fallbackStart}, Stop{1, fallbackEnd})

	heading, err := fonts.Face(60, true)
	if err != nil {
		return nil, err
	}
	defer heading.Close()
	body, err := fonts.Face(40, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	DrawText(img, heading, fmt.Sprintf("Scene %d", ordinal), FrameWidth/2, 440, AlignCenter, white)
	DrawText(img, body, description, FrameWidth/2, 640, AlignCenter, white)
	return img, nil
}
